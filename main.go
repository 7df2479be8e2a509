package main

import (
	"fmt"
	"log"
	"os"
)

const usage = `usage: spritebaker <command> [flags]

commands:
  capture   render an animated entity to frames and bake them
  assemble  bake frames that are already on disk
  watch     re-bake whenever frames change
  inspect   print the first clip of an animated entity
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "capture":
		err = runCapture(os.Args[2:])
	case "assemble":
		err = runAssemble(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}
