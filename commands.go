package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/spritebaker/bake"
	"github.com/milk9111/spritebaker/capture"
	"github.com/milk9111/spritebaker/framebuffer"
	"github.com/milk9111/spritebaker/prefabs"
	"github.com/milk9111/spritebaker/scene"
	"github.com/milk9111/spritebaker/session"
	"github.com/milk9111/spritebaker/sim"
)

func runCapture(args []string) error {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	scenePath := fs.String("scene", "demo.yaml", "scene spec (disk path or embedded prefab name)")
	source := fs.String("source", "", "animated entity to capture (default: last used, else first animated)")
	camera := fs.String("camera", "", "camera entity (default: last used, else first camera)")
	size := fs.String("size", "", "render target size, e.g. 256 or 256x256")
	out := fs.String("out", "", "output root")
	dbPath := fs.String("db", "spritebaker.db", "session store")
	headless := fs.Bool("headless", false, "run without a window")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sc, err := scene.LoadFile(*scenePath)
	if err != nil {
		return err
	}

	store, err := session.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := store.Load(sc)
	if *source != "" {
		cfg.Source = *source
	}
	if *camera != "" {
		cfg.Camera = *camera
	}
	if *out != "" {
		cfg.OutputRoot = *out
	}
	if *size != "" {
		s, err := framebuffer.ParseSize(*size)
		if err != nil {
			return err
		}
		cfg.Size = s
	}
	if cfg.Source == "" {
		if names := sc.Animated(); len(names) > 0 {
			cfg.Source = names[0]
		}
	}
	if cfg.Camera == "" {
		if names := sc.Cameras(); len(names) > 0 {
			cfg.Camera = names[0]
		}
	}
	if err := store.Save(cfg); err != nil {
		log.Printf("capture: %v", err)
	}

	req := capture.Request{Size: cfg.Size, OutputRoot: cfg.OutputRoot}
	if cam, err := sc.Camera(cfg.Camera); err == nil {
		req.Camera = cam
	} else {
		log.Printf("capture: %v", err)
	}
	var hero *scene.Entity
	if e, err := sc.Entity(cfg.Source); err == nil {
		hero = e
		req.Source = e
	} else {
		log.Printf("capture: %v", err)
	}

	driver := sim.NewStepDriver(sc)
	driver.SetTargetRate(cfg.TargetRate)
	frames := framebuffer.NewManager("")
	engine := capture.NewEngine(frames, driver, bake.NewAssembler())

	if hero != nil {
		hero.Restart()
	}
	if err := engine.RequestCapture(req); err != nil {
		return err
	}

	if *headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := driver.Run(ctx); err != nil {
			engine.Abort()
		}
	} else {
		ebiten.SetWindowSize(512, 512)
		ebiten.SetWindowTitle(fmt.Sprintf("spritebaker - %s", cfg.Source))
		if err := ebiten.RunGame(NewGame(driver, engine, frames)); err != nil {
			return err
		}
	}

	snap := engine.Snapshot()
	switch snap.Outcome {
	case capture.OutcomeCompleted:
		log.Printf("capture: wrote %s", snap.Result.Prefab)
		return nil
	case capture.OutcomeStopped:
		log.Printf("capture: stopped, %d frames left in place", snap.Captured)
		return nil
	default:
		if snap.Err != nil {
			return snap.Err
		}
		return errors.New(snap.Status)
	}
}

type assembleFlags struct {
	scene  *string
	out    *string
	entity *string
	clip   *string
	rate   *float64
}

func newAssembleFlags(fs *flag.FlagSet) assembleFlags {
	return assembleFlags{
		scene:  fs.String("scene", "", "scene to read the clip name and rate from"),
		out:    fs.String("out", session.DefaultOutputRoot, "output root"),
		entity: fs.String("entity", "", "entity directory under the output root"),
		clip:   fs.String("clip", "", "clip name (default: from scene, else entity name)"),
		rate:   fs.Float64("rate", 0, "frame rate (default: from scene)"),
	}
}

func (f assembleFlags) request() (bake.Request, error) {
	req := bake.Request{OutputRoot: *f.out, Entity: *f.entity, Clip: *f.clip, FrameRate: *f.rate}
	if req.Entity == "" {
		return req, errors.New("-entity is required")
	}
	if *f.scene != "" {
		sc, err := scene.LoadFile(*f.scene)
		if err != nil {
			return req, err
		}
		e, err := sc.Entity(req.Entity)
		if err != nil {
			return req, err
		}
		if clips, ok := e.Animator(); ok && len(clips) > 0 {
			if req.Clip == "" {
				req.Clip = clips[0].Name
			}
			if req.FrameRate == 0 {
				req.FrameRate = clips[0].FrameRate
			}
		}
	}
	if req.FrameRate <= 0 {
		return req, errors.New("-rate or -scene is required")
	}
	return req, nil
}

func runAssemble(args []string) error {
	fs := flag.NewFlagSet("assemble", flag.ExitOnError)
	af := newAssembleFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := af.request()
	if err != nil {
		return err
	}
	res, err := bake.NewAssembler().Assemble(context.Background(), req)
	if err != nil {
		return err
	}
	log.Printf("assemble: %d frames -> %s", res.Frames, res.Prefab)
	return nil
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	af := newAssembleFlags(fs)
	debounce := fs.Duration("debounce", 250*time.Millisecond, "quiet period before re-baking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := af.request()
	if err != nil {
		return err
	}

	images := bake.NewLayout(req.OutputRoot, req.Entity).ImagesDir()
	if err := os.MkdirAll(images, 0o755); err != nil {
		return err
	}
	w, err := prefabs.NewWatcher(prefabs.IsFrameFile, images)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Printf("watch: %s", images)
	assembler := bake.NewAssembler()
	timer := time.NewTimer(*debounce)
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-w.Events:
			if !ok {
				return nil
			}
			log.Printf("watch: %s changed", path)
			timer.Reset(*debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)
		case <-timer.C:
			res, err := assembler.Assemble(ctx, req)
			switch {
			case errors.Is(err, bake.ErrNoFramesFound):
				log.Printf("watch: waiting for frames")
			case err != nil:
				log.Printf("watch: %v", err)
			default:
				log.Printf("watch: baked %d frames", res.Frames)
			}
		}
	}
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	scenePath := fs.String("scene", "demo.yaml", "scene spec")
	source := fs.String("source", "", "animated entity (default: first animated)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sc, err := scene.LoadFile(*scenePath)
	if err != nil {
		return err
	}
	name := *source
	if name == "" {
		if names := sc.Animated(); len(names) > 0 {
			name = names[0]
		}
	}
	e, err := sc.Entity(name)
	if err != nil {
		return err
	}
	clips, ok := e.Animator()
	if !ok {
		return fmt.Errorf("%w: %s", capture.ErrMissingAnimator, name)
	}
	if len(clips) == 0 {
		return fmt.Errorf("%w: %s", capture.ErrMissingClip, name)
	}
	c := clips[0]
	fmt.Printf("entity:     %s\n", name)
	fmt.Printf("clip:       %s\n", c.Name)
	fmt.Printf("duration:   %.3fs\n", c.Length)
	fmt.Printf("frames:     %d\n", c.TotalFrames())
	fmt.Printf("frame rate: %g\n", c.FrameRate)
	return nil
}
