package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbeddedImage(t *testing.T) {
	for _, path := range []string{"head.png", "assets/head.png"} {
		img, err := LoadImage(path)
		if err != nil {
			t.Fatalf("LoadImage(%q): %v", path, err)
		}
		if got := img.Bounds(); got != image.Rect(0, 0, 12, 12) {
			t.Fatalf("LoadImage(%q) bounds = %v", path, got)
		}
	}
}

func TestLoadImageFromDisk(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.NRGBA{R: 255, A: 255})
	path := filepath.Join(t.TempDir(), "part.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if got := img.RGBAAt(1, 1); got != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("pixel = %v", got)
	}
}

func TestToRGBARebasesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 7, 8))
	src.Set(5, 5, color.RGBA{G: 255, A: 255})
	out := ToRGBA(src)
	if out.Bounds() != image.Rect(0, 0, 2, 3) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if got := out.RGBAAt(0, 0); got.G != 255 {
		t.Fatalf("pixel = %v", got)
	}
}
