package scene

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/milk9111/spritebaker/bake"
	"github.com/milk9111/spritebaker/capture"
	"github.com/milk9111/spritebaker/ecs"
	"github.com/milk9111/spritebaker/ecs/component"
	"github.com/milk9111/spritebaker/framebuffer"
	"github.com/milk9111/spritebaker/prefabs"
	"github.com/milk9111/spritebaker/sim"
)

func loadDemo(t *testing.T) *Scene {
	t.Helper()
	s, err := LoadFile("demo.yaml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	return s
}

func opaquePixels(rt *framebuffer.RenderTarget) int {
	n := 0
	for i := 3; i < len(rt.Color.Pix); i += 4 {
		if rt.Color.Pix[i] != 0 {
			n++
		}
	}
	return n
}

func TestLoadDemoScene(t *testing.T) {
	s := loadDemo(t)
	if got := s.Cameras(); len(got) != 1 || got[0] != "main_camera" {
		t.Fatalf("cameras = %v", got)
	}
	if got := s.Animated(); len(got) != 1 || got[0] != "hero" {
		t.Fatalf("animated = %v", got)
	}
	if !s.Resolve("floor") || s.Resolve("nobody") {
		t.Fatalf("resolve mismatch")
	}
	if _, err := s.Camera("hero"); err == nil {
		t.Fatalf("hero is not a camera")
	}
	if _, err := s.Entity("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	hero, err := s.Entity("hero")
	if err != nil {
		t.Fatal(err)
	}
	clips, ok := hero.Animator()
	if !ok || len(clips) != 1 || clips[0].TotalFrames() != 24 {
		t.Fatalf("clips = %+v, %v", clips, ok)
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	spec := prefabs.SceneSpec{Name: "dup", Entities: []prefabs.EntityBuildSpec{{Name: "a"}, {Name: "a"}}}
	if _, err := Load(spec); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestHeroSettlesAndRenders(t *testing.T) {
	s := loadDemo(t)
	cam, err := s.Camera("main_camera")
	if err != nil {
		t.Fatal(err)
	}
	m := framebuffer.NewManager("")
	if _, err := m.ConfigureSize(framebuffer.DefaultSize); err != nil {
		t.Fatal(err)
	}
	if err := m.Bind(cam); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 48; i++ {
		s.Step(1.0 / 24)
	}

	e, _ := s.Lookup("hero")
	tr, _ := ecs.Get(s.World, e, component.TransformComponent.Kind())
	if math.Abs(tr.Y) > 1 {
		t.Fatalf("hero feet at y=%v, want ground at 0", tr.Y)
	}

	if err := cam.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	first := cam.TargetTexture().ReadPixels()
	if n := opaquePixels(cam.TargetTexture()); n < 200 {
		t.Fatalf("only %d pixels drawn", n)
	}

	s.Step(0.25)
	if err := cam.Render(); err != nil {
		t.Fatal(err)
	}
	second := cam.TargetTexture().ReadPixels()
	same := true
	for i := range first.Pix {
		if first.Pix[i] != second.Pix[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("pose did not change between frames")
	}

	m.Release()
	if err := cam.Render(); !errors.Is(err, framebuffer.ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget after release, got %v", err)
	}
}

func TestCaptureDemoHero(t *testing.T) {
	s := loadDemo(t)
	cam, err := s.Camera("main_camera")
	if err != nil {
		t.Fatal(err)
	}
	hero, err := s.Entity("hero")
	if err != nil {
		t.Fatal(err)
	}

	driver := sim.NewStepDriver(s)
	engine := capture.NewEngine(framebuffer.NewManager(""), driver, bake.NewAssembler())
	root := filepath.Join(t.TempDir(), "baked")

	heroEntity, _ := s.Lookup("hero")
	anim, ok := ecs.Get(s.World, heroEntity, component.AnimatorComponent.Kind())
	if !ok {
		t.Fatal("hero has no animator")
	}
	var times []float64
	engine.SetObserver(func(snap capture.Snapshot) {
		if snap.Captured > len(times) {
			times = append(times, anim.Time)
		}
	})

	if err := engine.RequestCapture(capture.Request{Camera: cam, Source: hero, Size: 0, OutputRoot: root}); err != nil {
		t.Fatalf("RequestCapture: %v", err)
	}
	driver.Start()
	if err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := engine.Snapshot()
	if snap.Outcome != capture.OutcomeCompleted || snap.Captured != 24 {
		t.Fatalf("snapshot = %+v", snap)
	}
	atlas, err := prefabs.ReadFile[prefabs.SpriteAtlasSpec](snap.Result.Atlas)
	if err != nil {
		t.Fatal(err)
	}
	if len(atlas.Members) != 24 || atlas.Members[0].Name != "frame_24" || atlas.Members[23].Name != "frame_47" {
		t.Fatalf("atlas members = %d", len(atlas.Members))
	}

	// Captured frame i shows clip time i/24 of the second loop.
	if len(times) != 24 {
		t.Fatalf("observed %d captures", len(times))
	}
	for i, tm := range times {
		want := float64(i) / 24
		d := math.Mod(math.Abs(tm-want), 1)
		if math.Min(d, 1-d) > 1e-6 {
			t.Fatalf("frame %d shows clip time %v, want %v", i, tm, want)
		}
	}
}
