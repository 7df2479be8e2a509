package bake

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/milk9111/spritebaker/prefabs"
)

func writeFrames(t *testing.T, layout Layout, ticks ...int) {
	t.Helper()
	if err := os.MkdirAll(layout.ImagesDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, tick := range ticks {
		img := image.NewRGBA(image.Rect(0, 0, 32, 32))
		img.Set(0, 0, color.RGBA{R: uint8(tick), A: 255})
		f, err := os.Create(layout.FramePath(tick))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		_ = f.Close()
	}
}

func readDoc[T any](t *testing.T, path string) T {
	t.Helper()
	doc, err := prefabs.ReadFile[T](path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return doc
}

func TestAssembleNoFrames(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root, "hero")
	if err := os.MkdirAll(layout.ImagesDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(layout.ImagesDir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewAssembler().Assemble(context.Background(), Request{OutputRoot: root, Entity: "hero", Clip: "walk", FrameRate: 24})
	if !errors.Is(err, ErrNoFramesFound) {
		t.Fatalf("expected ErrNoFramesFound, got %v", err)
	}
	var ae *AssemblyError
	if !errors.As(err, &ae) || ae.Step != StepEnumerate {
		t.Fatalf("expected enumerate step error, got %v", err)
	}

	entries, err := os.ReadDir(layout.EntityRoot())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != ImagesDir {
		t.Fatalf("assembly wrote files: %v", entries)
	}
}

func TestAssembleMissingImagesDir(t *testing.T) {
	_, err := NewAssembler().Assemble(context.Background(), Request{OutputRoot: t.TempDir(), Entity: "ghost", FrameRate: 24})
	if !errors.Is(err, ErrNoFramesFound) {
		t.Fatalf("expected ErrNoFramesFound, got %v", err)
	}
}

func TestAssembleBuildsAllAssets(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root, "hero")
	writeFrames(t, layout, 10, 9, 11, 12)

	res, err := NewAssembler().Assemble(context.Background(), Request{OutputRoot: root, Entity: "hero", Clip: "walk", FrameRate: 4})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Frames != 4 {
		t.Fatalf("frames = %d", res.Frames)
	}

	atlas := readDoc[prefabs.SpriteAtlasSpec](t, layout.AtlasPath())
	wantOrder := []string{"frame_9", "frame_10", "frame_11", "frame_12"}
	if len(atlas.Members) != len(wantOrder) {
		t.Fatalf("members = %+v", atlas.Members)
	}
	for i, m := range atlas.Members {
		if m.Name != wantOrder[i] {
			t.Fatalf("member %d = %q, want %q", i, m.Name, wantOrder[i])
		}
	}
	if atlas.Packing != (prefabs.PackingSettings{Padding: 2}) {
		t.Fatalf("packing = %+v", atlas.Packing)
	}
	if len(atlas.Pages) != 1 || atlas.Pages[0].Path != "hero.png" || len(res.Pages) != 1 || res.Pages[0] != layout.PagePath(0) {
		t.Fatalf("pages = %+v, result pages = %v", atlas.Pages, res.Pages)
	}

	page, err := os.Open(layout.PagePath(0))
	if err != nil {
		t.Fatal(err)
	}
	defer page.Close()
	pageImg, err := png.Decode(page)
	if err != nil {
		t.Fatal(err)
	}
	first := atlas.Members[0]
	if r, _, _, _ := pageImg.At(first.X, first.Y).RGBA(); r>>8 != 9 {
		t.Fatalf("first member pixel red = %d, want 9", r>>8)
	}

	meta := readDoc[prefabs.TextureImporterSpec](t, layout.FramePath(9)+".meta")
	if meta.Compression != "none" || meta.Mipmaps || meta.GUID == "" {
		t.Fatalf("meta = %+v", meta)
	}
	if first.Texture.GUID != meta.GUID {
		t.Fatalf("member texture %q does not reference meta %q", first.Texture.GUID, meta.GUID)
	}

	clip := readDoc[prefabs.AnimationClipSpec](t, layout.ClipPath("walk"))
	if clip.FrameRate != 4 || !clip.Loop || len(clip.Keyframes) != 4 || clip.Atlas.GUID != atlas.GUID {
		t.Fatalf("clip = %+v", clip)
	}
	for i, k := range clip.Keyframes {
		if k.Time != float64(i)/4 || k.Sprite != wantOrder[i] {
			t.Fatalf("keyframe %d = %+v", i, k)
		}
	}

	controller := readDoc[prefabs.AnimatorControllerSpec](t, layout.ControllerPath())
	if len(controller.States) != 1 || controller.States[0].Motion.GUID != clip.GUID {
		t.Fatalf("controller = %+v", controller)
	}

	prefab := readDoc[prefabs.EntityBuildSpec](t, layout.PrefabPath())
	renderer, err := prefabs.DecodeComponentSpec[prefabs.SpriteRendererSpec](prefab.Components["sprite_renderer"])
	if err != nil || renderer.Sprite != "frame_9" || renderer.Atlas.GUID != atlas.GUID {
		t.Fatalf("sprite_renderer = %+v, %v", renderer, err)
	}
	animator, err := prefabs.DecodeComponentSpec[prefabs.AnimatorRefSpec](prefab.Components["animator"])
	if err != nil || animator.Controller.GUID != controller.GUID {
		t.Fatalf("animator = %+v, %v", animator, err)
	}

	entries, _ := os.ReadDir(layout.EntityRoot())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".staging-") {
			t.Fatalf("staging directory %s left behind", e.Name())
		}
	}
}

func TestAssembleIsRepeatable(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root, "hero")
	writeFrames(t, layout, 0, 1, 2)
	req := Request{OutputRoot: root, Entity: "hero", Clip: "idle", FrameRate: 12}

	if _, err := NewAssembler().Assemble(context.Background(), req); err != nil {
		t.Fatalf("first Assemble: %v", err)
	}
	first := readDoc[prefabs.SpriteAtlasSpec](t, layout.AtlasPath())

	prefab := readDoc[prefabs.EntityBuildSpec](t, layout.PrefabPath())
	prefab.Components["collider"] = map[string]any{"radius": 4}
	if err := prefabs.WriteFile(layout.PrefabPath(), prefab); err != nil {
		t.Fatal(err)
	}

	if _, err := NewAssembler().Assemble(context.Background(), req); err != nil {
		t.Fatalf("second Assemble: %v", err)
	}
	second := readDoc[prefabs.SpriteAtlasSpec](t, layout.AtlasPath())
	if second.GUID != first.GUID {
		t.Fatalf("atlas GUID changed: %s -> %s", first.GUID, second.GUID)
	}
	if len(second.Members) != 3 {
		t.Fatalf("members accumulated: %d", len(second.Members))
	}

	updated := readDoc[prefabs.EntityBuildSpec](t, layout.PrefabPath())
	if updated.GUID != prefab.GUID || updated.Components["collider"] == nil || updated.Components["animator"] == nil {
		t.Fatalf("prefab not updated in place: %+v", updated)
	}
}

func TestAssembleCorruptFrameLeavesNoOutput(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root, "hero")
	writeFrames(t, layout, 0)
	if err := os.WriteFile(layout.FramePath(1), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewAssembler().Assemble(context.Background(), Request{OutputRoot: root, Entity: "hero", FrameRate: 12})
	var ae *AssemblyError
	if !errors.As(err, &ae) || ae.Step != StepImport {
		t.Fatalf("expected import step error, got %v", err)
	}
	for _, p := range []string{layout.AtlasPath(), layout.PagePath(0), layout.PrefabPath(), layout.FramePath(0) + ".meta"} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s should not exist: %v", p, err)
		}
	}
}

func TestAssembleIgnoresNonCanonicalFrameNames(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root, "hero")
	writeFrames(t, layout, 7, 8)
	for _, name := range []string{"frame_07.png", "frame_+9.png", "frame_10.PNG"} {
		data, err := os.ReadFile(layout.FramePath(7))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(layout.ImagesDir(), name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res, err := NewAssembler().Assemble(context.Background(), Request{OutputRoot: root, Entity: "hero", Clip: "walk", FrameRate: 12})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Frames != 2 {
		t.Fatalf("frames = %d, want 2", res.Frames)
	}
	atlas := readDoc[prefabs.SpriteAtlasSpec](t, layout.AtlasPath())
	if len(atlas.Members) != 2 || atlas.Members[0].Name != "frame_7" || atlas.Members[1].Name != "frame_8" {
		t.Fatalf("members = %+v", atlas.Members)
	}
	if atlas.Members[0].Texture.Path != "images/frame_7.png" {
		t.Fatalf("texture path = %q", atlas.Members[0].Texture.Path)
	}
}

func TestAssembleRemovesStalePages(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root, "hero")
	writeFrames(t, layout, 0, 1)

	old := prefabs.SpriteAtlasSpec{GUID: "kept", Pages: []prefabs.AtlasPage{{Path: "hero.png"}, {Path: "hero_1.png"}, {Path: "hero_2.png"}}}
	if err := prefabs.WriteFile(layout.AtlasPath(), old); err != nil {
		t.Fatal(err)
	}
	for i := range old.Pages {
		if err := os.WriteFile(layout.PagePath(i), []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	keep := filepath.Join(layout.EntityRoot(), "hero_notes.png")
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewAssembler().Assemble(context.Background(), Request{OutputRoot: root, Entity: "hero", FrameRate: 12}); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	atlas := readDoc[prefabs.SpriteAtlasSpec](t, layout.AtlasPath())
	if atlas.GUID != "kept" || len(atlas.Pages) != 1 {
		t.Fatalf("atlas = %+v", atlas)
	}
	if _, err := png.DecodeConfig(mustOpen(t, layout.PagePath(0))); err != nil {
		t.Fatalf("page 0 not rewritten: %v", err)
	}
	for _, p := range []string{layout.PagePath(1), layout.PagePath(2)} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("stale page %s still exists: %v", p, err)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("unrelated file removed: %v", err)
	}
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestAssembleRejectsPathNames(t *testing.T) {
	tests := []struct {
		entity, clip string
	}{
		{"..", ""},
		{"../hero", ""},
		{"a/b", ""},
		{`a\b`, ""},
		{"", ""},
		{"hero", "../walk"},
	}
	for _, tt := range tests {
		t.Run(tt.entity+"|"+tt.clip, func(t *testing.T) {
			root := t.TempDir()
			_, err := NewAssembler().Assemble(context.Background(), Request{OutputRoot: root, Entity: tt.entity, Clip: tt.clip, FrameRate: 12})
			var ae *AssemblyError
			if !errors.As(err, &ae) || ae.Step != StepEnumerate {
				t.Fatalf("expected enumerate step error, got %v", err)
			}
		})
	}
	if !ValidName("hero") || !ValidName("hero.v2") {
		t.Fatalf("plain names rejected")
	}
}
