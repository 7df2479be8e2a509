package bake

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/milk9111/spritebaker/assets"
	"github.com/milk9111/spritebaker/prefabs"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Assembly steps, in the order they run.
const (
	StepEnumerate  = "enumerate"
	StepAtlas      = "atlas"
	StepImport     = "import"
	StepClip       = "clip"
	StepController = "controller"
	StepPrefab     = "prefab"
	StepCommit     = "commit"
)

const spriteBinding = "sprite_renderer.sprite"

var ErrNoFramesFound = errors.New("bake: no frames found")

// AssemblyError reports the step an assembly failed in.
type AssemblyError struct {
	Step string
	Err  error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("bake: %s: %v", e.Step, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

func stepError(step string, err error) error {
	return &AssemblyError{Step: step, Err: err}
}

// Request names the captured frames to assemble.
type Request struct {
	OutputRoot string
	Entity     string
	Clip       string
	FrameRate  float64
}

type Result struct {
	Frames     int
	Atlas      string
	Pages      []string
	Clip       string
	Controller string
	Prefab     string
}

type Assembler struct {
	// Workers bounds parallel frame decoding. Zero means GOMAXPROCS.
	Workers       int
	PixelsPerUnit float64
}

func NewAssembler() *Assembler {
	return &Assembler{PixelsPerUnit: 100}
}

type frameFile struct {
	tick int
	name string
	file string
	img  *image.RGBA
}

// staging collects documents under a hidden directory inside the entity root
// until commit moves them into place.
type staging struct {
	dir   string
	files []string
	// stale files are removed from the entity root on commit.
	stale []string
}

func (s *staging) path(rel string) string {
	return filepath.Join(s.dir, rel)
}

func (s *staging) writeDoc(rel string, v any) error {
	if err := prefabs.WriteFile(s.path(rel), v); err != nil {
		return err
	}
	s.files = append(s.files, rel)
	return nil
}

func (s *staging) writePNG(rel string, img image.Image) error {
	p := s.path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.files = append(s.files, rel)
	return nil
}

// Assemble turns the frames under the entity's images directory into an
// atlas, a sprite-swap clip, a single-state controller and a prefab. Nothing
// under the entity root changes unless every step succeeds.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Result, error) {
	if !ValidName(req.Entity) || (req.Clip != "" && !ValidName(req.Clip)) {
		return nil, stepError(StepEnumerate, fmt.Errorf("invalid entity %q or clip %q", req.Entity, req.Clip))
	}
	layout := NewLayout(req.OutputRoot, req.Entity)

	frames, err := listFrames(layout.ImagesDir())
	if err != nil {
		return nil, stepError(StepEnumerate, err)
	}
	if len(frames) == 0 {
		return nil, stepError(StepEnumerate, fmt.Errorf("%w in %s", ErrNoFramesFound, layout.ImagesDir()))
	}
	if req.FrameRate <= 0 {
		return nil, stepError(StepEnumerate, fmt.Errorf("frame rate must be positive, got %v", req.FrameRate))
	}
	if req.Clip == "" {
		req.Clip = req.Entity
	}

	dir, err := os.MkdirTemp(layout.EntityRoot(), ".staging-*")
	if err != nil {
		return nil, stepError(StepAtlas, err)
	}
	defer os.RemoveAll(dir)
	st := &staging{dir: dir}

	// atlas
	atlas := loadDoc[prefabs.SpriteAtlasSpec](layout.AtlasPath())
	if atlas.GUID == "" {
		atlas.GUID = layout.GUID(layout.atlasRel())
	}
	atlas.Name = req.Entity
	atlas.Packing = prefabs.PackingSettings{AllowRotation: false, TightPacking: false, Padding: Padding}
	oldPages := len(atlas.Pages)
	atlas.Pages = nil
	atlas.Members = nil

	// import
	if err := ctx.Err(); err != nil {
		return nil, stepError(StepImport, err)
	}
	if err := a.decodeFrames(ctx, layout, frames); err != nil {
		return nil, stepError(StepImport, err)
	}
	metas, err := a.writeImporters(st, layout, frames)
	if err != nil {
		return nil, stepError(StepImport, err)
	}
	if err := packAtlas(st, layout, &atlas, frames, metas); err != nil {
		return nil, stepError(StepImport, err)
	}
	for i := len(atlas.Pages); i < oldPages; i++ {
		st.stale = append(st.stale, layout.pageRel(i))
	}
	if err := st.writeDoc(layout.atlasRel(), atlas); err != nil {
		return nil, stepError(StepAtlas, err)
	}
	atlasRef := prefabs.AssetRef{GUID: atlas.GUID, Path: filepath.ToSlash(layout.atlasRel())}

	// clip
	clipRel := layout.clipRel(req.Clip)
	clip := loadDoc[prefabs.AnimationClipSpec](layout.ClipPath(req.Clip))
	if clip.GUID == "" {
		clip.GUID = layout.GUID(clipRel)
	}
	clip.Name = req.Clip
	clip.FrameRate = req.FrameRate
	clip.Loop = true
	clip.Length = float64(len(frames)) / req.FrameRate
	clip.Binding = spriteBinding
	clip.Atlas = atlasRef
	clip.Keyframes = make([]prefabs.SpriteKeyframe, len(frames))
	for i, f := range frames {
		clip.Keyframes[i] = prefabs.SpriteKeyframe{Time: float64(i) / req.FrameRate, Sprite: f.name}
	}
	if err := st.writeDoc(clipRel, clip); err != nil {
		return nil, stepError(StepClip, err)
	}
	clipRef := prefabs.AssetRef{GUID: clip.GUID, Path: filepath.ToSlash(clipRel)}

	// controller
	controller := loadDoc[prefabs.AnimatorControllerSpec](layout.ControllerPath())
	if controller.GUID == "" {
		controller.GUID = layout.GUID(layout.controllerRel())
	}
	controller.Name = req.Entity
	controller.DefaultState = req.Clip
	controller.States = []prefabs.ControllerState{{Name: req.Clip, Motion: clipRef}}
	if err := st.writeDoc(layout.controllerRel(), controller); err != nil {
		return nil, stepError(StepController, err)
	}
	controllerRef := prefabs.AssetRef{GUID: controller.GUID, Path: filepath.ToSlash(layout.controllerRel())}

	// prefab
	prefab, err := updatePrefab(layout, atlasRef, frames[0].name, controllerRef)
	if err != nil {
		return nil, stepError(StepPrefab, err)
	}
	if err := st.writeDoc(layout.prefabRel(), prefab); err != nil {
		return nil, stepError(StepPrefab, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, stepError(StepCommit, err)
	}
	if err := st.commit(layout.EntityRoot()); err != nil {
		return nil, stepError(StepCommit, err)
	}

	pages := make([]string, len(atlas.Pages))
	for i := range atlas.Pages {
		pages[i] = layout.PagePath(i)
	}
	log.Printf("bake: %s: %d frames, clip %q at %g fps, %d atlas pages", req.Entity, len(frames), req.Clip, req.FrameRate, len(pages))

	return &Result{
		Frames:     len(frames),
		Atlas:      layout.AtlasPath(),
		Pages:      pages,
		Clip:       layout.ClipPath(req.Clip),
		Controller: layout.ControllerPath(),
		Prefab:     layout.PrefabPath(),
	}, nil
}

// listFrames returns the frame files in dir ordered by tick. A missing
// directory has no frames.
func listFrames(dir string) ([]*frameFile, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var frames []*frameFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		tick, ok := prefabs.FrameIndex(e.Name())
		if !ok {
			continue
		}
		frames = append(frames, &frameFile{tick: tick, name: FrameName(tick), file: e.Name()})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].tick < frames[j].tick })
	return frames, nil
}

func (a *Assembler) decodeFrames(ctx context.Context, layout Layout, frames []*frameFile) error {
	workers := a.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, f := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := assets.LoadImage(filepath.Join(layout.ImagesDir(), f.file))
			if err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
			f.img = img
			return nil
		})
	}
	return g.Wait()
}

// writeImporters stages an uncompressed, unfiltered importer document next to
// every frame and returns their GUIDs.
func (a *Assembler) writeImporters(st *staging, layout Layout, frames []*frameFile) ([]string, error) {
	guids := make([]string, len(frames))
	for i, f := range frames {
		rel := layout.metaRel(f.tick)
		meta := loadDoc[prefabs.TextureImporterSpec](filepath.Join(layout.EntityRoot(), rel))
		if meta.GUID == "" {
			meta.GUID = layout.GUID(layout.frameRel(f.tick))
		}
		meta.Compression = "none"
		meta.Mipmaps = false
		meta.FilterMode = "point"
		meta.SpriteMode = "single"
		meta.PixelsPerUnit = a.PixelsPerUnit
		if err := st.writeDoc(rel, meta); err != nil {
			return nil, err
		}
		guids[i] = meta.GUID
	}
	return guids, nil
}

// packAtlas lays the frames out over as many pages as they need and stages
// one image per page.
func packAtlas(st *staging, layout Layout, atlas *prefabs.SpriteAtlasSpec, frames []*frameFile, metas []string) error {
	sizes := make([]image.Point, len(frames))
	for i, f := range frames {
		sizes[i] = f.img.Bounds().Size()
	}
	placements, pageSizes, err := Pack(sizes, atlas.Packing.Padding)
	if err != nil {
		return err
	}

	for i, f := range frames {
		r := placements[i].Rect
		atlas.Members = append(atlas.Members, prefabs.AtlasSprite{
			Name:    f.name,
			Texture: prefabs.AssetRef{GUID: metas[i], Path: filepath.ToSlash(filepath.Join(ImagesDir, f.file))},
			Page:    placements[i].Page,
			X:       r.Min.X,
			Y:       r.Min.Y,
			Width:   r.Dx(),
			Height:  r.Dy(),
		})
	}

	for p, size := range pageSizes {
		page := image.NewRGBA(image.Rectangle{Max: size})
		for i, f := range frames {
			if placements[i].Page == p {
				draw.Draw(page, placements[i].Rect, f.img, image.Point{}, draw.Src)
			}
		}
		rel := layout.pageRel(p)
		if err := st.writePNG(rel, page); err != nil {
			return err
		}
		atlas.Pages = append(atlas.Pages, prefabs.AtlasPage{Path: filepath.ToSlash(rel), Width: size.X, Height: size.Y})
	}
	return nil
}

// updatePrefab loads the existing prefab, or starts a new one, and points its
// sprite renderer and animator at the baked assets. Other components stay.
func updatePrefab(layout Layout, atlas prefabs.AssetRef, firstSprite string, controller prefabs.AssetRef) (prefabs.EntityBuildSpec, error) {
	prefab := loadDoc[prefabs.EntityBuildSpec](layout.PrefabPath())
	if prefab.GUID == "" {
		prefab.GUID = layout.GUID(layout.prefabRel())
	}
	if prefab.Name == "" {
		prefab.Name = layout.Entity
	}
	if prefab.Components == nil {
		prefab.Components = map[string]any{}
	}

	renderer, err := prefabs.EncodeComponentSpec(prefabs.SpriteRendererSpec{Atlas: atlas, Sprite: firstSprite})
	if err != nil {
		return prefab, err
	}
	animator, err := prefabs.EncodeComponentSpec(prefabs.AnimatorRefSpec{Controller: controller})
	if err != nil {
		return prefab, err
	}
	prefab.Components["sprite_renderer"] = renderer
	prefab.Components["animator"] = animator
	return prefab, nil
}

// loadDoc returns the document at path, or a zero value when it is missing or
// unreadable.
func loadDoc[T any](path string) T {
	doc, err := prefabs.ReadFile[T](path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("bake: replacing unreadable %s: %v", path, err)
		}
		var zero T
		return zero
	}
	return doc
}

func (s *staging) commit(root string) error {
	for _, rel := range s.files {
		dst := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.Rename(s.path(rel), dst); err != nil {
			return err
		}
	}
	for _, rel := range s.stale {
		if err := os.Remove(filepath.Join(root, rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
