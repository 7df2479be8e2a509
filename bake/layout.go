package bake

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	ImagesDir    = "images"
	AnimationDir = "animation"
)

// guidNamespace seeds the name-based GUIDs of generated documents.
var guidNamespace = uuid.MustParse("6f1f3c52-2b7e-4c1e-9a55-0d7d3b8f2a10")

// Layout is the on-disk shape of one baked entity under an output root.
type Layout struct {
	Root   string
	Entity string
}

// ValidName reports whether name can be used as a single directory or file
// name under an output root.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.IsLocal(name)
}

func NewLayout(root, entity string) Layout {
	return Layout{Root: root, Entity: entity}
}

func (l Layout) EntityRoot() string {
	return filepath.Join(l.Root, l.Entity)
}

func (l Layout) ImagesDir() string {
	return filepath.Join(l.EntityRoot(), ImagesDir)
}

func (l Layout) AnimationDir() string {
	return filepath.Join(l.EntityRoot(), AnimationDir)
}

func FrameName(tick int) string {
	return fmt.Sprintf("frame_%d", tick)
}

func (l Layout) FramePath(tick int) string {
	return filepath.Join(l.ImagesDir(), FrameName(tick)+".png")
}

// Paths relative to EntityRoot. Documents are staged and committed by these.

func (l Layout) frameRel(tick int) string {
	return filepath.Join(ImagesDir, FrameName(tick)+".png")
}

func (l Layout) metaRel(tick int) string {
	return l.frameRel(tick) + ".meta"
}

func (l Layout) atlasRel() string {
	return l.Entity + ".spriteatlas"
}

// pageRel names atlas pages "{entity}.png", "{entity}_1.png", ...
func (l Layout) pageRel(page int) string {
	if page == 0 {
		return l.Entity + ".png"
	}
	return fmt.Sprintf("%s_%d.png", l.Entity, page)
}

func (l Layout) clipRel(clip string) string {
	return filepath.Join(AnimationDir, clip+".anim")
}

func (l Layout) controllerRel() string {
	return filepath.Join(AnimationDir, l.Entity+".controller")
}

func (l Layout) prefabRel() string {
	return l.Entity + "_.prefab"
}

func (l Layout) AtlasPath() string {
	return filepath.Join(l.EntityRoot(), l.atlasRel())
}

func (l Layout) PagePath(page int) string {
	return filepath.Join(l.EntityRoot(), l.pageRel(page))
}

func (l Layout) ClipPath(clip string) string {
	return filepath.Join(l.EntityRoot(), l.clipRel(clip))
}

func (l Layout) ControllerPath() string {
	return filepath.Join(l.EntityRoot(), l.controllerRel())
}

func (l Layout) PrefabPath() string {
	return filepath.Join(l.EntityRoot(), l.prefabRel())
}

// GUID derives a stable id for the document at rel.
func (l Layout) GUID(rel string) string {
	key := filepath.ToSlash(filepath.Join(l.Entity, rel))
	return uuid.NewSHA1(guidNamespace, []byte(key)).String()
}
