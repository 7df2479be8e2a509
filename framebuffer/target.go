package framebuffer

import (
	"image"
	"image/color"
	"image/draw"
)

// DepthBits is the precision of the depth plane.
const DepthBits = 24

// DepthFar is the cleared depth value; smaller values are nearer.
const DepthFar uint32 = 1<<DepthBits - 1

// RenderTarget is an offscreen color buffer with a depth plane.
type RenderTarget struct {
	Name  string
	Color *image.RGBA
	Depth []uint32

	released bool
}

func newRenderTarget(name string, width, height int) *RenderTarget {
	t := &RenderTarget{
		Name:  name,
		Color: image.NewRGBA(image.Rect(0, 0, width, height)),
		Depth: make([]uint32, width*height),
	}
	t.clearDepth()
	return t
}

func (t *RenderTarget) Width() int {
	return t.Color.Bounds().Dx()
}

func (t *RenderTarget) Height() int {
	return t.Color.Bounds().Dy()
}

// Released reports whether the owning manager has freed this target.
func (t *RenderTarget) Released() bool {
	return t == nil || t.released
}

// Clear fills the color plane with c and resets depth to DepthFar.
func (t *RenderTarget) Clear(c color.Color) {
	if t.Released() {
		return
	}
	draw.Draw(t.Color, t.Color.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	t.clearDepth()
}

func (t *RenderTarget) clearDepth() {
	for i := range t.Depth {
		t.Depth[i] = DepthFar
	}
}

// DepthTest stores z at (x, y) and reports true when z is not farther than the
// stored value.
func (t *RenderTarget) DepthTest(x, y int, z uint32) bool {
	if x < 0 || y < 0 || x >= t.Width() || y >= t.Height() {
		return false
	}
	i := y*t.Width() + x
	if z > t.Depth[i] {
		return false
	}
	t.Depth[i] = z & DepthFar
	return true
}

// ReadPixels copies the color plane.
func (t *RenderTarget) ReadPixels() *image.RGBA {
	if t.Released() {
		return nil
	}
	out := image.NewRGBA(t.Color.Bounds())
	copy(out.Pix, t.Color.Pix)
	return out
}

func (t *RenderTarget) release() {
	t.released = true
	t.Color = image.NewRGBA(image.Rectangle{})
	t.Depth = nil
}
