package system

import (
	"image"
	"math"
	"sort"

	"github.com/milk9111/spritebaker/common"
	"github.com/milk9111/spritebaker/ecs"
	"github.com/milk9111/spritebaker/ecs/component"
	"github.com/milk9111/spritebaker/framebuffer"
	"golang.org/x/image/draw"
)

type drawItem struct {
	img   *image.RGBA
	m     common.Affine
	order int
	seq   int
}

// RenderSystem draws sprites and skeleton parts through a camera into the
// camera's render target. Later items in draw order are nearer in depth.
type RenderSystem struct {
	scratch *image.RGBA
	items   []drawItem
}

func NewRenderSystem() *RenderSystem {
	return &RenderSystem{}
}

// Draw renders the world as seen by cam.
func (r *RenderSystem) Draw(w *ecs.World, cam ecs.Entity) error {
	camComp, ok := ecs.Get(w, cam, component.CameraComponent.Kind())
	if !ok {
		return framebuffer.ErrNoTarget
	}
	target := camComp.Target
	if target.Released() {
		return framebuffer.ErrNoTarget
	}

	target.Clear(camComp.Background)

	zoom := camComp.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	camX, camY := 0.0, 0.0
	if t, ok := ecs.Get(w, cam, component.TransformComponent.Kind()); ok {
		camX, camY = t.X, t.Y
	}
	view := common.Translate(float64(target.Width())/2, float64(target.Height())/2).
		Mul(common.Scale(zoom, zoom)).
		Mul(common.Translate(-camX, -camY))

	r.items = r.items[:0]
	seq := 0
	push := func(img *image.RGBA, m common.Affine, order int) {
		if img == nil || img.Bounds().Empty() {
			return
		}
		r.items = append(r.items, drawItem{img: img, m: m, order: order, seq: seq})
		seq++
	}

	ecs.ForEach2(w, component.TransformComponent.Kind(), component.SpriteComponent.Kind(), func(e ecs.Entity, t *component.Transform, s *component.Sprite) {
		if e == cam {
			return
		}
		push(s.Image, view.Mul(t.Matrix()).Mul(common.Translate(-s.OriginX, -s.OriginY)), 0)
	})

	ecs.ForEach2(w, component.TransformComponent.Kind(), component.SkeletonComponent.Kind(), func(_ ecs.Entity, t *component.Transform, skel *component.Skeleton) {
		if len(skel.World) != len(skel.Bones) {
			skel.UpdateWorld()
		}
		base := view.Mul(t.Matrix())
		for i := range skel.Bones {
			part := skel.Bones[i].Part
			if part == nil {
				continue
			}
			push(part.Image, base.Mul(skel.World[i]).Mul(common.Translate(-part.OriginX, -part.OriginY)), skel.Bones[i].DrawOrder)
		}
	})

	sort.SliceStable(r.items, func(i, j int) bool {
		if r.items[i].order != r.items[j].order {
			return r.items[i].order < r.items[j].order
		}
		return r.items[i].seq < r.items[j].seq
	})

	if r.scratch == nil || r.scratch.Bounds() != target.Color.Bounds() {
		r.scratch = image.NewRGBA(target.Color.Bounds())
	}

	for k, item := range r.items {
		z := framebuffer.DepthFar - 1 - uint32(k)
		r.composite(target, item, z)
	}
	return nil
}

func (r *RenderSystem) composite(target *framebuffer.RenderTarget, item drawItem, z uint32) {
	bounds := transformedBounds(item.m, item.img.Bounds()).Intersect(target.Color.Bounds())
	if bounds.Empty() {
		return
	}

	draw.Draw(r.scratch, bounds, image.Transparent, image.Point{}, draw.Src)
	draw.BiLinear.Transform(r.scratch, item.m.Aff3(), item.img, item.img.Bounds(), draw.Src, nil)

	dst := target.Color
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			si := r.scratch.PixOffset(x, y)
			sa := uint32(r.scratch.Pix[si+3])
			if sa == 0 {
				continue
			}
			if !target.DepthTest(x, y, z) {
				continue
			}
			di := dst.PixOffset(x, y)
			inv := 255 - sa
			for c := 0; c < 4; c++ {
				dst.Pix[di+c] = uint8(uint32(r.scratch.Pix[si+c]) + (uint32(dst.Pix[di+c])*inv+127)/255)
			}
		}
	}
}

func transformedBounds(m common.Affine, r image.Rectangle) image.Rectangle {
	corners := [4][2]float64{
		{float64(r.Min.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Min.Y)},
		{float64(r.Min.X), float64(r.Max.Y)},
		{float64(r.Max.X), float64(r.Max.Y)},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := m.Apply(c[0], c[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1)
}
