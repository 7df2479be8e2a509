package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/milk9111/spritebaker/assets"
	"github.com/milk9111/spritebaker/bake"
	"github.com/milk9111/spritebaker/prefabs"
)

const screenSize = 512

// flipbookGame plays a baked clip: keyframe i is shown from its time until
// the next keyframe, looping at the clip length.
type flipbookGame struct {
	frames []*ebiten.Image
	times  []float64
	length float64
	loop   bool
	t      float64
	name   string
}

func (g *flipbookGame) Update() error {
	g.t += 1 / float64(ebiten.TPS())
	if g.t >= g.length {
		if g.loop {
			g.t -= g.length
		} else {
			g.t = g.length
		}
	}
	return nil
}

func (g *flipbookGame) current() int {
	i := 0
	for i+1 < len(g.times) && g.times[i+1] <= g.t {
		i++
	}
	return i
}

func (g *flipbookGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0x20, 0x20, 0x28, 0xff})
	if len(g.frames) == 0 {
		return
	}
	idx := g.current()
	frame := g.frames[idx]
	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()
	scale := float64(screenSize) / float64(max(fw, fh))
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate((screenSize-float64(fw)*scale)/2, (screenSize-float64(fh)*scale)/2)
	op.Filter = ebiten.FilterNearest
	screen.DrawImage(frame, op)
	ebitenutil.DebugPrint(screen, fmt.Sprintf("%s  %d/%d  %.2fs", g.name, idx+1, len(g.frames), g.t))
}

func (g *flipbookGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenSize, screenSize
}

func loadFlipbook(layout bake.Layout, clipName string) (*flipbookGame, error) {
	atlas, err := prefabs.ReadFile[prefabs.SpriteAtlasSpec](layout.AtlasPath())
	if err != nil {
		return nil, err
	}
	clip, err := prefabs.ReadFile[prefabs.AnimationClipSpec](layout.ClipPath(clipName))
	if err != nil {
		return nil, err
	}
	sheets := make([]*ebiten.Image, len(atlas.Pages))
	for i := range atlas.Pages {
		page, err := assets.LoadImage(layout.PagePath(i))
		if err != nil {
			return nil, err
		}
		sheets[i] = ebiten.NewImageFromImage(page)
	}

	g := &flipbookGame{length: clip.Length, loop: clip.Loop, name: clip.Name}
	for _, k := range clip.Keyframes {
		member, ok := atlas.Sprite(k.Sprite)
		if !ok {
			return nil, fmt.Errorf("clip %s: sprite %q not in atlas", clip.Name, k.Sprite)
		}
		if member.Page < 0 || member.Page >= len(sheets) {
			return nil, fmt.Errorf("atlas %s: sprite %q on missing page %d", atlas.Name, k.Sprite, member.Page)
		}
		r := image.Rect(member.X, member.Y, member.X+member.Width, member.Y+member.Height)
		g.frames = append(g.frames, sheets[member.Page].SubImage(r).(*ebiten.Image))
		g.times = append(g.times, k.Time)
	}
	if g.length <= 0 && clip.FrameRate > 0 {
		g.length = float64(len(g.frames)) / clip.FrameRate
	}
	return g, nil
}

func main() {
	out := flag.String("out", "output/baked", "output root")
	entity := flag.String("entity", "hero", "baked entity")
	clip := flag.String("clip", "walk", "clip name")
	flag.Parse()

	g, err := loadFlipbook(bake.NewLayout(*out, *entity), *clip)
	if err != nil {
		log.Fatal(err)
	}
	ebiten.SetWindowSize(screenSize, screenSize)
	ebiten.SetWindowTitle("flipbook - " + *entity)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
