package main

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/milk9111/spritebaker/capture"
	"github.com/milk9111/spritebaker/framebuffer"
	"github.com/milk9111/spritebaker/sim"
)

const (
	baseWidth    = 512
	baseHeight   = 512
	statusHeight = 32
)

// Game runs the capture inside the Ebitengine loop: one driver step per
// update at the driver's target rate, with a preview of the render target.
type Game struct {
	driver  *sim.StepDriver
	engine  *capture.Engine
	frames  *framebuffer.Manager
	preview *ebiten.Image
	ui      *captureUI
	tps     int
}

func NewGame(driver *sim.StepDriver, engine *capture.Engine, frames *framebuffer.Manager) *Game {
	ebiten.SetWindowClosingHandled(true)
	return &Game{driver: driver, engine: engine, frames: frames, ui: newCaptureUI(engine.RequestStop)}
}

func (g *Game) Update() error {
	if ebiten.IsWindowBeingClosed() {
		g.engine.Abort()
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.engine.RequestStop()
	}
	g.ui.ui.Update()

	if !g.driver.Running() {
		return ebiten.Termination
	}
	if tps := int(math.Round(g.driver.TargetRate())); tps != g.tps {
		g.tps = tps
		ebiten.SetTPS(tps)
	}
	g.driver.Step()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if rt := g.frames.Target(); !rt.Released() {
		if g.preview == nil || g.preview.Bounds() != rt.Color.Bounds() {
			g.preview = ebiten.NewImage(rt.Width(), rt.Height())
		}
		g.preview.WritePixels(rt.Color.Pix)

		scale := math.Min(float64(baseWidth)/float64(rt.Width()), float64(baseHeight-statusHeight)/float64(rt.Height()))
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate((baseWidth-float64(rt.Width())*scale)/2, statusHeight)
		op.Filter = ebiten.FilterNearest
		screen.DrawImage(g.preview, op)
	}

	s := g.engine.Snapshot()
	g.ui.SetStatus(fmt.Sprintf("%s  tick %d  %d/%d (%.0f%%)  %s", s.State, s.Tick, s.Captured, s.StopFrame-s.StartFrame, s.Progress()*100, s.Status))
	g.ui.ui.Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return baseWidth, baseHeight
}
