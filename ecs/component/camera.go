package component

import (
	"image/color"

	"github.com/milk9111/spritebaker/framebuffer"
)

// Camera renders the world centred on its entity's transform into Target.
type Camera struct {
	Zoom       float64
	Background color.RGBA
	Target     *framebuffer.RenderTarget
}

var CameraComponent = NewComponent[Camera]()
