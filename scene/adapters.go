package scene

import (
	"github.com/milk9111/spritebaker/capture"
	"github.com/milk9111/spritebaker/ecs"
	"github.com/milk9111/spritebaker/ecs/component"
	"github.com/milk9111/spritebaker/framebuffer"
)

// Camera exposes a scene camera to the frame buffer manager and the capture
// engine.
type Camera struct {
	scene  *Scene
	entity ecs.Entity
	name   string
}

func (c *Camera) Name() string {
	return c.name
}

func (c *Camera) cameraComponent() *component.Camera {
	cam, _ := ecs.Get(c.scene.World, c.entity, component.CameraComponent.Kind())
	return cam
}

func (c *Camera) TargetTexture() *framebuffer.RenderTarget {
	if cam := c.cameraComponent(); cam != nil {
		return cam.Target
	}
	return nil
}

func (c *Camera) SetTargetTexture(t *framebuffer.RenderTarget) {
	if cam := c.cameraComponent(); cam != nil {
		cam.Target = t
	}
}

// Render draws the scene into the bound target.
func (c *Camera) Render() error {
	return c.scene.render.Draw(c.scene.World, c.entity)
}

// Entity exposes an animated scene entity to the capture engine.
type Entity struct {
	scene  *Scene
	entity ecs.Entity
	name   string
}

func (e *Entity) Name() string {
	return e.name
}

func (e *Entity) Animator() ([]capture.ClipInfo, bool) {
	anim, ok := ecs.Get(e.scene.World, e.entity, component.AnimatorComponent.Kind())
	if !ok {
		return nil, false
	}
	clips := make([]capture.ClipInfo, 0, len(anim.Clips))
	for _, c := range anim.Clips {
		if c == nil {
			continue
		}
		clips = append(clips, capture.ClipInfo{Name: c.Name, Length: c.Length, FrameRate: c.FrameRate})
	}
	return clips, true
}

// Restart rewinds the animator to the start of its current clip.
func (e *Entity) Restart() {
	if anim, ok := ecs.Get(e.scene.World, e.entity, component.AnimatorComponent.Kind()); ok {
		anim.Time = 0
		anim.Playing = true
	}
}

var (
	_ capture.Camera     = (*Camera)(nil)
	_ capture.Entity     = (*Entity)(nil)
	_ framebuffer.Binder = (*Camera)(nil)
)
