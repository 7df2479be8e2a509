package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/spritebaker/common"
	"github.com/milk9111/spritebaker/ecs"
	"github.com/milk9111/spritebaker/ecs/component"
)

const groundHalfWidth = 1e5

// PhysicsSystem lets bodies fall and settle on ground lines. Bodies never
// rotate; the entity transform follows the body's bottom edge.
type PhysicsSystem struct {
	space *cp.Space
}

func NewPhysicsSystem() *PhysicsSystem {
	space := cp.NewSpace()
	space.Iterations = 20
	space.SetGravity(cp.Vector{X: 0, Y: common.Gravity})
	return &PhysicsSystem{space: space}
}

func (ps *PhysicsSystem) Space() *cp.Space {
	if ps == nil {
		return nil
	}
	return ps.space
}

func (ps *PhysicsSystem) Update(w *ecs.World, dt float64) {
	if ps == nil || w == nil {
		return
	}

	ecs.ForEach(w, component.GroundComponent.Kind(), func(_ ecs.Entity, g *component.Ground) {
		if g.Shape != nil {
			return
		}
		g.Shape = cp.NewSegment(ps.space.StaticBody, cp.Vector{X: -groundHalfWidth, Y: g.Y}, cp.Vector{X: groundHalfWidth, Y: g.Y}, 0)
		g.Shape.SetFriction(g.Friction)
		ps.space.AddShape(g.Shape)
	})

	ecs.ForEach2(w, component.TransformComponent.Kind(), component.PhysicsBodyComponent.Kind(), func(_ ecs.Entity, t *component.Transform, pb *component.PhysicsBody) {
		if pb.Body != nil {
			return
		}
		mass := pb.Mass
		if mass <= 0 {
			mass = 1
		}
		body := cp.NewBody(mass, math.Inf(1))
		body.SetPosition(cp.Vector{X: t.X, Y: t.Y + pb.OffsetY - pb.Height/2})
		shape := cp.NewBox(body, pb.Width, pb.Height, 0)
		shape.SetFriction(pb.Friction)
		ps.space.AddBody(body)
		ps.space.AddShape(shape)
		pb.Body = body
		pb.Shape = shape
	})

	if dt > 0 {
		ps.space.Step(dt)
	}

	ecs.ForEach2(w, component.TransformComponent.Kind(), component.PhysicsBodyComponent.Kind(), func(_ ecs.Entity, t *component.Transform, pb *component.PhysicsBody) {
		if pb.Body == nil {
			return
		}
		pos := pb.Body.Position()
		t.X = pos.X
		t.Y = pos.Y + pb.Height/2 - pb.OffsetY
	})
}
