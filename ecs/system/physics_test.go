package system

import (
	"math"
	"testing"

	"github.com/milk9111/spritebaker/ecs"
	"github.com/milk9111/spritebaker/ecs/component"
)

func TestPhysicsSettlesOnGround(t *testing.T) {
	w := ecs.NewWorld()

	ground := ecs.CreateEntity(w)
	_ = ecs.Add(w, ground, component.GroundComponent.Kind(), &component.Ground{Y: 100, Friction: 1})

	e := ecs.CreateEntity(w)
	tr := &component.Transform{X: 5, Y: 0}
	_ = ecs.Add(w, e, component.TransformComponent.Kind(), tr)
	_ = ecs.Add(w, e, component.PhysicsBodyComponent.Kind(), &component.PhysicsBody{Width: 10, Height: 20, Mass: 1, Friction: 1})

	ps := NewPhysicsSystem()
	for i := 0; i < 240; i++ {
		ps.Update(w, 1.0/60)
	}
	if math.Abs(tr.Y-100) > 1 {
		t.Fatalf("expected feet on ground at 100, got %v", tr.Y)
	}
	if math.Abs(tr.X-5) > 0.5 {
		t.Fatalf("expected no horizontal drift, got %v", tr.X)
	}
}
