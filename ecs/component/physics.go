package component

import "github.com/jakecoffman/cp"

// PhysicsBody stores Chipmunk2D runtime data and collider configuration.
type PhysicsBody struct {
	Body     *cp.Body
	Shape    *cp.Shape
	Width    float64
	Height   float64
	Mass     float64
	Friction float64
	OffsetY  float64
}

var PhysicsBodyComponent = NewComponent[PhysicsBody]()

// Ground is a static horizontal line bodies come to rest on.
type Ground struct {
	Y        float64
	Friction float64
	Shape    *cp.Shape
}

var GroundComponent = NewComponent[Ground]()
