package component

import "github.com/milk9111/spritebaker/common"

type Transform struct {
	X        float64
	Y        float64
	ScaleX   float64
	ScaleY   float64
	Rotation float64
}

// Matrix returns the local-to-world transform. Zero scales are treated as 1.
func (t *Transform) Matrix() common.Affine {
	sx, sy := t.ScaleX, t.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return common.TRS(t.X, t.Y, t.Rotation, sx, sy)
}

var TransformComponent = NewComponent[Transform]()
