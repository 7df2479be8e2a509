package common

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Gravity is the default downward acceleration in pixels per second squared.
const Gravity = 980.0

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Affine is a 2D affine transform:
//
//	| A B TX |
//	| C D TY |
type Affine struct {
	A, B, TX float64
	C, D, TY float64
}

func Identity() Affine {
	return Affine{A: 1, D: 1}
}

// TRS builds translate * rotate * scale.
func TRS(x, y, rotation, scaleX, scaleY float64) Affine {
	sin, cos := math.Sincos(rotation)
	return Affine{
		A: cos * scaleX, B: -sin * scaleY, TX: x,
		C: sin * scaleX, D: cos * scaleY, TY: y,
	}
}

func Translate(x, y float64) Affine {
	return Affine{A: 1, D: 1, TX: x, TY: y}
}

func Scale(sx, sy float64) Affine {
	return Affine{A: sx, D: sy}
}

// Mul returns m * n, so n is applied first.
func (m Affine) Mul(n Affine) Affine {
	return Affine{
		A:  m.A*n.A + m.B*n.C,
		B:  m.A*n.B + m.B*n.D,
		TX: m.A*n.TX + m.B*n.TY + m.TX,
		C:  m.C*n.A + m.D*n.C,
		D:  m.C*n.B + m.D*n.D,
		TY: m.C*n.TX + m.D*n.TY + m.TY,
	}
}

func (m Affine) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.B*y + m.TX, m.C*x + m.D*y + m.TY
}

// Aff3 converts to the x/image representation.
func (m Affine) Aff3() f64.Aff3 {
	return f64.Aff3{m.A, m.B, m.TX, m.C, m.D, m.TY}
}
