package component

import "github.com/d5/tengo/v2"

type BoneProperty string

const (
	PropX        BoneProperty = "x"
	PropY        BoneProperty = "y"
	PropRotation BoneProperty = "rotation"
	PropScaleX   BoneProperty = "scale_x"
	PropScaleY   BoneProperty = "scale_y"
)

type Key struct {
	Time  float64
	Value float64
}

// BoneTrack drives one property of one bone, either from sorted Keys or from
// a compiled script that reads `t` and writes `out`.
type BoneTrack struct {
	Bone     int
	Property BoneProperty
	Keys     []Key
	Script   *tengo.Compiled
}

type Clip struct {
	Name      string
	Length    float64
	FrameRate float64
	Loop      bool
	Tracks    []BoneTrack
}

type Animator struct {
	Clips   []*Clip
	Current int
	Time    float64
	Playing bool
}

// Clip returns the active clip, or nil.
func (a *Animator) Clip() *Clip {
	if a == nil || a.Current < 0 || a.Current >= len(a.Clips) {
		return nil
	}
	return a.Clips[a.Current]
}

var AnimatorComponent = NewComponent[Animator]()
