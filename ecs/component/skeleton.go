package component

import "github.com/milk9111/spritebaker/common"

// BonePose is a bone's transform relative to its parent.
type BonePose struct {
	X        float64
	Y        float64
	Rotation float64
	ScaleX   float64
	ScaleY   float64
}

func (p BonePose) Matrix() common.Affine {
	return common.TRS(p.X, p.Y, p.Rotation, p.ScaleX, p.ScaleY)
}

type Bone struct {
	Name      string
	Parent    int // -1 for a root bone; always lower than the bone's own index
	Rest      BonePose
	DrawOrder int
	Part      *Sprite
}

// Skeleton is a bone hierarchy plus its current pose. World holds each bone's
// transform relative to the owning entity.
type Skeleton struct {
	Bones []Bone
	Pose  []BonePose
	World []common.Affine
}

func (s *Skeleton) Index(name string) int {
	for i := range s.Bones {
		if s.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

// ResetPose copies the rest pose into Pose.
func (s *Skeleton) ResetPose() {
	if len(s.Pose) != len(s.Bones) {
		s.Pose = make([]BonePose, len(s.Bones))
	}
	for i := range s.Bones {
		s.Pose[i] = s.Bones[i].Rest
	}
}

// UpdateWorld recomputes World from Pose.
func (s *Skeleton) UpdateWorld() {
	if len(s.Pose) != len(s.Bones) {
		s.ResetPose()
	}
	if len(s.World) != len(s.Bones) {
		s.World = make([]common.Affine, len(s.Bones))
	}
	for i := range s.Bones {
		local := s.Pose[i].Matrix()
		if p := s.Bones[i].Parent; p >= 0 {
			s.World[i] = s.World[p].Mul(local)
		} else {
			s.World[i] = local
		}
	}
}

var SkeletonComponent = NewComponent[Skeleton]()
