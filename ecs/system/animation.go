package system

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/milk9111/spritebaker/common"
	"github.com/milk9111/spritebaker/ecs"
	"github.com/milk9111/spritebaker/ecs/component"
)

// AnimationSystem advances each animator and poses its skeleton. Track values
// are relative to the rest pose: added for position and rotation, multiplied
// for scale.
type AnimationSystem struct {
	broken map[*component.BoneTrack]bool
}

func NewAnimationSystem() *AnimationSystem {
	return &AnimationSystem{broken: make(map[*component.BoneTrack]bool)}
}

func (a *AnimationSystem) Update(w *ecs.World, dt float64) {
	ecs.ForEach2(w, component.AnimatorComponent.Kind(), component.SkeletonComponent.Kind(), func(e ecs.Entity, anim *component.Animator, skel *component.Skeleton) {
		skel.ResetPose()

		clip := anim.Clip()
		if clip != nil {
			if anim.Playing {
				anim.Time, anim.Playing = AdvanceTime(clip, anim.Time+dt)
			}
			for i := range clip.Tracks {
				track := &clip.Tracks[i]
				if a.broken[track] {
					continue
				}
				v, ok, err := SampleTrack(track, anim.Time)
				if err != nil {
					log.Printf("animation: entity %s clip %q track %d: %v", e, clip.Name, i, err)
					a.broken[track] = true
					continue
				}
				if ok {
					applyTrack(skel, track, v)
				}
			}
		}

		skel.UpdateWorld()
	})
}

// AdvanceTime wraps t into a looping clip, or clamps it to the clip end. The
// second result reports whether the clip is still playing.
func AdvanceTime(clip *component.Clip, t float64) (float64, bool) {
	if clip.Length <= 0 {
		return 0, clip.Loop
	}
	if clip.Loop {
		t = math.Mod(t, clip.Length)
		if t < 0 {
			t += clip.Length
		}
		return t, true
	}
	if t >= clip.Length {
		return clip.Length, false
	}
	return t, true
}

// SampleTrack evaluates a track at time t. ok is false when the track has
// neither keys nor a script.
func SampleTrack(track *component.BoneTrack, t float64) (v float64, ok bool, err error) {
	if track.Script != nil {
		if err := track.Script.Set("t", t); err != nil {
			return 0, false, fmt.Errorf("set t: %w", err)
		}
		if err := track.Script.Run(); err != nil {
			return 0, false, fmt.Errorf("run script: %w", err)
		}
		out := track.Script.Get("out")
		if out == nil || out.IsUndefined() {
			return 0, false, fmt.Errorf("script did not assign out")
		}
		return out.Float(), true, nil
	}

	keys := track.Keys
	switch {
	case len(keys) == 0:
		return 0, false, nil
	case t <= keys[0].Time:
		return keys[0].Value, true, nil
	case t >= keys[len(keys)-1].Time:
		return keys[len(keys)-1].Value, true, nil
	}

	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	k0, k1 := keys[i-1], keys[i]
	span := k1.Time - k0.Time
	if span <= 0 {
		return k1.Value, true, nil
	}
	return common.Lerp(k0.Value, k1.Value, (t-k0.Time)/span), true, nil
}

func applyTrack(skel *component.Skeleton, track *component.BoneTrack, v float64) {
	if track.Bone < 0 || track.Bone >= len(skel.Pose) {
		return
	}
	p := &skel.Pose[track.Bone]
	switch track.Property {
	case component.PropX:
		p.X += v
	case component.PropY:
		p.Y += v
	case component.PropRotation:
		p.Rotation += v
	case component.PropScaleX:
		p.ScaleX *= v
	case component.PropScaleY:
		p.ScaleY *= v
	}
}
