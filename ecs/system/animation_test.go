package system

import (
	"math"
	"testing"

	"github.com/d5/tengo/v2"
	"github.com/milk9111/spritebaker/ecs"
	"github.com/milk9111/spritebaker/ecs/component"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestSampleTrackKeys(t *testing.T) {
	track := &component.BoneTrack{Keys: []component.Key{{Time: 0, Value: 0}, {Time: 0.5, Value: 1}, {Time: 1, Value: 0}}}
	cases := []struct {
		t    float64
		want float64
	}{
		{-1, 0},
		{0, 0},
		{0.25, 0.5},
		{0.5, 1},
		{0.75, 0.5},
		{2, 0},
	}
	for _, c := range cases {
		got, ok, err := SampleTrack(track, c.t)
		if err != nil || !ok {
			t.Fatalf("sample %v: ok=%v err=%v", c.t, ok, err)
		}
		if !approx(got, c.want) {
			t.Fatalf("sample %v: got %v want %v", c.t, got, c.want)
		}
	}

	if _, ok, _ := SampleTrack(&component.BoneTrack{}, 0.3); ok {
		t.Fatalf("empty track should not produce a value")
	}
}

func TestSampleTrackScript(t *testing.T) {
	script := tengo.NewScript([]byte("out := t * 2"))
	if err := script.Add("t", 0.0); err != nil {
		t.Fatal(err)
	}
	compiled, err := script.Compile()
	if err != nil {
		t.Fatal(err)
	}
	track := &component.BoneTrack{Script: compiled}
	got, ok, err := SampleTrack(track, 0.25)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !approx(got, 0.5) {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestAdvanceTime(t *testing.T) {
	loop := &component.Clip{Length: 1, Loop: true}
	if got, playing := AdvanceTime(loop, 1.25); !approx(got, 0.25) || !playing {
		t.Fatalf("loop wrap: %v %v", got, playing)
	}
	once := &component.Clip{Length: 1}
	if got, playing := AdvanceTime(once, 1.25); got != 1 || playing {
		t.Fatalf("clamp: %v %v", got, playing)
	}
}

func TestAnimationSystemPosesSkeleton(t *testing.T) {
	w := ecs.NewWorld()
	e := ecs.CreateEntity(w)

	skel := &component.Skeleton{Bones: []component.Bone{
		{Name: "root", Parent: -1, Rest: component.BonePose{ScaleX: 1, ScaleY: 1}},
		{Name: "arm", Parent: 0, Rest: component.BonePose{X: 10, ScaleX: 1, ScaleY: 1}},
	}}
	clip := &component.Clip{
		Name: "swing", Length: 1, FrameRate: 10, Loop: true,
		Tracks: []component.BoneTrack{
			{Bone: 0, Property: component.PropRotation, Keys: []component.Key{{Time: 0, Value: 0}, {Time: 1, Value: math.Pi}}},
		},
	}
	anim := &component.Animator{Clips: []*component.Clip{clip}, Playing: true}
	if err := ecs.Add(w, e, component.SkeletonComponent.Kind(), skel); err != nil {
		t.Fatal(err)
	}
	if err := ecs.Add(w, e, component.AnimatorComponent.Kind(), anim); err != nil {
		t.Fatal(err)
	}

	sys := NewAnimationSystem()
	sys.Update(w, 0.5)

	if !approx(anim.Time, 0.5) {
		t.Fatalf("expected time 0.5, got %v", anim.Time)
	}
	x, y := skel.World[1].Apply(0, 0)
	if !approx(x, 0) || !approx(y, 10) {
		t.Fatalf("expected arm at (0,10) after quarter turn, got (%v,%v)", x, y)
	}

	sys.Update(w, 0.5)
	if !approx(anim.Time, 0) {
		t.Fatalf("expected wrap to 0, got %v", anim.Time)
	}
}
