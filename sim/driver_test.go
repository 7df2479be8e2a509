package sim

import (
	"context"
	"errors"
	"math"
	"testing"
)

type recordingStepper struct {
	dts []float64
}

func (r *recordingStepper) Step(dt float64) {
	r.dts = append(r.dts, dt)
}

func TestStepUsesTargetRate(t *testing.T) {
	s := &recordingStepper{}
	d := NewStepDriver(s)
	if d.TargetRate() != DefaultRate {
		t.Fatalf("default rate = %v", d.TargetRate())
	}
	d.SetTargetRate(24)
	d.SetTargetRate(0)
	d.Step()
	if len(s.dts) != 1 || math.Abs(s.dts[0]-1.0/24) > 1e-12 {
		t.Fatalf("dts = %v", s.dts)
	}
	if d.Ticks() != 1 {
		t.Fatalf("ticks = %d", d.Ticks())
	}
}

func TestSubscribersRunInOrderBeforeStep(t *testing.T) {
	s := &recordingStepper{}
	d := NewStepDriver(s)
	var order []string
	d.Subscribe(func() {
		if len(s.dts) != 0 {
			t.Fatalf("scene stepped before the subscriber ran")
		}
		order = append(order, "a")
	})
	d.Subscribe(func() { order = append(order, "b") })
	d.Step()
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v", order)
	}
	if len(s.dts) != 1 {
		t.Fatalf("dts = %v", s.dts)
	}
}

func TestSubscriberSeesCompletedSteps(t *testing.T) {
	s := &recordingStepper{}
	d := NewStepDriver(s)
	var seen []int
	d.Subscribe(func() { seen = append(seen, len(s.dts)) })
	for i := 0; i < 3; i++ {
		d.Step()
	}
	for tick, n := range seen {
		if n != tick {
			t.Fatalf("tick %d saw %d steps", tick, n)
		}
	}
}

func TestUnsubscribeInsideCallback(t *testing.T) {
	d := NewStepDriver(nil)
	calls := map[string]int{}

	var cancelA, cancelB func()
	cancelA = d.Subscribe(func() {
		calls["a"]++
		cancelA()
		cancelB()
	})
	cancelB = d.Subscribe(func() { calls["b"]++ })
	d.Subscribe(func() { calls["c"]++ })

	d.Step()
	d.Step()
	cancelA()

	if calls["a"] != 1 || calls["b"] != 0 || calls["c"] != 2 {
		t.Fatalf("calls = %v", calls)
	}
}

func TestRunStopsFromSubscriber(t *testing.T) {
	d := NewStepDriver(nil)
	n := 0
	d.Subscribe(func() {
		n++
		if n == 5 {
			d.Stop()
		}
	})
	d.Start()
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 5 || d.Running() {
		t.Fatalf("n = %d running = %v", n, d.Running())
	}
}

func TestRunHonorsContext(t *testing.T) {
	d := NewStepDriver(nil)
	d.Realtime = true
	d.SetTargetRate(1000)
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	d.Subscribe(func() {
		n++
		if n == 3 {
			cancel()
		}
	})
	d.Start()
	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n != 3 {
		t.Fatalf("n = %d", n)
	}
}
