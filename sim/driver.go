package sim

import (
	"context"
	"sync"
	"time"
)

const DefaultRate = 60.0

// Stepper is advanced once per tick by a fixed timestep.
type Stepper interface {
	Step(dt float64)
}

type subscription struct {
	fn     func()
	active bool
}

// StepDriver is the simulation clock. Each Step advances the stepper by
// 1/TargetRate and then calls subscribers in subscription order.
type StepDriver struct {
	mu      sync.Mutex
	stepper Stepper
	rate    float64
	running bool
	ticks   uint64
	subs    []*subscription

	// Realtime paces Run to the target rate instead of stepping as fast as
	// possible.
	Realtime bool
}

func NewStepDriver(stepper Stepper) *StepDriver {
	return &StepDriver{stepper: stepper, rate: DefaultRate}
}

func (d *StepDriver) Start() {
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()
}

func (d *StepDriver) Stop() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

func (d *StepDriver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// SetTargetRate sets ticks per second. Non-positive rates are ignored.
func (d *StepDriver) SetTargetRate(rate float64) {
	if rate <= 0 {
		return
	}
	d.mu.Lock()
	d.rate = rate
	d.mu.Unlock()
}

func (d *StepDriver) TargetRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

// Ticks is the number of completed steps.
func (d *StepDriver) Ticks() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticks
}

// Subscribe registers fn to run on every tick, before the scene advances. Calling cancel more than
// once is harmless, and a callback may cancel itself or any other.
func (d *StepDriver) Subscribe(fn func()) (cancel func()) {
	sub := &subscription{fn: fn, active: true}
	d.mu.Lock()
	d.subs = append(d.subs, sub)
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		sub.active = false
		for i, s := range d.subs {
			if s == sub {
				d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
				break
			}
		}
	}
}

// Step runs one tick: subscribers see the scene as it stands after the
// previous ticks, then the scene advances. On tick N the scene has been
// stepped N times.
func (d *StepDriver) Step() {
	d.mu.Lock()
	dt := 1 / d.rate
	stepper := d.stepper
	subs := append([]*subscription(nil), d.subs...)
	d.mu.Unlock()

	for _, sub := range subs {
		d.mu.Lock()
		active := sub.active
		d.mu.Unlock()
		if active {
			sub.fn()
		}
	}

	if stepper != nil {
		stepper.Step(dt)
	}

	d.mu.Lock()
	d.ticks++
	d.mu.Unlock()
}

// Run steps until the driver is stopped or ctx is done. It returns ctx.Err()
// when the context ended the loop.
func (d *StepDriver) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if d.Realtime {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / d.TargetRate()))
		defer ticker.Stop()
		tick = ticker.C
	}

	for d.Running() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		d.Step()
	}
	return nil
}
