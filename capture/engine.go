package capture

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log"
	"math"
	"os"
	"sync"

	"github.com/milk9111/spritebaker/bake"
	"github.com/milk9111/spritebaker/common"
	"github.com/milk9111/spritebaker/framebuffer"
)

type State int

const (
	Idle State = iota
	Priming
	Capturing
	Finalizing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Priming:
		return "priming"
	case Capturing:
		return "capturing"
	case Finalizing:
		return "finalizing"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeStopped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeStopped:
		return "stopped"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// Camera renders the scene into whatever target is bound to it.
type Camera interface {
	framebuffer.Binder
	Name() string
	Render() error
}

type ClipInfo struct {
	Name      string
	Length    float64
	FrameRate float64
}

// TotalFrames is the number of frames in one loop of the clip.
func (c ClipInfo) TotalFrames() int {
	return int(math.Round(c.Length * c.FrameRate))
}

// Entity is the animated source. Animator reports its clips in order and
// whether the entity has an animator at all.
type Entity interface {
	Name() string
	Animator() ([]ClipInfo, bool)
}

type Driver interface {
	Start()
	Stop()
	Running() bool
	SetTargetRate(rate float64)
	Subscribe(fn func()) (cancel func())
}

type Assembler interface {
	Assemble(ctx context.Context, req bake.Request) (*bake.Result, error)
}

type Request struct {
	Camera     Camera
	Source     Entity
	Size       framebuffer.Size
	OutputRoot string
}

// Snapshot is a read-only view of the engine's progress.
type Snapshot struct {
	State      State
	Entity     string
	Clip       string
	Tick       int
	StartFrame int
	StopFrame  int
	Captured   int
	Outcome    Outcome
	FailedStep string
	Err        error
	Status     string
	Result     *bake.Result
}

// Progress is the captured fraction of the frame window.
func (s Snapshot) Progress() float64 {
	n := s.StopFrame - s.StartFrame
	if n <= 0 {
		return 0
	}
	return common.Clamp(float64(s.Captured)/float64(n), 0, 1)
}

type run struct {
	req           Request
	layout        bake.Layout
	clip          ClipInfo
	start, stop   int
	tick          int
	captured      int
	stopRequested bool
	cancel        func()
	target        *framebuffer.RenderTarget
}

// Engine drives one capture session at a time. Frames are taken from the
// driver's tick callback; the window is the clip's second loop, ticks
// [round(length*rate), 2*round(length*rate)).
type Engine struct {
	mu        sync.Mutex
	frames    *framebuffer.Manager
	driver    Driver
	assembler Assembler
	observer  func(Snapshot)

	state State
	run   *run
	last  Snapshot
}

func NewEngine(frames *framebuffer.Manager, driver Driver, assembler Assembler) *Engine {
	if frames == nil {
		frames = framebuffer.NewManager("")
	}
	return &Engine{frames: frames, driver: driver, assembler: assembler, last: Snapshot{Status: "idle"}}
}

// SetObserver registers fn to receive every snapshot change. fn runs on the
// goroutine that caused the change.
func (e *Engine) SetObserver(fn func(Snapshot)) {
	e.mu.Lock()
	e.observer = fn
	e.mu.Unlock()
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := e.last
	s.State = e.state
	if r := e.run; r != nil {
		s.Entity = r.layout.Entity
		s.Clip = r.clip.Name
		s.Tick = r.tick
		s.StartFrame = r.start
		s.StopFrame = r.stop
		s.Captured = r.captured
	}
	return s
}

// publish must be called without e.mu held.
func (e *Engine) publish() {
	e.mu.Lock()
	fn := e.observer
	s := e.snapshotLocked()
	e.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// RequestCapture validates req and starts a session. On a configuration
// error the engine is left in Failed and nothing on disk is touched.
func (e *Engine) RequestCapture(req Request) error {
	e.mu.Lock()
	switch e.state {
	case Priming, Capturing, Finalizing:
		e.mu.Unlock()
		return ErrBusy
	}

	clip, err := validate(req)
	if err != nil {
		e.failLocked(err)
		e.mu.Unlock()
		log.Printf("capture: %v", err)
		e.publish()
		return err
	}

	start := clip.TotalFrames()
	r := &run{
		req:    req,
		layout: bake.NewLayout(req.OutputRoot, req.Source.Name()),
		clip:   clip,
		start:  start,
		stop:   2 * start,
	}
	e.state = Priming
	e.run = r
	e.last = Snapshot{Status: fmt.Sprintf("priming %s/%s", r.layout.Entity, clip.Name)}
	e.mu.Unlock()
	e.publish()

	if err := e.prime(r); err != nil {
		e.mu.Lock()
		e.failLocked(err)
		e.run = nil
		e.mu.Unlock()
		log.Printf("capture: %v", err)
		e.publish()
		return err
	}

	e.mu.Lock()
	r.cancel = e.driver.Subscribe(e.onTick)
	e.state = Capturing
	e.last.Status = fmt.Sprintf("capturing %s/%s frames %d..%d", r.layout.Entity, clip.Name, r.start, r.stop-1)
	e.mu.Unlock()

	log.Printf("capture: %s clip %q %.3gs at %g fps, frames %d..%d into %s", r.layout.Entity, clip.Name, clip.Length, clip.FrameRate, r.start, r.stop-1, r.layout.ImagesDir())
	e.publish()
	e.driver.Start()
	return nil
}

func validate(req Request) (ClipInfo, error) {
	if req.Camera == nil {
		return ClipInfo{}, ErrMissingCamera
	}
	if req.Source == nil {
		return ClipInfo{}, ErrMissingSource
	}
	clips, ok := req.Source.Animator()
	if !ok {
		return ClipInfo{}, fmt.Errorf("%w: %s", ErrMissingAnimator, req.Source.Name())
	}
	if len(clips) == 0 {
		return ClipInfo{}, fmt.Errorf("%w: %s", ErrMissingClip, req.Source.Name())
	}
	if !bake.ValidName(req.Source.Name()) {
		return ClipInfo{}, fmt.Errorf("%w: entity %q", ErrInvalidName, req.Source.Name())
	}
	clip := clips[0]
	if clip.Name != "" && !bake.ValidName(clip.Name) {
		return ClipInfo{}, fmt.Errorf("%w: clip %q", ErrInvalidName, clip.Name)
	}
	if clip.FrameRate <= 0 || clip.Length <= 0 || clip.TotalFrames() <= 0 {
		return ClipInfo{}, fmt.Errorf("%w: %s clip %q has %d frames", ErrMissingClip, req.Source.Name(), clip.Name, clip.TotalFrames())
	}
	if !req.Size.Valid() {
		return ClipInfo{}, fmt.Errorf("%w: %v", ErrUnsupportedSize, req.Size)
	}
	if req.OutputRoot == "" {
		return ClipInfo{}, ErrMissingOutputRoot
	}
	return clip, nil
}

// prime recreates the output directories, configures the render target and
// sets the driver rate.
func (e *Engine) prime(r *run) error {
	for _, dir := range []string{r.layout.ImagesDir(), r.layout.AnimationDir()} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("%w: clear %s: %v", ErrIO, dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %v", ErrIO, dir, err)
		}
	}

	target, err := e.frames.ConfigureSize(r.req.Size)
	if err != nil {
		return fmt.Errorf("capture: configure render target: %w", err)
	}
	if err := e.frames.Bind(r.req.Camera); err != nil {
		return fmt.Errorf("capture: bind camera %s: %w", r.req.Camera.Name(), err)
	}
	if err := e.frames.Lock(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	r.target = target

	e.driver.SetTargetRate(r.clip.FrameRate)
	return nil
}

// RequestStop asks the running session to stop on its next tick without
// assembling. Frames already written stay on disk.
func (e *Engine) RequestStop() {
	e.mu.Lock()
	if e.run != nil && e.state == Capturing {
		e.run.stopRequested = true
		e.last.Status = "stop requested"
	}
	e.mu.Unlock()
}

// Abort ends the session immediately as a force-stop. It is used when the
// driver stops on its own.
func (e *Engine) Abort() {
	e.mu.Lock()
	if e.run == nil || e.state != Capturing {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.finalize(false)
}

func (e *Engine) onTick() {
	e.mu.Lock()
	r := e.run
	if r == nil || e.state != Capturing {
		e.mu.Unlock()
		return
	}

	if r.stopRequested {
		e.mu.Unlock()
		e.finalize(false)
		return
	}
	if r.tick >= r.stop {
		e.mu.Unlock()
		e.finalize(true)
		return
	}

	if r.tick >= r.start {
		if err := e.captureFrame(r); err != nil {
			e.mu.Unlock()
			e.abortWithError(err)
			return
		}
		r.captured++
	}
	r.tick++
	e.mu.Unlock()
	e.publish()
}

func (e *Engine) captureFrame(r *run) error {
	if err := r.req.Camera.Render(); err != nil {
		return fmt.Errorf("capture: render frame %d: %w", r.tick, err)
	}
	pixels := r.target.ReadPixels()
	if pixels == nil {
		return fmt.Errorf("capture: frame %d: %w", r.tick, framebuffer.ErrNoTarget)
	}

	path := r.layout.FramePath(r.tick)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: frame %d: %v", ErrIO, r.tick, err)
	}
	if err := png.Encode(f, pixels); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: encode frame %d: %v", ErrIO, r.tick, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: frame %d: %v", ErrIO, r.tick, err)
	}
	return nil
}

// teardown detaches the session from the driver and frees the target lock.
func (e *Engine) teardown(r *run) {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	e.driver.Stop()
	e.frames.Unlock()
}

func (e *Engine) abortWithError(err error) {
	e.mu.Lock()
	r := e.run
	e.state = Finalizing
	e.mu.Unlock()

	e.teardown(r)

	e.mu.Lock()
	e.failLocked(err)
	e.run = nil
	e.mu.Unlock()
	log.Printf("capture: %s: %v", r.layout.Entity, err)
	e.publish()
}

func (e *Engine) finalize(success bool) {
	e.mu.Lock()
	r := e.run
	e.state = Finalizing
	e.last.Status = "finalizing"
	e.mu.Unlock()
	e.publish()

	e.teardown(r)

	if !success {
		e.mu.Lock()
		e.last = Snapshot{
			Outcome:  OutcomeStopped,
			Entity:   r.layout.Entity,
			Clip:     r.clip.Name,
			Captured: r.captured,
			Status:   fmt.Sprintf("stopped after %d frames", r.captured),
		}
		e.state = Idle
		e.run = nil
		e.mu.Unlock()
		log.Printf("capture: %s stopped after %d frames, skipping assembly", r.layout.Entity, r.captured)
		e.publish()
		return
	}

	var (
		res *bake.Result
		err error
	)
	if e.assembler != nil {
		res, err = e.assembler.Assemble(context.Background(), bake.Request{
			OutputRoot: r.req.OutputRoot,
			Entity:     r.layout.Entity,
			Clip:       r.clip.Name,
			FrameRate:  r.clip.FrameRate,
		})
	}

	e.mu.Lock()
	e.last = Snapshot{
		Entity:     r.layout.Entity,
		Clip:       r.clip.Name,
		Tick:       r.tick,
		StartFrame: r.start,
		StopFrame:  r.stop,
		Captured:   r.captured,
		Result:     res,
	}
	if err != nil {
		e.last.Outcome = OutcomeFailed
		e.last.Err = err
		var ae *bake.AssemblyError
		if errors.As(err, &ae) {
			e.last.FailedStep = ae.Step
		}
		e.last.Status = fmt.Sprintf("assembly failed: %v", err)
		log.Printf("capture: %s: %v", r.layout.Entity, err)
	} else {
		e.last.Outcome = OutcomeCompleted
		e.last.Status = fmt.Sprintf("completed %d frames", r.captured)
		log.Printf("capture: %s completed, %d frames", r.layout.Entity, r.captured)
	}
	e.state = Idle
	e.run = nil
	e.mu.Unlock()
	e.publish()
}

func (e *Engine) failLocked(err error) {
	s := Snapshot{Outcome: OutcomeFailed, Err: err, Status: err.Error()}
	if r := e.run; r != nil {
		s.Entity = r.layout.Entity
		s.Clip = r.clip.Name
		s.Tick = r.tick
		s.StartFrame = r.start
		s.StopFrame = r.stop
		s.Captured = r.captured
	}
	e.last = s
	e.state = Failed
}
