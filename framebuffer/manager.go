package framebuffer

import (
	"errors"
	"fmt"
	"log"
)

var (
	ErrTargetBusy = errors.New("framebuffer: render target is in use")
	ErrNoTarget   = errors.New("framebuffer: no render target configured")
)

// Binder is anything that renders into a target, usually a camera.
type Binder interface {
	TargetTexture() *RenderTarget
	SetTargetTexture(t *RenderTarget)
}

// Manager owns at most one render target at a time.
type Manager struct {
	name    string
	target  *RenderTarget
	cameras []Binder
	live    int
	locked  bool
}

func NewManager(name string) *Manager {
	if name == "" {
		name = "GeneratedRenderTexture"
	}
	return &Manager{name: name}
}

// Configure replaces the current target with a width x height one. The old
// target is detached from every bound camera and released first.
func (m *Manager) Configure(width, height int) (*RenderTarget, error) {
	if _, ok := SizeOf(width); !ok {
		return nil, fmt.Errorf("%w: width %d", ErrUnsupportedSize, width)
	}
	if _, ok := SizeOf(height); !ok {
		return nil, fmt.Errorf("%w: height %d", ErrUnsupportedSize, height)
	}
	if m.locked {
		return nil, ErrTargetBusy
	}

	m.Release()

	m.target = newRenderTarget(m.name, width, height)
	m.live++
	log.Printf("framebuffer: render target created %dx%d (depth %d bit)", width, height, DepthBits)
	return m.target, nil
}

// ConfigureSize is Configure for a square Size.
func (m *Manager) ConfigureSize(s Size) (*RenderTarget, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: index %d", ErrUnsupportedSize, int(s))
	}
	return m.Configure(s.Pixels(), s.Pixels())
}

// Target returns the current target, or nil.
func (m *Manager) Target() *RenderTarget {
	return m.target
}

// Bind points cam at the current target.
func (m *Manager) Bind(cam Binder) error {
	if cam == nil {
		return nil
	}
	if m.target == nil {
		return ErrNoTarget
	}
	cam.SetTargetTexture(m.target)
	for _, c := range m.cameras {
		if c == cam {
			return nil
		}
	}
	m.cameras = append(m.cameras, cam)
	return nil
}

// Release detaches and frees the current target. It is a no-op while locked.
func (m *Manager) Release() {
	if m.target == nil || m.locked {
		return
	}
	for _, cam := range m.cameras {
		if cam.TargetTexture() == m.target {
			cam.SetTargetTexture(nil)
		}
	}
	m.cameras = m.cameras[:0]
	m.target.release()
	m.target = nil
	m.live--
}

// Live returns the number of targets this manager holds.
func (m *Manager) Live() int {
	return m.live
}

// Lock marks the target as exclusively owned until Unlock.
func (m *Manager) Lock() error {
	if m.target == nil {
		return ErrNoTarget
	}
	if m.locked {
		return ErrTargetBusy
	}
	m.locked = true
	return nil
}

func (m *Manager) Unlock() {
	m.locked = false
}

func (m *Manager) Locked() bool {
	return m.locked
}
