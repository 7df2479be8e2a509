package scene

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/milk9111/spritebaker/ecs"
	"github.com/milk9111/spritebaker/ecs/component"
	"github.com/milk9111/spritebaker/ecs/entity"
	"github.com/milk9111/spritebaker/ecs/system"
	"github.com/milk9111/spritebaker/prefabs"
)

var ErrNotFound = errors.New("scene: object not found")

// Scene is a loaded world plus the systems that step it. Entities are looked
// up by their unique names.
type Scene struct {
	Name  string
	World *ecs.World

	scheduler *ecs.Scheduler
	render    *system.RenderSystem
	names     map[string]ecs.Entity
}

func LoadFile(path string) (*Scene, error) {
	spec, err := prefabs.LoadSceneSpec(path)
	if err != nil {
		return nil, err
	}
	if spec.Name == "" {
		spec.Name = path
	}
	return Load(spec)
}

func Load(spec prefabs.SceneSpec) (*Scene, error) {
	s := &Scene{
		Name:      spec.Name,
		World:     ecs.NewWorld(),
		scheduler: ecs.NewScheduler(system.NewPhysicsSystem(), system.NewAnimationSystem()),
		render:    system.NewRenderSystem(),
		names:     make(map[string]ecs.Entity, len(spec.Entities)),
	}

	for _, es := range spec.Entities {
		if _, dup := s.names[es.Name]; dup {
			return nil, fmt.Errorf("scene: %s: duplicate entity %q", spec.Name, es.Name)
		}
		e, err := entity.BuildEntity(s.World, es)
		if err != nil {
			return nil, fmt.Errorf("scene: %s: %w", spec.Name, err)
		}
		s.names[es.Name] = e
	}

	// pose skeletons before the first tick
	s.scheduler.Update(s.World, 0)

	log.Printf("scene: loaded %q with %d entities", s.Name, len(s.names))
	return s, nil
}

// Step advances every system by dt seconds.
func (s *Scene) Step(dt float64) {
	s.scheduler.Update(s.World, dt)
}

func (s *Scene) Lookup(name string) (ecs.Entity, bool) {
	e, ok := s.names[name]
	if !ok || !ecs.IsAlive(s.World, e) {
		return 0, false
	}
	return e, true
}

// Resolve reports whether name refers to a live entity.
func (s *Scene) Resolve(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Names returns entity names, sorted.
func (s *Scene) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		if s.Resolve(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Cameras returns the names of entities with a camera, sorted.
func (s *Scene) Cameras() []string {
	var out []string
	for _, name := range s.Names() {
		if ecs.Has(s.World, s.names[name], component.CameraComponent.Kind()) {
			out = append(out, name)
		}
	}
	return out
}

// Animated returns the names of entities with an animator, sorted.
func (s *Scene) Animated() []string {
	var out []string
	for _, name := range s.Names() {
		if ecs.Has(s.World, s.names[name], component.AnimatorComponent.Kind()) {
			out = append(out, name)
		}
	}
	return out
}

func (s *Scene) Camera(name string) (*Camera, error) {
	e, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: camera %q", ErrNotFound, name)
	}
	if !ecs.Has(s.World, e, component.CameraComponent.Kind()) {
		return nil, fmt.Errorf("scene: %q has no camera", name)
	}
	return &Camera{scene: s, entity: e, name: name}, nil
}

func (s *Scene) Entity(name string) (*Entity, error) {
	e, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: entity %q", ErrNotFound, name)
	}
	return &Entity{scene: s, entity: e, name: name}, nil
}
