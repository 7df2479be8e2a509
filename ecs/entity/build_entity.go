package entity

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/spritebaker/ecs"
	"github.com/milk9111/spritebaker/ecs/component"
	"github.com/milk9111/spritebaker/ecs/render"
	"github.com/milk9111/spritebaker/prefabs"
	"golang.org/x/image/draw"
)

type buildContext struct {
	Name string
}

type componentBuildFn func(w *ecs.World, e ecs.Entity, raw any, ctx *buildContext) error

var componentRegistry = map[string]componentBuildFn{
	"transform":    addTransform,
	"sprite":       addSprite,
	"skeleton":     addSkeleton,
	"animator":     addAnimator,
	"camera":       addCamera,
	"physics_body": addPhysicsBody,
	"ground":       addGround,
}

// animator resolves bone names, so the skeleton must exist first.
var componentBuildOrder = []string{
	"transform",
	"sprite",
	"skeleton",
	"animator",
	"camera",
	"physics_body",
	"ground",
}

// BuildEntityFromFile loads a single-entity spec and builds it.
func BuildEntityFromFile(w *ecs.World, path string) (ecs.Entity, error) {
	spec, err := prefabs.LoadEntityBuildSpec(path)
	if err != nil {
		return 0, fmt.Errorf("build entity: load %q: %w", path, err)
	}
	return BuildEntity(w, spec)
}

// BuildEntity creates an entity from spec. Nothing is left in the world when
// a component fails to build.
func BuildEntity(w *ecs.World, spec prefabs.EntityBuildSpec) (ecs.Entity, error) {
	if w == nil {
		return 0, fmt.Errorf("build entity: world is nil")
	}
	if spec.Name == "" {
		return 0, fmt.Errorf("build entity: entity has no name")
	}

	e := ecs.CreateEntity(w)
	ctx := &buildContext{Name: spec.Name}

	if err := ecs.Add(w, e, component.NameComponent.Kind(), &component.Name{Value: spec.Name}); err != nil {
		ecs.DestroyEntity(w, e)
		return 0, fmt.Errorf("build entity: %q: %w", spec.Name, err)
	}

	remaining := make(map[string]any, len(spec.Components))
	for k, v := range spec.Components {
		remaining[k] = v
	}

	names := make([]string, 0, len(remaining))
	for _, name := range componentBuildOrder {
		if _, ok := remaining[name]; ok {
			names = append(names, name)
			delete(remaining, name)
		}
	}
	if len(remaining) > 0 {
		unknown := make([]string, 0, len(remaining))
		for name := range remaining {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		ecs.DestroyEntity(w, e)
		return 0, fmt.Errorf("build entity: %q: no builder for components %v", spec.Name, unknown)
	}

	for _, name := range names {
		if err := componentRegistry[name](w, e, spec.Components[name], ctx); err != nil {
			ecs.DestroyEntity(w, e)
			return 0, fmt.Errorf("build entity: %q: add %q: %w", spec.Name, name, err)
		}
	}

	return e, nil
}

func addTransform(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.TransformComponentSpec](raw)
	if err != nil {
		return fmt.Errorf("decode transform spec: %w", err)
	}
	if spec.ScaleX == 0 {
		spec.ScaleX = 1
	}
	if spec.ScaleY == 0 {
		spec.ScaleY = 1
	}
	return ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{
		X:        spec.X,
		Y:        spec.Y,
		ScaleX:   spec.ScaleX,
		ScaleY:   spec.ScaleY,
		Rotation: spec.Rotation,
	})
}

func addSprite(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.SpriteComponentSpec](raw)
	if err != nil {
		return fmt.Errorf("decode sprite spec: %w", err)
	}
	sprite, err := buildPart(prefabs.PartSpec{Image: spec.Image, OriginX: spec.OriginX, OriginY: spec.OriginY})
	if err != nil {
		return err
	}
	return ecs.Add(w, e, component.SpriteComponent.Kind(), sprite)
}

// buildPart loads a part image, or fills a Width x Height rectangle with the
// part color when no image is given.
func buildPart(spec prefabs.PartSpec) (*component.Sprite, error) {
	var sprite component.Sprite
	switch {
	case spec.Image != "":
		img, err := render.LoadImage(spec.Image)
		if err != nil {
			return nil, fmt.Errorf("load image %q: %w", spec.Image, err)
		}
		sprite.Image = img
	case spec.Width > 0 && spec.Height > 0:
		c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
		if spec.Color != nil {
			c = spec.Color.RGBA8()
		}
		img := image.NewRGBA(image.Rect(0, 0, spec.Width, spec.Height))
		draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
		sprite.Image = img
	default:
		return nil, fmt.Errorf("part needs an image or a size")
	}

	sprite.OriginX = spec.OriginX
	sprite.OriginY = spec.OriginY
	if sprite.OriginX == 0 && sprite.OriginY == 0 && spec.CenterOriginIfZero {
		b := sprite.Image.Bounds()
		sprite.OriginX = float64(b.Dx()) / 2
		sprite.OriginY = float64(b.Dy()) / 2
	}
	return &sprite, nil
}

func addSkeleton(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.SkeletonComponentSpec](raw)
	if err != nil {
		return fmt.Errorf("decode skeleton spec: %w", err)
	}
	ordered, err := orderBones(spec.Bones)
	if err != nil {
		return err
	}

	skel := &component.Skeleton{Bones: make([]component.Bone, 0, len(ordered))}
	index := make(map[string]int, len(ordered))
	for _, b := range ordered {
		parent := -1
		if b.Parent != "" {
			parent = index[b.Parent]
		}
		if b.ScaleX == 0 {
			b.ScaleX = 1
		}
		if b.ScaleY == 0 {
			b.ScaleY = 1
		}
		bone := component.Bone{
			Name:      b.Name,
			Parent:    parent,
			Rest:      component.BonePose{X: b.X, Y: b.Y, Rotation: b.Rotation, ScaleX: b.ScaleX, ScaleY: b.ScaleY},
			DrawOrder: b.DrawOrder,
		}
		if b.Part != nil {
			part, err := buildPart(*b.Part)
			if err != nil {
				return fmt.Errorf("bone %q: %w", b.Name, err)
			}
			bone.Part = part
		}
		index[b.Name] = len(skel.Bones)
		skel.Bones = append(skel.Bones, bone)
	}
	skel.ResetPose()
	skel.UpdateWorld()

	return ecs.Add(w, e, component.SkeletonComponent.Kind(), skel)
}

// orderBones returns bones with every parent ahead of its children, keeping
// the declared order otherwise.
func orderBones(bones []prefabs.BoneSpec) ([]prefabs.BoneSpec, error) {
	byName := make(map[string]int, len(bones))
	for i, b := range bones {
		if b.Name == "" {
			return nil, fmt.Errorf("bone %d has no name", i)
		}
		if _, dup := byName[b.Name]; dup {
			return nil, fmt.Errorf("duplicate bone %q", b.Name)
		}
		byName[b.Name] = i
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(bones))
	out := make([]prefabs.BoneSpec, 0, len(bones))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("bone %q is its own ancestor", bones[i].Name)
		}
		state[i] = visiting
		if p := bones[i].Parent; p != "" {
			pi, ok := byName[p]
			if !ok {
				return fmt.Errorf("bone %q: unknown parent %q", bones[i].Name, p)
			}
			if err := visit(pi); err != nil {
				return err
			}
		}
		state[i] = done
		out = append(out, bones[i])
		return nil
	}

	for i := range bones {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func addAnimator(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.AnimatorComponentSpec](raw)
	if err != nil {
		return fmt.Errorf("decode animator spec: %w", err)
	}

	skel, _ := ecs.Get(w, e, component.SkeletonComponent.Kind())

	anim := &component.Animator{Current: spec.Current, Playing: true}
	if spec.Playing != nil {
		anim.Playing = *spec.Playing
	}
	for _, cs := range spec.Clips {
		clip, err := buildClip(cs, skel)
		if err != nil {
			return fmt.Errorf("clip %q: %w", cs.Name, err)
		}
		anim.Clips = append(anim.Clips, clip)
	}

	return ecs.Add(w, e, component.AnimatorComponent.Kind(), anim)
}

func buildClip(spec prefabs.ClipSpec, skel *component.Skeleton) (*component.Clip, error) {
	clip := &component.Clip{
		Name:      spec.Name,
		Length:    spec.Length,
		FrameRate: spec.FrameRate,
		Loop:      spec.Loop,
	}
	for i, ts := range spec.Tracks {
		if skel == nil {
			return nil, fmt.Errorf("track %d: entity has no skeleton", i)
		}
		bone := skel.Index(ts.Bone)
		if bone < 0 {
			return nil, fmt.Errorf("track %d: unknown bone %q", i, ts.Bone)
		}
		prop := component.BoneProperty(ts.Property)
		switch prop {
		case component.PropX, component.PropY, component.PropRotation, component.PropScaleX, component.PropScaleY:
		default:
			return nil, fmt.Errorf("track %d: unknown property %q", i, ts.Property)
		}

		track := component.BoneTrack{Bone: bone, Property: prop}
		for _, k := range ts.Keys {
			track.Keys = append(track.Keys, component.Key{Time: k[0], Value: k[1]})
		}
		sort.SliceStable(track.Keys, func(a, b int) bool { return track.Keys[a].Time < track.Keys[b].Time })

		var src []byte
		switch {
		case ts.Script != "":
			b, err := prefabs.LoadScript(ts.Script)
			if err != nil {
				return nil, fmt.Errorf("track %d: load script %q: %w", i, ts.Script, err)
			}
			src = b
		case ts.Expr != "":
			src = []byte("math := import(\"math\")\nout := " + ts.Expr)
		}
		if src != nil {
			compiled, err := compileTrackScript(src)
			if err != nil {
				return nil, fmt.Errorf("track %d: %w", i, err)
			}
			track.Script = compiled
		}

		clip.Tracks = append(clip.Tracks, track)
	}
	return clip, nil
}

// compileTrackScript compiles a script that reads the clip time `t` and
// assigns the sampled value to `out`.
func compileTrackScript(src []byte) (*tengo.Compiled, error) {
	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	if err := script.Add("t", 0.0); err != nil {
		return nil, err
	}
	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile track script: %w", err)
	}
	return compiled, nil
}

func addCamera(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.CameraComponentSpec](raw)
	if err != nil {
		return fmt.Errorf("decode camera spec: %w", err)
	}
	if spec.Zoom == 0 {
		spec.Zoom = 1
	}
	return ecs.Add(w, e, component.CameraComponent.Kind(), &component.Camera{
		Zoom:       spec.Zoom,
		Background: spec.Background.RGBA8(),
	})
}

func addPhysicsBody(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.PhysicsBodyComponentSpec](raw)
	if err != nil {
		return fmt.Errorf("decode physics_body spec: %w", err)
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return fmt.Errorf("physics_body needs a positive width and height")
	}
	return ecs.Add(w, e, component.PhysicsBodyComponent.Kind(), &component.PhysicsBody{
		Width:    spec.Width,
		Height:   spec.Height,
		Mass:     spec.Mass,
		Friction: spec.Friction,
		OffsetY:  spec.OffsetY,
	})
}

func addGround(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.GroundComponentSpec](raw)
	if err != nil {
		return fmt.Errorf("decode ground spec: %w", err)
	}
	return ecs.Add(w, e, component.GroundComponent.Kind(), &component.Ground{Y: spec.Y, Friction: spec.Friction})
}
