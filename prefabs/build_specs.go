package prefabs

import "gopkg.in/yaml.v3"

// EntityBuildSpec is an entity as a bag of named component specs. Scene
// entities and baked prefabs share this shape.
type EntityBuildSpec struct {
	Name       string         `yaml:"name"`
	GUID       string         `yaml:"guid,omitempty"`
	Components map[string]any `yaml:"components"`
}

func LoadEntityBuildSpec(filename string) (EntityBuildSpec, error) {
	return LoadSpec[EntityBuildSpec](filename)
}

func DecodeComponentSpec[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return zero, err
	}
	var out T
	if err := yaml.Unmarshal(b, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// EncodeComponentSpec turns a typed spec into the generic form stored in
// EntityBuildSpec.Components.
func EncodeComponentSpec(spec any) (map[string]any, error) {
	b, err := yaml.Marshal(spec)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type TransformComponentSpec struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	ScaleX   float64 `yaml:"scale_x"`
	ScaleY   float64 `yaml:"scale_y"`
	Rotation float64 `yaml:"rotation"`
}

type PartSpec struct {
	Image              string     `yaml:"image"`
	Width              int        `yaml:"width"`
	Height             int        `yaml:"height"`
	Color              *YAMLColor `yaml:"color"`
	OriginX            float64    `yaml:"origin_x"`
	OriginY            float64    `yaml:"origin_y"`
	CenterOriginIfZero bool       `yaml:"center_origin_if_zero"`
}

type BoneSpec struct {
	Name      string    `yaml:"name"`
	Parent    string    `yaml:"parent"`
	X         float64   `yaml:"x"`
	Y         float64   `yaml:"y"`
	Rotation  float64   `yaml:"rotation"`
	ScaleX    float64   `yaml:"scale_x"`
	ScaleY    float64   `yaml:"scale_y"`
	DrawOrder int       `yaml:"draw_order"`
	Part      *PartSpec `yaml:"part"`
}

type SkeletonComponentSpec struct {
	Bones []BoneSpec `yaml:"bones"`
}

type TrackSpec struct {
	Bone     string       `yaml:"bone"`
	Property string       `yaml:"property"`
	Keys     [][2]float64 `yaml:"keys"`
	Expr     string       `yaml:"expr"`
	Script   string       `yaml:"script"`
}

type ClipSpec struct {
	Name      string      `yaml:"name"`
	Length    float64     `yaml:"length"`
	FrameRate float64     `yaml:"frame_rate"`
	Loop      bool        `yaml:"loop"`
	Tracks    []TrackSpec `yaml:"tracks"`
}

type AnimatorComponentSpec struct {
	Clips   []ClipSpec `yaml:"clips"`
	Current int        `yaml:"current"`
	Playing *bool      `yaml:"playing"`
}

type CameraComponentSpec struct {
	Zoom       float64    `yaml:"zoom"`
	Background *YAMLColor `yaml:"background"`
}

type PhysicsBodyComponentSpec struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Mass     float64 `yaml:"mass"`
	Friction float64 `yaml:"friction"`
	OffsetY  float64 `yaml:"offset_y"`
}

type GroundComponentSpec struct {
	Y        float64 `yaml:"y"`
	Friction float64 `yaml:"friction"`
}

type SpriteComponentSpec struct {
	Image   string  `yaml:"image"`
	OriginX float64 `yaml:"origin_x"`
	OriginY float64 `yaml:"origin_y"`
}

// SceneSpec lists the entities of a capture scene.
type SceneSpec struct {
	Name     string            `yaml:"name"`
	Entities []EntityBuildSpec `yaml:"entities"`
}

func LoadSceneSpec(name string) (SceneSpec, error) {
	return LoadSpec[SceneSpec](name)
}
