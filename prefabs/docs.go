package prefabs

// Documents written by the baker. Every document carries a GUID that other
// documents reference it by.

type AssetRef struct {
	GUID string `yaml:"guid"`
	Path string `yaml:"path,omitempty"`
}

// TextureImporterSpec is the sidecar "<image>.meta" document for a frame.
type TextureImporterSpec struct {
	GUID          string  `yaml:"guid"`
	Compression   string  `yaml:"compression"`
	Mipmaps       bool    `yaml:"mipmaps"`
	FilterMode    string  `yaml:"filter_mode"`
	SpriteMode    string  `yaml:"sprite_mode"`
	PixelsPerUnit float64 `yaml:"pixels_per_unit"`
}

type PackingSettings struct {
	AllowRotation bool `yaml:"allow_rotation"`
	TightPacking  bool `yaml:"tight_packing"`
	Padding       int  `yaml:"padding"`
}

// AtlasSprite is one packed member of an atlas. Page indexes
// SpriteAtlasSpec.Pages.
type AtlasSprite struct {
	Name    string   `yaml:"name"`
	Texture AssetRef `yaml:"texture"`
	Page    int      `yaml:"page"`
	X       int      `yaml:"x"`
	Y       int      `yaml:"y"`
	Width   int      `yaml:"width"`
	Height  int      `yaml:"height"`
}

type AtlasPage struct {
	Path   string `yaml:"path"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type SpriteAtlasSpec struct {
	GUID    string          `yaml:"guid"`
	Name    string          `yaml:"name"`
	Packing PackingSettings `yaml:"packing"`
	Pages   []AtlasPage     `yaml:"pages"`
	Members []AtlasSprite   `yaml:"members"`
}

// Sprite returns the member called name.
func (a *SpriteAtlasSpec) Sprite(name string) (AtlasSprite, bool) {
	for _, m := range a.Members {
		if m.Name == name {
			return m, true
		}
	}
	return AtlasSprite{}, false
}

type SpriteKeyframe struct {
	Time   float64 `yaml:"time"`
	Sprite string  `yaml:"sprite"`
}

// AnimationClipSpec is a sprite-swap clip bound to a sprite renderer.
type AnimationClipSpec struct {
	GUID      string           `yaml:"guid"`
	Name      string           `yaml:"name"`
	FrameRate float64          `yaml:"frame_rate"`
	Loop      bool             `yaml:"loop"`
	Length    float64          `yaml:"length"`
	Binding   string           `yaml:"binding"`
	Atlas     AssetRef         `yaml:"atlas"`
	Keyframes []SpriteKeyframe `yaml:"keyframes"`
}

type ControllerState struct {
	Name   string   `yaml:"name"`
	Motion AssetRef `yaml:"motion"`
}

type AnimatorControllerSpec struct {
	GUID         string            `yaml:"guid"`
	Name         string            `yaml:"name"`
	DefaultState string            `yaml:"default_state"`
	States       []ControllerState `yaml:"states"`
}

// SpriteRendererSpec and AnimatorRefSpec are the prefab components the baker
// owns; any other prefab component is left as found.
type SpriteRendererSpec struct {
	Atlas  AssetRef `yaml:"atlas"`
	Sprite string   `yaml:"sprite"`
}

type AnimatorRefSpec struct {
	Controller AssetRef `yaml:"controller"`
}
