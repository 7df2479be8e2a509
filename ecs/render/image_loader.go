package render

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/milk9111/spritebaker/assets"
)

// LoadImage loads an image from disk or the embedded assets and caches it by
// key.
func LoadImage(key string) (*image.RGBA, error) {
	if key == "" {
		return nil, fmt.Errorf("empty image key")
	}
	if img := GetImage(key); img != nil {
		return img, nil
	}
	img, err := loadImageFromAssetsOrFS(key)
	if err != nil {
		return nil, err
	}
	RegisterImage(key, img)
	return img, nil
}

func loadImageFromAssetsOrFS(path string) (*image.RGBA, error) {
	tried := []string{path, filepath.Join("assets", path), filepath.Base(path)}
	var firstErr error
	for _, p := range tried {
		img, err := assets.LoadImage(p)
		if err == nil {
			return img, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("failed to load image %s: %w", path, firstErr)
}
