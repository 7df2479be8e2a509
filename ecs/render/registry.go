package render

import (
	"image"
	"sync"
)

var (
	mu     sync.RWMutex
	images = map[string]*image.RGBA{}
)

// RegisterImage stores an image by key. Cached images are shared and must
// not be written to.
func RegisterImage(key string, img *image.RGBA) {
	if key == "" || img == nil {
		return
	}
	mu.Lock()
	images[key] = img
	mu.Unlock()
}

// GetImage returns a cached image by key.
func GetImage(key string) *image.RGBA {
	if key == "" {
		return nil
	}
	mu.RLock()
	defer mu.RUnlock()
	return images[key]
}

// Forget drops key from the cache so the next load reads it again.
func Forget(key string) {
	mu.Lock()
	delete(images, key)
	mu.Unlock()
}
