package component

import "image"

// Sprite is an image drawn with its origin at the owner's position.
type Sprite struct {
	Image   *image.RGBA
	OriginX float64
	OriginY float64
}

var SpriteComponent = NewComponent[Sprite]()
