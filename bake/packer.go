package bake

import (
	"errors"
	"fmt"
	"image"
)

const (
	Padding     = 2
	MaxPageSize = 8192
)

var ErrPageTooLarge = errors.New("bake: sprite does not fit on a page")

// Placement is where one sprite landed: a page index and a rectangle on it.
type Placement struct {
	Page int
	Rect image.Rectangle
}

// Pack places sprites of the given sizes on power-of-two pages of at most
// MaxPageSize, in input order, left to right in shelves. A new page starts
// when the next sprite no longer fits on the current one. There are padding
// pixels around every sprite and between neighbours. Sprites are never rotated.
func Pack(sizes []image.Point, padding int) ([]Placement, []image.Point, error) {
	if len(sizes) == 0 {
		return nil, nil, nil
	}
	for _, s := range sizes {
		if s.X <= 0 || s.Y <= 0 {
			return nil, nil, fmt.Errorf("bake: pack: invalid sprite size %v", s)
		}
	}

	placements := make([]Placement, 0, len(sizes))
	var pages []image.Point
	for start := 0; start < len(sizes); {
		rects, size, ok := packPage(sizes[start:start+1], padding)
		if !ok {
			return nil, nil, fmt.Errorf("%w: sprite %d is %dx%d", ErrPageTooLarge, start, sizes[start].X, sizes[start].Y)
		}
		end := start + 1
		for end < len(sizes) {
			r, s, ok := packPage(sizes[start:end+1], padding)
			if !ok {
				break
			}
			rects, size, end = r, s, end+1
		}

		page := len(pages)
		for _, r := range rects {
			placements = append(placements, Placement{Page: page, Rect: r})
		}
		pages = append(pages, size)
		start = end
	}
	return placements, pages, nil
}

// packPage lays sizes out on the smallest square-ish page that holds them.
func packPage(sizes []image.Point, padding int) ([]image.Rectangle, image.Point, bool) {
	area, widest := 0, 0
	for _, s := range sizes {
		area += (s.X + padding) * (s.Y + padding)
		widest = max(widest, s.X+2*padding)
	}

	width := nextPow2(widest)
	for width*width < area {
		width *= 2
	}

	for ; width <= MaxPageSize; width *= 2 {
		rects, height := shelfPack(sizes, padding, width)
		height = nextPow2(height)
		if height <= width {
			return rects, image.Pt(width, height), true
		}
	}
	return nil, image.Point{}, false
}

func shelfPack(sizes []image.Point, padding, width int) ([]image.Rectangle, int) {
	rects := make([]image.Rectangle, len(sizes))
	x, y, rowH := padding, padding, 0
	for i, s := range sizes {
		if x+s.X+padding > width && x > padding {
			x = padding
			y += rowH + padding
			rowH = 0
		}
		rects[i] = image.Rect(x, y, x+s.X, y+s.Y)
		x += s.X + padding
		rowH = max(rowH, s.Y)
	}
	return rects, y + rowH + padding
}

func nextPow2(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}
