package bake

import (
	"errors"
	"image"
	"testing"
)

func TestPackKeepsPaddingAndOrder(t *testing.T) {
	tests := []struct {
		name  string
		sizes []image.Point
	}{
		{"single", []image.Point{{128, 128}}},
		{"uniform", repeat(image.Pt(128, 128), 24)},
		{"mixed", []image.Point{{10, 40}, {64, 8}, {33, 33}, {5, 5}, {100, 20}, {7, 90}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			placements, pages, err := Pack(tt.sizes, Padding)
			if err != nil {
				t.Fatalf("Pack: %v", err)
			}
			if len(pages) != 1 {
				t.Fatalf("pages = %v, want one", pages)
			}
			page := pages[0]
			rects := make([]image.Rectangle, len(placements))
			for i, p := range placements {
				if p.Page != 0 {
					t.Fatalf("placement %d on page %d", i, p.Page)
				}
				rects[i] = p.Rect
			}
			if page.X != nextPow2(page.X) || page.Y != nextPow2(page.Y) {
				t.Fatalf("page %v is not power of two", page)
			}
			bounds := image.Rect(0, 0, page.X, page.Y).Inset(Padding)
			for i, r := range rects {
				if r.Size() != tt.sizes[i] {
					t.Fatalf("rect %d size %v, want %v", i, r.Size(), tt.sizes[i])
				}
				if !r.In(bounds) {
					t.Fatalf("rect %d %v outside padded page %v", i, r, bounds)
				}
				for j := i + 1; j < len(rects); j++ {
					if r.Inset(-Padding).Overlaps(rects[j]) {
						t.Fatalf("rects %d %v and %d %v closer than padding", i, r, j, rects[j])
					}
				}
				if i > 0 {
					prev := rects[i-1]
					if r.Min.Y < prev.Min.Y || (r.Min.Y == prev.Min.Y && r.Min.X <= prev.Min.X) {
						t.Fatalf("rect %d placed before rect %d", i, i-1)
					}
				}
			}
		})
	}
}

func TestPackSpillsOntoNewPages(t *testing.T) {
	tests := []struct {
		name      string
		sizes     []image.Point
		wantPages int
	}{
		{"2048 clip", repeat(image.Pt(2048, 2048), 24), 3},
		{"4096 frames", repeat(image.Pt(4096, 4096), 4), 4},
		{"1024 clip", repeat(image.Pt(1024, 1024), 24), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			placements, pages, err := Pack(tt.sizes, Padding)
			if err != nil {
				t.Fatalf("Pack: %v", err)
			}
			if len(pages) != tt.wantPages {
				t.Fatalf("pages = %d, want %d", len(pages), tt.wantPages)
			}
			for i, page := range pages {
				if page.X > MaxPageSize || page.Y > MaxPageSize {
					t.Fatalf("page %d is %v, larger than %d", i, page, MaxPageSize)
				}
			}
			for i, p := range placements {
				if p.Rect.Size() != tt.sizes[i] {
					t.Fatalf("placement %d size %v", i, p.Rect.Size())
				}
				if !p.Rect.In(image.Rect(0, 0, pages[p.Page].X, pages[p.Page].Y).Inset(Padding)) {
					t.Fatalf("placement %d %v outside page %v", i, p.Rect, pages[p.Page])
				}
				if i == 0 {
					continue
				}
				prev := placements[i-1]
				if p.Page < prev.Page || p.Page > prev.Page+1 {
					t.Fatalf("placement %d on page %d after page %d", i, p.Page, prev.Page)
				}
				if p.Page == prev.Page && prev.Rect.Inset(-Padding).Overlaps(p.Rect) {
					t.Fatalf("placements %d and %d overlap", i-1, i)
				}
			}
		})
	}
}

func TestPackRejects(t *testing.T) {
	if _, _, err := Pack([]image.Point{{0, 4}}, Padding); err == nil {
		t.Fatalf("expected error for empty sprite")
	}
	if _, _, err := Pack([]image.Point{{4, 4}, {MaxPageSize, 4}}, Padding); !errors.Is(err, ErrPageTooLarge) {
		t.Fatalf("expected ErrPageTooLarge, got %v", err)
	}
	placements, pages, err := Pack(nil, Padding)
	if err != nil || placements != nil || pages != nil {
		t.Fatalf("empty pack = %v %v %v", placements, pages, err)
	}
}

func repeat(p image.Point, n int) []image.Point {
	out := make([]image.Point, n)
	for i := range out {
		out[i] = p
	}
	return out
}
