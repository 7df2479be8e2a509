package framebuffer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sizes lists the supported render target edge lengths, in pixels.
var Sizes = [...]int{32, 64, 128, 256, 512, 1024, 2048, 4096}

// Size is an index into Sizes. Targets are always square when configured from
// a Size.
type Size int

// DefaultSize is 128x128.
const DefaultSize Size = 2

var ErrUnsupportedSize = errors.New("framebuffer: unsupported size")

func (s Size) Valid() bool {
	return s >= 0 && int(s) < len(Sizes)
}

// Pixels returns the edge length, or 0 for an invalid size.
func (s Size) Pixels() int {
	if !s.Valid() {
		return 0
	}
	return Sizes[s]
}

func (s Size) String() string {
	if !s.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%dx%d", Sizes[s], Sizes[s])
}

// SizeOf returns the Size for an edge length.
func SizeOf(px int) (Size, bool) {
	for i, v := range Sizes {
		if v == px {
			return Size(i), true
		}
	}
	return 0, false
}

// ParseSize accepts "256" or "256x256".
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	w, h, found := strings.Cut(s, "x")
	if !found {
		h = w
	}
	wp, err := strconv.Atoi(w)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedSize, s)
	}
	hp, err := strconv.Atoi(h)
	if err != nil || hp != wp {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedSize, s)
	}
	size, ok := SizeOf(wp)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedSize, s)
	}
	return size, nil
}
