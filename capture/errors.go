package capture

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("capture: configuration error")
	ErrIO            = errors.New("capture: io error")
	ErrBusy          = errors.New("capture: a capture is already running")

	ErrMissingCamera     = fmt.Errorf("%w: no camera", ErrConfiguration)
	ErrMissingSource     = fmt.Errorf("%w: no source entity", ErrConfiguration)
	ErrMissingAnimator   = fmt.Errorf("%w: source has no animator", ErrConfiguration)
	ErrMissingClip       = fmt.Errorf("%w: animator has no usable clip", ErrConfiguration)
	ErrMissingOutputRoot = fmt.Errorf("%w: no output root", ErrConfiguration)
	ErrUnsupportedSize   = fmt.Errorf("%w: unsupported texture size", ErrConfiguration)
	ErrInvalidName       = fmt.Errorf("%w: name is not a single path element", ErrConfiguration)
)
