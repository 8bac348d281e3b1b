package playback

import "errors"

// Control validation errors.
var (
	// ErrInvalidSpeed indicates a non-positive speed multiplier.
	ErrInvalidSpeed = errors.New("speed multiplier must be positive")

	// ErrInvalidFPS indicates a non-positive frame rate.
	ErrInvalidFPS = errors.New("frame rate must be positive")
)
