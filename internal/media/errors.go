package media

import (
	"errors"
	"fmt"
)

var (
	// ErrVipsUnavailable is returned when conversion is attempted before InitVips.
	ErrVipsUnavailable = errors.New("libvips not available")

	// ErrImageTooLarge is wrapped when an image header declares more pixels
	// than the preprocessor decodes.
	ErrImageTooLarge = errors.New("image too large to decode")

	errEmptyImage = errors.New("image has no pixels")
)

// ConversionError means a legacy image could not be converted. No output
// exists when it is returned.
type ConversionError struct {
	Name string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert %s: %v", e.Name, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ResizeError means an image could not be decoded, scaled or encoded.
type ResizeError struct {
	Name  string
	Stage string
	Err   error
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("failed to resize %s (%s): %v", e.Name, e.Stage, e.Err)
}

func (e *ResizeError) Unwrap() error { return e.Err }
