package gpu

import (
	"errors"
	"fmt"
)

// Initialization errors. They are fatal and only returned from NewContext.
var (
	ErrSurfaceCreate = errors.New("gpu: surface creation failed")
	ErrNoAdapter     = errors.New("gpu: no adapter compatible with the surface")
	ErrNoDevice      = errors.New("gpu: device request failed")
)

var (
	// ErrCapacityExceeded is matched by CapacityError.
	ErrCapacityExceeded = errors.New("gpu: entity count exceeds buffer capacity")

	// ErrFormatMismatch is returned when a pipeline targets a different
	// format than the surface it should draw to.
	ErrFormatMismatch = errors.New("gpu: pipeline format does not match surface format")

	// ErrShaderEntryPoint is returned when the quad shader lacks vs_main or fs_main.
	ErrShaderEntryPoint = errors.New("gpu: shader entry point missing")
)

// InitError is returned when the GPU context cannot be created.
// errors.Is matches both Kind and the backend cause.
type InitError struct {
	Kind error
	Err  error
}

func (e *InitError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// CapacityError reports a frame with more entities than the static
// buffers were sized for.
type CapacityError struct {
	Count    int
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("gpu: %d entities exceed buffer capacity of %d", e.Count, e.Capacity)
}

// Is reports whether target is ErrCapacityExceeded.
func (e *CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }
