package gpu

import (
	"errors"

	"github.com/gogpu/wgpu/hal"
)

// SurfaceStatus classifies a failed frame.
type SurfaceStatus int

// Surface statuses.
const (
	StatusOK SurfaceStatus = iota
	StatusLost
	StatusOutdated
	StatusTimeout
	StatusOutOfMemory
)

// Sentinels matched by SurfaceError with errors.Is.
var (
	ErrSurfaceLost     = errors.New("gpu: surface lost")
	ErrSurfaceOutdated = errors.New("gpu: surface outdated")
	ErrSurfaceTimeout  = errors.New("gpu: surface timeout")
	ErrOutOfMemory     = errors.New("gpu: out of memory")
)

func (s SurfaceStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusLost:
		return "lost"
	case StatusOutdated:
		return "outdated"
	case StatusTimeout:
		return "timeout"
	case StatusOutOfMemory:
		return "out-of-memory"
	default:
		return "unknown"
	}
}

// Fatal reports whether the status requires terminating the process.
func (s SurfaceStatus) Fatal() bool { return s == StatusOutOfMemory }

func (s SurfaceStatus) sentinel() error {
	switch s {
	case StatusLost:
		return ErrSurfaceLost
	case StatusOutdated:
		return ErrSurfaceOutdated
	case StatusTimeout:
		return ErrSurfaceTimeout
	case StatusOutOfMemory:
		return ErrOutOfMemory
	default:
		return nil
	}
}

// SurfaceError is a per-frame failure. Op names the frame stage that
// failed and Err is the backend cause, if any.
type SurfaceError struct {
	Status SurfaceStatus
	Op     string
	Err    error
}

func (e *SurfaceError) Error() string {
	msg := "gpu: " + e.Op + ": " + e.Status.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SurfaceError) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Status.
func (e *SurfaceError) Is(target error) bool {
	s := e.Status.sentinel()
	return s != nil && target == s
}

// newSurfaceError classifies a backend error raised during op.
func newSurfaceError(op string, err error) *SurfaceError {
	return &SurfaceError{Status: classify(err), Op: op, Err: err}
}

// classify maps HAL errors to a status. Anything unrecognized is treated
// as a lost surface so the host reconfigures.
func classify(err error) SurfaceStatus {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return StatusOutOfMemory
	case errors.Is(err, hal.ErrSurfaceOutdated):
		return StatusOutdated
	case errors.Is(err, hal.ErrTimeout), errors.Is(err, hal.ErrNotReady):
		return StatusTimeout
	default:
		return StatusLost
	}
}

// StatusOf returns the surface status carried by err. A nil error is
// StatusOK; errors that are not a SurfaceError are classified like
// backend errors.
func StatusOf(err error) SurfaceStatus {
	if err == nil {
		return StatusOK
	}
	var se *SurfaceError
	if errors.As(err, &se) {
		return se.Status
	}
	return classify(err)
}
