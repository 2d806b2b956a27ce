package app

import (
	"errors"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/quadframe"
	"github.com/gogpu/quadframe/internal/gpu"
)

// FrameRenderer is the renderer surface the Engine drives.
// *gpu.Renderer implements it.
type FrameRenderer interface {
	Render(entities []quadframe.Entity) error
	Resize(width, height uint32) error
	Size() (width, height uint32)
}

// Recovery is the action taken after a redraw.
type Recovery int

// Recovery actions.
const (
	// RecoveryNone means the frame was presented.
	RecoveryNone Recovery = iota
	// RecoverySkip means the frame was dropped; the next one should work.
	RecoverySkip
	// RecoveryReconfigured means the surface was lost and has been
	// reconfigured at its current size.
	RecoveryReconfigured
	// RecoveryTerminate means the failure is fatal and the host must exit.
	RecoveryTerminate
)

func (r Recovery) String() string {
	switch r {
	case RecoveryNone:
		return "none"
	case RecoverySkip:
		return "skip"
	case RecoveryReconfigured:
		return "reconfigured"
	case RecoveryTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// RecoveryFor maps a frame status to the recovery action.
func RecoveryFor(status gpu.SurfaceStatus) Recovery {
	switch status {
	case gpu.StatusOK:
		return RecoveryNone
	case gpu.StatusLost:
		return RecoveryReconfigured
	case gpu.StatusOutOfMemory:
		return RecoveryTerminate
	default:
		return RecoverySkip
	}
}

// Engine owns the game state and drives the renderer on behalf of the
// host loop. It is not safe for concurrent use.
type Engine struct {
	renderer FrameRenderer
	window   gpucontext.WindowProvider
	world    *quadframe.World
	input    *quadframe.Input

	dirty bool
}

// NewEngine returns an engine that draws world through renderer. window
// receives redraw requests; input may be nil for the default key map.
func NewEngine(renderer FrameRenderer, window gpucontext.WindowProvider, world *quadframe.World, input *quadframe.Input) *Engine {
	if input == nil {
		input = quadframe.NewInput(nil)
	}
	return &Engine{
		renderer: renderer,
		window:   window,
		world:    world,
		input:    input,
		dirty:    true,
	}
}

// World returns the engine's world.
func (e *Engine) World() *quadframe.World { return e.world }

// Input returns the engine's input state.
func (e *Engine) Input() *quadframe.Input { return e.input }

// Animating reports whether a direction is held, i.e. whether the host
// should keep producing frames without waiting for events.
func (e *Engine) Animating() bool { return e.input.Held() != 0 }

// Resize reconfigures the surface for a new framebuffer size. Zero sizes
// are ignored by the renderer. A redraw is requested either way.
func (e *Engine) Resize(width, height int) {
	if width < 0 || height < 0 {
		return
	}
	if err := e.renderer.Resize(uint32(width), uint32(height)); err != nil {
		slogger().Warn("app: resize failed", "width", width, "height", height, "err", err)
	}
	e.requestRedraw()
}

// HandleKey records a key event and requests a redraw when the set of
// held directions changed.
func (e *Engine) HandleKey(key gpucontext.Key, pressed bool) bool {
	if !e.input.HandleKey(key, pressed) {
		return false
	}
	slogger().Debug("app: input changed", "held", e.input.Held())
	e.requestRedraw()
	return true
}

// Blur releases every held direction. Hosts call it when the window loses
// focus, since the matching key releases will not be delivered.
func (e *Engine) Blur() {
	if e.input.Reset() {
		slogger().Debug("app: input released on focus loss")
		e.dirty = true
	}
}

// Update advances the world by dt and reports whether a redraw is needed:
// because something moved, or because input or a resize marked the frame
// dirty.
func (e *Engine) Update(dt time.Duration) bool {
	if e.world.Update(dt, e.input.Held()) {
		e.dirty = true
	}
	return e.dirty
}

// Redraw renders the world and applies the recovery policy:
// a lost surface is reconfigured at its current size, out-of-memory
// terminates, and every other failure drops the frame.
//
// Only a successful reconfiguration requests another redraw. A dropped
// frame leaves the engine dirty, so the next window event retries it
// instead of the host spinning on a surface that cannot present.
func (e *Engine) Redraw() Recovery {
	err := e.renderer.Render(e.world.Entities)
	if err == nil {
		e.dirty = false
		return RecoveryNone
	}

	if errors.Is(err, gpu.ErrCapacityExceeded) {
		slogger().Error("app: frame skipped", "err", err)
		return RecoverySkip
	}

	status := gpu.StatusOf(err)
	recovery := RecoveryFor(status)
	switch recovery {
	case RecoveryReconfigured:
		w, h := e.renderer.Size()
		slogger().Warn("app: surface lost, reconfiguring", "width", w, "height", h, "err", err)
		if rerr := e.renderer.Resize(w, h); rerr != nil {
			slogger().Warn("app: reconfigure failed", "err", rerr)
			return RecoverySkip
		}
		e.requestRedraw()
	case RecoveryTerminate:
		slogger().Error("app: out of GPU memory", "err", err)
	default:
		slogger().Debug("app: frame skipped", "status", status, "err", err)
	}
	return recovery
}

func (e *Engine) requestRedraw() {
	e.dirty = true
	if e.window != nil {
		e.window.RequestRedraw()
	}
}
