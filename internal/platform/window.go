package platform

import (
	"errors"
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/gogpu/gpucontext"
)

// ErrUnsupportedPlatform is returned by NativeHandles on platforms without a
// surface path.
var ErrUnsupportedPlatform = errors.New("platform: native surface handles unsupported on this platform")

// Window is a GLFW window. It implements [gpucontext.WindowProvider].
type Window struct {
	win *glfw.Window

	onResize func(width, height int)
	onKey    func(key gpucontext.Key, pressed bool)
	onClose  func()
	onBlur   func()

	redraw bool
}

var _ gpucontext.WindowProvider = (*Window)(nil)

// NewWindow initializes GLFW and opens a resizable window with no client
// API attached.
func NewWindow(title string, width, height int) (*Window, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("platform: invalid window size %dx%d", width, height)
	}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("platform: glfw init: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("platform: create window: %w", err)
	}

	w := &Window{win: win, redraw: true}
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if w.onKey == nil || action == glfw.Repeat {
			return
		}
		k := TranslateKey(key)
		if k == gpucontext.KeyUnknown {
			return
		}
		w.onKey(k, action == glfw.Press)
	})
	win.SetCloseCallback(func(_ *glfw.Window) {
		if w.onClose != nil {
			w.onClose()
		}
	})
	win.SetRefreshCallback(func(_ *glfw.Window) {
		w.redraw = true
	})
	win.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		if focused {
			w.redraw = true
			return
		}
		if w.onBlur != nil {
			w.onBlur()
		}
	})
	return w, nil
}

// OnResize registers the framebuffer size callback. Sizes are in pixels.
func (w *Window) OnResize(fn func(width, height int)) { w.onResize = fn }

// OnKey registers the keyboard callback. Key repeats are not reported.
func (w *Window) OnKey(fn func(key gpucontext.Key, pressed bool)) { w.onKey = fn }

// OnClose registers the close request callback.
func (w *Window) OnClose(fn func()) { w.onClose = fn }

// OnBlur registers the callback run when the window loses input focus.
func (w *Window) OnBlur(fn func()) { w.onBlur = fn }

// Size returns the client area size in logical points.
func (w *Window) Size() (width, height int) { return w.win.GetSize() }

// FramebufferSize returns the drawable size in pixels.
func (w *Window) FramebufferSize() (width, height int) { return w.win.GetFramebufferSize() }

// ScaleFactor returns the content scale of the window.
func (w *Window) ScaleFactor() float64 {
	sx, _ := w.win.GetContentScale()
	if sx <= 0 {
		return 1
	}
	return float64(sx)
}

// RequestRedraw marks a redraw as pending and wakes a blocked WaitEvents.
func (w *Window) RequestRedraw() {
	w.redraw = true
	glfw.PostEmptyEvent()
}

// TakeRedraw reports whether a redraw is pending and clears the flag.
func (w *Window) TakeRedraw() bool {
	pending := w.redraw
	w.redraw = false
	return pending
}

// PollEvents processes pending events without blocking.
func (w *Window) PollEvents() { glfw.PollEvents() }

// WaitEvents blocks until at least one event arrives.
func (w *Window) WaitEvents() { glfw.WaitEvents() }

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool { return w.win.ShouldClose() }

// Close marks the window for closing.
func (w *Window) Close() { w.win.SetShouldClose(true) }

// Destroy closes the window and terminates GLFW.
func (w *Window) Destroy() {
	if w.win == nil {
		return
	}
	w.win.Destroy()
	w.win = nil
	glfw.Terminate()
}

// TranslateKey maps a GLFW key code to the gpucontext key vocabulary.
// Keys without an equivalent map to [gpucontext.KeyUnknown].
func TranslateKey(k glfw.Key) gpucontext.Key {
	switch {
	case k >= glfw.KeyA && k <= glfw.KeyZ:
		return gpucontext.KeyA + gpucontext.Key(k-glfw.KeyA)
	case k >= glfw.Key0 && k <= glfw.Key9:
		return gpucontext.Key0 + gpucontext.Key(k-glfw.Key0)
	case k >= glfw.KeyF1 && k <= glfw.KeyF12:
		return gpucontext.KeyF1 + gpucontext.Key(k-glfw.KeyF1)
	}
	if key, ok := namedKeys[k]; ok {
		return key
	}
	return gpucontext.KeyUnknown
}

var namedKeys = map[glfw.Key]gpucontext.Key{
	glfw.KeyEscape:       gpucontext.KeyEscape,
	glfw.KeyTab:          gpucontext.KeyTab,
	glfw.KeyBackspace:    gpucontext.KeyBackspace,
	glfw.KeyEnter:        gpucontext.KeyEnter,
	glfw.KeySpace:        gpucontext.KeySpace,
	glfw.KeyInsert:       gpucontext.KeyInsert,
	glfw.KeyDelete:       gpucontext.KeyDelete,
	glfw.KeyHome:         gpucontext.KeyHome,
	glfw.KeyEnd:          gpucontext.KeyEnd,
	glfw.KeyPageUp:       gpucontext.KeyPageUp,
	glfw.KeyPageDown:     gpucontext.KeyPageDown,
	glfw.KeyLeft:         gpucontext.KeyLeft,
	glfw.KeyRight:        gpucontext.KeyRight,
	glfw.KeyUp:           gpucontext.KeyUp,
	glfw.KeyDown:         gpucontext.KeyDown,
	glfw.KeyLeftShift:    gpucontext.KeyLeftShift,
	glfw.KeyRightShift:   gpucontext.KeyRightShift,
	glfw.KeyLeftControl:  gpucontext.KeyLeftControl,
	glfw.KeyRightControl: gpucontext.KeyRightControl,
	glfw.KeyLeftAlt:      gpucontext.KeyLeftAlt,
	glfw.KeyRightAlt:     gpucontext.KeyRightAlt,
	glfw.KeyLeftSuper:    gpucontext.KeyLeftSuper,
	glfw.KeyRightSuper:   gpucontext.KeyRightSuper,
}
