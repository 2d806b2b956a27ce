package gpu

import "github.com/gogpu/gputypes"

// DefaultMaxFrameLatency is the number of submitted frames whose staging
// memory may still be in use by the GPU.
const DefaultMaxFrameLatency = 2

// DefaultClearColor is the background drawn behind the quads.
var DefaultClearColor = gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1.0}

// ContextOption configures a Context during creation.
//
// Example:
//
//	ctx, err := gpu.NewContext(instance, target, gpu.WithLabel("main"))
type ContextOption func(*contextOptions)

type contextOptions struct {
	label string
}

func defaultContextOptions() contextOptions {
	return contextOptions{
		label: "quadframe",
	}
}

// WithLabel sets the debug label prefix of GPU objects created by the context.
func WithLabel(label string) ContextOption {
	return func(o *contextOptions) {
		if label != "" {
			o.label = label
		}
	}
}

// RendererOption configures a Renderer during creation.
type RendererOption func(*rendererOptions)

type rendererOptions struct {
	clearColor      gputypes.Color
	maxFrameLatency int
}

func defaultRendererOptions() rendererOptions {
	return rendererOptions{
		clearColor:      DefaultClearColor,
		maxFrameLatency: DefaultMaxFrameLatency,
	}
}

// WithClearColor sets the background color.
func WithClearColor(c gputypes.Color) RendererOption {
	return func(o *rendererOptions) {
		o.clearColor = c
	}
}

// WithMaxFrameLatency bounds how many submissions may keep staging memory
// alive. Values below 1 are clamped to 1.
func WithMaxFrameLatency(n int) RendererOption {
	return func(o *rendererOptions) {
		if n < 1 {
			n = 1
		}
		o.maxFrameLatency = n
	}
}
