package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SurfaceTarget identifies the native window to render into and its
// initial framebuffer size.
type SurfaceTarget struct {
	Display uintptr
	Window  uintptr
	Width   uint32
	Height  uint32
}

// Frame is an acquired surface image, valid until it is presented or
// discarded.
type Frame struct {
	Texture    hal.SurfaceTexture
	View       hal.TextureView
	Width      uint32
	Height     uint32
	Suboptimal bool
}

// Context owns the surface, adapter, device and queue.
//
// Context is not safe for concurrent use; Resize, AcquireFrame and Present
// must be called from the goroutine driving the event loop.
type Context struct {
	surface     hal.Surface
	adapter     hal.Adapter
	adapterInfo gputypes.AdapterInfo
	device      hal.Device
	queue       hal.Queue

	config     hal.SurfaceConfiguration
	configured bool
	label      string
}

var _ gpucontext.DeviceProvider = (*Context)(nil)

// NewContext creates a surface for target, selects the first adapter that
// can present to it and opens a device. The surface is configured right
// away unless the initial size has a zero dimension.
//
// Errors are *InitError values matching ErrSurfaceCreate, ErrNoAdapter or
// ErrNoDevice.
func NewContext(instance hal.Instance, target SurfaceTarget, opts ...ContextOption) (*Context, error) {
	o := defaultContextOptions()
	for _, opt := range opts {
		opt(&o)
	}

	surface, err := instance.CreateSurface(target.Display, target.Window)
	if err != nil {
		return nil, &InitError{Kind: ErrSurfaceCreate, Err: err}
	}

	exposed, caps := selectAdapter(instance.EnumerateAdapters(surface), surface)
	if exposed == nil {
		surface.Destroy()
		return nil, &InitError{Kind: ErrNoAdapter}
	}

	open, err := exposed.Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		surface.Destroy()
		return nil, &InitError{Kind: ErrNoDevice, Err: err}
	}

	c := &Context{
		surface:     surface,
		adapter:     exposed.Adapter,
		adapterInfo: exposed.Info,
		device:      open.Device,
		queue:       open.Queue,
		label:       o.label,
		config: hal.SurfaceConfiguration{
			Format:      chooseFormat(caps.Formats),
			Usage:       gputypes.TextureUsageRenderAttachment,
			PresentMode: choosePresentMode(caps.PresentModes),
			AlphaMode:   chooseAlphaMode(caps.AlphaModes),
		},
	}

	slogger().Info("gpu: adapter selected",
		"name", exposed.Info.Name,
		"backend", exposed.Info.Backend,
		"type", exposed.Info.DeviceType,
		"format", c.config.Format,
		"presentMode", c.config.PresentMode)

	if err := c.Resize(target.Width, target.Height); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

// selectAdapter returns the first adapter that reports surface
// capabilities with at least one format.
func selectAdapter(adapters []hal.ExposedAdapter, surface hal.Surface) (*hal.ExposedAdapter, *hal.SurfaceCapabilities) {
	for i := range adapters {
		a := &adapters[i]
		if a.Adapter == nil {
			continue
		}
		caps := a.Adapter.SurfaceCapabilities(surface)
		if caps == nil || len(caps.Formats) == 0 {
			slogger().Debug("gpu: adapter cannot present to surface", "name", a.Info.Name)
			continue
		}
		return a, caps
	}
	return nil, nil
}

// chooseFormat prefers the first sRGB format and falls back to the first
// format reported.
func chooseFormat(formats []gputypes.TextureFormat) gputypes.TextureFormat {
	for _, f := range formats {
		if f.IsSrgb() {
			return f
		}
	}
	if len(formats) == 0 {
		return gputypes.TextureFormatUndefined
	}
	return formats[0]
}

func choosePresentMode(modes []gputypes.PresentMode) gputypes.PresentMode {
	if len(modes) == 0 {
		return gputypes.PresentModeFifo
	}
	return modes[0]
}

func chooseAlphaMode(modes []gputypes.CompositeAlphaMode) gputypes.CompositeAlphaMode {
	if len(modes) == 0 {
		return gputypes.CompositeAlphaModeOpaque
	}
	return modes[0]
}

// Resize reconfigures the surface for a new framebuffer size. A zero width
// or height leaves the configuration untouched. Calling Resize with the
// current size forces a reconfiguration, which is how a lost surface is
// recovered.
func (c *Context) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		slogger().Debug("gpu: ignoring zero-area resize", "width", width, "height", height)
		return nil
	}

	cfg := c.config
	cfg.Width, cfg.Height = width, height
	if err := c.surface.Configure(c.device, &cfg); err != nil {
		c.configured = false
		return fmt.Errorf("gpu: configure surface %dx%d: %w", width, height, err)
	}
	c.config = cfg
	c.configured = true

	slogger().Debug("gpu: surface configured", "width", width, "height", height, "format", cfg.Format)
	return nil
}

// AcquireFrame returns the next presentable image. Failures are returned
// as *SurfaceError. A surface that was never configured reports
// StatusOutdated and waits for a resize; one whose reconfiguration failed
// reports StatusLost so the host retries it at the last good size.
func (c *Context) AcquireFrame() (*Frame, error) {
	if !c.configured {
		if c.config.Width != 0 && c.config.Height != 0 {
			return nil, &SurfaceError{Status: StatusLost, Op: "acquire"}
		}
		return nil, &SurfaceError{Status: StatusOutdated, Op: "acquire"}
	}

	acquired, err := c.surface.AcquireTexture(nil)
	if err != nil {
		return nil, newSurfaceError("acquire", err)
	}
	if acquired.Suboptimal {
		slogger().Warn("gpu: suboptimal surface image",
			"width", c.config.Width, "height", c.config.Height)
	}

	view, err := c.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:           c.label + "_surface_view",
		Format:          c.config.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		c.surface.DiscardTexture(acquired.Texture)
		return nil, newSurfaceError("acquire", err)
	}

	return &Frame{
		Texture:    acquired.Texture,
		View:       view,
		Width:      c.config.Width,
		Height:     c.config.Height,
		Suboptimal: acquired.Suboptimal,
	}, nil
}

// Present queues f for display. Any failure is reported as StatusLost so
// the host reconfigures the surface.
func (c *Context) Present(f *Frame) error {
	c.device.DestroyTextureView(f.View)
	if err := c.queue.Present(c.surface, f.Texture, nil); err != nil {
		return &SurfaceError{Status: StatusLost, Op: "present", Err: err}
	}
	return nil
}

// Discard returns f to the surface without presenting it.
func (c *Context) Discard(f *Frame) {
	c.device.DestroyTextureView(f.View)
	c.surface.DiscardTexture(f.Texture)
}

// Size returns the configured surface size.
func (c *Context) Size() (width, height uint32) {
	return c.config.Width, c.config.Height
}

// Configured reports whether the surface currently has a valid configuration.
func (c *Context) Configured() bool { return c.configured }

// SurfaceConfiguration returns the negotiated surface configuration.
func (c *Context) SurfaceConfiguration() hal.SurfaceConfiguration { return c.config }

// SurfaceFormat returns the negotiated surface texture format.
func (c *Context) SurfaceFormat() gputypes.TextureFormat { return c.config.Format }

// Device returns the HAL device as a gpucontext token.
func (c *Context) Device() gpucontext.Device { return c.device }

// Queue returns the HAL queue as a gpucontext token.
func (c *Context) Queue() gpucontext.Queue { return c.queue }

// Adapter returns the HAL adapter as a gpucontext token.
func (c *Context) Adapter() gpucontext.Adapter { return c.adapter }

// HalDevice returns the hal.Device, for consumers that type-assert on it.
func (c *Context) HalDevice() any { return c.device }

// AdapterInfo returns the adapter name and class.
func (c *Context) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{
		Name: c.adapterInfo.Name,
		Type: adapterType(c.adapterInfo.DeviceType),
	}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// Destroy waits for the device to go idle and releases the surface and
// device. The hal.Instance passed to NewContext is owned by the caller.
func (c *Context) Destroy() {
	if c.device == nil {
		return
	}
	if err := c.device.WaitIdle(); err != nil {
		slogger().Warn("gpu: wait idle on destroy", "err", err)
	}
	if c.configured {
		c.surface.Unconfigure(c.device)
		c.configured = false
	}
	c.surface.Destroy()
	c.device.Destroy()
	c.device = nil
}
