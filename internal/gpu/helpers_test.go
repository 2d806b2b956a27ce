package gpu

import (
	"image"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for tests that do not
// need a surface.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// testInstance wraps a noop instance so tests can inject failures and
// observe the objects the Context creates.
type testInstance struct {
	hal.Instance

	surfaceErr error
	noAdapter  bool
	caps       *hal.SurfaceCapabilities
	openErr    error

	surface *testSurface
	adapter *testAdapter
}

func newTestInstance(t *testing.T) *testInstance {
	t.Helper()
	inst, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	t.Cleanup(inst.Destroy)
	return &testInstance{Instance: inst}
}

func (i *testInstance) CreateSurface(display, window uintptr) (hal.Surface, error) {
	if i.surfaceErr != nil {
		return nil, i.surfaceErr
	}
	s, err := i.Instance.CreateSurface(display, window)
	if err != nil {
		return nil, err
	}
	i.surface = &testSurface{Surface: s}
	return i.surface, nil
}

func (i *testInstance) EnumerateAdapters(hint hal.Surface) []hal.ExposedAdapter {
	if i.noAdapter {
		return nil
	}
	adapters := i.Instance.EnumerateAdapters(hint)
	for k := range adapters {
		a := &testAdapter{Adapter: adapters[k].Adapter, caps: i.caps, openErr: i.openErr}
		if k == 0 {
			i.adapter = a
		}
		adapters[k].Adapter = a
	}
	return adapters
}

type testAdapter struct {
	hal.Adapter

	caps    *hal.SurfaceCapabilities
	openErr error

	device *testDevice
	queue  *testQueue
}

func (a *testAdapter) SurfaceCapabilities(s hal.Surface) *hal.SurfaceCapabilities {
	if a.caps != nil {
		return a.caps
	}
	return a.Adapter.SurfaceCapabilities(s)
}

func (a *testAdapter) Open(features gputypes.Features, limits gputypes.Limits) (hal.OpenDevice, error) {
	if a.openErr != nil {
		return hal.OpenDevice{}, a.openErr
	}
	od, err := a.Adapter.Open(features, limits)
	if err != nil {
		return hal.OpenDevice{}, err
	}
	a.device = &testDevice{Device: od.Device}
	a.queue = &testQueue{Queue: od.Queue}
	return hal.OpenDevice{Device: a.device, Queue: a.queue}, nil
}

type testSurface struct {
	hal.Surface

	acquireErr error
	// configureErrs are returned by successive Configure calls.
	configureErrs []error

	configures int
	lastConfig hal.SurfaceConfiguration
	acquires   int
	discards   int
	destroyed  bool
}

func (s *testSurface) Configure(device hal.Device, cfg *hal.SurfaceConfiguration) error {
	s.configures++
	s.lastConfig = *cfg
	if len(s.configureErrs) > 0 {
		err := s.configureErrs[0]
		s.configureErrs = s.configureErrs[1:]
		if err != nil {
			return err
		}
	}
	return s.Surface.Configure(device, cfg)
}

func (s *testSurface) AcquireTexture(fence hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	s.acquires++
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return s.Surface.AcquireTexture(fence)
}

func (s *testSurface) DiscardTexture(tex hal.SurfaceTexture) {
	s.discards++
	s.Surface.DiscardTexture(tex)
}

func (s *testSurface) Destroy() {
	s.destroyed = true
	s.Surface.Destroy()
}

type testDevice struct {
	hal.Device

	bufferErr error

	liveBuffers  int
	bufferSizes  []uint64
	waitIdles    int
	freedCmdBufs int
	encoders     []*testEncoder
}

func (d *testDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	e := &testEncoder{CommandEncoder: enc}
	d.encoders = append(d.encoders, e)
	return e, nil
}

// lastEncoder returns the most recently created encoder.
func (d *testDevice) lastEncoder(t *testing.T) *testEncoder {
	t.Helper()
	if len(d.encoders) == 0 {
		t.Fatal("no command encoder was created")
	}
	return d.encoders[len(d.encoders)-1]
}

func (d *testDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if d.bufferErr != nil {
		return nil, d.bufferErr
	}
	b, err := d.Device.CreateBuffer(desc)
	if err == nil {
		d.liveBuffers++
		d.bufferSizes = append(d.bufferSizes, desc.Size)
	}
	return b, err
}

func (d *testDevice) DestroyBuffer(b hal.Buffer) {
	d.liveBuffers--
	d.Device.DestroyBuffer(b)
}

func (d *testDevice) WaitIdle() error {
	d.waitIdles++
	return d.Device.WaitIdle()
}

func (d *testDevice) FreeCommandBuffer(cmd hal.CommandBuffer) {
	d.freedCmdBufs++
	d.Device.FreeCommandBuffer(cmd)
}

type bufferCopy struct {
	src, dst hal.Buffer
	regions  []hal.BufferCopy
}

// testEncoder records the copies and render passes of a frame.
type testEncoder struct {
	hal.CommandEncoder

	copies   []bufferCopy
	barriers int
	passes   []*testRenderPass
}

func (e *testEncoder) TransitionBuffers(barriers []hal.BufferBarrier) {
	e.barriers += len(barriers)
	e.CommandEncoder.TransitionBuffers(barriers)
}

func (e *testEncoder) CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	e.copies = append(e.copies, bufferCopy{src: src, dst: dst, regions: append([]hal.BufferCopy(nil), regions...)})
	e.CommandEncoder.CopyBufferToBuffer(src, dst, regions)
}

func (e *testEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &testRenderPass{
		RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc),
		colors:            append([]hal.RenderPassColorAttachment(nil), desc.ColorAttachments...),
	}
	e.passes = append(e.passes, p)
	return p
}

type drawIndexedCall struct {
	indexCount, instanceCount, firstIndex uint32
	baseVertex                            int32
	firstInstance                         uint32
}

// testRenderPass records the state set and draws issued in a pass.
type testRenderPass struct {
	hal.RenderPassEncoder

	colors       []hal.RenderPassColorAttachment
	pipeline     hal.RenderPipeline
	vertexSlot   uint32
	vertexBuffer hal.Buffer
	indexBuffer  hal.Buffer
	indexFormat  gputypes.IndexFormat
	draws        []drawIndexedCall
	ended        bool
}

func (p *testRenderPass) SetPipeline(pipeline hal.RenderPipeline) {
	p.pipeline = pipeline
	p.RenderPassEncoder.SetPipeline(pipeline)
}

func (p *testRenderPass) SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64) {
	p.vertexSlot, p.vertexBuffer = slot, buffer
	p.RenderPassEncoder.SetVertexBuffer(slot, buffer, offset)
}

func (p *testRenderPass) SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64) {
	p.indexBuffer, p.indexFormat = buffer, format
	p.RenderPassEncoder.SetIndexBuffer(buffer, format, offset)
}

func (p *testRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.draws = append(p.draws, drawIndexedCall{indexCount, instanceCount, firstIndex, baseVertex, firstInstance})
	p.RenderPassEncoder.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *testRenderPass) End() {
	p.ended = true
	p.RenderPassEncoder.End()
}

type testQueue struct {
	hal.Queue

	presentErr error
	// stalled makes PollCompleted report no finished submissions.
	stalled bool

	writes   [][]byte
	submits  int
	presents int
}

func (q *testQueue) WriteBuffer(b hal.Buffer, offset uint64, data []byte) error {
	q.writes = append(q.writes, append([]byte(nil), data...))
	return q.Queue.WriteBuffer(b, offset, data)
}

func (q *testQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	q.submits++
	return q.Queue.Submit(cmds)
}

func (q *testQueue) PollCompleted() uint64 {
	if q.stalled {
		return 0
	}
	return q.Queue.PollCompleted()
}

func (q *testQueue) Present(s hal.Surface, tex hal.SurfaceTexture, damage []image.Rectangle) error {
	q.presents++
	if q.presentErr != nil {
		return q.presentErr
	}
	return q.Queue.Present(s, tex, damage)
}

// newTestContext creates a Context over a wrapped noop instance.
func newTestContext(t *testing.T, width, height uint32, setup func(*testInstance)) (*Context, *testInstance) {
	t.Helper()
	inst := newTestInstance(t)
	if setup != nil {
		setup(inst)
	}
	ctx, err := NewContext(inst, SurfaceTarget{Width: width, Height: height})
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	t.Cleanup(ctx.Destroy)
	return ctx, inst
}
