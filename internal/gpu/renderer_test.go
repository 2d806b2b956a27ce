package gpu

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadframe"
	"github.com/gogpu/quadframe/mesh"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"
)

type rendererFixture struct {
	ctx      *Context
	renderer *Renderer
	surface  *testSurface
	device   *testDevice
	queue    *testQueue
}

func newRendererFixture(t *testing.T, capacity int, opts ...RendererOption) *rendererFixture {
	t.Helper()
	ctx, inst := newTestContext(t, 800, 600, nil)
	pipeline, err := NewPipeline(ctx.device, ctx.SurfaceFormat())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	t.Cleanup(pipeline.Destroy)
	r, err := NewRenderer(ctx, pipeline, capacity, opts...)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	t.Cleanup(r.Destroy)
	return &rendererFixture{
		ctx:      ctx,
		renderer: r,
		surface:  inst.surface,
		device:   inst.adapter.device,
		queue:    inst.adapter.queue,
	}
}

func TestNewRendererAllocatesStaticBuffers(t *testing.T) {
	f := newRendererFixture(t, 4)

	if f.device.liveBuffers != 2 {
		t.Fatalf("liveBuffers = %d, want 2", f.device.liveBuffers)
	}
	want := []uint64{4 * mesh.QuadVertexBytes, 4 * mesh.QuadIndexBytes}
	for i, size := range want {
		if f.device.bufferSizes[i] != size {
			t.Errorf("buffer %d size = %d, want %d", i, f.device.bufferSizes[i], size)
		}
	}
	if f.renderer.Capacity() != 4 {
		t.Errorf("Capacity() = %d", f.renderer.Capacity())
	}
}

func TestNewRendererRejectsBadInput(t *testing.T) {
	ctx, _ := newTestContext(t, 100, 100, nil)
	pipeline, err := NewPipeline(ctx.device, gputypes.TextureFormatRGBA8UnormSrgb)
	if err != nil {
		t.Fatal(err)
	}
	defer pipeline.Destroy()

	if _, err := NewRenderer(ctx, pipeline, 1); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("NewRenderer with mismatched format = %v, want ErrFormatMismatch", err)
	}

	good, err := NewPipeline(ctx.device, ctx.SurfaceFormat())
	if err != nil {
		t.Fatal(err)
	}
	defer good.Destroy()
	if _, err := NewRenderer(ctx, good, 0); err == nil {
		t.Error("NewRenderer accepted zero capacity")
	}
}

func TestRenderUploadsPlayerQuad(t *testing.T) {
	f := newRendererFixture(t, 1)

	world := quadframe.NewWorld()
	if err := f.renderer.Render(world.Entities); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if len(f.queue.writes) != 2 {
		t.Fatalf("queue writes = %d, want vertex and index staging", len(f.queue.writes))
	}
	verts := mesh.DecodeVertices(f.queue.writes[0])
	want := []f32.Vec3{{-0.1, -0.1, 0}, {0.1, -0.1, 0}, {0.1, 0.1, 0}, {-0.1, 0.1, 0}}
	if len(verts) != len(want) {
		t.Fatalf("uploaded %d vertices, want %d", len(verts), len(want))
	}
	for i := range want {
		for k := 0; k < 3; k++ {
			if math.Abs(float64(verts[i].Position[k]-want[i][k])) > 1e-6 {
				t.Errorf("vertex %d = %v, want %v", i, verts[i].Position, want[i])
				break
			}
		}
		if verts[i].Color != mesh.White {
			t.Errorf("vertex %d color = %v, want white", i, verts[i].Color)
		}
	}
	idx := mesh.DecodeIndices(f.queue.writes[1])
	for i, w := range []uint32{0, 1, 2, 0, 2, 3} {
		if idx[i] != w {
			t.Errorf("indices = %v, want 0 1 2 0 2 3", idx)
			break
		}
	}

	if f.queue.submits != 1 || f.queue.presents != 1 {
		t.Errorf("submits, presents = %d, %d, want 1, 1", f.queue.submits, f.queue.presents)
	}
	stats := f.renderer.Stats()
	if stats.Presented != 1 || stats.LastIndexCount != 6 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestRenderNoEntitiesStillClears(t *testing.T) {
	f := newRendererFixture(t, 1)

	if err := f.renderer.Render(nil); err != nil {
		t.Fatalf("Render(nil) failed: %v", err)
	}
	if len(f.queue.writes) != 0 {
		t.Errorf("queue writes = %d, want none", len(f.queue.writes))
	}
	if f.queue.submits != 1 || f.queue.presents != 1 {
		t.Errorf("submits, presents = %d, %d, want 1, 1", f.queue.submits, f.queue.presents)
	}
	if f.renderer.Stats().LastIndexCount != 0 {
		t.Errorf("LastIndexCount = %d, want 0", f.renderer.Stats().LastIndexCount)
	}
}

func TestRenderRecordsClearAndDraw(t *testing.T) {
	f := newRendererFixture(t, 2)
	entities := []quadframe.Entity{
		quadframe.NewPlayer(f32.Vec2{-0.5, 0}),
		quadframe.NewPlayer(f32.Vec2{0.5, 0}),
	}

	if err := f.renderer.Render(entities); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	enc := f.device.lastEncoder(t)

	if len(enc.copies) != 2 {
		t.Fatalf("buffer copies = %d, want 2", len(enc.copies))
	}
	wantCopies := []struct {
		dst  hal.Buffer
		size uint64
	}{
		{f.renderer.vertexBuffer, 2 * mesh.QuadVertexBytes},
		{f.renderer.indexBuffer, 2 * mesh.QuadIndexBytes},
	}
	for i, want := range wantCopies {
		c := enc.copies[i]
		if c.dst != want.dst {
			t.Errorf("copy %d targets the wrong buffer", i)
		}
		if c.src == nil || c.src == want.dst {
			t.Errorf("copy %d does not read from a staging buffer", i)
		}
		if len(c.regions) != 1 || c.regions[0].Size != want.size {
			t.Errorf("copy %d regions = %+v, want one region of %d bytes", i, c.regions, want.size)
		}
	}
	if enc.barriers != 4 {
		t.Errorf("buffer barriers = %d, want 4", enc.barriers)
	}

	if len(enc.passes) != 1 {
		t.Fatalf("render passes = %d, want 1", len(enc.passes))
	}
	pass := enc.passes[0]
	if len(pass.colors) != 1 {
		t.Fatalf("color attachments = %d, want 1", len(pass.colors))
	}
	att := pass.colors[0]
	if att.LoadOp != gputypes.LoadOpClear || att.StoreOp != gputypes.StoreOpStore {
		t.Errorf("load/store = %v/%v, want clear/store", att.LoadOp, att.StoreOp)
	}
	if att.ClearValue != (gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}) {
		t.Errorf("clear color = %+v", att.ClearValue)
	}
	if att.View == nil {
		t.Error("color attachment has no view")
	}
	if pass.pipeline != f.renderer.pipeline.pipeline {
		t.Error("pass does not use the quad pipeline")
	}
	if pass.vertexSlot != 0 || pass.vertexBuffer != f.renderer.vertexBuffer {
		t.Error("vertex buffer not bound to slot 0")
	}
	if pass.indexBuffer != f.renderer.indexBuffer || pass.indexFormat != gputypes.IndexFormatUint32 {
		t.Errorf("index buffer bound with format %v, want uint32", pass.indexFormat)
	}
	want := []drawIndexedCall{{indexCount: 12, instanceCount: 1}}
	if len(pass.draws) != 1 || pass.draws[0] != want[0] {
		t.Errorf("draws = %+v, want %+v", pass.draws, want)
	}
	if !pass.ended {
		t.Error("render pass was not ended")
	}
}

func TestRenderEmptyFrameClearsWithoutDrawing(t *testing.T) {
	red := gputypes.Color{R: 1, A: 1}
	f := newRendererFixture(t, 1, WithClearColor(red))

	if err := f.renderer.Render(nil); err != nil {
		t.Fatalf("Render(nil) failed: %v", err)
	}
	enc := f.device.lastEncoder(t)
	if len(enc.copies) != 0 || enc.barriers != 0 {
		t.Errorf("copies, barriers = %d, %d, want none", len(enc.copies), enc.barriers)
	}
	if len(enc.passes) != 1 {
		t.Fatalf("render passes = %d, want 1", len(enc.passes))
	}
	pass := enc.passes[0]
	if pass.colors[0].LoadOp != gputypes.LoadOpClear || pass.colors[0].ClearValue != red {
		t.Errorf("attachment = %+v, want a clear to %+v", pass.colors[0], red)
	}
	if pass.pipeline == nil {
		t.Error("pipeline not set")
	}
	if pass.vertexBuffer != nil || pass.indexBuffer != nil || len(pass.draws) != 0 {
		t.Error("empty frame bound buffers or drew")
	}
	if !pass.ended {
		t.Error("render pass was not ended")
	}
}

func TestRenderCapacityExceeded(t *testing.T) {
	f := newRendererFixture(t, 2)

	entities := make([]quadframe.Entity, 3)
	for i := range entities {
		entities[i] = quadframe.NewPlayer(f32.Vec2{float32(i) * 0.3, 0})
	}
	err := f.renderer.Render(entities)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Render = %v, want ErrCapacityExceeded", err)
	}
	var ce *CapacityError
	if !errors.As(err, &ce) || ce.Count != 3 || ce.Capacity != 2 {
		t.Errorf("CapacityError = %+v", ce)
	}
	if f.surface.acquires != 0 || len(f.queue.writes) != 0 || f.queue.submits != 0 {
		t.Error("over-capacity frame touched the surface or queue")
	}
	if f.renderer.Stats().CapacityExceeded != 1 {
		t.Errorf("CapacityExceeded = %d", f.renderer.Stats().CapacityExceeded)
	}

	if err := f.renderer.Render(entities[:2]); err != nil {
		t.Errorf("Render at capacity failed: %v", err)
	}
}

func TestRenderAcquireFailureTouchesNothing(t *testing.T) {
	tests := []struct {
		err  error
		want SurfaceStatus
	}{
		{hal.ErrSurfaceLost, StatusLost},
		{hal.ErrSurfaceOutdated, StatusOutdated},
		{hal.ErrTimeout, StatusTimeout},
		{hal.ErrDeviceOutOfMemory, StatusOutOfMemory},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			f := newRendererFixture(t, 1)
			f.surface.acquireErr = tt.err

			err := f.renderer.Render(quadframe.NewWorld().Entities)
			if got := StatusOf(err); got != tt.want {
				t.Errorf("status = %v, want %v", got, tt.want)
			}
			if len(f.queue.writes) != 0 || f.queue.submits != 0 || f.queue.presents != 0 {
				t.Errorf("writes, submits, presents = %d, %d, %d, want none",
					len(f.queue.writes), f.queue.submits, f.queue.presents)
			}
			if f.device.liveBuffers != 2 {
				t.Errorf("liveBuffers = %d, want only the static buffers", f.device.liveBuffers)
			}
			if f.renderer.Stats().Presented != 0 {
				t.Error("failed frame counted as presented")
			}
		})
	}
}

func TestRenderLostThenRecovered(t *testing.T) {
	f := newRendererFixture(t, 1)
	entities := quadframe.NewWorld().Entities

	f.surface.acquireErr = hal.ErrSurfaceLost
	if err := f.renderer.Render(entities); StatusOf(err) != StatusLost {
		t.Fatalf("Render = %v, want lost", err)
	}

	w, h := f.renderer.Size()
	if err := f.renderer.Resize(w, h); err != nil {
		t.Fatal(err)
	}
	if f.surface.configures != 2 {
		t.Errorf("configures = %d, want 2", f.surface.configures)
	}

	f.surface.acquireErr = nil
	if err := f.renderer.Render(entities); err != nil {
		t.Fatalf("Render after recovery failed: %v", err)
	}
	stats := f.renderer.Stats()
	if stats.Lost != 1 || stats.Presented != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestRenderPresentFailure(t *testing.T) {
	f := newRendererFixture(t, 1)
	f.queue.presentErr = errors.New("swapchain gone")

	err := f.renderer.Render(quadframe.NewWorld().Entities)
	if StatusOf(err) != StatusLost {
		t.Errorf("Render = %v, want lost", err)
	}
	if f.queue.submits != 1 {
		t.Errorf("submits = %d, want 1", f.queue.submits)
	}
}

func TestRenderBufferOutOfMemory(t *testing.T) {
	f := newRendererFixture(t, 1)
	f.device.bufferErr = hal.ErrDeviceOutOfMemory

	err := f.renderer.Render(quadframe.NewWorld().Entities)
	if StatusOf(err) != StatusOutOfMemory {
		t.Fatalf("Render = %v, want out-of-memory", err)
	}
	if f.surface.discards != 1 {
		t.Errorf("discards = %d, want the acquired image returned", f.surface.discards)
	}
	if f.queue.submits != 0 || f.queue.presents != 0 {
		t.Error("failed upload was still submitted")
	}
}

func TestRenderReleasesCompletedStaging(t *testing.T) {
	f := newRendererFixture(t, 1)
	entities := quadframe.NewWorld().Entities

	for i := 0; i < 5; i++ {
		if err := f.renderer.Render(entities); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	// The noop queue completes submissions immediately, so only the last
	// frame's staging buffers are still parked.
	if got := f.renderer.Stats().InFlight; got != 1 {
		t.Errorf("InFlight = %d, want 1", got)
	}
	if f.device.liveBuffers != 4 {
		t.Errorf("liveBuffers = %d, want 2 static + 2 staging", f.device.liveBuffers)
	}
	if f.device.waitIdles != 0 {
		t.Errorf("waitIdles = %d, want 0", f.device.waitIdles)
	}

	f.renderer.Destroy()
	if f.device.liveBuffers != 0 {
		t.Errorf("liveBuffers after Destroy = %d, want 0", f.device.liveBuffers)
	}
}

func TestRenderBoundsFrameLatency(t *testing.T) {
	f := newRendererFixture(t, 1, WithMaxFrameLatency(2))
	f.queue.stalled = true
	entities := quadframe.NewWorld().Entities

	for i := 0; i < 2; i++ {
		if err := f.renderer.Render(entities); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.renderer.Stats().InFlight; got != 2 {
		t.Fatalf("InFlight = %d, want 2", got)
	}
	if f.device.waitIdles != 0 {
		t.Fatalf("waitIdles = %d before the latency bound, want 0", f.device.waitIdles)
	}

	if err := f.renderer.Render(entities); err != nil {
		t.Fatal(err)
	}
	if f.device.waitIdles != 1 {
		t.Errorf("waitIdles = %d, want 1", f.device.waitIdles)
	}
	if got := f.renderer.Stats().InFlight; got != 0 {
		t.Errorf("InFlight = %d after waiting, want 0", got)
	}
	if f.device.freedCmdBufs != 3 {
		t.Errorf("freed command buffers = %d, want 3", f.device.freedCmdBufs)
	}
}

func TestWithMaxFrameLatencyClamps(t *testing.T) {
	o := defaultRendererOptions()
	WithMaxFrameLatency(0)(&o)
	if o.maxFrameLatency != 1 {
		t.Errorf("maxFrameLatency = %d, want 1", o.maxFrameLatency)
	}
	WithClearColor(gputypes.Color{A: 1})(&o)
	if o.clearColor != (gputypes.Color{A: 1}) {
		t.Errorf("clearColor = %+v", o.clearColor)
	}
	if DefaultClearColor != (gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}) {
		t.Errorf("DefaultClearColor = %+v", DefaultClearColor)
	}
}
