package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadframe"
	"github.com/gogpu/quadframe/mesh"
	"github.com/gogpu/wgpu/hal"
)

// FrameStats counts frame outcomes since the renderer was created.
type FrameStats struct {
	Presented        uint64
	Lost             uint64
	Outdated         uint64
	Timeout          uint64
	OutOfMemory      uint64
	CapacityExceeded uint64

	// LastIndexCount is the index count of the last presented frame.
	LastIndexCount uint32

	// InFlight is the number of submissions whose resources are still held.
	InFlight int
}

func (s *FrameStats) record(status SurfaceStatus) {
	switch status {
	case StatusLost:
		s.Lost++
	case StatusOutdated:
		s.Outdated++
	case StatusTimeout:
		s.Timeout++
	case StatusOutOfMemory:
		s.OutOfMemory++
	}
}

// inFlightFrame holds the per-frame objects the GPU may still read.
type inFlightFrame struct {
	submission uint64
	cmd        hal.CommandBuffer
	staging    []hal.Buffer
}

// Renderer draws one quad per entity into the Context's surface.
//
// Vertex and index data live in two static buffers sized for capacity
// quads. Each frame's geometry is written into fresh staging buffers and
// copied into the static buffers on the GPU timeline, so a frame never
// overwrites data a previous submission is still reading.
type Renderer struct {
	ctx      *Context
	pipeline *Pipeline
	capacity int

	vertexBuffer hal.Buffer
	indexBuffer  hal.Buffer

	clearColor      gputypes.Color
	maxFrameLatency int
	inFlight        []inFlightFrame

	stats FrameStats
}

// NewRenderer allocates static buffers for capacity quads.
func NewRenderer(ctx *Context, pipeline *Pipeline, capacity int, opts ...RendererOption) (*Renderer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("gpu: renderer capacity must be positive, got %d", capacity)
	}
	if pipeline.Format() != ctx.SurfaceFormat() {
		return nil, fmt.Errorf("%w: pipeline %v, surface %v", ErrFormatMismatch, pipeline.Format(), ctx.SurfaceFormat())
	}

	o := defaultRendererOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Renderer{
		ctx:             ctx,
		pipeline:        pipeline,
		capacity:        capacity,
		clearColor:      o.clearColor,
		maxFrameLatency: o.maxFrameLatency,
	}

	var err error
	r.vertexBuffer, err = ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "quad_vertex_buffer",
		Size:  uint64(capacity) * mesh.QuadVertexBytes,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create vertex buffer: %w", err)
	}
	r.indexBuffer, err = ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "quad_index_buffer",
		Size:  uint64(capacity) * mesh.QuadIndexBytes,
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		ctx.device.DestroyBuffer(r.vertexBuffer)
		return nil, fmt.Errorf("gpu: create index buffer: %w", err)
	}

	slogger().Debug("gpu: renderer created",
		"capacity", capacity,
		"vertexBytes", uint64(capacity)*mesh.QuadVertexBytes,
		"indexBytes", uint64(capacity)*mesh.QuadIndexBytes)
	return r, nil
}

// Capacity returns the maximum number of entities per frame.
func (r *Renderer) Capacity() int { return r.capacity }

// Stats returns a snapshot of the frame counters.
func (r *Renderer) Stats() FrameStats {
	s := r.stats
	s.InFlight = len(r.inFlight)
	return s
}

// Resize forwards to the Context.
func (r *Renderer) Resize(width, height uint32) error { return r.ctx.Resize(width, height) }

// Size returns the configured surface size.
func (r *Renderer) Size() (width, height uint32) { return r.ctx.Size() }

// Render draws one frame with one quad per entity, in slice order.
//
// Returned errors are a *CapacityError when there are more entities than
// the static buffers hold (nothing is acquired in that case), or a
// *SurfaceError whose Status tells the host how to recover. A failed
// acquisition leaves every buffer untouched.
func (r *Renderer) Render(entities []quadframe.Entity) error {
	if len(entities) > r.capacity {
		r.stats.CapacityExceeded++
		return &CapacityError{Count: len(entities), Capacity: r.capacity}
	}

	frame, err := r.ctx.AcquireFrame()
	if err != nil {
		r.stats.record(StatusOf(err))
		return err
	}

	r.reclaim()

	m := mesh.BuildEntities(entities)
	done, err := r.encodeAndSubmit(frame, m)
	if err != nil {
		r.ctx.Discard(frame)
		serr := newSurfaceError("submit", err)
		r.stats.record(serr.Status)
		return serr
	}
	r.track(done)

	if err := r.ctx.Present(frame); err != nil {
		r.stats.record(StatusOf(err))
		return err
	}

	r.stats.Presented++
	r.stats.LastIndexCount = m.IndexCount
	slogger().Debug("gpu: frame presented",
		"quads", m.QuadCount, "indices", m.IndexCount, "submission", done.submission)
	return nil
}

// encodeAndSubmit uploads m, records the clear-and-draw pass into frame
// and submits it.
func (r *Renderer) encodeAndSubmit(frame *Frame, m mesh.Mesh) (inFlightFrame, error) {
	device, queue := r.ctx.device, r.ctx.queue
	var done inFlightFrame

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "quad_frame_encoder"})
	if err != nil {
		return done, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("quad_frame"); err != nil {
		return done, fmt.Errorf("begin encoding: %w", err)
	}

	if !m.Empty() {
		done.staging, err = r.upload(encoder, m)
		if err != nil {
			encoder.DiscardEncoding()
			r.destroyBuffers(done.staging)
			return inFlightFrame{}, err
		}
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "quad_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       frame.View,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: r.clearColor,
		}},
	})
	rp.SetPipeline(r.pipeline.pipeline)
	if !m.Empty() {
		rp.SetVertexBuffer(0, r.vertexBuffer, 0)
		rp.SetIndexBuffer(r.indexBuffer, mesh.IndexFormat, 0)
		rp.DrawIndexed(m.IndexCount, 1, 0, 0, 0)
	}
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		r.destroyBuffers(done.staging)
		return inFlightFrame{}, fmt.Errorf("end encoding: %w", err)
	}

	submission, err := queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		device.FreeCommandBuffer(cmd)
		r.destroyBuffers(done.staging)
		return inFlightFrame{}, fmt.Errorf("submit: %w", err)
	}
	done.cmd = cmd
	done.submission = submission
	return done, nil
}

// upload writes m into staging buffers and records GPU copies into the
// static buffers, with barriers on both sides of the copies.
func (r *Renderer) upload(encoder hal.CommandEncoder, m mesh.Mesh) ([]hal.Buffer, error) {
	vstage, err := r.createStaging("quad_vertex_staging", m.Vertices)
	if err != nil {
		return nil, err
	}
	istage, err := r.createStaging("quad_index_staging", m.Indices)
	if err != nil {
		return []hal.Buffer{vstage}, err
	}
	staging := []hal.Buffer{vstage, istage}

	encoder.TransitionBuffers([]hal.BufferBarrier{
		{Buffer: r.vertexBuffer, Usage: hal.BufferUsageTransition{
			OldUsage: gputypes.BufferUsageVertex, NewUsage: gputypes.BufferUsageCopyDst,
		}},
		{Buffer: r.indexBuffer, Usage: hal.BufferUsageTransition{
			OldUsage: gputypes.BufferUsageIndex, NewUsage: gputypes.BufferUsageCopyDst,
		}},
	})
	encoder.CopyBufferToBuffer(vstage, r.vertexBuffer, []hal.BufferCopy{{Size: uint64(len(m.Vertices))}})
	encoder.CopyBufferToBuffer(istage, r.indexBuffer, []hal.BufferCopy{{Size: uint64(len(m.Indices))}})
	encoder.TransitionBuffers([]hal.BufferBarrier{
		{Buffer: r.vertexBuffer, Usage: hal.BufferUsageTransition{
			OldUsage: gputypes.BufferUsageCopyDst, NewUsage: gputypes.BufferUsageVertex,
		}},
		{Buffer: r.indexBuffer, Usage: hal.BufferUsageTransition{
			OldUsage: gputypes.BufferUsageCopyDst, NewUsage: gputypes.BufferUsageIndex,
		}},
	})
	return staging, nil
}

// createStaging creates a copy-source buffer holding data.
func (r *Renderer) createStaging(label string, data []byte) (hal.Buffer, error) {
	buf, err := r.ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := r.ctx.queue.WriteBuffer(buf, 0, data); err != nil {
		r.ctx.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("write %s: %w", label, err)
	}
	return buf, nil
}

// track parks a submitted frame. Past maxFrameLatency outstanding
// submissions it blocks until the device is idle.
func (r *Renderer) track(f inFlightFrame) {
	r.inFlight = append(r.inFlight, f)
	if len(r.inFlight) <= r.maxFrameLatency {
		return
	}
	if err := r.ctx.device.WaitIdle(); err != nil {
		slogger().Warn("gpu: wait idle for frame latency", "err", err)
		return
	}
	r.releaseAll()
}

// reclaim frees the resources of submissions the queue has completed.
func (r *Renderer) reclaim() {
	if len(r.inFlight) == 0 {
		return
	}
	completed := r.ctx.queue.PollCompleted()
	kept := r.inFlight[:0]
	for _, f := range r.inFlight {
		if f.submission <= completed {
			r.release(f)
			continue
		}
		kept = append(kept, f)
	}
	clear(r.inFlight[len(kept):])
	r.inFlight = kept
}

func (r *Renderer) releaseAll() {
	for _, f := range r.inFlight {
		r.release(f)
	}
	clear(r.inFlight)
	r.inFlight = r.inFlight[:0]
}

func (r *Renderer) release(f inFlightFrame) {
	if f.cmd != nil {
		r.ctx.device.FreeCommandBuffer(f.cmd)
	}
	r.destroyBuffers(f.staging)
}

func (r *Renderer) destroyBuffers(bufs []hal.Buffer) {
	for _, b := range bufs {
		if b != nil {
			r.ctx.device.DestroyBuffer(b)
		}
	}
}

// Destroy waits for the GPU and releases every buffer. The Context and
// Pipeline are left to their owners.
func (r *Renderer) Destroy() {
	if r.ctx.device == nil {
		return
	}
	if err := r.ctx.device.WaitIdle(); err != nil {
		slogger().Warn("gpu: wait idle on renderer destroy", "err", err)
	}
	r.releaseAll()
	if r.indexBuffer != nil {
		r.ctx.device.DestroyBuffer(r.indexBuffer)
		r.indexBuffer = nil
	}
	if r.vertexBuffer != nil {
		r.ctx.device.DestroyBuffer(r.vertexBuffer)
		r.vertexBuffer = nil
	}
}
