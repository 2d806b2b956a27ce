// Package gpu owns the GPU side of quadframe: the surface and device
// ([Context]), the fixed render pipeline ([Pipeline]) and the per-frame
// renderer ([Renderer]).
//
// All work goes through the gogpu/wgpu HAL interfaces, so any registered
// backend (Vulkan, Metal, DX12, GLES, software) can be used, and tests run
// against the noop backend.
//
// # Frame State Machine
//
// Renderer.Render runs one frame:
//
//	Acquire -> BuildGeometry -> Upload -> Record -> Submit -> Present
//
// Acquisition failures abort the frame before any buffer is touched and
// are reported as a [SurfaceError] carrying a [SurfaceStatus]:
//
//   - StatusLost: reconfigure at the current size, retry next frame
//   - StatusOutdated, StatusTimeout: skip, the next frame is expected to work
//   - StatusOutOfMemory: fatal, the host should terminate
//
// A frame with more entities than the static buffers hold is rejected up
// front with a [CapacityError]; geometry is never truncated.
//
// # Resource Lifetime
//
// The Context and Pipeline live for the whole session. Per-frame staging
// buffers and command buffers are kept until the queue reports the
// submission that reads them as completed, with at most MaxFrameLatency
// submissions outstanding.
package gpu
