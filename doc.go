// Package quadframe draws one axis-aligned quad per game entity to a window
// surface every frame through gogpu/wgpu.
//
// # Overview
//
// The root package holds the game-side state the renderer consumes:
//
//   - [Entity] and [World]: positions and sizes in clip space
//   - [Input] and [KeyMap]: key events mapped to four logical directions
//   - [Config]: YAML configuration for window, renderer and key bindings
//
// The rendering core lives in sub-packages:
//
//   - mesh: CPU-side quad geometry (vertex and index bytes)
//   - internal/gpu: surface, device, pipeline and the per-frame renderer
//   - app: glue the host event loop calls (resize, update, redraw)
//
// # Frame Lifecycle
//
// A render call acquires the next surface image, builds geometry for the
// current entities, uploads it into preallocated GPU buffers, records one
// clear-and-draw pass, submits it and presents the image. Surface loss is
// recovered by reconfiguring at the current size; out-of-memory is fatal.
//
// # Coordinate System
//
// Positions are clip-space coordinates:
//   - Origin (0,0) at the center of the surface
//   - X increases right, Y increases up
//   - The visible range is [-1, 1] on both axes
package quadframe
