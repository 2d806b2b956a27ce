// Package mesh builds the CPU-side geometry for quad frames.
//
// A [QuadBuilder] turns axis-aligned rectangles (or [quadframe.Entity]
// values) into packed little-endian vertex bytes and uint32 index bytes
// ready for upload into GPU buffers described by [VertexLayout].
//
// Each quad contributes four vertices in the order
// (min,min), (max,min), (max,max), (min,max) and six indices
// {4i, 4i+1, 4i+2, 4i, 4i+2, 4i+3}, i.e. two counter-clockwise triangles.
package mesh
