package mesh

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// Layout constants. A vertex is a float32x3 position followed by a
// float32x3 color.
const (
	VertexSize      = 24
	IndexSize       = 4
	VerticesPerQuad = 4
	IndicesPerQuad  = 6

	// QuadVertexBytes and QuadIndexBytes are the buffer bytes one quad needs.
	QuadVertexBytes = VertexSize * VerticesPerQuad
	QuadIndexBytes  = IndexSize * IndicesPerQuad

	positionOffset = 0
	colorOffset    = 12
)

// IndexFormat is the index format of Mesh.Indices.
const IndexFormat = gputypes.IndexFormatUint32

// White is the color of every generated vertex.
var White = f32.Vec3{1, 1, 1}

// Vertex is a single quad corner.
type Vertex struct {
	Position f32.Vec3
	Color    f32.Vec3
}

// VertexLayout returns the vertex buffer layout matching Vertex:
// location 0 is the position, location 1 the color.
func VertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: VertexSize,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: positionOffset, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x3, Offset: colorOffset, ShaderLocation: 1},
			},
		},
	}
}

func putVertex(buf []byte, v Vertex) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v.Color[0]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(v.Color[1]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(v.Color[2]))
}

func readFloat(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}

// DecodeVertices unpacks vertex bytes produced by QuadBuilder.
// Trailing bytes that do not form a whole vertex are ignored.
func DecodeVertices(data []byte) []Vertex {
	n := len(data) / VertexSize
	out := make([]Vertex, n)
	for i := range out {
		b := data[i*VertexSize:]
		out[i] = Vertex{
			Position: f32.Vec3{readFloat(b[0:]), readFloat(b[4:]), readFloat(b[8:])},
			Color:    f32.Vec3{readFloat(b[12:]), readFloat(b[16:]), readFloat(b[20:])},
		}
	}
	return out
}

// DecodeIndices unpacks uint32 index bytes.
func DecodeIndices(data []byte) []uint32 {
	out := make([]uint32, len(data)/IndexSize)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*IndexSize:])
	}
	return out
}
