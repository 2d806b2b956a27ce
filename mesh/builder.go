package mesh

import (
	"encoding/binary"

	"github.com/gogpu/quadframe"
	"golang.org/x/image/math/f32"
)

// Mesh is the packed output of a QuadBuilder.
type Mesh struct {
	Vertices   []byte
	Indices    []byte
	IndexCount uint32
	QuadCount  int
}

// Empty reports whether the mesh has nothing to draw.
func (m Mesh) Empty() bool { return m.IndexCount == 0 }

// QuadBuilder accumulates quads into vertex and index byte slices.
//
// A builder is single use: after Build any further call panics. No
// validation is applied to the rectangles, so inverted or degenerate
// quads are emitted as given.
type QuadBuilder struct {
	vertices []byte
	indices  []byte
	quads    uint32
	consumed bool
}

// NewQuadBuilder returns a builder with room for capacity quads
// preallocated. More quads can still be pushed.
func NewQuadBuilder(capacity int) *QuadBuilder {
	if capacity < 0 {
		capacity = 0
	}
	return &QuadBuilder{
		vertices: make([]byte, 0, capacity*QuadVertexBytes),
		indices:  make([]byte, 0, capacity*QuadIndexBytes),
	}
}

// PushQuad appends the rectangle spanning (minX, minY) to (maxX, maxY).
func (b *QuadBuilder) PushQuad(minX, minY, maxX, maxY float32) {
	b.checkLive("PushQuad")

	corners := [VerticesPerQuad]f32.Vec3{
		{minX, minY, 0},
		{maxX, minY, 0},
		{maxX, maxY, 0},
		{minX, maxY, 0},
	}
	var vb [QuadVertexBytes]byte
	for i, p := range corners {
		putVertex(vb[i*VertexSize:], Vertex{Position: p, Color: White})
	}
	b.vertices = append(b.vertices, vb[:]...)

	base := b.quads * VerticesPerQuad
	var ib [QuadIndexBytes]byte
	for i, off := range [IndicesPerQuad]uint32{0, 1, 2, 0, 2, 3} {
		binary.LittleEndian.PutUint32(ib[i*IndexSize:], base+off)
	}
	b.indices = append(b.indices, ib[:]...)

	b.quads++
}

// PushEntity appends the quad centered at e.Position with half-extent e.Size/2.
func (b *QuadBuilder) PushEntity(e quadframe.Entity) {
	b.checkLive("PushEntity")
	lo, hi := e.Bounds()
	b.PushQuad(lo[0], lo[1], hi[0], hi[1])
}

// PushEntities appends one quad per entity in slice order.
func (b *QuadBuilder) PushEntities(entities []quadframe.Entity) {
	for i := range entities {
		b.PushEntity(entities[i])
	}
}

// Len returns the number of quads pushed so far.
func (b *QuadBuilder) Len() int { return int(b.quads) }

// Build returns the accumulated geometry and consumes the builder.
func (b *QuadBuilder) Build() Mesh {
	b.checkLive("Build")
	b.consumed = true
	return Mesh{
		Vertices:   b.vertices,
		Indices:    b.indices,
		IndexCount: b.quads * IndicesPerQuad,
		QuadCount:  int(b.quads),
	}
}

func (b *QuadBuilder) checkLive(op string) {
	if b.consumed {
		panic("mesh: QuadBuilder." + op + " called after Build")
	}
}

// BuildEntities is a shorthand for building one quad per entity.
func BuildEntities(entities []quadframe.Entity) Mesh {
	b := NewQuadBuilder(len(entities))
	b.PushEntities(entities)
	return b.Build()
}
