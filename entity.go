package quadframe

import (
	"time"

	"golang.org/x/image/math/f32"
)

// Player defaults.
const (
	PlayerSize     float32 = 0.2
	PlayerVelocity float32 = 0.5
)

// Entity is one renderable game object. Positions and sizes are in clip
// space, so a quad of size {2, 2} at the origin covers the whole surface.
// The renderer draws one quad per entity, centered at Position with a
// half-extent of Size/2.
type Entity struct {
	Position f32.Vec2
	Size     f32.Vec2

	// Velocity is the movement speed in clip-space units per second.
	Velocity float32
}

// NewPlayer returns the player entity at the given position.
func NewPlayer(position f32.Vec2) Entity {
	return Entity{
		Position: position,
		Size:     f32.Vec2{PlayerSize, PlayerSize},
		Velocity: PlayerVelocity,
	}
}

// Bounds returns the min and max corners of the entity's quad.
func (e Entity) Bounds() (lo, hi f32.Vec2) {
	hx, hy := e.Size[0]/2, e.Size[1]/2
	lo = f32.Vec2{e.Position[0] - hx, e.Position[1] - hy}
	hi = f32.Vec2{e.Position[0] + hx, e.Position[1] + hy}
	return lo, hi
}

// World holds the entity list handed to the renderer every frame.
// Entities[0] is the player.
type World struct {
	Entities []Entity
}

// NewWorld returns a world holding a single player at the origin.
func NewWorld() *World {
	return &World{Entities: []Entity{NewPlayer(f32.Vec2{0, 0})}}
}

// Player returns the player entity, or nil if the world is empty.
func (w *World) Player() *Entity {
	if len(w.Entities) == 0 {
		return nil
	}
	return &w.Entities[0]
}

// Update advances the player along the held directions by Velocity*dt.
// Opposite directions cancel out. It reports whether the player moved.
func (w *World) Update(dt time.Duration, held Direction) bool {
	p := w.Player()
	if p == nil || dt <= 0 {
		return false
	}
	dx, dy := held.Vector()
	if dx == 0 && dy == 0 {
		return false
	}
	step := p.Velocity * float32(dt.Seconds())
	if step == 0 {
		return false
	}
	p.Position[0] += dx * step
	p.Position[1] += dy * step
	return true
}
