package quadframe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gpucontext"
)

// Direction is a set of logical movement directions.
type Direction uint8

// Logical directions.
const (
	Up Direction = 1 << iota
	Down
	Left
	Right
)

// String returns the held directions joined by "+", or "none".
func (d Direction) String() string {
	if d == 0 {
		return "none"
	}
	var parts []string
	for _, n := range []struct {
		dir  Direction
		name string
	}{{Up, "up"}, {Down, "down"}, {Left, "left"}, {Right, "right"}} {
		if d&n.dir != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}

// Vector returns the unit axis contributions of the held directions.
// Up is +y, matching clip space.
func (d Direction) Vector() (x, y float32) {
	if d&Right != 0 {
		x++
	}
	if d&Left != 0 {
		x--
	}
	if d&Up != 0 {
		y++
	}
	if d&Down != 0 {
		y--
	}
	return x, y
}

// ErrInvalidKeyMap is returned by KeyMap.Validate.
var ErrInvalidKeyMap = errors.New("quadframe: invalid key map")

// KeyMap binds keys to logical directions.
type KeyMap map[gpucontext.Key]Direction

// DefaultKeyMap returns the canonical bindings: w=up, s=down, a=left, d=right.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		gpucontext.KeyW: Up,
		gpucontext.KeyS: Down,
		gpucontext.KeyA: Left,
		gpucontext.KeyD: Right,
	}
}

// Validate checks that every direction is bound to exactly one key.
func (m KeyMap) Validate() error {
	bound := make(map[Direction]gpucontext.Key, 4)
	for key, dir := range m {
		switch dir {
		case Up, Down, Left, Right:
		default:
			return fmt.Errorf("%w: key %d bound to %v", ErrInvalidKeyMap, key, dir)
		}
		if prev, ok := bound[dir]; ok {
			return fmt.Errorf("%w: %v bound to keys %d and %d", ErrInvalidKeyMap, dir, prev, key)
		}
		bound[dir] = key
	}
	for _, dir := range []Direction{Up, Down, Left, Right} {
		if _, ok := bound[dir]; !ok {
			return fmt.Errorf("%w: %v is not bound", ErrInvalidKeyMap, dir)
		}
	}
	return nil
}

var namedKeys = map[string]gpucontext.Key{
	"up":     gpucontext.KeyUp,
	"down":   gpucontext.KeyDown,
	"left":   gpucontext.KeyLeft,
	"right":  gpucontext.KeyRight,
	"space":  gpucontext.KeySpace,
	"escape": gpucontext.KeyEscape,
}

// ParseKey converts a key name from a config file into a key code.
// Accepted names are single letters, single digits, and the names
// up, down, left, right, space and escape. Matching is case-insensitive.
func ParseKey(name string) (gpucontext.Key, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if k, ok := namedKeys[s]; ok {
		return k, nil
	}
	if len(s) == 1 {
		switch c := s[0]; {
		case c >= 'a' && c <= 'z':
			return gpucontext.KeyA + gpucontext.Key(c-'a'), nil
		case c >= '0' && c <= '9':
			return gpucontext.Key0 + gpucontext.Key(c-'0'), nil
		}
	}
	return gpucontext.KeyUnknown, fmt.Errorf("%w: unknown key %q", ErrInvalidKeyMap, name)
}

// Input tracks which logical directions are currently held.
type Input struct {
	keys KeyMap
	held Direction
}

// NewInput returns an Input using the given bindings.
// A nil map selects DefaultKeyMap.
func NewInput(keys KeyMap) *Input {
	if keys == nil {
		keys = DefaultKeyMap()
	}
	return &Input{keys: keys}
}

// HandleKey records a key press or release and reports whether the set of
// held directions changed. Unbound keys and key repeats report false.
func (in *Input) HandleKey(key gpucontext.Key, pressed bool) bool {
	dir, ok := in.keys[key]
	if !ok {
		return false
	}
	prev := in.held
	if pressed {
		in.held |= dir
	} else {
		in.held &^= dir
	}
	return in.held != prev
}

// Held returns the directions currently held.
func (in *Input) Held() Direction { return in.held }

// Reset releases every direction, e.g. when the window loses focus.
func (in *Input) Reset() bool {
	changed := in.held != 0
	in.held = 0
	return changed
}
