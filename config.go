package quadframe

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a config file cannot be used.
var ErrInvalidConfig = errors.New("quadframe: invalid config")

// Defaults.
const (
	DefaultTitle       = "quadframe"
	DefaultWidth       = 800
	DefaultHeight      = 600
	DefaultMaxEntities = 64

	maxConfigSize = 1 << 20
)

// Config is the on-disk configuration, read from YAML.
type Config struct {
	Window WindowConfig `yaml:"window"`
	Render RenderConfig `yaml:"render"`
	Keys   KeyBindings  `yaml:"keys"`
}

// WindowConfig describes the initial window.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// RenderConfig configures the renderer.
type RenderConfig struct {
	// MaxEntities sizes the static vertex and index buffers. Frames with
	// more entities are rejected with a capacity error.
	MaxEntities int `yaml:"max_entities"`

	// Backend is one of auto, vulkan, metal, dx12, gl or software.
	Backend string `yaml:"backend"`

	// ClearColor is the RGBA background, each channel in [0, 1].
	ClearColor []float64 `yaml:"clear_color"`
}

// KeyBindings names the key bound to each direction.
type KeyBindings struct {
	Up    string `yaml:"up"`
	Down  string `yaml:"down"`
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{Title: DefaultTitle, Width: DefaultWidth, Height: DefaultHeight},
		Render: RenderConfig{
			MaxEntities: DefaultMaxEntities,
			Backend:     "auto",
			ClearColor:  []float64{0.1, 0.2, 0.3, 1.0},
		},
		Keys: KeyBindings{Up: "w", Down: "s", Left: "a", Right: "d"},
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
// A missing file yields the defaults. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			Logger().Debug("config file not found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("quadframe: stat config: %w", err)
	}
	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrInvalidConfig, path, info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("quadframe: read config: %w", err)
	}
	cfg, err = ParseConfig(data)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	Logger().Info("loaded config", "path", path, "size", info.Size())
	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Validate checks ranges and key bindings.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Render.MaxEntities <= 0 {
		return fmt.Errorf("%w: max_entities must be positive, got %d", ErrInvalidConfig, c.Render.MaxEntities)
	}
	if _, _, err := c.BackendVariant(); err != nil {
		return err
	}
	if len(c.Render.ClearColor) != 4 {
		return fmt.Errorf("%w: clear_color needs 4 channels, got %d", ErrInvalidConfig, len(c.Render.ClearColor))
	}
	for i, v := range c.Render.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: clear_color[%d] = %v out of [0, 1]", ErrInvalidConfig, i, v)
		}
	}
	if _, err := c.KeyMap(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// KeyMap resolves the configured key names.
func (c Config) KeyMap() (KeyMap, error) {
	m := make(KeyMap, 4)
	for _, b := range []struct {
		name string
		dir  Direction
	}{
		{c.Keys.Up, Up},
		{c.Keys.Down, Down},
		{c.Keys.Left, Left},
		{c.Keys.Right, Right},
	} {
		key, err := ParseKey(b.name)
		if err != nil {
			return nil, err
		}
		if prev, dup := m[key]; dup {
			return nil, fmt.Errorf("%w: key %q bound to both %v and %v", ErrInvalidKeyMap, b.name, prev, b.dir)
		}
		m[key] = b.dir
	}
	return m, m.Validate()
}

var backendNames = map[string]gputypes.Backend{
	"vulkan":   gputypes.BackendVulkan,
	"metal":    gputypes.BackendMetal,
	"dx12":     gputypes.BackendDX12,
	"gl":       gputypes.BackendGL,
	"software": gputypes.BackendEmpty,
}

// BackendVariant resolves Render.Backend. auto is true when the best
// available backend should be selected at runtime.
func (c Config) BackendVariant() (variant gputypes.Backend, auto bool, err error) {
	name := strings.ToLower(strings.TrimSpace(c.Render.Backend))
	if name == "" || name == "auto" {
		return gputypes.BackendEmpty, true, nil
	}
	v, ok := backendNames[name]
	if !ok {
		return gputypes.BackendEmpty, false, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Render.Backend)
	}
	return v, false, nil
}

// ClearColor returns Render.ClearColor as a GPU color.
func (c Config) ClearColor() gputypes.Color {
	cc := c.Render.ClearColor
	if len(cc) != 4 {
		cc = DefaultConfig().Render.ClearColor
	}
	return gputypes.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}
}
