// Command quadframe opens a window and moves a quad around with the
// keyboard.
//
// Usage:
//
//	quadframe [-config quadframe.yaml] [-backend auto|vulkan|metal|dx12|gl|software] [-max-entities n] [-debug]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/quadframe"
	"github.com/gogpu/quadframe/app"
	"github.com/gogpu/quadframe/internal/gpu"
	"github.com/gogpu/quadframe/internal/platform"
	"github.com/gogpu/wgpu/hal"

	_ "github.com/gogpu/wgpu/hal/allbackends"
)

func init() {
	// GLFW and the surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	var (
		configPath  = flag.String("config", "quadframe.yaml", "YAML config file")
		debug       = flag.Bool("debug", false, "enable debug logging")
		backend     = flag.String("backend", "", "GPU backend: auto, vulkan, metal, dx12, gl, software")
		maxEntities = flag.Int("max-entities", 0, "entity capacity of the vertex buffers")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	quadframe.SetLogger(logger)

	cfg, err := quadframe.LoadConfig(*configPath)
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(2)
	}
	if *backend != "" {
		cfg.Render.Backend = *backend
	}
	if *maxEntities > 0 {
		cfg.Render.MaxEntities = *maxEntities
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config", "err", err)
		os.Exit(2)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("quadframe", "err", err)
		os.Exit(1)
	}
}

func run(cfg quadframe.Config, logger *slog.Logger) error {
	keys, err := cfg.KeyMap()
	if err != nil {
		return err
	}

	instance, err := createInstance(cfg)
	if err != nil {
		return err
	}
	defer instance.Destroy()

	win, err := platform.NewWindow(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return err
	}
	defer win.Destroy()

	display, handle, err := win.NativeHandles()
	if err != nil {
		return err
	}
	fbw, fbh := win.FramebufferSize()

	ctx, err := gpu.NewContext(instance, gpu.SurfaceTarget{
		Display: display,
		Window:  handle,
		Width:   uint32(fbw),
		Height:  uint32(fbh),
	}, gpu.WithLabel(cfg.Window.Title))
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	pipeline, err := gpu.NewPipeline(ctx.HalDevice().(hal.Device), ctx.SurfaceFormat())
	if err != nil {
		return err
	}
	defer pipeline.Destroy()

	renderer, err := gpu.NewRenderer(ctx, pipeline, cfg.Render.MaxEntities,
		gpu.WithClearColor(cfg.ClearColor()))
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	engine := app.NewEngine(renderer, win, quadframe.NewWorld(), quadframe.NewInput(keys))

	win.OnResize(engine.Resize)
	win.OnKey(func(key gpucontext.Key, pressed bool) {
		if key == gpucontext.KeyEscape && pressed {
			win.Close()
			return
		}
		engine.HandleKey(key, pressed)
	})
	win.OnBlur(engine.Blur)
	win.OnClose(func() {
		logger.Debug("window close requested")
	})

	info := ctx.AdapterInfo()
	logger.Info("running", "adapter", info.Name, "format", ctx.SurfaceFormat(),
		"width", fbw, "height", fbh, "capacity", renderer.Capacity())

	last := time.Now()
	for !win.ShouldClose() {
		animating := engine.Animating()
		if animating {
			win.PollEvents()
		} else {
			win.WaitEvents()
		}

		now := time.Now()
		var dt time.Duration
		if animating {
			dt = now.Sub(last)
		}
		last = now

		exposed := win.TakeRedraw()
		if !engine.Update(dt) && !exposed {
			continue
		}
		if engine.Redraw() == app.RecoveryTerminate {
			return errors.New("quadframe: unrecoverable surface error")
		}
	}

	stats := renderer.Stats()
	logger.Info("exiting", "presented", stats.Presented, "lost", stats.Lost,
		"outdated", stats.Outdated, "timeout", stats.Timeout)
	return nil
}

func createInstance(cfg quadframe.Config) (hal.Instance, error) {
	variant, auto, err := cfg.BackendVariant()
	if err != nil {
		return nil, err
	}

	var backend hal.Backend
	if auto {
		backend, err = hal.SelectBestBackend()
		if err != nil {
			return nil, fmt.Errorf("select backend: %w", err)
		}
	} else {
		var ok bool
		backend, ok = hal.GetBackend(variant)
		if !ok {
			return nil, fmt.Errorf("backend %s not available (have %v)", variant, hal.AvailableBackends())
		}
	}

	instance, err := backend.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("create %s instance: %w", backend.Variant(), err)
	}
	return instance, nil
}
