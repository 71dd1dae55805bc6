package main

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	wailswindows "github.com/wailsapp/wails/v2/pkg/options/windows"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"deskweb/internal/config"
	"deskweb/internal/logging"
	"deskweb/internal/overlay"
)

//go:embed all:frontend/dist
var assets embed.FS

// modeEvent carries overlay mode changes to the frontend.
const modeEvent = "overlay:mode"

// App struct
type App struct {
	ctx     context.Context
	config  *config.Service
	logger  *slog.Logger
	overlay *overlay.Service

	domOnce     sync.Once
	unsubscribe func()
}

// NewApp creates a new App application struct
func NewApp(configSvc *config.Service, logger *slog.Logger) (*App, error) {
	platform, err := overlay.NewPlatform(configSvc, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize platform: %w", err)
	}

	overlaySvc, err := overlay.New(configSvc, platform, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize overlay: %w", err)
	}

	return &App{
		config:  configSvc,
		logger:  logger,
		overlay: overlaySvc,
	}, nil
}

// OnStartup is called when the app starts up
func (a *App) OnStartup(ctx context.Context) {
	a.ctx = ctx

	cfg := a.config.Get().Overlay
	runtime.WindowSetPosition(ctx, cfg.X, cfg.Y)

	a.unsubscribe = a.overlay.Subscribe(func(mode overlay.Mode) {
		runtime.EventsEmit(a.ctx, modeEvent, string(mode))
	})
}

// OnDomReady is called once the web content has loaded. The render widget
// exists from this point on, so this is where the overlay is bound and,
// if configured, moved onto the desktop.
func (a *App) OnDomReady(ctx context.Context) {
	a.domOnce.Do(func() {
		cfg := a.config.Get().Overlay

		go func() {
			overlayHWND, widget, err := resolveOverlayWindows(ctx, cfg.Title)
			if err != nil {
				a.logger.Warn("overlay windows not found, desktop mode unavailable", "error", err)
				return
			}
			a.overlay.Bind(overlayHWND, widget)

			if cfg.DesktopMode {
				if err := a.overlay.EnterDesktopMode(ctx); err != nil {
					a.logger.Warn("desktop mode unavailable, staying interactive", "error", err)
				}
			}
		}()

		if cfg.URL != "" {
			runtime.WindowExecJS(ctx, "window.location.replace("+strconv.Quote(cfg.URL)+")")
		}
	})
}

// OnBeforeClose leaves desktop mode before the window is destroyed, while
// its original parent still exists to return to.
func (a *App) OnBeforeClose(ctx context.Context) bool {
	if err := a.overlay.ExitDesktopMode(); err != nil {
		a.logger.Warn("exit desktop mode before close", "error", err)
	}
	return false
}

// OnShutdown is called when the app is shutting down
func (a *App) OnShutdown(ctx context.Context) {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.overlay.Shutdown()
}

// ToggleDesktopMode switches between desktop and interactive mode
func (a *App) ToggleDesktopMode() (string, error) {
	ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
	defer cancel()

	mode, err := a.overlay.ToggleMode(ctx)
	if err != nil {
		return string(mode), fmt.Errorf("failed to toggle desktop mode: %w", err)
	}
	return string(mode), nil
}

// GetSuppressCount returns how many spurious pointer-leaves were filtered
func (a *App) GetSuppressCount() (uint64, error) {
	return a.overlay.SuppressCount()
}

// GetStatus returns overlay diagnostics
func (a *App) GetStatus() overlay.Status {
	return a.overlay.Status()
}

func main() {
	configSvc, err := config.New()
	if err != nil {
		fmt.Printf("Failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	cfg := configSvc.Get()

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Printf("Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// Create an instance of the app structure
	app, err := NewApp(configSvc, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	// Create application with options
	err = wails.Run(&options.App{
		Title:  cfg.Overlay.Title,
		Width:  cfg.Overlay.Width,
		Height: cfg.Overlay.Height,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Frameless:        true,
		BackgroundColour: &options.RGBA{R: 0, G: 0, B: 0, A: 0}, // Transparent
		Windows: &wailswindows.Options{
			WebviewIsTransparent: true,
		},
		Logger:        logging.NewWails(logger),
		LogLevel:      logging.WailsLevel(cfg.Log.Level),
		OnStartup:     app.OnStartup,
		OnDomReady:    app.OnDomReady,
		OnBeforeClose: app.OnBeforeClose,
		OnShutdown:    app.OnShutdown,
		Bind:          []interface{}{app},
	})

	if err != nil {
		logger.Error("application exited", "error", err)
		os.Exit(1)
	}
}
