// Package desktop places the overlay window into the desktop's window stack,
// between the wallpaper and the icon layer, and takes it back out again.
package desktop

import (
	"log/slog"
	"sync"

	"deskweb/internal/win"
)

// Variant identifies how the shell arranges its desktop windows.
type Variant int

const (
	// Classic shells move the icon view into a top-level WorkerW and paint the
	// wallpaper in a second top-level WorkerW right behind it.
	Classic Variant = iota
	// Raised shells keep both the icon view and the wallpaper WorkerW as
	// children of Progman.
	Raised
)

func (v Variant) String() string {
	if v == Raised {
		return "raised"
	}
	return "classic"
}

// Layer describes the desktop windows the overlay is inserted between.
type Layer struct {
	Variant   Variant
	Progman   win.HWND
	IconView  win.HWND // SHELLDLL_DefView
	Wallpaper win.HWND // WorkerW painting the wallpaper
}

// Host is the window the overlay becomes a child of.
func (l Layer) Host() win.HWND {
	if l.Variant == Raised {
		return l.Progman
	}
	return l.Wallpaper
}

// Placement is the overlay state captured before injection, used to put
// the window back.
type Placement struct {
	Parent  win.HWND
	Style   uintptr
	ExStyle uintptr
	Bounds  win.Rect // screen coordinates
}

// Shell is the OS surface the injector drives.
type Shell interface {
	// Alive reports whether w is an existing window.
	Alive(w win.HWND) bool
	// Locate finds the desktop layer, spawning the wallpaper WorkerW if needed.
	Locate() (Layer, error)
	// Capture records w's current parent, styles and bounds.
	Capture(w win.HWND) (Placement, error)
	// Place reparents w into the layer, below the icon view, as a
	// non-activating layered child.
	Place(w win.HWND, layer Layer) error
	// Restore undoes Place using the captured placement.
	Restore(w win.HWND, p Placement, layer Layer) error
	// Holds reports whether w is still placed in layer.
	Holds(w win.HWND, layer Layer) bool
}

// Injector owns one overlay placement at a time. Detach is idempotent: the
// shutdown path can run it from several places.
type Injector struct {
	shell  Shell
	logger *slog.Logger

	mu       sync.Mutex
	overlay  win.HWND
	layer    Layer
	prior    Placement
	attached bool
	restored bool
}

// NewInjector creates an injector over shell.
func NewInjector(shell Shell, logger *slog.Logger) *Injector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Injector{shell: shell, logger: logger}
}

// Attach places overlay into the desktop layer. A *PlacementError means the
// hierarchy was not found and the call can be retried after a short delay.
func (i *Injector) Attach(overlay win.HWND) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.attached && !i.restored {
		return ErrAlreadyAttached
	}
	if !i.shell.Alive(overlay) {
		return ErrInvalidWindow
	}

	layer, err := i.shell.Locate()
	if err != nil {
		return &PlacementError{Stage: "locate", Err: err}
	}

	prior, err := i.shell.Capture(overlay)
	if err != nil {
		return &PlacementError{Stage: "capture", Err: err}
	}

	if err := i.shell.Place(overlay, layer); err != nil {
		if rerr := i.shell.Restore(overlay, prior, layer); rerr != nil {
			i.logger.Warn("rollback after failed placement", "overlay", overlay.String(), "error", rerr)
		}
		return &PlacementError{Stage: "place", Err: err}
	}

	i.overlay = overlay
	i.layer = layer
	i.prior = prior
	i.attached = true
	i.restored = false

	i.logger.Info("overlay attached to desktop",
		"overlay", overlay.String(),
		"variant", layer.Variant.String(),
		"host", layer.Host().String(),
		"icon_view", layer.IconView.String(),
	)
	return nil
}

// Detach restores the overlay's prior parent, styles and bounds. Only the
// first call after an Attach does anything.
func (i *Injector) Detach() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.attached || i.restored {
		return nil
	}
	i.restored = true

	if err := i.shell.Restore(i.overlay, i.prior, i.layer); err != nil {
		i.logger.Warn("restore overlay placement", "overlay", i.overlay.String(), "error", err)
		return err
	}
	i.logger.Info("overlay detached from desktop", "overlay", i.overlay.String())
	return nil
}

// Attached reports whether a placement is active.
func (i *Injector) Attached() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.attached && !i.restored
}

// Verify reports whether the active placement still holds. It returns false
// when the shell has been restarted and the layer windows are gone.
func (i *Injector) Verify() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.attached || i.restored {
		return false
	}
	return i.shell.Holds(i.overlay, i.layer)
}

// Layer returns the layer of the active placement.
func (i *Injector) Layer() (Layer, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.layer, i.attached && !i.restored
}
