//go:build !windows

package desktop

import "deskweb/internal/win"

// unsupportedShell is used where the OS routes input to desktop windows on
// its own; the overlay stays an ordinary window there.
type unsupportedShell struct{}

// NewShell returns the shell for the running platform.
func NewShell() Shell {
	return unsupportedShell{}
}

func (unsupportedShell) Alive(w win.HWND) bool { return w != 0 }

func (unsupportedShell) Locate() (Layer, error) { return Layer{}, ErrUnsupported }

func (unsupportedShell) Capture(win.HWND) (Placement, error) { return Placement{}, ErrUnsupported }

func (unsupportedShell) Place(win.HWND, Layer) error { return ErrUnsupported }

func (unsupportedShell) Restore(win.HWND, Placement, Layer) error { return nil }

func (unsupportedShell) Holds(win.HWND, Layer) bool { return false }
