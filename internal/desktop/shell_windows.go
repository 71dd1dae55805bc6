//go:build windows

package desktop

import (
	"errors"
	"fmt"

	"deskweb/internal/win"
)

// spawnWorkerW asks Progman to split the wallpaper into its own WorkerW.
// Undocumented, but stable since Windows 8.
const spawnWorkerW uint32 = 0x052C

const (
	classProgman  = "Progman"
	classWorkerW  = "WorkerW"
	classIconView = "SHELLDLL_DefView"
)

// NativeShell drives the Explorer desktop through user32.
type NativeShell struct{}

// NewShell returns the shell for the running platform.
func NewShell() Shell {
	return NativeShell{}
}

func (NativeShell) Alive(w win.HWND) bool {
	return win.IsWindow(w)
}

func (NativeShell) Locate() (Layer, error) {
	progman := win.FindWindow(classProgman, "")
	if progman == 0 {
		return Layer{}, errors.New("Progman window not found")
	}

	if _, ok := win.SendMessageTimeout(progman, spawnWorkerW, 0, 0, 1000); !ok {
		return Layer{}, errors.New("Progman did not answer the WorkerW request")
	}

	// Raised desktop: icon view and wallpaper are both Progman children.
	if view := win.FindWindowEx(progman, 0, classIconView); view != 0 {
		if wallpaper := win.FindWindowEx(progman, 0, classWorkerW); wallpaper != 0 {
			return Layer{Variant: Raised, Progman: progman, IconView: view, Wallpaper: wallpaper}, nil
		}
	}

	// Classic desktop: find the top-level window hosting the icon view; the
	// wallpaper WorkerW is the next top-level WorkerW after it.
	var host, view win.HWND
	win.EnumWindows(func(h win.HWND) bool {
		if v := win.FindWindowEx(h, 0, classIconView); v != 0 {
			host, view = h, v
			return false
		}
		return true
	})
	if view == 0 {
		return Layer{}, errors.New("icon view (SHELLDLL_DefView) not found")
	}

	wallpaper := win.FindWindowEx(0, host, classWorkerW)
	if wallpaper == 0 {
		return Layer{}, fmt.Errorf("wallpaper WorkerW not found after icon host %s", host)
	}
	return Layer{Variant: Classic, Progman: progman, IconView: view, Wallpaper: wallpaper}, nil
}

func (NativeShell) Capture(w win.HWND) (Placement, error) {
	bounds, err := win.WindowRect(w)
	if err != nil {
		return Placement{}, err
	}
	style := win.WindowLong(w, win.GWL_STYLE)
	p := Placement{
		Style:   style,
		ExStyle: win.WindowLong(w, win.GWL_EXSTYLE),
		Bounds:  bounds,
	}
	if style&win.WS_CHILD != 0 {
		p.Parent = win.Ancestor(w, win.GA_PARENT)
	}
	return p, nil
}

func (NativeShell) Place(w win.HWND, layer Layer) error {
	bounds, err := win.WindowRect(w)
	if err != nil {
		return err
	}

	style := win.WindowLong(w, win.GWL_STYLE)
	win.SetWindowLong(w, win.GWL_STYLE, style&^win.WS_POPUP|win.WS_CHILD)

	ex := win.WindowLong(w, win.GWL_EXSTYLE)
	ex = ex&^win.WS_EX_APPWINDOW | win.WS_EX_NOACTIVATE | win.WS_EX_LAYERED | win.WS_EX_TOOLWINDOW
	win.SetWindowLong(w, win.GWL_EXSTYLE, ex)
	win.SetLayeredAlpha(w, 255)

	host := layer.Host()
	if _, err := win.SetParent(w, host); err != nil {
		return err
	}

	r := win.ScreenRectToClient(host, bounds)
	flags := win.SWP_NOACTIVATE | win.SWP_FRAMECHANGED | win.SWP_SHOWWINDOW
	if layer.Variant == Raised {
		// Directly below the icon view, then push the wallpaper below us.
		if err := win.SetWindowPos(w, layer.IconView, r.Left, r.Top, r.Width(), r.Height(), flags); err != nil {
			return err
		}
		return win.SetWindowPos(layer.Wallpaper, w, 0, 0, 0, 0, win.SWP_NOMOVE|win.SWP_NOSIZE|win.SWP_NOACTIVATE)
	}
	return win.SetWindowPos(w, 0, r.Left, r.Top, r.Width(), r.Height(), flags|win.SWP_NOZORDER)
}

func (NativeShell) Restore(w win.HWND, p Placement, layer Layer) error {
	if !win.IsWindow(w) {
		return nil
	}

	win.SetWindowLong(w, win.GWL_STYLE, p.Style)
	win.SetWindowLong(w, win.GWL_EXSTYLE, p.ExStyle)
	if _, err := win.SetParent(w, p.Parent); err != nil {
		return err
	}

	r := win.ScreenRectToClient(p.Parent, p.Bounds)
	err := win.SetWindowPos(w, 0, r.Left, r.Top, r.Width(), r.Height(),
		win.SWP_NOZORDER|win.SWP_NOACTIVATE|win.SWP_FRAMECHANGED)

	// Repaint the wallpaper so the area the overlay covered does not stay stale.
	if win.IsWindow(layer.Wallpaper) {
		win.Redraw(layer.Wallpaper)
	}
	return err
}

func (NativeShell) Holds(w win.HWND, layer Layer) bool {
	if !win.IsWindow(w) || !win.IsWindow(layer.Host()) || !win.IsWindow(layer.IconView) {
		return false
	}
	return win.Ancestor(w, win.GA_PARENT) == layer.Host()
}
