//go:build windows

package hook

import "deskweb/internal/win"

// NativeWindowInfo answers window queries through user32.
type NativeWindowInfo struct{}

func (NativeWindowInfo) WindowAt(p win.Point) win.HWND { return win.WindowFromPoint(p) }

func (NativeWindowInfo) Root(h win.HWND) win.HWND { return win.Ancestor(h, win.GA_ROOT) }

func (NativeWindowInfo) ClassName(h win.HWND) string { return win.ClassName(h) }

// WindowTarget is a render widget addressed by handle.
type WindowTarget struct {
	HWND win.HWND
}

func (t WindowTarget) Handle() win.HWND { return t.HWND }

func (t WindowTarget) Alive() bool { return win.IsWindow(t.HWND) }

// Bounds fails for a minimized or collapsed widget.
func (t WindowTarget) Bounds() (win.Rect, bool) {
	r, err := win.WindowRect(t.HWND)
	return r, err == nil && !r.Empty()
}

func (t WindowTarget) ToClient(p win.Point) (win.Point, bool) {
	return win.ScreenToClient(t.HWND, p)
}

// PostSender posts synthesized messages to the widget's queue. Posting goes
// to the window directly, so the icon layer on top never intercepts it, and
// it never blocks the low-level hook callback.
type PostSender struct{}

func (PostSender) Send(w win.HWND, ev SynthesizedEvent) error {
	msg, wParam, lParam := ev.Message()
	return win.PostMessage(w, msg, wParam, lParam)
}

func (PostSender) Leave(w win.HWND) error {
	return win.PostMessage(w, win.WM_MOUSELEAVE, 0, 0)
}
