package hook

import "deskweb/internal/win"

// Kind is the type of a mouse event.
type Kind int

const (
	Move Kind = iota
	LeftDown
	LeftUp
	RightDown
	RightUp
	MiddleDown
	MiddleUp
	XDown
	XUp
	Wheel
	HWheel
)

var kindNames = [...]string{
	Move:       "move",
	LeftDown:   "left_down",
	LeftUp:     "left_up",
	RightDown:  "right_down",
	RightUp:    "right_up",
	MiddleDown: "middle_down",
	MiddleUp:   "middle_up",
	XDown:      "x_down",
	XUp:        "x_up",
	Wheel:      "wheel",
	HWheel:     "hwheel",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindFromMessage maps the message id a low-level mouse hook receives in
// wParam to a Kind.
func KindFromMessage(msg uint32) (Kind, bool) {
	switch msg {
	case win.WM_MOUSEMOVE:
		return Move, true
	case win.WM_LBUTTONDOWN:
		return LeftDown, true
	case win.WM_LBUTTONUP:
		return LeftUp, true
	case win.WM_RBUTTONDOWN:
		return RightDown, true
	case win.WM_RBUTTONUP:
		return RightUp, true
	case win.WM_MBUTTONDOWN:
		return MiddleDown, true
	case win.WM_MBUTTONUP:
		return MiddleUp, true
	case win.WM_XBUTTONDOWN:
		return XDown, true
	case win.WM_XBUTTONUP:
		return XUp, true
	case win.WM_MOUSEWHEEL:
		return Wheel, true
	case win.WM_MOUSEHWHEEL:
		return HWheel, true
	}
	return 0, false
}

// MouseEvent is a raw system-wide mouse event in screen coordinates.
type MouseEvent struct {
	Kind       Kind
	Point      win.Point
	WheelDelta int16
	XButton    uint16 // 1 or 2 for XDown/XUp
	Time       uint32
	Injected   bool
}

// SynthesizedEvent is a MouseEvent translated for direct delivery into the
// render widget.
type SynthesizedEvent struct {
	Kind       Kind
	Client     win.Point // widget-local
	Screen     win.Point
	Keys       uintptr // MK_* button state after this event
	WheelDelta int16
	XButton    uint16
}

// Message encodes e as the client-area window message the render widget
// would have received from the OS. Wheel messages carry screen coordinates,
// as the OS sends them.
func (e SynthesizedEvent) Message() (msg uint32, wParam, lParam uintptr) {
	lParam = win.MakeLParam(e.Client.X, e.Client.Y)
	wParam = e.Keys

	switch e.Kind {
	case Move:
		msg = win.WM_MOUSEMOVE
	case LeftDown:
		msg = win.WM_LBUTTONDOWN
	case LeftUp:
		msg = win.WM_LBUTTONUP
	case RightDown:
		msg = win.WM_RBUTTONDOWN
	case RightUp:
		msg = win.WM_RBUTTONUP
	case MiddleDown:
		msg = win.WM_MBUTTONDOWN
	case MiddleUp:
		msg = win.WM_MBUTTONUP
	case XDown, XUp:
		msg = win.WM_XBUTTONDOWN
		if e.Kind == XUp {
			msg = win.WM_XBUTTONUP
		}
		wParam |= uintptr(e.XButton) << 16
	case Wheel, HWheel:
		msg = win.WM_MOUSEWHEEL
		if e.Kind == HWheel {
			msg = win.WM_MOUSEHWHEEL
		}
		wParam |= uintptr(uint16(e.WheelDelta)) << 16
		lParam = win.MakeLParam(e.Screen.X, e.Screen.Y)
	}
	return msg, wParam, lParam
}

// buttons tracks pressed mouse buttons as MK_* bits.
type buttons uintptr

func (b *buttons) apply(ev MouseEvent) {
	switch ev.Kind {
	case LeftDown:
		*b |= buttons(win.MK_LBUTTON)
	case LeftUp:
		*b &^= buttons(win.MK_LBUTTON)
	case RightDown:
		*b |= buttons(win.MK_RBUTTON)
	case RightUp:
		*b &^= buttons(win.MK_RBUTTON)
	case MiddleDown:
		*b |= buttons(win.MK_MBUTTON)
	case MiddleUp:
		*b &^= buttons(win.MK_MBUTTON)
	case XDown:
		*b |= xbit(ev.XButton)
	case XUp:
		*b &^= xbit(ev.XButton)
	}
}

func xbit(x uint16) buttons {
	if x == 2 {
		return buttons(win.MK_XBUTTON2)
	}
	return buttons(win.MK_XBUTTON1)
}
