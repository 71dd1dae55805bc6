// Package win holds the small set of Win32 value types and constants shared
// by the overlay components. The types are plain values so the packages that
// use them stay testable on every platform; only the *_windows.go files touch
// the OS.
package win

import "fmt"

// HWND is an opaque window handle. Zero is never a valid window.
type HWND uintptr

// String formats the handle the way Spy++ shows it.
func (h HWND) String() string {
	return fmt.Sprintf("0x%08X", uintptr(h))
}

// Point is a position in virtual-desktop (screen) or client coordinates.
// Screen coordinates can be negative on multi-monitor setups.
type Point struct {
	X int32
	Y int32
}

// Rect is a rectangle with exclusive Right and Bottom edges, matching RECT.
type Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right && p.Y >= r.Top && p.Y < r.Bottom
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// Width returns the horizontal extent of r.
func (r Rect) Width() int32 { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// Msg mirrors the native MSG record so hook procedures can read it through
// a typed view instead of raw offsets.
type Msg struct {
	Hwnd    HWND
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      Point
	private uint32
}

// Window messages used across the overlay components.
const (
	WM_NULL         uint32 = 0x0000
	WM_QUIT         uint32 = 0x0012
	WM_MOUSEMOVE    uint32 = 0x0200
	WM_LBUTTONDOWN  uint32 = 0x0201
	WM_LBUTTONUP    uint32 = 0x0202
	WM_RBUTTONDOWN  uint32 = 0x0204
	WM_RBUTTONUP    uint32 = 0x0205
	WM_MBUTTONDOWN  uint32 = 0x0207
	WM_MBUTTONUP    uint32 = 0x0208
	WM_MOUSEWHEEL   uint32 = 0x020A
	WM_XBUTTONDOWN  uint32 = 0x020B
	WM_XBUTTONUP    uint32 = 0x020C
	WM_MOUSEHWHEEL  uint32 = 0x020E
	WM_NCMOUSELEAVE uint32 = 0x02A2
	WM_MOUSELEAVE   uint32 = 0x02A3
)

// Mouse key-state bits carried in wParam of client mouse messages.
const (
	MK_LBUTTON  uintptr = 0x0001
	MK_RBUTTON  uintptr = 0x0002
	MK_MBUTTON  uintptr = 0x0010
	MK_XBUTTON1 uintptr = 0x0020
	MK_XBUTTON2 uintptr = 0x0040
)

// MakeLParam packs two 16-bit coordinates the way MAKELPARAM does.
// Negative values keep their two's-complement low word.
func MakeLParam(x, y int32) uintptr {
	return uintptr(uint32(uint16(x)) | uint32(uint16(y))<<16)
}
