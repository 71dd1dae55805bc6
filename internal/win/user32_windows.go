//go:build windows

package win

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Shared user32/kernel32 procs. Declared once here so the overlay packages
// never redeclare them.
var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procIsWindow                 = user32.NewProc("IsWindow")
	procFindWindowW              = user32.NewProc("FindWindowW")
	procFindWindowExW            = user32.NewProc("FindWindowExW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetAncestor              = user32.NewProc("GetAncestor")
	procSetParent                = user32.NewProc("SetParent")
	procWindowFromPoint          = user32.NewProc("WindowFromPoint")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procScreenToClient           = user32.NewProc("ScreenToClient")
	procMapWindowPoints          = user32.NewProc("MapWindowPoints")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetWindowLongPtrW        = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW        = user32.NewProc("SetWindowLongPtrW")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procSendMessageTimeoutW      = user32.NewProc("SendMessageTimeoutW")
	procPostMessageW             = user32.NewProc("PostMessageW")
	procPostThreadMessageW       = user32.NewProc("PostThreadMessageW")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procEnumChildWindows         = user32.NewProc("EnumChildWindows")
	procRedrawWindow             = user32.NewProc("RedrawWindow")
	procSetLayeredWindowAttrs    = user32.NewProc("SetLayeredWindowAttributes")
	procSetPropW                 = user32.NewProc("SetPropW")
	procGetPropW                 = user32.NewProc("GetPropW")
	procRemovePropW              = user32.NewProc("RemovePropW")
	procSetWindowsHookExW        = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx      = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx           = user32.NewProc("CallNextHookEx")
	procGetMessageW              = user32.NewProc("GetMessageW")

	procGetModuleHandleW = kernel32.NewProc("GetModuleHandleW")
)

// Window-long indices, styles and SetWindowPos flags.
const (
	GWL_STYLE   int32 = -16
	GWL_EXSTYLE int32 = -20

	WS_CHILD uintptr = 0x40000000
	WS_POPUP uintptr = 0x80000000

	WS_EX_LAYERED    uintptr = 0x00080000
	WS_EX_NOACTIVATE uintptr = 0x08000000
	WS_EX_TOOLWINDOW uintptr = 0x00000080
	WS_EX_APPWINDOW  uintptr = 0x00040000

	SWP_NOSIZE       uint32 = 0x0001
	SWP_NOMOVE       uint32 = 0x0002
	SWP_NOZORDER     uint32 = 0x0004
	SWP_NOACTIVATE   uint32 = 0x0010
	SWP_FRAMECHANGED uint32 = 0x0020
	SWP_SHOWWINDOW   uint32 = 0x0040

	GA_PARENT uint32 = 1
	GA_ROOT   uint32 = 2

	SMTO_NORMAL uint32 = 0x0000

	LWA_ALPHA uint32 = 0x00000002

	RDW_INVALIDATE  uint32 = 0x0001
	RDW_ERASE       uint32 = 0x0004
	RDW_ALLCHILDREN uint32 = 0x0080
	RDW_UPDATENOW   uint32 = 0x0100

	WH_GETMESSAGE int32 = 3
	WH_MOUSE_LL   int32 = 14
)

// IsWindow reports whether h identifies an existing window.
func IsWindow(h HWND) bool {
	if h == 0 {
		return false
	}
	ret, _, _ := procIsWindow.Call(uintptr(h))
	return ret != 0
}

// FindWindow looks up a top-level window by class and/or title. Empty
// strings match any value.
func FindWindow(class, title string) HWND {
	cls, ttl := optionalString(class), optionalString(title)
	ret, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(cls)), uintptr(unsafe.Pointer(ttl)))
	return HWND(ret)
}

// FindWindowEx looks up the first child of parent after the given sibling
// with the given class. A zero parent searches top-level windows.
func FindWindowEx(parent, after HWND, class string) HWND {
	cls := optionalString(class)
	ret, _, _ := procFindWindowExW.Call(uintptr(parent), uintptr(after), uintptr(unsafe.Pointer(cls)), 0)
	return HWND(ret)
}

// ClassName returns the registered class name of h, or "" if h is gone.
func ClassName(h HWND) string {
	var buf [256]uint16
	n, _, _ := procGetClassNameW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// Ancestor wraps GetAncestor.
func Ancestor(h HWND, flags uint32) HWND {
	ret, _, _ := procGetAncestor.Call(uintptr(h), uintptr(flags))
	return HWND(ret)
}

// SetParent reparents child and returns the previous parent.
func SetParent(child, parent HWND) (HWND, error) {
	ret, _, err := procSetParent.Call(uintptr(child), uintptr(parent))
	if ret == 0 && err != windows.ERROR_SUCCESS {
		return 0, fmt.Errorf("SetParent(%s, %s): %w", child, parent, err)
	}
	return HWND(ret), nil
}

// WindowFromPoint returns the topmost visible window at p.
func WindowFromPoint(p Point) HWND {
	var ret uintptr
	if unsafe.Sizeof(uintptr(0)) == 8 {
		// POINT is passed by value in a single register on 64-bit targets.
		ret, _, _ = procWindowFromPoint.Call(uintptr(uint32(p.X)) | uintptr(uint32(p.Y))<<32)
	} else {
		ret, _, _ = procWindowFromPoint.Call(uintptr(p.X), uintptr(p.Y))
	}
	return HWND(ret)
}

// WindowRect returns the screen rectangle of h.
func WindowRect(h HWND) (Rect, error) {
	var r Rect
	ret, _, err := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return Rect{}, fmt.Errorf("GetWindowRect(%s): %w", h, err)
	}
	return r, nil
}

// ScreenToClient converts a screen point into h's client coordinates.
func ScreenToClient(h HWND, p Point) (Point, bool) {
	ret, _, _ := procScreenToClient.Call(uintptr(h), uintptr(unsafe.Pointer(&p)))
	return p, ret != 0
}

// ScreenRectToClient converts a screen rectangle into parent's client
// coordinates, as needed for SetWindowPos on child windows. A zero parent
// means the screen and leaves r unchanged.
func ScreenRectToClient(parent HWND, r Rect) Rect {
	if parent != 0 {
		procMapWindowPoints.Call(0, uintptr(parent), uintptr(unsafe.Pointer(&r)), 2)
	}
	return r
}

// SetLayeredAlpha makes a layered window visible with the given opacity.
// A layered window stays invisible until its attributes are set once.
func SetLayeredAlpha(h HWND, alpha uint8) {
	procSetLayeredWindowAttrs.Call(uintptr(h), 0, uintptr(alpha), uintptr(LWA_ALPHA))
}

// ThreadProcessID returns the UI thread and owning process of h.
func ThreadProcessID(h HWND) (tid, pid uint32) {
	ret, _, _ := procGetWindowThreadProcessId.Call(uintptr(h), uintptr(unsafe.Pointer(&pid)))
	return uint32(ret), pid
}

// WindowLong wraps GetWindowLongPtrW.
func WindowLong(h HWND, index int32) uintptr {
	ret, _, _ := procGetWindowLongPtrW.Call(uintptr(h), uintptr(index))
	return ret
}

// SetWindowLong wraps SetWindowLongPtrW and returns the previous value.
func SetWindowLong(h HWND, index int32, value uintptr) uintptr {
	ret, _, _ := procSetWindowLongPtrW.Call(uintptr(h), uintptr(index), value)
	return ret
}

// SetWindowPos wraps SetWindowPos.
func SetWindowPos(h, insertAfter HWND, x, y, cx, cy int32, flags uint32) error {
	ret, _, err := procSetWindowPos.Call(
		uintptr(h),
		uintptr(insertAfter),
		uintptr(x),
		uintptr(y),
		uintptr(cx),
		uintptr(cy),
		uintptr(flags),
	)
	if ret == 0 {
		return fmt.Errorf("SetWindowPos(%s): %w", h, err)
	}
	return nil
}

// SendMessageTimeout sends msg and waits at most timeoutMs for the reply.
func SendMessageTimeout(h HWND, msg uint32, wParam, lParam uintptr, timeoutMs uint32) (uintptr, bool) {
	var result uintptr
	ret, _, _ := procSendMessageTimeoutW.Call(
		uintptr(h),
		uintptr(msg),
		wParam,
		lParam,
		uintptr(SMTO_NORMAL),
		uintptr(timeoutMs),
		uintptr(unsafe.Pointer(&result)),
	)
	return result, ret != 0
}

// PostMessage queues msg to h without waiting.
func PostMessage(h HWND, msg uint32, wParam, lParam uintptr) error {
	ret, _, err := procPostMessageW.Call(uintptr(h), uintptr(msg), wParam, lParam)
	if ret == 0 {
		return fmt.Errorf("PostMessage(%s, %#x): %w", h, msg, err)
	}
	return nil
}

// PostThreadMessage queues msg to a thread's message queue.
func PostThreadMessage(tid uint32, msg uint32, wParam, lParam uintptr) error {
	ret, _, err := procPostThreadMessageW.Call(uintptr(tid), uintptr(msg), wParam, lParam)
	if ret == 0 {
		return fmt.Errorf("PostThreadMessage(%d, %#x): %w", tid, msg, err)
	}
	return nil
}

// Redraw invalidates h and its children and repaints them immediately.
func Redraw(h HWND) {
	procRedrawWindow.Call(uintptr(h), 0, 0, uintptr(RDW_INVALIDATE|RDW_ERASE|RDW_ALLCHILDREN|RDW_UPDATENOW))
}

var (
	enumMu      sync.Mutex
	enumVisit   func(HWND) bool
	enumProcPtr = windows.NewCallback(func(h, _ uintptr) uintptr {
		if enumVisit(HWND(h)) {
			return 1
		}
		return 0
	})
)

// EnumWindows calls visit for every top-level window until it returns false.
func EnumWindows(visit func(HWND) bool) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumVisit = visit
	procEnumWindows.Call(enumProcPtr, 0)
	enumVisit = nil
}

// EnumChildWindows calls visit for every descendant of parent until it
// returns false.
func EnumChildWindows(parent HWND, visit func(HWND) bool) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumVisit = visit
	procEnumChildWindows.Call(uintptr(parent), enumProcPtr, 0)
	enumVisit = nil
}

// FindDescendant returns the first descendant of parent with the given
// class, or 0.
func FindDescendant(parent HWND, class string) HWND {
	var found HWND
	EnumChildWindows(parent, func(h HWND) bool {
		if ClassName(h) == class {
			found = h
			return false
		}
		return true
	})
	return found
}

// SetProp attaches a named value to h.
func SetProp(h HWND, name *uint16, value uintptr) bool {
	ret, _, _ := procSetPropW.Call(uintptr(h), uintptr(unsafe.Pointer(name)), value)
	return ret != 0
}

// GetProp reads a named value from h; zero means absent.
func GetProp(h HWND, name *uint16) uintptr {
	ret, _, _ := procGetPropW.Call(uintptr(h), uintptr(unsafe.Pointer(name)))
	return ret
}

// RemoveProp detaches a named value from h and returns what it held.
func RemoveProp(h HWND, name *uint16) uintptr {
	ret, _, _ := procRemovePropW.Call(uintptr(h), uintptr(unsafe.Pointer(name)))
	return ret
}

// SetWindowsHookEx installs a hook procedure. A zero tid installs it for
// every thread on the desktop.
func SetWindowsHookEx(idHook int32, fn uintptr, module windows.Handle, tid uint32) (windows.Handle, error) {
	ret, _, err := procSetWindowsHookExW.Call(uintptr(idHook), fn, uintptr(module), uintptr(tid))
	if ret == 0 {
		return 0, err
	}
	return windows.Handle(ret), nil
}

// UnhookWindowsHookEx removes a hook installed by SetWindowsHookEx.
func UnhookWindowsHookEx(h windows.Handle) error {
	ret, _, err := procUnhookWindowsHookEx.Call(uintptr(h))
	if ret == 0 {
		return err
	}
	return nil
}

// CallNextHookEx forwards to the next hook in the chain.
func CallNextHookEx(code int32, wParam, lParam uintptr) uintptr {
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return ret
}

// GetMessage blocks until a message arrives on the calling thread. It
// returns false on WM_QUIT or error.
func GetMessage(m *Msg) bool {
	ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(m)), 0, 0, 0)
	return int32(ret) > 0
}

// ModuleHandle returns the handle of the executable image.
func ModuleHandle() windows.Handle {
	ret, _, _ := procGetModuleHandleW.Call(0)
	return windows.Handle(ret)
}

func optionalString(s string) *uint16 {
	if s == "" {
		return nil
	}
	p, err := windows.UTF16PtrFromString(s)
	if err != nil {
		return nil
	}
	return p
}
