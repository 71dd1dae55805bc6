//go:build windows

package filter

import (
	"unsafe"

	"deskweb/internal/win"
)

// pmRemove is set in wParam of a WH_GETMESSAGE call when the message is
// being removed from the queue. Peeks without removal are ignored so they
// cannot consume the explicit-leave flag ahead of the real retrieval.
const pmRemove = 0x0001

// msgView returns a typed view of the MSG a WH_GETMESSAGE hook receives in
// lParam, or nil if the pointer is null.
func msgView(lParam uintptr) *win.Msg {
	if lParam == 0 {
		return nil
	}
	return (*win.Msg)(unsafe.Pointer(lParam))
}

// Hook is the body of the WH_GETMESSAGE procedure. It always forwards to the
// next hook in the chain, and a fault while inspecting the message degrades
// to passing it through untouched.
func (f *Filter) Hook(code int32, wParam, lParam uintptr) uintptr {
	if code >= 0 && wParam&pmRemove != 0 {
		f.safeProcess(lParam)
	}
	return win.CallNextHookEx(code, wParam, lParam)
}

func (f *Filter) safeProcess(lParam uintptr) {
	defer func() {
		_ = recover()
	}()
	f.Process(msgView(lParam))
}
