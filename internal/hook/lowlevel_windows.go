//go:build windows

package hook

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"deskweb/internal/win"
)

// llmhfInjected marks events produced by SendInput and friends.
const llmhfInjected = 0x00000001

// msllHookStruct mirrors MSLLHOOKSTRUCT.
type msllHookStruct struct {
	Pt        win.Point
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// llView returns a typed view of the MSLLHOOKSTRUCT in lParam, or nil.
func llView(lParam uintptr) *msllHookStruct {
	if lParam == 0 {
		return nil
	}
	return (*msllHookStruct)(unsafe.Pointer(lParam))
}

// The OS calls a plain function pointer, so one trampoline dispatches to
// whichever LowLevelHook is installed. Only one may be installed at a time.
var (
	installed atomic.Pointer[LowLevelHook]
	llProcPtr = windows.NewCallback(llProc)
)

func llProc(code, wParam, lParam uintptr) uintptr {
	if int32(code) >= 0 {
		if h := installed.Load(); h != nil {
			h.dispatch(wParam, lParam)
		}
	}
	return win.CallNextHookEx(int32(code), wParam, lParam)
}

// LowLevelHook owns a WH_MOUSE_LL registration and the locked OS thread
// whose message loop keeps it alive.
type LowLevelHook struct {
	fwd    *Forwarder
	logger *slog.Logger

	tid      uint32
	done     chan struct{}
	stopOnce sync.Once
	events   atomic.Uint64
	faults   atomic.Uint64
}

// Start installs the system-wide mouse hook and begins feeding fwd.
// Failure is reported as *win.HookInstallError.
func Start(fwd *Forwarder, logger *slog.Logger) (*LowLevelHook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &LowLevelHook{fwd: fwd, logger: logger, done: make(chan struct{})}
	if !installed.CompareAndSwap(nil, h) {
		return nil, &win.HookInstallError{Hook: "mouse", Err: errors.New("a mouse hook is already installed")}
	}

	ready := make(chan error, 1)
	go h.run(ready)
	if err := <-ready; err != nil {
		installed.CompareAndSwap(h, nil)
		return nil, &win.HookInstallError{Hook: "mouse", Err: err}
	}

	logger.Info("mouse hook installed", "thread", h.tid)
	return h, nil
}

func (h *LowLevelHook) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.done)

	h.tid = windows.GetCurrentThreadId()
	hook, err := win.SetWindowsHookEx(win.WH_MOUSE_LL, llProcPtr, win.ModuleHandle(), 0)
	if err != nil {
		ready <- fmt.Errorf("SetWindowsHookEx(WH_MOUSE_LL): %w", err)
		return
	}
	ready <- nil

	var m win.Msg
	for win.GetMessage(&m) {
	}

	if err := win.UnhookWindowsHookEx(hook); err != nil {
		h.logger.Warn("unhook mouse hook", "error", err)
	}
	installed.CompareAndSwap(h, nil)
}

func (h *LowLevelHook) dispatch(wParam, lParam uintptr) {
	defer func() {
		if r := recover(); r != nil {
			h.faults.Add(1)
		}
	}()

	data := llView(lParam)
	if data == nil {
		return
	}
	kind, ok := KindFromMessage(uint32(wParam))
	if !ok {
		return
	}

	ev := MouseEvent{
		Kind:     kind,
		Point:    data.Pt,
		Time:     data.Time,
		Injected: data.Flags&llmhfInjected != 0,
	}
	switch kind {
	case Wheel, HWheel:
		ev.WheelDelta = int16(data.MouseData >> 16)
	case XDown, XUp:
		ev.XButton = uint16(data.MouseData >> 16)
	}

	h.events.Add(1)
	h.fwd.Handle(ev)
}

// Stop ends the message loop, which unhooks. It waits up to a second for
// the hook thread to finish and is safe to call more than once.
func (h *LowLevelHook) Stop() {
	h.stopOnce.Do(func() {
		if err := win.PostThreadMessage(h.tid, win.WM_QUIT, 0, 0); err != nil {
			h.logger.Warn("stop mouse hook", "error", err)
		}
		select {
		case <-h.done:
		case <-time.After(time.Second):
			h.logger.Warn("mouse hook thread did not exit in time")
		}
		h.logger.Info("mouse hook removed", "events", h.events.Load(), "faults", h.faults.Load())
	})
}
