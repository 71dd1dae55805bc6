//go:build windows

package filter

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/windows"

	"deskweb/internal/win"
)

// ProcName is the symbol the filter DLL exports as its WH_GETMESSAGE
// procedure. It is part of the contract with cmd/leavefilter.
const ProcName = "LeaveFilterProc"

// dontResolveDLLReferences maps the DLL without running its initializers.
// The controlling process only needs the module handle and the procedure
// address; the render process loads the DLL for real when the hook fires.
const dontResolveDLLReferences = 0x00000001

// Registration is an installed leave filter. Remove is safe to call more
// than once.
type Registration struct {
	hook   windows.Handle
	module windows.Handle
	target win.HWND
	tid    uint32
	once   sync.Once
	logger *slog.Logger
}

// Install loads the filter DLL at dllPath and hooks it into the UI thread
// that owns target. Failures are reported as *win.HookInstallError.
func Install(dllPath string, target win.HWND, logger *slog.Logger) (*Registration, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !win.IsWindow(target) {
		return nil, &win.HookInstallError{Hook: "leave filter", Err: fmt.Errorf("target window %s is not valid", target)}
	}

	tid, pid := win.ThreadProcessID(target)
	if tid == 0 {
		return nil, &win.HookInstallError{Hook: "leave filter", Err: errors.New("target window has no owning thread")}
	}

	module, err := windows.LoadLibraryEx(dllPath, 0, dontResolveDLLReferences)
	if err != nil {
		return nil, &win.HookInstallError{Hook: "leave filter", Err: fmt.Errorf("load %s: %w", dllPath, err)}
	}

	proc, err := windows.GetProcAddress(module, ProcName)
	if err != nil {
		windows.FreeLibrary(module)
		return nil, &win.HookInstallError{Hook: "leave filter", Err: fmt.Errorf("resolve %s: %w", ProcName, err)}
	}

	hook, err := win.SetWindowsHookEx(win.WH_GETMESSAGE, proc, module, tid)
	if err != nil {
		windows.FreeLibrary(module)
		return nil, &win.HookInstallError{Hook: "leave filter", Err: err}
	}

	logger.Info("leave filter installed", "target", target.String(), "thread", tid, "pid", pid)
	return &Registration{
		hook:   hook,
		module: module,
		target: target,
		tid:    tid,
		logger: logger,
	}, nil
}

// Remove unhooks the filter and releases the local DLL mapping.
func (r *Registration) Remove() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		if err := win.UnhookWindowsHookEx(r.hook); err != nil {
			r.logger.Warn("unhook leave filter", "error", err)
		}
		windows.FreeLibrary(r.module)
		r.logger.Info("leave filter removed", "target", r.target.String(), "thread", r.tid)
	})
}
