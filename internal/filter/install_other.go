//go:build !windows

package filter

import (
	"errors"
	"log/slog"

	"deskweb/internal/win"
)

// ProcName is the symbol the filter DLL exports as its hook procedure.
const ProcName = "LeaveFilterProc"

// Registration is an installed leave filter (stub for non-Windows).
type Registration struct{}

// Install always fails outside Windows; there is no message hook to load
// the filter into.
func Install(dllPath string, target win.HWND, logger *slog.Logger) (*Registration, error) {
	return nil, &win.HookInstallError{Hook: "leave filter", Err: errors.New("message hooks are not supported on this platform")}
}

// Remove is a no-op on non-Windows platforms.
func (r *Registration) Remove() {}
