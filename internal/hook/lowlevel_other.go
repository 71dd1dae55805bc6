//go:build !windows

package hook

import (
	"errors"
	"log/slog"

	"deskweb/internal/win"
)

// LowLevelHook is a stub on platforms that route input to the desktop
// window without help.
type LowLevelHook struct{}

// Start always fails outside Windows.
func Start(fwd *Forwarder, logger *slog.Logger) (*LowLevelHook, error) {
	return nil, &win.HookInstallError{Hook: "mouse", Err: errors.New("system-wide mouse hooks are not supported on this platform")}
}

// Stop is a no-op.
func (h *LowLevelHook) Stop() {}
