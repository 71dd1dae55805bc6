//go:build !windows

package main

import (
	"context"
	"errors"

	"deskweb/internal/win"
)

// resolveOverlayWindows is unsupported on non-Windows platforms; the overlay
// stays an ordinary window there.
func resolveOverlayWindows(ctx context.Context, title string) (overlay, widget win.HWND, err error) {
	return 0, 0, errors.New("desktop overlay windows are only resolved on Windows")
}
