//go:build windows

package main

import (
	"context"
	"fmt"
	"time"

	"deskweb/internal/win"
)

// renderWidgetClass is the WebView2 child window that receives input.
const renderWidgetClass = "Chrome_RenderWidgetHostHWND"

// resolveOverlayWindows finds the overlay window by its title and the render
// widget inside it. WebView2 creates the widget asynchronously, so the
// lookup is retried for a few seconds.
func resolveOverlayWindows(ctx context.Context, title string) (overlay, widget win.HWND, err error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.Now().Add(5 * time.Second)

	for {
		overlay = win.FindWindow("", title)
		if overlay != 0 {
			widget = win.FindDescendant(overlay, renderWidgetClass)
			if widget != 0 {
				return overlay, widget, nil
			}
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		case <-ticker.C:
		}
	}

	if overlay == 0 {
		return 0, 0, fmt.Errorf("no window titled %q", title)
	}
	return 0, 0, fmt.Errorf("window %s has no %s child", overlay, renderWidgetClass)
}
