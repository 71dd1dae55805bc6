//go:build windows

package main

import (
	"fmt"

	"deskweb/internal/win"
	"deskweb/internal/winprop"
)

func locateWidget(title string) (win.HWND, error) {
	overlay := win.FindWindow("", title)
	if overlay == 0 {
		return 0, fmt.Errorf("no window titled %q", title)
	}
	widget := win.FindDescendant(overlay, "Chrome_RenderWidgetHostHWND")
	if widget == 0 {
		return 0, fmt.Errorf("window %s has no render widget", overlay)
	}
	return widget, nil
}

func newStore() winprop.Store { return winprop.NewNative() }
