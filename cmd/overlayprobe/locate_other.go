//go:build !windows

package main

import (
	"errors"

	"deskweb/internal/win"
	"deskweb/internal/winprop"
)

func locateWidget(title string) (win.HWND, error) {
	return 0, errors.New("window lookup is only available on Windows")
}

// newStore has no window property table to read outside Windows; readings
// are always empty.
func newStore() winprop.Store { return winprop.NewMemory() }
