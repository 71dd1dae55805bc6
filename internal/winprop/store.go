// Package winprop is the signaling channel between the controlling process
// and the leave filter running inside the render process. The two share no
// memory, so every flag and counter lives in the window's own named-property
// table, which the OS keeps per window and serializes on access.
//
// The property names below are a contract between separately shipped
// binaries. Do not rename them.
package winprop

import (
	"errors"
	"fmt"

	"deskweb/internal/win"
)

const (
	// TargetMarker identifies render widgets the leave filter must inspect.
	TargetMarker = "DeskWeb.Target"
	// ExplicitLeave authorizes exactly one pointer-leave to pass the filter.
	ExplicitLeave = "DeskWeb.ExplicitLeave"
	// SuppressCount counts pointer-leaves swallowed by the filter.
	SuppressCount = "DeskWeb.SuppressCount"
)

// Names lists every property the overlay may attach to a window.
var Names = []string{TargetMarker, ExplicitLeave, SuppressCount}

// Store reads and writes named flags and counters on windows.
//
// Implementations must check that the window is still alive before every
// access and report a *PropertyAccessError otherwise.
type Store interface {
	// Mark sets a flag.
	Mark(w win.HWND, name string) error
	// IsSet reports whether a flag is present.
	IsSet(w win.HWND, name string) (bool, error)
	// Clear removes a flag or counter. Clearing an absent name is not an error.
	Clear(w win.HWND, name string) error
	// Take removes a flag and reports whether it was present, in one step.
	Take(w win.HWND, name string) (bool, error)
	// Increment adds one to a counter and returns the new value.
	Increment(w win.HWND, name string) (uint64, error)
	// Value returns a counter's current value; absent counters read as zero.
	Value(w win.HWND, name string) (uint64, error)
}

// PropertyAccessError reports an attribute operation on a window that is
// invalid or already destroyed. Callers treat it as a no-op.
type PropertyAccessError struct {
	Window win.HWND
	Name   string
	Op     string
}

func (e *PropertyAccessError) Error() string {
	return fmt.Sprintf("winprop: %s %q on window %s: window is not valid", e.Op, e.Name, e.Window)
}

// IsAccessError reports whether err is a *PropertyAccessError.
func IsAccessError(err error) bool {
	var pae *PropertyAccessError
	return errors.As(err, &pae)
}

// ClearAll removes every overlay property from w. It is used at teardown so
// nothing is left attached to a window that outlives the overlay.
func ClearAll(s Store, w win.HWND) error {
	var errs []error
	for _, name := range Names {
		if err := s.Clear(w, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
