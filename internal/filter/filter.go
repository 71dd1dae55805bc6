// Package filter decides, per queued message, whether a pointer-leave aimed
// at the overlay's render widget is genuine or was produced by the engine's
// own hover tracking reacting to synthesized input.
//
// The filter runs inside the render process on its UI thread, so Process
// never blocks and never talks to the controlling process; all coordination
// goes through the winprop properties on the target window.
package filter

import (
	"deskweb/internal/win"
	"deskweb/internal/winprop"
)

// Outcome is what the filter did with one message.
type Outcome int

const (
	// Untouched means the message was not a pointer-leave for a marked window.
	Untouched Outcome = iota
	// Passed means a pointer-leave was authorized and left as is.
	Passed
	// Suppressed means a pointer-leave was rewritten to WM_NULL.
	Suppressed
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Suppressed:
		return "suppressed"
	default:
		return "untouched"
	}
}

// Filter is the leave filter. It keeps no state of its own; the suppress
// counter lives on the target window where the controller can read it.
type Filter struct {
	store winprop.Store
}

// New creates a filter over the given store.
func New(store winprop.Store) *Filter {
	return &Filter{store: store}
}

// Process inspects m and rewrites it in place when it is a spurious
// pointer-leave. A nil message is left alone.
func (f *Filter) Process(m *win.Msg) Outcome {
	if m == nil || m.Message != win.WM_MOUSELEAVE {
		return Untouched
	}

	marked, err := f.store.IsSet(m.Hwnd, winprop.TargetMarker)
	if err != nil || !marked {
		return Untouched
	}

	explicit, err := f.store.Take(m.Hwnd, winprop.ExplicitLeave)
	if err != nil {
		return Untouched
	}
	if explicit {
		return Passed
	}

	m.Message = win.WM_NULL
	// The counter is diagnostic only; a failed write must not undo the rewrite.
	_, _ = f.store.Increment(m.Hwnd, winprop.SuppressCount)
	return Suppressed
}

