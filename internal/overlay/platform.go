package overlay

import (
	"deskweb/internal/desktop"
	"deskweb/internal/hook"
	"deskweb/internal/win"
	"deskweb/internal/winprop"
)

// Platform is the OS surface the mode controller composes. NewPlatform
// returns the native one; tests supply fakes.
type Platform interface {
	Props() winprop.Store
	Shell() desktop.Shell
	Target(widget win.HWND) hook.Target
	Classifier() hook.Classifier
	Sender() hook.Sender
	// InstallFilter hooks the leave filter into the widget's UI thread.
	InstallFilter(widget win.HWND) (release func(), err error)
	// StartMouseHook begins feeding fwd with system-wide mouse input.
	StartMouseHook(fwd *hook.Forwarder) (stop func(), err error)
}
