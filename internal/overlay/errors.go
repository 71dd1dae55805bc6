package overlay

import "errors"

var (
	// ErrNotAttached is returned when an operation needs an overlay window
	// and none has been bound yet.
	ErrNotAttached = errors.New("overlay: no overlay window bound")
	// ErrShutdown is returned for mode changes after Shutdown.
	ErrShutdown = errors.New("overlay: service is shut down")
)
