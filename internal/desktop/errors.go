package desktop

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyAttached is returned by Attach while a placement is active.
	ErrAlreadyAttached = errors.New("desktop: overlay already attached")
	// ErrInvalidWindow is returned by Attach for a zero or destroyed handle.
	ErrInvalidWindow = errors.New("desktop: overlay window is not valid")
	// ErrUnsupported is returned where the shell has no desktop layer to join.
	ErrUnsupported = errors.New("desktop: layering is not supported on this platform")
)

// PlacementError reports that the desktop window hierarchy was missing or not
// what the injector expected, typically because the shell is restarting.
// It is retryable: callers wait briefly and call Attach again.
type PlacementError struct {
	Stage string
	Err   error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("desktop placement failed at %s: %v", e.Stage, e.Err)
}

func (e *PlacementError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another Attach attempt may succeed.
func (e *PlacementError) Retryable() bool {
	return !errors.Is(e.Err, ErrUnsupported)
}

// IsRetryable reports whether err is a retryable *PlacementError.
func IsRetryable(err error) bool {
	var pe *PlacementError
	return errors.As(err, &pe) && pe.Retryable()
}
