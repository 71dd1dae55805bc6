package win

import "fmt"

// HookInstallError reports that the OS refused or could not install a hook.
// Callers fall back to interactive input handling.
type HookInstallError struct {
	Hook string
	Err  error
}

func (e *HookInstallError) Error() string {
	return fmt.Sprintf("install %s hook: %v", e.Hook, e.Err)
}

func (e *HookInstallError) Unwrap() error {
	return e.Err
}
