package systems

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyInitialized = errors.New("system already initialized")
	ErrNotInitialized     = errors.New("system not initialized")
	ErrAlreadyRunning     = errors.New("system already running")
	ErrNotRunning         = errors.New("system not running")
	ErrAlreadyPaused      = errors.New("system already paused")
	ErrNotPaused          = errors.New("system not paused")
	ErrNoBus              = errors.New("system requires an event bus")
	ErrInactive           = errors.New("system not running or paused")
)

// HookPanicError is a panic recovered from a lifecycle hook.
type HookPanicError struct {
	System string
	Hook   string
	Value  any
	Stack  []byte
}

func (e *HookPanicError) Error() string {
	return fmt.Sprintf("%s: panic in %s: %v", e.System, e.Hook, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *HookPanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
