package system

import (
	"errors"
	"fmt"
	"strings"
)

// Phase names one orchestrator pass.
type Phase string

const (
	PhaseInitialize  Phase = "initialize"
	PhaseStart       Phase = "start"
	PhaseUpdate      Phase = "update"
	PhaseFixedUpdate Phase = "fixed_update"
	PhasePause       Phase = "pause"
	PhaseResume      Phase = "resume"
	PhaseShutdown    Phase = "shutdown"
)

var (
	ErrNilSystem          = errors.New("system is nil")
	ErrDuplicateSystem    = errors.New("system of this type already registered")
	ErrReentrant          = errors.New("registry changed during a lifecycle pass")
	ErrAlreadyInitialized = errors.New("systems already initialized")
	ErrNotInitialized     = errors.New("systems not initialized")
	ErrAlreadyStarted     = errors.New("systems already started")
	ErrNotStarted         = errors.New("systems not started")
)

// Failure is one system's error during one pass.
type Failure struct {
	System string
	Phase  Phase
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.System, f.Phase, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// PassError aggregates the failures of a single pass. errors.Is and errors.As
// see through it to every underlying system error.
type PassError struct {
	Phase    Phase
	Failures []Failure
}

func (e *PassError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s pass: %d system(s) failed: %s", e.Phase, len(e.Failures), strings.Join(parts, "; "))
}

func (e *PassError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Failed reports whether the named system is part of the failure set.
func (e *PassError) Failed(name string) bool {
	for _, f := range e.Failures {
		if f.System == name {
			return true
		}
	}
	return false
}
