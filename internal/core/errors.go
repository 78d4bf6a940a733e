package core

import (
	"errors"
	"fmt"
)

// Domain errors for engine operations.
var (
	// ErrUnknownKind indicates a particle kind outside the closed set.
	ErrUnknownKind = errors.New("core: unknown particle kind")

	// ErrUnknownObservable indicates an observable name not declared by the definition.
	ErrUnknownObservable = errors.New("core: unknown observable")

	// ErrUnknownKnob indicates a knob name not declared by the definition.
	ErrUnknownKnob = errors.New("core: unknown knob")

	// ErrOutOfRange indicates a knob or containment value outside its declared range.
	ErrOutOfRange = errors.New("core: value out of declared range")

	// ErrInvalidDefinition indicates a definition that fails validation.
	ErrInvalidDefinition = errors.New("core: invalid definition")

	// ErrSessionStopped indicates an operation on a session whose run loop has exited.
	ErrSessionStopped = errors.New("core: session stopped")

	// ErrBadPhaseTable indicates a transition table that violates hysteresis or
	// references an undeclared phase.
	ErrBadPhaseTable = errors.New("core: invalid phase table")
)

// TickError wraps an error raised by a driver or observer with tick context.
// Faults inside the engine itself never abort a tick; they clamp or degrade.
type TickError struct {
	Tick    uint64
	SimTime float64
	Stage   string
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d (t=%.3fs, %s): %v", e.Tick, e.SimTime, e.Stage, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
