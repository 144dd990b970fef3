package model

import "errors"

var (
	// ErrNoSuchAutomaton is returned when the aid an operation names is not
	// registered, typically because it was destroyed after the operation was
	// queued.
	ErrNoSuchAutomaton = errors.New("no such automaton")

	// ErrNoSuchAction is returned when an automaton has no action with the
	// requested name, or the reference's parameter does not match the
	// action's parameter mode.
	ErrNoSuchAction = errors.New("no such action")

	// ErrNotLocallyControlled is returned when Execute is asked to run an
	// input directly.
	ErrNotLocallyControlled = errors.New("action is not locally controlled")
)
