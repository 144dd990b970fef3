package engine

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by Run when the scheduler is already running.
var ErrAlreadyRunning = errors.New("scheduler is already running")

// RunErrorCode categorizes run failures.
type RunErrorCode string

const (
	// ErrCodeCanceled indicates the run's context was done before the
	// network reached a fixed point.
	ErrCodeCanceled RunErrorCode = "CANCELED"

	// ErrCodeWakeup indicates the wakeup pipe could not be created.
	ErrCodeWakeup RunErrorCode = "WAKEUP_FAILED"

	// ErrCodePoll indicates waiting for timers or descriptors failed.
	ErrCodePoll RunErrorCode = "POLL_FAILED"
)

// RunError is an error that ended a run early.
type RunError struct {
	Code    RunErrorCode
	Message string
	RunID   string
	Err     error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RunID != "" {
		msg += fmt.Sprintf(" (run=%s)", e.RunID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// IsCanceled reports whether err ended a run because its context was done.
func IsCanceled(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCanceled
	}
	return false
}

// IsPollError reports whether err ended a run because polling failed.
func IsPollError(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodePoll || re.Code == ErrCodeWakeup
	}
	return false
}

func newCanceledError(runID string, err error) *RunError {
	return &RunError{Code: ErrCodeCanceled, Message: "run canceled before reaching a fixed point", RunID: runID, Err: err}
}

func newPollError(runID string, err error) *RunError {
	return &RunError{Code: ErrCodePoll, Message: "waiting for timers and descriptors failed", RunID: runID, Err: err}
}
