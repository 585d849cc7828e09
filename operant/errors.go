// Package operant is the core experiment engine: the idle/sleep/session
// state machine, the trial lifecycle, and the consequation logic that
// turns responses into rewards and punishments.
package operant

import (
	"errors"
	"fmt"
)

// ErrEndSession signals that the current session should end cleanly.
// Behaviors return it from any hook to stop the trial loop; the session
// is still closed out and its summary stored.
var ErrEndSession = errors.New("end of session")

// ErrEndExperiment signals that the whole experiment should stop. The
// controller closes the current session and returns.
var ErrEndExperiment = errors.New("end of experiment")

// Error codes used by ControllerError.
const (
	CodeConfig   = "config"
	CodePanel    = "panel"
	CodeStore    = "store"
	CodeBehavior = "behavior"
)

// ControllerError wraps a failure inside the controller loop with enough
// context to tell which subsystem failed.
type ControllerError struct {
	Message string
	Code    string
	Err     error
}

func (e *ControllerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ControllerError) Unwrap() error {
	return e.Err
}

func controllerErr(code, message string, err error) *ControllerError {
	return &ControllerError{Message: message, Code: code, Err: err}
}
