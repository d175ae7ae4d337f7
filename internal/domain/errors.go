package domain

import (
	"errors"
	"fmt"
)

// ErrMissingResumeHandle indicates a step-advancing request was attempted before
// the backend issued a resume handle.
var ErrMissingResumeHandle = errors.New("resume handle not available")

// ErrGateFailed indicates the current step's required fields are incomplete.
var ErrGateFailed = errors.New("step validation failed")

// ErrIllegalTransition indicates an event that is not permitted in the current state.
var ErrIllegalTransition = errors.New("illegal transition")

// ErrInvalidSession indicates a session snapshot that cannot be restored.
var ErrInvalidSession = errors.New("invalid session")

// WorkflowStateError is a local precondition violation. It is fatal to the current
// action and is never transmitted to the backend.
type WorkflowStateError struct {
	Step   Step
	Action string
	Err    error
}

func (e *WorkflowStateError) Error() string {
	return fmt.Sprintf("workflow state error at %s (%s): %v", e.Step, e.Action, e.Err)
}

func (e *WorkflowStateError) Unwrap() error { return e.Err }

// UserMessage is the actionable text shown to the user.
func (e *WorkflowStateError) UserMessage() string {
	return "Resume URL not available. Please restart the claim process."
}

// GateError reports which required field kept a step from advancing.
type GateError struct {
	Step   Step
	Field  string
	Reason string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%v: %s: %s %s", ErrGateFailed, e.Step, e.Field, e.Reason)
}

func (e *GateError) Unwrap() error { return ErrGateFailed }

// TransitionError reports an event rejected by the state machine.
type TransitionError struct {
	From   Step
	Branch Branch
	Event  string
}

func (e *TransitionError) Error() string {
	if e.Branch != BranchNone {
		return fmt.Sprintf("%v: %s not allowed at %s/%s", ErrIllegalTransition, e.Event, e.From, e.Branch)
	}
	return fmt.Sprintf("%v: %s not allowed at %s", ErrIllegalTransition, e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }
