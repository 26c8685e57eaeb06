package assistant

import (
	"errors"
	"fmt"
)

var (
	// ErrTurnInProgress is returned when a session already has a turn in flight.
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")

	// ErrEmptyMessage is returned for blank chat messages.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrUnknownFunction is returned by the dispatcher for unsupported names.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrSessionNotOwned is returned when a session belongs to another user.
	ErrSessionNotOwned = errors.New("conversation session belongs to another user")
)

// ParseError means the model output could not be turned into an Intent.
// No calendar call is made for a turn that fails with a ParseError.
type ParseError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse intent: %s: %v", e.Reason, e.Err)
	}
	return "parse intent: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }
