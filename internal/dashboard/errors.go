package dashboard

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned before any request when the session's
	// role lacks the capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidInput is wrapped by client-side validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// MutationError is a rejected user action, carrying the message to show.
type MutationError struct {
	Action  string
	Message string
	Err     error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
