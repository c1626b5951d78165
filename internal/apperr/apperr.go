package apperr

import "errors"

// Sentinel errors for the failure taxonomy exposed by the core.
// Missing and not-owned entities are both reported as ErrNotFound so that
// callers cannot probe for the existence of other users' data.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("storage unavailable")
)

// Error pairs a taxonomy sentinel with a message safe to show the caller.
type Error struct {
	kind    error
	message string
}

// E attaches a user-facing message to a taxonomy sentinel.
func E(kind error, message string) error {
	return &Error{kind: kind, message: message}
}

func (e *Error) Error() string { return e.message }

func (e *Error) Unwrap() error { return e.kind }

// UserMessage extracts the user-facing message when err carries one.
func UserMessage(err error) (string, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.message, true
	}
	return "", false
}
