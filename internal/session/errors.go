package session

import "errors"

// Validation errors leave the session untouched.
var (
	ErrNoInput        = errors.New("no digits entered")
	ErrInvalidOutcome = errors.New("invalid outcome")
	ErrInvalidPeriod  = errors.New("invalid starting period")
	ErrUnknownPeriod  = errors.New("no entry for period")
	ErrStartPeriod    = errors.New("starting period required")
	ErrClosed         = errors.New("session closed")
)

// UserMessage turns a session error into the text shown to the player.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoInput):
		return "Please enter a number."
	case errors.Is(err, ErrInvalidOutcome):
		return "Invalid number."
	case errors.Is(err, ErrInvalidPeriod), errors.Is(err, ErrStartPeriod):
		return "Please enter a valid starting period number."
	case errors.Is(err, ErrUnknownPeriod):
		return "That period is not in the history."
	case errors.Is(err, ErrClosed):
		return "This session has ended."
	}
	return err.Error()
}
