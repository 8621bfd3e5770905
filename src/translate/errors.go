package translate

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable covers network failures and non-2xx responses.
	// The client retries it once.
	ErrServiceUnavailable = errors.New("translation service unavailable")

	// ErrProtocolMismatch is returned when the backend payload cannot be
	// parsed. It is never retried.
	ErrProtocolMismatch = errors.New("unexpected translation payload")

	// ErrDictionaryUnavailable is returned by the dictionary client. Sessions
	// swallow it.
	ErrDictionaryUnavailable = errors.New("dictionary lookup failed")
)

// Error wraps a backend failure with the operation that produced it.
type Error struct {
	// Op is the operation that failed (e.g. "translate", "lookup").
	Op string

	// Err is the taxonomy sentinel or the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, err error, format string, args ...any) *Error {
	return &Error{Op: op, Err: err, Details: fmt.Sprintf(format, args...)}
}
