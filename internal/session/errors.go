package session

import (
	"errors"
	"fmt"
)

// Error is a session-layer error.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes.
const (
	ErrCodeContextNotFound = "CONTEXT_NOT_FOUND"
	ErrCodeBusy            = "SUBMISSION_IN_FLIGHT"
	ErrCodeIdle            = "NO_SUBMISSION"
	ErrCodeInvalidParams   = "INVALID_PARAMS"
	ErrCodeBackend         = "BACKEND_ERROR"
)

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// HasCode reports whether err is a session Error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
