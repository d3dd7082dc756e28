package bufctrl

import "fmt"

// ErrorCode classifies control plane errors.
type ErrorCode string

// Error codes.
const (
	ErrCodeUnknownControl    ErrorCode = "UNKNOWN_CONTROL"
	ErrCodeBackendMismatch   ErrorCode = "BACKEND_MISMATCH"
	ErrCodeInvalidLayerCount ErrorCode = "INVALID_LAYER_COUNT"
	ErrCodeInvalidValue      ErrorCode = "INVALID_VALUE"
)

// Error is a control plane error. Only ErrCodeBackendMismatch is returned to
// callers; the other codes are carried by Observer rejections.
type Error struct {
	Code    ErrorCode
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

// Is matches errors by code, so errors.Is(err, ErrBackendMismatch) holds for
// any mismatch error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrBackendMismatch is returned when the backend does not fit the mode and
// context kind of an engine call.
var ErrBackendMismatch = &Error{Code: ErrCodeBackendMismatch, Message: "backend does not match mode"}

func backendMismatch(c *Context, mode Mode, backend any) error {
	return &Error{
		Code:    ErrCodeBackendMismatch,
		Message: fmt.Sprintf("%s context in %s mode cannot use %T", c.Kind, mode, backend),
	}
}
