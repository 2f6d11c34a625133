package asset

import "fmt"

type ErrorCode string

const (
	ErrInvalidDocument ErrorCode = "INVALID_DOCUMENT"
	ErrServiceCheck    ErrorCode = "SERVICE_CHECK_FAILED"
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrUnavailable     ErrorCode = "UNAVAILABLE"
	ErrInternal        ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}
