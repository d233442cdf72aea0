// Package remote defines the collaborator capabilities the sync core depends
// on but does not implement: the versioned-entity backend, authentication,
// connectivity, and data-usage policy. It also defines the typed error
// taxonomy those capabilities surface.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode classifies a remote failure.
type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeTimeout          ErrorCode = "NETWORK_TIMEOUT"
	CodeInternal         ErrorCode = "INTERNAL"
)

// Error is a remote failure with a classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified remote error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an underlying error with a classification code.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the classification of err. Context deadline and
// cancellation errors classify as timeouts; anything else unclassified is
// treated as internal (transient).
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeTimeout
	}
	return CodeInternal
}

// IsRetryable reports whether err is transient: eligible for queue backoff
// rather than terminal failure or conflict routing.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeTimeout, CodeInternal:
		return true
	default:
		return false
	}
}
