package tlsvault

import (
	"fmt"

	"github.com/pkg/errors"
)

// SecretRetrievalError indicates that a secret could not be retrieved from the
// secret store for a reason other than throttling.
type SecretRetrievalError struct {
	SecretID string
	Cause    error
}

// NewSecretRetrievalError returns a new error indicating that the secret could
// not be retrieved.
func NewSecretRetrievalError(id string, cause error) *SecretRetrievalError {
	return &SecretRetrievalError{
		SecretID: id,
		Cause:    cause,
	}
}

// Error returns the formatted error message.
func (e *SecretRetrievalError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("retrieving secret '%s'", e.SecretID)
	}
	return fmt.Sprintf("retrieving secret '%s': %s", e.SecretID, e.Cause.Error())
}

// Unwrap returns the underlying cause.
func (e *SecretRetrievalError) Unwrap() error {
	return e.Cause
}

// IsSecretRetrievalError returns whether or not the error is due to a failure
// to retrieve a secret.
func IsSecretRetrievalError(err error) bool {
	var e *SecretRetrievalError
	return errors.As(err, &e)
}

// ThrottledError indicates that a remote service rejected a request because the
// caller should back off before trying again.
type ThrottledError struct {
	Operation string
	Cause     error
}

// NewThrottledError returns a new error indicating that the operation was
// throttled.
func NewThrottledError(op string, cause error) *ThrottledError {
	return &ThrottledError{
		Operation: op,
		Cause:     cause,
	}
}

// Error returns the formatted error message.
func (e *ThrottledError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("operation '%s' was throttled", e.Operation)
	}
	return fmt.Sprintf("operation '%s' was throttled: %s", e.Operation, e.Cause.Error())
}

// Unwrap returns the underlying cause.
func (e *ThrottledError) Unwrap() error {
	return e.Cause
}

// IsThrottledError returns whether or not the error is due to throttling.
func IsThrottledError(err error) bool {
	var e *ThrottledError
	return errors.As(err, &e)
}
