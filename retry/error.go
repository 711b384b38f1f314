package retry

import (
	"fmt"

	"github.com/pkg/errors"
)

// ExhaustedError indicates that an operation was still not ready after all the
// allowed attempts were made.
type ExhaustedError struct {
	// Operation describes the operation that was retried.
	Operation string
	// Attempts is the number of attempts made.
	Attempts int
	// Cause is the reason given by the final attempt, if any.
	Cause error
}

// NewExhaustedError returns a new error indicating that the operation
// exhausted its attempts.
func NewExhaustedError(op string, attempts int, cause error) *ExhaustedError {
	return &ExhaustedError{
		Operation: op,
		Attempts:  attempts,
		Cause:     cause,
	}
}

// Error returns the formatted error message.
func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("operation '%s' not ready after %d attempts", e.Operation, e.Attempts)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", msg, e.Cause.Error())
	}
	return msg
}

// Unwrap returns the cause given by the final attempt.
func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}

// IsExhaustedError returns whether or not the error is due to retry attempts
// being exhausted.
func IsExhaustedError(err error) bool {
	var e *ExhaustedError
	return errors.As(err, &e)
}
