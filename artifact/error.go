package artifact

import (
	"fmt"

	"github.com/pkg/errors"
)

// CacheUnavailableError indicates that the cache could not fetch TLS artifacts
// and has no previously fetched artifacts to fall back to.
type CacheUnavailableError struct {
	Cause error
}

// NewCacheUnavailableError returns a new error indicating that no TLS
// artifacts are available.
func NewCacheUnavailableError(cause error) *CacheUnavailableError {
	return &CacheUnavailableError{Cause: cause}
}

// Error returns the formatted error message.
func (e *CacheUnavailableError) Error() string {
	if e.Cause == nil {
		return "TLS artifacts are unavailable"
	}
	return fmt.Sprintf("TLS artifacts are unavailable: %s", e.Cause.Error())
}

// Unwrap returns the reason the artifacts could not be fetched.
func (e *CacheUnavailableError) Unwrap() error {
	return e.Cause
}

// IsCacheUnavailableError returns whether or not the error is due to the cache
// having no TLS artifacts to serve.
func IsCacheUnavailableError(err error) bool {
	var e *CacheUnavailableError
	return errors.As(err, &e)
}
