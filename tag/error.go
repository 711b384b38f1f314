package tag

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// MissingTagsError indicates that a resource does not have the tags that name
// its TLS secrets.
type MissingTagsError struct {
	ResourceARN string
	Tags        []string
}

// NewMissingTagsError returns a new error indicating that the resource is
// missing the given tags.
func NewMissingTagsError(arn string, tags []string) *MissingTagsError {
	return &MissingTagsError{
		ResourceARN: arn,
		Tags:        tags,
	}
}

// Error returns the formatted error message.
func (e *MissingTagsError) Error() string {
	return fmt.Sprintf("resource '%s' is missing tags: %s", e.ResourceARN, strings.Join(e.Tags, ", "))
}

// IsMissingTagsError returns whether or not the error is due to missing tags.
func IsMissingTagsError(err error) bool {
	var e *MissingTagsError
	return errors.As(err, &e)
}
