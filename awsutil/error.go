package awsutil

import (
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
)

// ErrorCode returns the AWS API error code of the error, if it has one.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsThrottlingError returns whether or not the error indicates that the AWS API
// is throttling requests and the caller should back off.
func IsThrottlingError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := retry.DefaultThrottleErrorCodes[ErrorCode(err)]
	return ok
}
