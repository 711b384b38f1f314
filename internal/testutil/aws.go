package testutil

import (
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/evergreen-ci/tlsvault/awsutil"
	"github.com/evergreen-ci/utility"
)

// runtimeNamespace is a random string generated during testing runtime that
// acts as a namespace for this particular runtime's tests. It is used to
// namespace fake AWS resources (e.g. secrets) so that tests sharing the global
// mock state do not collide.
var runtimeNamespace = utility.RandomString()

// ValidNonIntegrationAWSOptions returns valid options to create an AWS client
// that doesn't make any actual requests to AWS.
func ValidNonIntegrationAWSOptions() awsutil.ClientOptions {
	return *awsutil.NewClientOptions().
		SetCredentialsProvider(credentials.NewStaticCredentialsProvider("", "", "")).
		SetRegion("us-east-1").
		SetDisableTracing(true)
}
