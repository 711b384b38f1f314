package testutil

import (
	"fmt"
	"path"
	"testing"

	"github.com/evergreen-ci/utility"
)

const projectName = "tlsvault"

// NewSecretName creates a new test secret name with a common prefix, the
// test's name, and a random string.
func NewSecretName(t *testing.T) string {
	return path.Join(projectName, runtimeNamespace, t.Name(), utility.RandomString())
}

// NewInstanceARN creates the ARN of a fake EC2 instance in the given account
// and region.
func NewInstanceARN(region, account string) string {
	return fmt.Sprintf("arn:aws:ec2:%s:%s:instance/i-%s", region, account, utility.RandomString())
}
