package mock

import (
	"testing"
	"time"

	"github.com/evergreen-ci/tlsvault"
	"github.com/stretchr/testify/assert"
)

const defaultTestTimeout = 10 * time.Second

func TestInterfaces(t *testing.T) {
	assert.Implements(t, (*tlsvault.SecretStore)(nil), &SecretStore{})
	assert.Implements(t, (*tlsvault.SecretsManagerClient)(nil), &SecretsManagerClient{})
	assert.Implements(t, (*tlsvault.TagClient)(nil), &TagClient{})
	assert.Implements(t, (*tlsvault.InstanceMetadataClient)(nil), &InstanceMetadataClient{})
}
