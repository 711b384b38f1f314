package testcase

import (
	"context"
	"testing"

	"github.com/evergreen-ci/tlsvault"
	"github.com/evergreen-ci/tlsvault/internal/testutil"
	"github.com/evergreen-ci/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SecretSeeder stores a secret with the given value in the backing storage of
// the secret store under test and returns its ID.
type SecretSeeder func(t *testing.T, value string) (id string)

// SecretStoreTestCase represents a test case for a tlsvault.SecretStore.
type SecretStoreTestCase func(ctx context.Context, t *testing.T, s tlsvault.SecretStore, seed SecretSeeder)

// SecretStoreTests returns common test cases that a tlsvault.SecretStore should
// support.
func SecretStoreTests() map[string]SecretStoreTestCase {
	return map[string]SecretStoreTestCase{
		"GetSecretSucceedsWithExistingSecret": func(ctx context.Context, t *testing.T, s tlsvault.SecretStore, seed SecretSeeder) {
			val := utility.RandomString()
			id := seed(t, val)

			out, err := s.GetSecret(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, val, out)
		},
		"GetSecretPreservesPEMText": func(ctx context.Context, t *testing.T, s tlsvault.SecretStore, seed SecretSeeder) {
			val := testutil.CertificateChainPEM(t, 1, 2)
			id := seed(t, val)

			out, err := s.GetSecret(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, val, out)
		},
		"GetSecretReturnsSameValueRepeatedly": func(ctx context.Context, t *testing.T, s tlsvault.SecretStore, seed SecretSeeder) {
			val := utility.RandomString()
			id := seed(t, val)

			for i := 0; i < 3; i++ {
				out, err := s.GetSecret(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, val, out)
			}
		},
		"GetSecretFailsWithEmptyID": func(ctx context.Context, t *testing.T, s tlsvault.SecretStore, seed SecretSeeder) {
			out, err := s.GetSecret(ctx, "")
			assert.Error(t, err)
			assert.True(t, tlsvault.IsSecretRetrievalError(err))
			assert.Zero(t, out)
		},
		"GetSecretFailsWithNonexistentSecret": func(ctx context.Context, t *testing.T, s tlsvault.SecretStore, seed SecretSeeder) {
			id := testutil.NewSecretName(t)

			out, err := s.GetSecret(ctx, id)
			assert.Error(t, err)
			assert.True(t, tlsvault.IsSecretRetrievalError(err))
			assert.False(t, tlsvault.IsThrottledError(err))
			assert.Contains(t, err.Error(), id)
			assert.Zero(t, out)
		},
		"GetSecretFailsWithEmptyValue": func(ctx context.Context, t *testing.T, s tlsvault.SecretStore, seed SecretSeeder) {
			id := seed(t, "")

			out, err := s.GetSecret(ctx, id)
			assert.Error(t, err)
			assert.True(t, tlsvault.IsSecretRetrievalError(err))
			assert.Zero(t, out)
		},
	}
}
