package tlsvault

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretStore retrieves secret values by their identifier.
//
// Implementations must not retry internally. If the backing service throttles
// the request, the returned error must be a *ThrottledError so that the caller
// can back off and try again. All other retrieval failures should be returned
// as a *SecretRetrievalError.
type SecretStore interface {
	// GetSecret returns the current value of the secret identified by ID.
	GetSecret(ctx context.Context, id string) (string, error)
}

// SecretsManagerClient provides a common interface to interact with a Secrets
// Manager client and its mock implementation for testing.
type SecretsManagerClient interface {
	// GetSecretValue gets the decrypted contents of a secret.
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)
	// Close closes the client and cleans up its resources. Implementations
	// should ensure that this is idempotent.
	Close(ctx context.Context) error
}
