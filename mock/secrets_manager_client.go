package mock

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/evergreen-ci/utility"
)

// StoredSecret is a representation of a secret kept in the global secret
// storage cache.
type StoredSecret struct {
	// For the sake of simplicity, the secret ARN is synonymous with the secret
	// name.
	Name         string
	Value        string
	BinaryValue  []byte
	IsDeleted    bool
	Created      time.Time
	LastAccessed time.Time
	Tags         map[string]string
}

var (
	// GlobalSecretCache is a global secret storage cache that provides a
	// simplified in-memory implementation of a secrets storage service. This
	// can be used indirectly with the SecretsManagerClient to access secrets,
	// or modified through StoreSecret.
	GlobalSecretCache map[string]StoredSecret

	globalSecretCacheMu sync.RWMutex
)

func init() {
	ResetGlobalSecretCache()
}

// ResetGlobalSecretCache resets the global fake secret storage cache to an
// initialized but clean state.
func ResetGlobalSecretCache() {
	globalSecretCacheMu.Lock()
	defer globalSecretCacheMu.Unlock()

	GlobalSecretCache = map[string]StoredSecret{}
}

// StoreSecret adds the secret to the global secret cache, replacing any
// existing secret with the same name.
func StoreSecret(s StoredSecret) {
	globalSecretCacheMu.Lock()
	defer globalSecretCacheMu.Unlock()

	if s.Created.IsZero() {
		s.Created = time.Now()
	}
	if s.Tags == nil {
		s.Tags = map[string]string{}
	}
	GlobalSecretCache[s.Name] = s
}

// StoreSecretString is a convenience function to add a secret string with the
// given name to the global secret cache.
func StoreSecretString(name, value string) {
	StoreSecret(StoredSecret{
		Name:  name,
		Value: value,
	})
}

// DeleteSecret marks the secret as deleted in the global secret cache.
func DeleteSecret(name string) {
	globalSecretCacheMu.Lock()
	defer globalSecretCacheMu.Unlock()

	s, ok := GlobalSecretCache[name]
	if !ok {
		return
	}
	s.IsDeleted = true
	GlobalSecretCache[name] = s
}

// lookupSecret returns the secret identified by ID and marks it as accessed.
func lookupSecret(id string) (*StoredSecret, error) {
	globalSecretCacheMu.Lock()
	defer globalSecretCacheMu.Unlock()

	s, ok := GlobalSecretCache[id]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("secret not found")}
	}
	if s.IsDeleted {
		return nil, &types.InvalidRequestException{Message: aws.String("secret is deleted")}
	}

	s.LastAccessed = time.Now()
	GlobalSecretCache[id] = s

	return &s, nil
}

// SecretsManagerClient provides a mock implementation of a
// tlsvault.SecretsManagerClient. This makes it possible to introspect on inputs
// to the client and control the client's output. It provides some default
// implementations where possible. By default, it will issue the API calls to
// the fake GlobalSecretCache.
type SecretsManagerClient struct {
	mu sync.Mutex

	GetSecretValueInput  *secretsmanager.GetSecretValueInput
	GetSecretValueOutput *secretsmanager.GetSecretValueOutput
	GetSecretValueError  error
	// GetSecretValueErrors are returned in order, one per call, before falling
	// back to the default behavior.
	GetSecretValueErrors []error
	GetSecretValueCalls  int

	CloseError error
}

// GetSecretValue saves the input options and returns an existing mock secret's
// value. The mock output can be customized. By default, it will return a cached
// mock secret if it exists in the global secret cache.
func (c *SecretsManagerClient) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GetSecretValueInput = in
	c.GetSecretValueCalls++

	if len(c.GetSecretValueErrors) != 0 {
		err := c.GetSecretValueErrors[0]
		c.GetSecretValueErrors = c.GetSecretValueErrors[1:]
		if err != nil {
			return nil, err
		}
	}

	if c.GetSecretValueOutput != nil || c.GetSecretValueError != nil {
		return c.GetSecretValueOutput, c.GetSecretValueError
	}

	if in.SecretId == nil {
		return nil, &types.InvalidParameterException{Message: aws.String("missing secret ID")}
	}

	s, err := lookupSecret(utility.FromStringPtr(in.SecretId))
	if err != nil {
		return nil, err
	}

	out := &secretsmanager.GetSecretValueOutput{
		ARN:          utility.ToStringPtr(s.Name),
		Name:         utility.ToStringPtr(s.Name),
		CreatedDate:  utility.ToTimePtr(s.Created),
		SecretBinary: s.BinaryValue,
	}
	if s.BinaryValue == nil {
		out.SecretString = utility.ToStringPtr(s.Value)
	}
	if in.VersionStage != nil {
		out.VersionStages = []string{*in.VersionStage}
	}

	return out, nil
}

// Close closes the mock client. The mock output can be customized. By default,
// it is a no-op that returns no error.
func (c *SecretsManagerClient) Close(ctx context.Context) error {
	if c.CloseError != nil {
		return c.CloseError
	}
	return nil
}
