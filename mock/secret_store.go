package mock

import (
	"context"
	"sync"

	"github.com/evergreen-ci/tlsvault"
	"github.com/pkg/errors"
)

// SecretStore provides a mock implementation of a tlsvault.SecretStore. This
// makes it possible to introspect on inputs to the store and control the
// store's output. By default, it reads secrets from the fake
// GlobalSecretCache.
type SecretStore struct {
	mu sync.Mutex

	// GetSecretInputs records the ID of every requested secret in order.
	GetSecretInputs []string
	// GetSecretErrors are returned in order, one per call, before falling back
	// to the default behavior. A nil entry falls through to the default
	// behavior for that call.
	GetSecretErrors []error
	// GetSecretFunc, if set, replaces the default behavior. Queued errors in
	// GetSecretErrors still take precedence.
	GetSecretFunc func(ctx context.Context, id string) (string, error)
}

// GetSecret saves the input and returns the secret value. The mock output can
// be customized. By default, it looks up the secret in the global secret cache.
func (s *SecretStore) GetSecret(ctx context.Context, id string) (string, error) {
	fn, err := s.record(id)
	if err != nil {
		return "", err
	}
	if fn != nil {
		return fn(ctx, id)
	}

	if id == "" {
		return "", tlsvault.NewSecretRetrievalError(id, errors.New("must specify a non-empty secret ID"))
	}

	stored, err := lookupSecret(id)
	if err != nil {
		return "", tlsvault.NewSecretRetrievalError(id, err)
	}
	if stored.BinaryValue != nil {
		return string(stored.BinaryValue), nil
	}
	if stored.Value == "" {
		return "", tlsvault.NewSecretRetrievalError(id, errors.New("secret value is empty"))
	}

	return stored.Value, nil
}

func (s *SecretStore) record(id string) (func(context.Context, string) (string, error), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.GetSecretInputs = append(s.GetSecretInputs, id)

	if len(s.GetSecretErrors) != 0 {
		err := s.GetSecretErrors[0]
		s.GetSecretErrors = s.GetSecretErrors[1:]
		if err != nil {
			return nil, err
		}
	}

	return s.GetSecretFunc, nil
}

// Calls returns the number of times GetSecret has been called.
func (s *SecretStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.GetSecretInputs)
}

// CallsFor returns the number of times GetSecret has been called for the given
// secret ID.
func (s *SecretStore) CallsFor(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, in := range s.GetSecretInputs {
		if in == id {
			n++
		}
	}
	return n
}

// QueueErrors appends errors to be returned by subsequent calls to GetSecret.
func (s *SecretStore) QueueErrors(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.GetSecretErrors = append(s.GetSecretErrors, errs...)
}
