package artifact

import (
	"github.com/evergreen-ci/tlsvault"
	"github.com/evergreen-ci/tlsvault/retry"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// CacheOptions represent options to create a Cache.
type CacheOptions struct {
	// Store retrieves the secret values. It must be set.
	Store tlsvault.SecretStore
	// Resolver determines which secrets hold the TLS artifacts. It must be
	// set. It is called at most once successfully over the lifetime of the
	// cache.
	Resolver tlsvault.SecretReferenceResolver
	// RetryOpts is the retry policy for throttled secret retrieval. Defaults
	// to the default retry policy.
	RetryOpts *retry.Options
}

// NewCacheOptions returns new uninitialized options to create a Cache.
func NewCacheOptions() *CacheOptions {
	return &CacheOptions{}
}

// SetStore sets the store that the cache retrieves secrets from.
func (o *CacheOptions) SetStore(s tlsvault.SecretStore) *CacheOptions {
	o.Store = s
	return o
}

// SetResolver sets the strategy to determine which secrets hold the TLS
// artifacts.
func (o *CacheOptions) SetResolver(r tlsvault.SecretReferenceResolver) *CacheOptions {
	o.Resolver = r
	return o
}

// SetSecretReference sets a resolver that always resolves to the given
// secrets.
func (o *CacheOptions) SetSecretReference(ref tlsvault.SecretReference) *CacheOptions {
	o.Resolver = tlsvault.StaticSecretReference(ref)
	return o
}

// SetRetryOptions sets the retry policy for throttled secret retrieval.
func (o *CacheOptions) SetRetryOptions(opts retry.Options) *CacheOptions {
	o.RetryOpts = &opts
	return o
}

// Validate checks that the required parameters to initialize a Cache are
// given and sets defaults for unspecified options.
func (o *CacheOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(o.Store == nil, "must specify a secret store")
	catcher.NewWhen(o.Resolver == nil, "must specify a secret reference resolver")
	if catcher.HasErrors() {
		return catcher.Resolve()
	}

	if o.RetryOpts == nil {
		o.RetryOpts = retry.NewOptions()
	}
	if err := o.RetryOpts.Validate(); err != nil {
		return errors.Wrap(err, "invalid retry options")
	}

	return nil
}
