package artifact

import (
	"context"
	"crypto/tls"
	"sync/atomic"

	"github.com/evergreen-ci/tlsvault"
	"github.com/evergreen-ci/tlsvault/cert"
	"github.com/evergreen-ci/tlsvault/retry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// CacheState describes whether the cache currently has TLS artifacts to serve.
type CacheState int

const (
	// CacheEmpty indicates that no bundle is published, either because none
	// has been fetched yet or because the cache was invalidated.
	CacheEmpty CacheState = iota
	// CachePopulated indicates that a bundle is published.
	CachePopulated
	// CacheRefreshInFlight indicates that a fetch is in progress.
	CacheRefreshInFlight
)

// String returns the name of the state.
func (s CacheState) String() string {
	switch s {
	case CacheEmpty:
		return "empty"
	case CachePopulated:
		return "populated"
	case CacheRefreshInFlight:
		return "refresh-in-flight"
	default:
		return "unknown"
	}
}

// Cache fetches TLS artifacts from a secret store once and serves them to any
// number of concurrent callers. At most one fetch is in flight at a time. If a
// fetch fails, the cache serves the last bundle it successfully fetched, if
// any.
type Cache struct {
	store    tlsvault.SecretStore
	resolve  tlsvault.SecretReferenceResolver
	executor *retry.Executor

	// current is the published bundle. It is read without holding fetchSem.
	current  atomic.Pointer[Bundle]
	inFlight atomic.Bool

	// fetchSem guards fetching along with ref and lastGood.
	fetchSem *semaphore.Weighted
	ref      *tlsvault.SecretReference
	lastGood *Bundle
}

// NewCache creates a new empty cache. Nothing is fetched until the first call
// to Get.
func NewCache(opts CacheOptions) (*Cache, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	executor, err := retry.NewExecutor(*opts.RetryOpts)
	if err != nil {
		return nil, errors.Wrap(err, "creating retry executor")
	}

	return &Cache{
		store:    opts.Store,
		resolve:  opts.Resolver,
		executor: executor,
		fetchSem: semaphore.NewWeighted(1),
	}, nil
}

// Get returns the published bundle. If there is none, it fetches a new one and
// publishes it. If the fetch fails, it returns the last successfully fetched
// bundle; if there has never been one, it returns a *CacheUnavailableError.
// Get blocks while another fetch is in flight, until that fetch finishes or the
// context is done.
func (c *Cache) Get(ctx context.Context) (*Bundle, error) {
	if b := c.current.Load(); b != nil {
		return b, nil
	}

	if err := c.fetchSem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "waiting for in-flight fetch")
	}
	defer c.fetchSem.Release(1)

	// Another caller may have published while this one was waiting.
	if b := c.current.Load(); b != nil {
		return b, nil
	}

	b, err := c.fetch(ctx)
	if err != nil {
		if c.lastGood != nil {
			grip.Warning(message.WrapError(err, message.Fields{
				"message":    "could not fetch TLS artifacts, serving previously fetched artifacts",
				"fetched_at": c.lastGood.FetchedAt(),
			}))
			return c.lastGood, nil
		}
		return nil, NewCacheUnavailableError(err)
	}

	c.publish(b)

	return b, nil
}

// Refresh fetches a new bundle and publishes it even if a bundle is already
// published. If the fetch fails, the currently published bundle remains
// published and the error is returned.
func (c *Cache) Refresh(ctx context.Context) (*Bundle, error) {
	if err := c.fetchSem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "waiting for in-flight fetch")
	}
	defer c.fetchSem.Release(1)

	b, err := c.fetch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "refreshing TLS artifacts")
	}

	c.publish(b)

	return b, nil
}

// Invalidate clears the published bundle so that the next call to Get fetches
// a new one. It does not block, and callers holding the previous bundle may
// continue to use it.
func (c *Cache) Invalidate() {
	c.current.Store(nil)
}

// State returns the current state of the cache.
func (c *Cache) State() CacheState {
	if c.inFlight.Load() {
		return CacheRefreshInFlight
	}
	if c.current.Load() != nil {
		return CachePopulated
	}
	return CacheEmpty
}

// GetCertificate returns the certificate to serve for a TLS handshake. It can
// be used as the GetCertificate function of a tls.Config.
func (c *Cache) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	ctx := context.Background()
	if hello != nil && hello.Context() != nil {
		ctx = hello.Context()
	}

	b, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}

	return b.TLSCertificate(), nil
}

// publish must be called while holding fetchSem.
func (c *Cache) publish(b *Bundle) {
	c.lastGood = b
	c.current.Store(b)

	grip.Info(message.Fields{
		"message":            "published TLS artifacts",
		"chain_length":       len(b.certificateChain),
		"trusted_count":      len(b.trustedCertificates),
		"fetched_at":         b.FetchedAt(),
		"certificate_secret": c.ref.CertificateSecretID,
	})
}

// fetch must be called while holding fetchSem.
func (c *Cache) fetch(ctx context.Context) (*Bundle, error) {
	c.inFlight.Store(true)
	defer c.inFlight.Store(false)

	ref, err := c.secretReference(ctx)
	if err != nil {
		return nil, err
	}

	keyText, err := c.getSecret(ctx, ref.PrivateKeySecretID)
	if err != nil {
		return nil, errors.Wrap(err, "getting private key")
	}
	certText, err := c.getSecret(ctx, ref.CertificateSecretID)
	if err != nil {
		return nil, errors.Wrap(err, "getting certificates")
	}
	chainText := certText
	if ref.HasSeparateChain() {
		chainText, err = c.getSecret(ctx, ref.ChainSecretID())
		if err != nil {
			return nil, errors.Wrap(err, "getting certificate chain")
		}
	}

	key, err := cert.DecodePrivateKey(keyText)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding private key from secret '%s'", ref.PrivateKeySecretID)
	}
	trusted, err := cert.DecodeCertificates(certText)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding certificates from secret '%s'", ref.CertificateSecretID)
	}
	chain := trusted
	if ref.HasSeparateChain() {
		chain, err = cert.DecodeCertificates(chainText)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding certificate chain from secret '%s'", ref.ChainSecretID())
		}
	}

	return NewBundle(key, chain, trusted)
}

// secretReference returns the resolved secret reference, resolving it only if
// it has not been resolved successfully before.
func (c *Cache) secretReference(ctx context.Context) (tlsvault.SecretReference, error) {
	if c.ref != nil {
		return *c.ref, nil
	}

	ref, err := c.resolve(ctx)
	if err != nil {
		return tlsvault.SecretReference{}, errors.Wrap(err, "resolving secret reference")
	}
	if err := ref.Validate(); err != nil {
		return tlsvault.SecretReference{}, errors.Wrap(err, "invalid secret reference")
	}

	c.ref = &ref

	return ref, nil
}

func (c *Cache) getSecret(ctx context.Context, id string) (string, error) {
	return retry.Retry(ctx, c.executor, "GetSecret", func(ctx context.Context, id string) (string, retry.Outcome, error) {
		val, err := c.store.GetSecret(ctx, id)
		if tlsvault.IsThrottledError(err) {
			return "", retry.NotReady, err
		}
		return val, retry.Done, err
	}, id)
}
