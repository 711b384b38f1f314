package provider

import (
	"context"
	"crypto/tls"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/evergreen-ci/tlsvault"
	"github.com/evergreen-ci/tlsvault/artifact"
	"github.com/evergreen-ci/tlsvault/awsutil"
	"github.com/evergreen-ci/tlsvault/secret"
	"github.com/evergreen-ci/tlsvault/tag"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// Provider supplies the TLS artifacts of the instance that the process runs
// on. It owns any AWS clients that it creates.
type Provider struct {
	cache   *artifact.Cache
	closers []func(ctx context.Context) error
}

// NewProvider creates a Provider from the given options. Collaborators that
// are not given are created from instance context: the region is read from
// the instance identity document, secrets are read from Secrets Manager and
// the secret names are discovered from the instance's tags. No secrets are
// fetched until the TLS artifacts are first requested.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	p := &Provider{}
	if err := p.setup(ctx, opts); err != nil {
		catcher := grip.NewBasicCatcher()
		catcher.Add(err)
		catcher.Add(p.Close(ctx))
		return nil, catcher.Resolve()
	}

	return p, nil
}

func (p *Provider) setup(ctx context.Context, opts Options) error {
	clientOpts := *opts.ClientOpts
	if opts.needsRegion() {
		region, err := instanceRegion(ctx, opts.MetadataClient)
		if err != nil {
			return errors.Wrap(err, "getting instance region")
		}
		clientOpts.SetRegion(region)
	}

	store, err := p.secretStore(ctx, opts, clientOpts)
	if err != nil {
		return errors.Wrap(err, "creating secret store")
	}

	resolve, err := p.secretReferenceResolver(ctx, opts, clientOpts)
	if err != nil {
		return errors.Wrap(err, "creating secret reference resolver")
	}

	cache, err := artifact.NewCache(*artifact.NewCacheOptions().
		SetStore(store).
		SetResolver(resolve).
		SetRetryOptions(*opts.RetryOpts))
	if err != nil {
		return errors.Wrap(err, "creating cache")
	}
	p.cache = cache

	return nil
}

func (p *Provider) secretStore(ctx context.Context, opts Options, clientOpts awsutil.ClientOptions) (tlsvault.SecretStore, error) {
	if opts.Store != nil {
		return opts.Store, nil
	}

	client := opts.SecretsManagerClient
	if client == nil {
		c, err := secret.NewBasicSecretsManagerClient(ctx, clientOpts)
		if err != nil {
			return nil, errors.Wrap(err, "creating Secrets Manager client")
		}
		p.closers = append(p.closers, c.Close)
		client = c
	}

	return secret.NewBasicSecretsManager(*secret.NewBasicSecretsManagerOptions().SetClient(client))
}

func (p *Provider) secretReferenceResolver(ctx context.Context, opts Options, clientOpts awsutil.ClientOptions) (tlsvault.SecretReferenceResolver, error) {
	if opts.SecretReference != nil {
		return tlsvault.StaticSecretReference(*opts.SecretReference), nil
	}

	client := opts.TagClient
	if client == nil {
		c, err := tag.NewBasicTagClient(ctx, clientOpts)
		if err != nil {
			return nil, errors.Wrap(err, "creating tag client")
		}
		p.closers = append(p.closers, c.Close)
		client = c
	}

	resolverOpts := tag.NewResolverOptions().
		SetTagClient(client).
		SetMetadataClient(opts.MetadataClient).
		SetRetryOptions(*opts.RetryOpts)
	resolverOpts.PrivateKeyTag = opts.PrivateKeyTag
	resolverOpts.CertificateTag = opts.CertificateTag
	resolverOpts.CertificateChainTag = opts.CertificateChainTag

	return tag.NewSecretReferenceResolver(*resolverOpts)
}

func instanceRegion(ctx context.Context, c tlsvault.InstanceMetadataClient) (string, error) {
	out, err := c.GetInstanceIdentityDocument(ctx, &imds.GetInstanceIdentityDocumentInput{})
	if err != nil {
		return "", errors.Wrap(err, "getting instance identity document")
	}
	if out == nil || out.Region == "" {
		return "", errors.New("instance identity document has no region")
	}

	grip.Info(message.Fields{
		"message":     "using instance region for AWS clients",
		"region":      out.Region,
		"instance_id": out.InstanceID,
	})

	return out.Region, nil
}

// Cache returns the cache that holds the TLS artifacts.
func (p *Provider) Cache() *artifact.Cache {
	return p.cache
}

// TLSArtifacts returns the TLS artifacts, fetching them on first use.
func (p *Provider) TLSArtifacts(ctx context.Context) (*artifact.Bundle, error) {
	return p.cache.Get(ctx)
}

// TLSConfig returns a server TLS configuration that presents the cached
// certificate chain. The certificate is not fetched until the first handshake.
func (p *Provider) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: p.cache.GetCertificate,
	}
}

// Close closes the AWS clients that the provider created. Clients that were
// given in the options are not closed.
func (p *Provider) Close(ctx context.Context) error {
	catcher := grip.NewBasicCatcher()
	for _, closeClient := range p.closers {
		catcher.Add(closeClient(ctx))
	}
	p.closers = nil

	return errors.Wrap(catcher.Resolve(), "closing clients")
}
