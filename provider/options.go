package provider

import (
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/evergreen-ci/tlsvault"
	"github.com/evergreen-ci/tlsvault/awsutil"
	"github.com/evergreen-ci/tlsvault/retry"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// Options represent options to create a Provider. Any collaborator that is
// not given is created from instance context.
type Options struct {
	// ClientOpts are the options used to create AWS clients. If the region
	// is not set, it is read from the instance identity document.
	ClientOpts *awsutil.ClientOptions
	// MetadataClient reads the instance identity. Defaults to the EC2
	// instance metadata service.
	MetadataClient tlsvault.InstanceMetadataClient
	// SecretsManagerClient backs the default secret store. Defaults to a
	// Secrets Manager client in the instance's region. It is ignored if Store
	// is set.
	SecretsManagerClient tlsvault.SecretsManagerClient
	// Store retrieves the secret values. Defaults to a store backed by
	// SecretsManagerClient.
	Store tlsvault.SecretStore
	// TagClient reads the instance's tags. Defaults to a Resource Groups
	// Tagging API client in the instance's region. It is ignored if
	// SecretReference is set.
	TagClient tlsvault.TagClient
	// SecretReference names the secrets holding the TLS artifacts. If it is
	// not set, the secrets are discovered from the instance's tags.
	SecretReference *tlsvault.SecretReference
	// PrivateKeyTag, CertificateTag and CertificateChainTag override the tag
	// keys read during discovery.
	PrivateKeyTag       *string
	CertificateTag      *string
	CertificateChainTag *string
	// RetryOpts is the retry policy for throttled requests. Defaults to the
	// default retry policy.
	RetryOpts *retry.Options
}

// NewOptions returns new uninitialized options to create a Provider.
func NewOptions() *Options {
	return &Options{}
}

// SetClientOptions sets the options used to create AWS clients.
func (o *Options) SetClientOptions(opts awsutil.ClientOptions) *Options {
	o.ClientOpts = &opts
	return o
}

// SetMetadataClient sets the client that reads the instance identity.
func (o *Options) SetMetadataClient(c tlsvault.InstanceMetadataClient) *Options {
	o.MetadataClient = c
	return o
}

// SetSecretsManagerClient sets the client that backs the default secret
// store.
func (o *Options) SetSecretsManagerClient(c tlsvault.SecretsManagerClient) *Options {
	o.SecretsManagerClient = c
	return o
}

// SetStore sets the store that secrets are retrieved from.
func (o *Options) SetStore(s tlsvault.SecretStore) *Options {
	o.Store = s
	return o
}

// SetTagClient sets the client that reads the instance's tags.
func (o *Options) SetTagClient(c tlsvault.TagClient) *Options {
	o.TagClient = c
	return o
}

// SetSecretReference sets the secrets holding the TLS artifacts, which skips
// tag discovery.
func (o *Options) SetSecretReference(ref tlsvault.SecretReference) *Options {
	o.SecretReference = &ref
	return o
}

// SetPrivateKeyTag sets the tag key naming the private key secret.
func (o *Options) SetPrivateKeyTag(tag string) *Options {
	o.PrivateKeyTag = &tag
	return o
}

// SetCertificateTag sets the tag key naming the certificate secret.
func (o *Options) SetCertificateTag(tag string) *Options {
	o.CertificateTag = &tag
	return o
}

// SetCertificateChainTag sets the tag key naming the certificate chain
// secret.
func (o *Options) SetCertificateChainTag(tag string) *Options {
	o.CertificateChainTag = &tag
	return o
}

// SetRetryOptions sets the retry policy for throttled requests.
func (o *Options) SetRetryOptions(opts retry.Options) *Options {
	o.RetryOpts = &opts
	return o
}

// Validate checks that the given options are sensible and sets defaults for
// unspecified options.
func (o *Options) Validate() error {
	catcher := grip.NewBasicCatcher()
	if o.SecretReference != nil {
		catcher.Add(errors.Wrap(o.SecretReference.Validate(), "invalid secret reference"))
	}
	if o.RetryOpts == nil {
		o.RetryOpts = retry.NewOptions()
	}
	catcher.Add(errors.Wrap(o.RetryOpts.Validate(), "invalid retry options"))
	if catcher.HasErrors() {
		return catcher.Resolve()
	}

	if o.ClientOpts == nil {
		o.ClientOpts = awsutil.NewClientOptions()
	}
	if o.MetadataClient == nil {
		o.MetadataClient = imds.New(imds.Options{})
	}

	return nil
}

// needsStoreClient returns whether a Secrets Manager client must be created.
func (o *Options) needsStoreClient() bool {
	return o.Store == nil && o.SecretsManagerClient == nil
}

// needsTagClient returns whether a tagging client must be created.
func (o *Options) needsTagClient() bool {
	return o.SecretReference == nil && o.TagClient == nil
}

// needsRegion returns whether the AWS region must be read from the instance
// identity.
func (o *Options) needsRegion() bool {
	if !o.needsStoreClient() && !o.needsTagClient() {
		return false
	}
	return o.ClientOpts.Config == nil && o.ClientOpts.Region == nil
}
