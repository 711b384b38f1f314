package tag

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/evergreen-ci/tlsvault"
	"github.com/evergreen-ci/tlsvault/awsutil"
	"github.com/evergreen-ci/tlsvault/retry"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const (
	// DefaultPrivateKeyTag is the instance tag whose value names the secret
	// holding the private key.
	DefaultPrivateKeyTag = "sm:ssl:emrprivate"
	// DefaultCertificateTag is the instance tag whose value names the secret
	// holding the certificates.
	DefaultCertificateTag = "sm:ssl:emrcert"
)

// ResolverOptions represent options to create a Resolver.
type ResolverOptions struct {
	// TagClient looks up the instance's tags. It must be set.
	TagClient tlsvault.TagClient
	// MetadataClient identifies the instance the process runs on. It must be
	// set.
	MetadataClient tlsvault.InstanceMetadataClient
	// RetryOpts is the retry policy for throttled tag lookups. Defaults to the
	// default retry policy.
	RetryOpts *retry.Options
	// PrivateKeyTag is the tag naming the private key secret. Defaults to
	// DefaultPrivateKeyTag.
	PrivateKeyTag *string
	// CertificateTag is the tag naming the certificate secret. Defaults to
	// DefaultCertificateTag.
	CertificateTag *string
	// CertificateChainTag is the optional tag naming a separate certificate
	// chain secret. If the instance does not have the tag, the chain is read
	// from the certificate secret.
	CertificateChainTag *string
}

// NewResolverOptions returns new uninitialized options to create a Resolver.
func NewResolverOptions() *ResolverOptions {
	return &ResolverOptions{}
}

// SetTagClient sets the client used to look up instance tags.
func (o *ResolverOptions) SetTagClient(c tlsvault.TagClient) *ResolverOptions {
	o.TagClient = c
	return o
}

// SetMetadataClient sets the client used to identify the instance.
func (o *ResolverOptions) SetMetadataClient(c tlsvault.InstanceMetadataClient) *ResolverOptions {
	o.MetadataClient = c
	return o
}

// SetRetryOptions sets the retry policy for throttled tag lookups.
func (o *ResolverOptions) SetRetryOptions(opts retry.Options) *ResolverOptions {
	o.RetryOpts = &opts
	return o
}

// SetPrivateKeyTag sets the tag naming the private key secret.
func (o *ResolverOptions) SetPrivateKeyTag(tag string) *ResolverOptions {
	o.PrivateKeyTag = &tag
	return o
}

// SetCertificateTag sets the tag naming the certificate secret.
func (o *ResolverOptions) SetCertificateTag(tag string) *ResolverOptions {
	o.CertificateTag = &tag
	return o
}

// SetCertificateChainTag sets the tag naming a separate certificate chain
// secret.
func (o *ResolverOptions) SetCertificateChainTag(tag string) *ResolverOptions {
	o.CertificateChainTag = &tag
	return o
}

// Validate checks that the required parameters to initialize a Resolver are
// given and sets defaults for unspecified options.
func (o *ResolverOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(o.TagClient == nil, "must specify a tag client")
	catcher.NewWhen(o.MetadataClient == nil, "must specify an instance metadata client")
	catcher.NewWhen(o.PrivateKeyTag != nil && *o.PrivateKeyTag == "", "private key tag cannot be empty if specified")
	catcher.NewWhen(o.CertificateTag != nil && *o.CertificateTag == "", "certificate tag cannot be empty if specified")
	catcher.NewWhen(o.CertificateChainTag != nil && *o.CertificateChainTag == "", "certificate chain tag cannot be empty if specified")
	if catcher.HasErrors() {
		return catcher.Resolve()
	}

	if o.RetryOpts == nil {
		o.RetryOpts = retry.NewOptions()
	}
	if err := o.RetryOpts.Validate(); err != nil {
		return errors.Wrap(err, "invalid retry options")
	}
	if o.PrivateKeyTag == nil {
		o.PrivateKeyTag = utility.ToStringPtr(DefaultPrivateKeyTag)
	}
	if o.CertificateTag == nil {
		o.CertificateTag = utility.ToStringPtr(DefaultCertificateTag)
	}

	return nil
}

// Resolver determines the secrets holding the TLS artifacts from the tags of
// the EC2 instance the process runs on.
type Resolver struct {
	tags     tlsvault.TagClient
	metadata tlsvault.InstanceMetadataClient
	executor *retry.Executor

	privateKeyTag       string
	certificateTag      string
	certificateChainTag string
}

// NewResolver creates a new tag-based resolver.
func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	executor, err := retry.NewExecutor(*opts.RetryOpts)
	if err != nil {
		return nil, errors.Wrap(err, "creating retry executor")
	}

	return &Resolver{
		tags:                opts.TagClient,
		metadata:            opts.MetadataClient,
		executor:            executor,
		privateKeyTag:       utility.FromStringPtr(opts.PrivateKeyTag),
		certificateTag:      utility.FromStringPtr(opts.CertificateTag),
		certificateChainTag: utility.FromStringPtr(opts.CertificateChainTag),
	}, nil
}

// NewSecretReferenceResolver is a convenience function to create a tag-based
// resolver and return it as a tlsvault.SecretReferenceResolver.
func NewSecretReferenceResolver(opts ResolverOptions) (tlsvault.SecretReferenceResolver, error) {
	r, err := NewResolver(opts)
	if err != nil {
		return nil, err
	}
	return r.Resolve, nil
}

// Resolve reads the instance's tags and returns the secrets that they name.
// It is suitable for use as a tlsvault.SecretReferenceResolver.
func (r *Resolver) Resolve(ctx context.Context) (tlsvault.SecretReference, error) {
	arn, err := r.InstanceARN(ctx)
	if err != nil {
		return tlsvault.SecretReference{}, errors.Wrap(err, "identifying instance")
	}

	tags, err := r.ResourceTags(ctx, arn)
	if err != nil {
		return tlsvault.SecretReference{}, errors.Wrapf(err, "getting tags for instance '%s'", arn)
	}

	var missing []string
	for _, key := range []string{r.privateKeyTag, r.certificateTag} {
		if tags[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) != 0 {
		return tlsvault.SecretReference{}, NewMissingTagsError(arn, missing)
	}

	ref := tlsvault.SecretReference{
		PrivateKeySecretID:  tags[r.privateKeyTag],
		CertificateSecretID: tags[r.certificateTag],
	}
	if r.certificateChainTag != "" {
		ref.CertificateChainSecretID = tags[r.certificateChainTag]
	}

	grip.Info(message.Fields{
		"message":             "resolved TLS secrets from instance tags",
		"instance":            arn,
		"private_key_secret":  ref.PrivateKeySecretID,
		"certificate_secret":  ref.CertificateSecretID,
		"chain_secret":        ref.ChainSecretID(),
		"separate_chain_used": ref.HasSeparateChain(),
	})

	return ref, nil
}

// InstanceARN returns the ARN of the EC2 instance the process runs on.
func (r *Resolver) InstanceARN(ctx context.Context) (string, error) {
	out, err := r.metadata.GetInstanceIdentityDocument(ctx, &imds.GetInstanceIdentityDocumentInput{})
	if err != nil {
		return "", errors.Wrap(err, "getting instance identity document")
	}
	if out == nil {
		return "", errors.New("instance identity document is missing")
	}

	return InstanceARN(out.InstanceIdentityDocument)
}

// ResourceTags returns all the tags of the resource identified by the ARN.
// Throttled requests are retried.
func (r *Resolver) ResourceTags(ctx context.Context, arn string) (map[string]string, error) {
	tags := map[string]string{}
	in := &resourcegroupstaggingapi.GetResourcesInput{
		ResourceARNList: []string{arn},
	}
	for {
		out, err := retry.Retry(ctx, r.executor, "GetResources", r.getResources, in)
		if err != nil {
			return nil, err
		}

		for _, mapping := range out.ResourceTagMappingList {
			if utility.FromStringPtr(mapping.ResourceARN) != arn {
				continue
			}
			for _, t := range mapping.Tags {
				tags[utility.FromStringPtr(t.Key)] = utility.FromStringPtr(t.Value)
			}
		}

		token := utility.FromStringPtr(out.PaginationToken)
		if token == "" {
			return tags, nil
		}
		in = &resourcegroupstaggingapi.GetResourcesInput{
			ResourceARNList: []string{arn},
			PaginationToken: utility.ToStringPtr(token),
		}
	}
}

func (r *Resolver) getResources(ctx context.Context, in *resourcegroupstaggingapi.GetResourcesInput) (*resourcegroupstaggingapi.GetResourcesOutput, retry.Outcome, error) {
	out, err := r.tags.GetResources(ctx, in)
	if err != nil {
		if awsutil.IsThrottlingError(err) {
			return nil, retry.NotReady, tlsvault.NewThrottledError("GetResources", err)
		}
		return nil, retry.Done, errors.Wrap(err, "getting resources")
	}
	if out == nil {
		return nil, retry.Done, errors.New("received no output")
	}
	return out, retry.Done, nil
}

// InstanceARN builds the ARN of the EC2 instance described by the identity
// document.
func InstanceARN(doc imds.InstanceIdentityDocument) (string, error) {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(doc.InstanceID == "", "identity document is missing the instance ID")
	catcher.NewWhen(doc.AccountID == "", "identity document is missing the account ID")
	catcher.NewWhen(doc.Region == "", "identity document is missing the region")
	if catcher.HasErrors() {
		return "", catcher.Resolve()
	}

	return fmt.Sprintf("arn:%s:ec2:%s:%s:instance/%s", partition(doc.Region), doc.Region, doc.AccountID, doc.InstanceID), nil
}

// partition returns the AWS partition that the region belongs to.
func partition(region string) string {
	switch {
	case strings.HasPrefix(region, "cn-"):
		return "aws-cn"
	case strings.HasPrefix(region, "us-gov-"):
		return "aws-us-gov"
	case strings.HasPrefix(region, "us-iso-"):
		return "aws-iso"
	case strings.HasPrefix(region, "us-isob-"):
		return "aws-iso-b"
	default:
		return "aws"
	}
}
