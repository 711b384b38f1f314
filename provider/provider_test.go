package provider

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/evergreen-ci/tlsvault"
	"github.com/evergreen-ci/tlsvault/artifact"
	"github.com/evergreen-ci/tlsvault/awsutil"
	"github.com/evergreen-ci/tlsvault/internal/testutil"
	"github.com/evergreen-ci/tlsvault/mock"
	"github.com/evergreen-ci/tlsvault/retry"
	"github.com/evergreen-ci/tlsvault/tag"
	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTestTimeout = 10 * time.Second

func fastRetryOptions() retry.Options {
	return *retry.NewOptions().
		SetMaxAttempts(3).
		SetMinSleep(time.Millisecond).
		SetSleepRange(time.Millisecond)
}

// newInstance returns a mock metadata client describing a new instance and
// the ARN of that instance.
func newInstance() (*mock.InstanceMetadataClient, string) {
	id := "i-" + utility.RandomString()
	return &mock.InstanceMetadataClient{InstanceID: id}, "arn:aws:ec2:" + mock.DefaultRegion + ":" + mock.DefaultAccountID + ":instance/" + id
}

// seedSecrets stores a valid private key and certificate in the global mock
// secret cache and returns a reference to them.
func seedSecrets(t *testing.T, serials ...int64) tlsvault.SecretReference {
	ref := tlsvault.SecretReference{
		PrivateKeySecretID:  testutil.NewSecretName(t),
		CertificateSecretID: testutil.NewSecretName(t),
	}
	mock.StoreSecretString(ref.PrivateKeySecretID, testutil.PrivateKeyPEM(t))
	mock.StoreSecretString(ref.CertificateSecretID, testutil.CertificateChainPEM(t, serials...))
	return ref
}

// nonRegionalAWSOptions returns options to create AWS clients that do not make
// any actual requests and have no region set.
func nonRegionalAWSOptions() awsutil.ClientOptions {
	return *awsutil.NewClientOptions().
		SetCredentialsProvider(credentials.NewStaticCredentialsProvider("", "", "")).
		SetDisableTracing(true)
}

func TestOptions(t *testing.T) {
	t.Run("Setters", func(t *testing.T) {
		mc := &mock.InstanceMetadataClient{}
		smc := &mock.SecretsManagerClient{}
		s := &mock.SecretStore{}
		tc := &mock.TagClient{}
		ref := tlsvault.SecretReference{PrivateKeySecretID: "key", CertificateSecretID: "cert"}
		opts := NewOptions().
			SetClientOptions(testutil.ValidNonIntegrationAWSOptions()).
			SetMetadataClient(mc).
			SetSecretsManagerClient(smc).
			SetStore(s).
			SetTagClient(tc).
			SetSecretReference(ref).
			SetPrivateKeyTag("key-tag").
			SetCertificateTag("cert-tag").
			SetCertificateChainTag("chain-tag").
			SetRetryOptions(fastRetryOptions())

		require.NotZero(t, opts.ClientOpts)
		assert.Equal(t, "us-east-1", utility.FromStringPtr(opts.ClientOpts.Region))
		assert.Equal(t, mc, opts.MetadataClient)
		assert.Equal(t, smc, opts.SecretsManagerClient)
		assert.Equal(t, s, opts.Store)
		assert.Equal(t, tc, opts.TagClient)
		require.NotZero(t, opts.SecretReference)
		assert.Equal(t, ref, *opts.SecretReference)
		assert.Equal(t, "key-tag", utility.FromStringPtr(opts.PrivateKeyTag))
		assert.Equal(t, "cert-tag", utility.FromStringPtr(opts.CertificateTag))
		assert.Equal(t, "chain-tag", utility.FromStringPtr(opts.CertificateChainTag))
		require.NotZero(t, opts.RetryOpts)
		assert.Equal(t, 3, opts.RetryOpts.MaxAttempts)
	})
	t.Run("Validate", func(t *testing.T) {
		t.Run("SucceedsAndSetsDefaults", func(t *testing.T) {
			opts := NewOptions()
			require.NoError(t, opts.Validate())
			assert.NotZero(t, opts.ClientOpts)
			assert.NotZero(t, opts.MetadataClient)
			require.NotZero(t, opts.RetryOpts)
			assert.Equal(t, retry.DefaultMaxAttempts, opts.RetryOpts.MaxAttempts)
		})
		t.Run("FailsWithInvalidSecretReference", func(t *testing.T) {
			opts := NewOptions().SetSecretReference(tlsvault.SecretReference{PrivateKeySecretID: "key"})
			assert.Error(t, opts.Validate())
		})
		t.Run("FailsWithInvalidRetryOptions", func(t *testing.T) {
			opts := NewOptions().SetRetryOptions(*retry.NewOptions().SetMinSleep(-time.Second))
			assert.Error(t, opts.Validate())
		})
	})
}

func TestProvider(t *testing.T) {
	defer mock.ResetGlobalSecretCache()
	defer mock.ResetGlobalTaggedResources()

	for tName, tCase := range map[string]func(ctx context.Context, t *testing.T){
		"DiscoversSecretsFromInstanceTags": func(ctx context.Context, t *testing.T) {
			mc, arn := newInstance()
			ref := seedSecrets(t, 1, 2)
			mock.TagResource(arn, map[string]string{
				tag.DefaultPrivateKeyTag:  ref.PrivateKeySecretID,
				tag.DefaultCertificateTag: ref.CertificateSecretID,
			})
			smc := &mock.SecretsManagerClient{}

			p, err := NewProvider(ctx, *NewOptions().
				SetMetadataClient(mc).
				SetSecretsManagerClient(smc).
				SetTagClient(&mock.TagClient{}).
				SetRetryOptions(fastRetryOptions()))
			require.NoError(t, err)
			defer func() {
				assert.NoError(t, p.Close(ctx))
			}()

			b, err := p.TLSArtifacts(ctx)
			require.NoError(t, err)
			require.Len(t, b.CertificateChain(), 2)
			assert.EqualValues(t, 1, b.CertificateChain()[0].SerialNumber.Int64())
			assert.Equal(t, 2, smc.GetSecretValueCalls)
			assert.Equal(t, artifact.CachePopulated, p.Cache().State())
		},
		"DoesNotFetchBeforeFirstUse": func(ctx context.Context, t *testing.T) {
			mc, _ := newInstance()
			s := &mock.SecretStore{}
			tc := &mock.TagClient{}

			p, err := NewProvider(ctx, *NewOptions().
				SetMetadataClient(mc).
				SetStore(s).
				SetTagClient(tc))
			require.NoError(t, err)

			assert.Zero(t, mc.GetInstanceIdentityDocumentCalls)
			assert.Zero(t, tc.GetResourcesCalls)
			assert.Zero(t, s.Calls())
			assert.Equal(t, artifact.CacheEmpty, p.Cache().State())
		},
		"UsesCustomTags": func(ctx context.Context, t *testing.T) {
			mc, arn := newInstance()
			ref := seedSecrets(t, 3)
			chainID := testutil.NewSecretName(t)
			mock.StoreSecretString(chainID, testutil.CertificateChainPEM(t, 4, 5))
			mock.TagResource(arn, map[string]string{
				"key":   ref.PrivateKeySecretID,
				"cert":  ref.CertificateSecretID,
				"chain": chainID,
			})
			s := &mock.SecretStore{}

			p, err := NewProvider(ctx, *NewOptions().
				SetMetadataClient(mc).
				SetStore(s).
				SetTagClient(&mock.TagClient{}).
				SetPrivateKeyTag("key").
				SetCertificateTag("cert").
				SetCertificateChainTag("chain").
				SetRetryOptions(fastRetryOptions()))
			require.NoError(t, err)

			b, err := p.TLSArtifacts(ctx)
			require.NoError(t, err)
			require.Len(t, b.CertificateChain(), 2)
			assert.EqualValues(t, 4, b.CertificateChain()[0].SerialNumber.Int64())
			require.Len(t, b.TrustedCertificates(), 1)
			assert.EqualValues(t, 3, b.TrustedCertificates()[0].SerialNumber.Int64())
			assert.Equal(t, 1, s.CallsFor(chainID))
		},
		"UsesSecretReferenceWithoutReadingTags": func(ctx context.Context, t *testing.T) {
			mc, _ := newInstance()
			ref := seedSecrets(t, 1)
			tc := &mock.TagClient{}

			p, err := NewProvider(ctx, *NewOptions().
				SetMetadataClient(mc).
				SetStore(&mock.SecretStore{}).
				SetTagClient(tc).
				SetSecretReference(ref))
			require.NoError(t, err)

			_, err = p.TLSArtifacts(ctx)
			require.NoError(t, err)
			assert.Zero(t, tc.GetResourcesCalls)
			assert.Zero(t, mc.GetInstanceIdentityDocumentCalls)
		},
		"FailsToFetchWithMissingTags": func(ctx context.Context, t *testing.T) {
			mc, arn := newInstance()
			mock.TagResource(arn, map[string]string{
				tag.DefaultPrivateKeyTag: testutil.NewSecretName(t),
			})
			s := &mock.SecretStore{}

			p, err := NewProvider(ctx, *NewOptions().
				SetMetadataClient(mc).
				SetStore(s).
				SetTagClient(&mock.TagClient{}).
				SetRetryOptions(fastRetryOptions()))
			require.NoError(t, err)

			b, err := p.TLSArtifacts(ctx)
			assert.Zero(t, b)
			assert.True(t, artifact.IsCacheUnavailableError(err))
			assert.True(t, tag.IsMissingTagsError(err))
			assert.Zero(t, s.Calls())
		},
		"ServesTLSConfigCertificate": func(ctx context.Context, t *testing.T) {
			ref := seedSecrets(t, 7, 8)

			p, err := NewProvider(ctx, *NewOptions().
				SetMetadataClient(&mock.InstanceMetadataClient{}).
				SetStore(&mock.SecretStore{}).
				SetSecretReference(ref))
			require.NoError(t, err)

			conf := p.TLSConfig()
			require.NotZero(t, conf)
			assert.EqualValues(t, tls.VersionTLS12, conf.MinVersion)
			require.NotNil(t, conf.GetCertificate)

			c, err := conf.GetCertificate(&tls.ClientHelloInfo{})
			require.NoError(t, err)
			require.NotZero(t, c.Leaf)
			assert.EqualValues(t, 7, c.Leaf.SerialNumber.Int64())
			assert.Len(t, c.Certificate, 2)
		},
		"CreatesAWSClientsInInstanceRegion": func(ctx context.Context, t *testing.T) {
			mc := &mock.InstanceMetadataClient{Region: "eu-west-1"}

			p, err := NewProvider(ctx, *NewOptions().
				SetClientOptions(nonRegionalAWSOptions()).
				SetMetadataClient(mc))
			require.NoError(t, err)

			assert.Equal(t, 1, mc.GetInstanceIdentityDocumentCalls)
			assert.Len(t, p.closers, 2)
			assert.NoError(t, p.Close(ctx))
			assert.Empty(t, p.closers)
		},
		"CreatesOnlyMissingAWSClients": func(ctx context.Context, t *testing.T) {
			mc := &mock.InstanceMetadataClient{}

			p, err := NewProvider(ctx, *NewOptions().
				SetClientOptions(nonRegionalAWSOptions()).
				SetMetadataClient(mc).
				SetStore(&mock.SecretStore{}))
			require.NoError(t, err)

			assert.Len(t, p.closers, 1)
			assert.NoError(t, p.Close(ctx))
		},
		"DoesNotReadInstanceRegionWhenGiven": func(ctx context.Context, t *testing.T) {
			mc := &mock.InstanceMetadataClient{}

			p, err := NewProvider(ctx, *NewOptions().
				SetClientOptions(testutil.ValidNonIntegrationAWSOptions()).
				SetMetadataClient(mc))
			require.NoError(t, err)

			assert.Zero(t, mc.GetInstanceIdentityDocumentCalls)
			assert.Len(t, p.closers, 2)
			assert.NoError(t, p.Close(ctx))
		},
		"DoesNotReadInstanceRegionWithoutAWSClients": func(ctx context.Context, t *testing.T) {
			mc := &mock.InstanceMetadataClient{GetInstanceIdentityDocumentError: errors.New("fake error")}

			p, err := NewProvider(ctx, *NewOptions().
				SetMetadataClient(mc).
				SetStore(&mock.SecretStore{}).
				SetSecretReference(tlsvault.SecretReference{PrivateKeySecretID: "key", CertificateSecretID: "cert"}))
			require.NoError(t, err)

			assert.Zero(t, mc.GetInstanceIdentityDocumentCalls)
			assert.Empty(t, p.closers)
		},
		"FailsWithoutInstanceRegion": func(ctx context.Context, t *testing.T) {
			mc := &mock.InstanceMetadataClient{GetInstanceIdentityDocumentError: errors.New("fake error")}

			p, err := NewProvider(ctx, *NewOptions().
				SetClientOptions(nonRegionalAWSOptions()).
				SetMetadataClient(mc))
			assert.Error(t, err)
			assert.Zero(t, p)
		},
		"FailsWithInvalidOptions": func(ctx context.Context, t *testing.T) {
			p, err := NewProvider(ctx, *NewOptions().
				SetMetadataClient(&mock.InstanceMetadataClient{}).
				SetSecretReference(tlsvault.SecretReference{}))
			assert.Error(t, err)
			assert.Zero(t, p)
		},
	} {
		t.Run(tName, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
			defer cancel()

			tCase(ctx, t)
		})
	}
}
