package secret

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/evergreen-ci/tlsvault"
	"github.com/evergreen-ci/tlsvault/awsutil"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// DefaultVersionStage is the version stage of a secret whose value is retrieved
// when no other version stage is requested.
const DefaultVersionStage = "AWSCURRENT"

// BasicSecretsManager provides a tlsvault.SecretStore implementation backed by
// AWS Secrets Manager.
type BasicSecretsManager struct {
	client       tlsvault.SecretsManagerClient
	versionStage string
}

// BasicSecretsManagerOptions represent options to create a BasicSecretsManager.
type BasicSecretsManagerOptions struct {
	// Client is the Secrets Manager client. It must be set.
	Client tlsvault.SecretsManagerClient
	// VersionStage is the version stage of the secret to retrieve. Defaults to
	// AWSCURRENT.
	VersionStage *string
}

// NewBasicSecretsManagerOptions returns new uninitialized options to create a
// BasicSecretsManager.
func NewBasicSecretsManagerOptions() *BasicSecretsManagerOptions {
	return &BasicSecretsManagerOptions{}
}

// SetClient sets the client that the secrets manager uses to communicate with
// Secrets Manager.
func (o *BasicSecretsManagerOptions) SetClient(c tlsvault.SecretsManagerClient) *BasicSecretsManagerOptions {
	o.Client = c
	return o
}

// SetVersionStage sets the version stage of the secrets to retrieve.
func (o *BasicSecretsManagerOptions) SetVersionStage(stage string) *BasicSecretsManagerOptions {
	o.VersionStage = &stage
	return o
}

// Validate checks that the required parameters to initialize a
// BasicSecretsManager are given and sets defaults for unspecified options.
func (o *BasicSecretsManagerOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(o.Client == nil, "must specify a client")
	catcher.NewWhen(o.VersionStage != nil && *o.VersionStage == "", "version stage cannot be empty if specified")
	if catcher.HasErrors() {
		return catcher.Resolve()
	}

	if o.VersionStage == nil {
		o.VersionStage = aws.String(DefaultVersionStage)
	}

	return nil
}

// NewBasicSecretsManager creates a new secret store backed by Secrets Manager.
func NewBasicSecretsManager(opts BasicSecretsManagerOptions) (*BasicSecretsManager, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}
	return &BasicSecretsManager{
		client:       opts.Client,
		versionStage: aws.ToString(opts.VersionStage),
	}, nil
}

// GetSecret returns the value of the secret identified by ID. Throttled
// requests return a *tlsvault.ThrottledError; every other failure returns a
// *tlsvault.SecretRetrievalError.
func (m *BasicSecretsManager) GetSecret(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", tlsvault.NewSecretRetrievalError(id, errors.New("must specify a non-empty secret ID"))
	}

	out, err := m.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(id),
		VersionStage: aws.String(m.versionStage),
	})
	if err != nil {
		if awsutil.IsThrottlingError(err) {
			grip.Warning(message.WrapError(err, message.Fields{
				"message":   "secret retrieval was throttled",
				"secret_id": id,
			}))
			return "", tlsvault.NewThrottledError("GetSecretValue", err)
		}
		return "", tlsvault.NewSecretRetrievalError(id, errors.Wrap(err, "getting secret value"))
	}
	if out == nil {
		return "", tlsvault.NewSecretRetrievalError(id, errors.New("received no output"))
	}

	switch {
	case utility.FromStringPtr(out.SecretString) != "":
		return *out.SecretString, nil
	case len(out.SecretBinary) != 0:
		return string(out.SecretBinary), nil
	default:
		return "", tlsvault.NewSecretRetrievalError(id, errors.New("secret value is empty"))
	}
}
