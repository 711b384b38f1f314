package secret

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/evergreen-ci/tlsvault/awsutil"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// BasicSecretsManagerClient provides a tlsvault.SecretsManagerClient
// implementation that wraps the Secrets Manager API. It does not retry
// requests, so that the caller retains control of backoff.
type BasicSecretsManagerClient struct {
	awsutil.BaseClient
	sm *secretsmanager.Client
}

// NewBasicSecretsManagerClient creates a new Secrets Manager client from the
// given options.
func NewBasicSecretsManagerClient(ctx context.Context, opts awsutil.ClientOptions) (*BasicSecretsManagerClient, error) {
	c := &BasicSecretsManagerClient{
		BaseClient: awsutil.NewBaseClient(opts),
	}
	if err := c.setup(ctx); err != nil {
		return nil, errors.Wrap(err, "setting up client")
	}

	return c, nil
}

func (c *BasicSecretsManagerClient) setup(ctx context.Context) error {
	if c.sm != nil {
		return nil
	}

	config, err := c.GetConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "initializing config")
	}

	c.sm = secretsmanager.NewFromConfig(*config, func(o *secretsmanager.Options) {
		o.Retryer = aws.NopRetryer{}
	})

	return nil
}

// GetSecretValue gets the decrypted value of an existing secret.
func (c *BasicSecretsManagerClient) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, errors.Wrap(err, "setting up client")
	}

	msg := awsutil.MakeAPILogMessage("GetSecretValue", in)
	out, err := c.sm.GetSecretValue(ctx, in)
	if err != nil {
		grip.Debug(message.WrapError(err, msg))
		return nil, err
	}

	return out, nil
}

// Close closes the client.
func (c *BasicSecretsManagerClient) Close(ctx context.Context) error {
	return c.BaseClient.Close(ctx)
}
