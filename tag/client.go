package tag

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/evergreen-ci/tlsvault/awsutil"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// BasicTagClient provides a tlsvault.TagClient implementation that wraps the
// AWS Resource Groups Tagging API. It does not retry requests, so that the
// caller retains control of backoff.
type BasicTagClient struct {
	awsutil.BaseClient
	rgt *resourcegroupstaggingapi.Client
}

// NewBasicTagClient creates a new AWS Resource Groups Tagging API client from
// the given options.
func NewBasicTagClient(ctx context.Context, opts awsutil.ClientOptions) (*BasicTagClient, error) {
	c := &BasicTagClient{
		BaseClient: awsutil.NewBaseClient(opts),
	}
	if err := c.setup(ctx); err != nil {
		return nil, errors.Wrap(err, "setting up client")
	}

	return c, nil
}

func (c *BasicTagClient) setup(ctx context.Context) error {
	if c.rgt != nil {
		return nil
	}

	config, err := c.GetConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "initializing config")
	}

	c.rgt = resourcegroupstaggingapi.NewFromConfig(*config, func(o *resourcegroupstaggingapi.Options) {
		o.Retryer = aws.NopRetryer{}
	})

	return nil
}

// GetResources finds arbitrary AWS resources that match the input filters.
func (c *BasicTagClient) GetResources(ctx context.Context, in *resourcegroupstaggingapi.GetResourcesInput) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, errors.Wrap(err, "setting up client")
	}

	msg := awsutil.MakeAPILogMessage("GetResources", in)
	out, err := c.rgt.GetResources(ctx, in)
	if err != nil {
		grip.Debug(message.WrapError(err, msg))
		return nil, err
	}

	return out, nil
}

// Close cleans up all resources owned by the client.
func (c *BasicTagClient) Close(ctx context.Context) error {
	return c.BaseClient.Close(ctx)
}
