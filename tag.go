package tlsvault

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
)

// TagClient provides a common interface to interact with a client backed by the
// AWS Resource Groups Tagging API.
type TagClient interface {
	// GetResources lists arbitrary AWS resources matching the input.
	GetResources(ctx context.Context, in *resourcegroupstaggingapi.GetResourcesInput) (*resourcegroupstaggingapi.GetResourcesOutput, error)
	// Close closes the client and cleans up its resources. Implementations
	// should ensure that this is idempotent.
	Close(ctx context.Context) error
}

// InstanceMetadataClient provides a common interface to interact with the EC2
// instance metadata service. It is satisfied by *imds.Client.
type InstanceMetadataClient interface {
	// GetInstanceIdentityDocument returns the identity document of the
	// instance, which includes its ID, account and region.
	GetInstanceIdentityDocument(ctx context.Context, in *imds.GetInstanceIdentityDocumentInput, optFns ...func(*imds.Options)) (*imds.GetInstanceIdentityDocumentOutput, error)
}
