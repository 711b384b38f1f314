package mock

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
)

// Default identity of the mock EC2 instance.
const (
	DefaultInstanceID = "i-0123456789abcdef0"
	DefaultAccountID  = "123456789012"
	DefaultRegion     = "us-east-1"
)

// DefaultInstanceARN is the ARN of the mock EC2 instance with the default
// identity.
const DefaultInstanceARN = "arn:aws:ec2:" + DefaultRegion + ":" + DefaultAccountID + ":instance/" + DefaultInstanceID

// InstanceMetadataClient provides a mock implementation of a
// tlsvault.InstanceMetadataClient. By default, it describes an instance with
// the default instance ID, account and region.
type InstanceMetadataClient struct {
	mu sync.Mutex

	InstanceID string
	AccountID  string
	Region     string

	GetInstanceIdentityDocumentOutput *imds.GetInstanceIdentityDocumentOutput
	GetInstanceIdentityDocumentError  error
	GetInstanceIdentityDocumentCalls  int
}

// GetInstanceIdentityDocument returns the mock instance's identity document.
// The mock output can be customized.
func (c *InstanceMetadataClient) GetInstanceIdentityDocument(ctx context.Context, in *imds.GetInstanceIdentityDocumentInput, optFns ...func(*imds.Options)) (*imds.GetInstanceIdentityDocumentOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GetInstanceIdentityDocumentCalls++

	if c.GetInstanceIdentityDocumentOutput != nil || c.GetInstanceIdentityDocumentError != nil {
		return c.GetInstanceIdentityDocumentOutput, c.GetInstanceIdentityDocumentError
	}

	doc := imds.InstanceIdentityDocument{
		InstanceID: DefaultInstanceID,
		AccountID:  DefaultAccountID,
		Region:     DefaultRegion,
	}
	if c.InstanceID != "" {
		doc.InstanceID = c.InstanceID
	}
	if c.AccountID != "" {
		doc.AccountID = c.AccountID
	}
	if c.Region != "" {
		doc.Region = c.Region
	}

	return &imds.GetInstanceIdentityDocumentOutput{InstanceIdentityDocument: doc}, nil
}
