package mock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/evergreen-ci/tlsvault/internal/testcase"
	"github.com/evergreen-ci/tlsvault/internal/testutil"
	"github.com/evergreen-ci/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &TagClient{}
	defer func() {
		ResetGlobalTaggedResources()
		ResetGlobalSecretCache()

		assert.NoError(t, c.Close(ctx))
	}()

	tagResource := func(t *testing.T, arn string, tags map[string]string) {
		TagResource(arn, tags)
	}

	for tName, tCase := range testcase.TagClientTests() {
		t.Run(tName, func(t *testing.T) {
			tctx, tcancel := context.WithTimeout(ctx, defaultTestTimeout)
			defer tcancel()

			ResetGlobalTaggedResources()

			tCase(tctx, t, c, tagResource)
		})
	}

	t.Run("GetResourcesFiltersByResourceType", func(t *testing.T) {
		ResetGlobalTaggedResources()
		ResetGlobalSecretCache()

		key := utility.RandomString()
		secretName := testutil.NewSecretName(t)
		StoreSecret(StoredSecret{Name: secretName, Value: "foo", Tags: map[string]string{key: "val"}})
		instanceARN := testutil.NewInstanceARN("us-east-1", "123456789012")
		TagResource(instanceARN, map[string]string{key: "val"})

		out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
			ResourceTypeFilters: []string{"secretsmanager"},
			TagFilters:          []types.TagFilter{{Key: aws.String(key)}},
		})
		require.NoError(t, err)
		require.Len(t, out.ResourceTagMappingList, 1)
		assert.Equal(t, secretName, utility.FromStringPtr(out.ResourceTagMappingList[0].ResourceARN))

		out, err = c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
			ResourceTypeFilters: []string{"ec2:instance"},
			TagFilters:          []types.TagFilter{{Key: aws.String(key)}},
		})
		require.NoError(t, err)
		require.Len(t, out.ResourceTagMappingList, 1)
		assert.Equal(t, instanceARN, utility.FromStringPtr(out.ResourceTagMappingList[0].ResourceARN))
	})
	t.Run("GetResourcesFailsWithEmptyTagKey", func(t *testing.T) {
		out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
			TagFilters: []types.TagFilter{{Values: []string{"val"}}},
		})
		assert.Error(t, err)
		assert.Zero(t, out)
	})
	t.Run("GetResourcesFailsWithInvalidPaginationToken", func(t *testing.T) {
		out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
			PaginationToken: aws.String("not-a-token"),
		})
		assert.Error(t, err)
		assert.Zero(t, out)
	})
}

func TestResourceTypeOf(t *testing.T) {
	assert.Equal(t, "ec2:instance", resourceTypeOf("arn:aws:ec2:us-east-1:123456789012:instance/i-abc"))
	assert.Equal(t, "secretsmanager:secret", resourceTypeOf("arn:aws:secretsmanager:us-east-1:123456789012:secret:name-abc"))
	assert.Equal(t, "secretsmanager:secret", resourceTypeOf("tlsvault/some/secret"))
}
