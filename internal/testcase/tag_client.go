package testcase

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/evergreen-ci/tlsvault"
	"github.com/evergreen-ci/tlsvault/internal/testutil"
	"github.com/evergreen-ci/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ResourceTagger tags the EC2 instance identified by the ARN in the backing
// storage of the tag client under test.
type ResourceTagger func(t *testing.T, arn string, tags map[string]string)

// TagClientTestCase represents a test case for a tlsvault.TagClient.
type TagClientTestCase func(ctx context.Context, t *testing.T, c tlsvault.TagClient, tagResource ResourceTagger)

// TagClientTests returns common test cases that a tlsvault.TagClient should
// support.
func TagClientTests() map[string]TagClientTestCase {
	checkResources := func(t *testing.T, out *resourcegroupstaggingapi.GetResourcesOutput, expected []string) {
		require.NotZero(t, out)
		require.Len(t, out.ResourceTagMappingList, len(expected), "number of results should match expected")
		for _, res := range out.ResourceTagMappingList {
			arn := utility.FromStringPtr(res.ResourceARN)
			assert.True(t, utility.StringSliceContains(expected, arn), "unexpected resource '%s' in results", arn)
		}
	}
	return map[string]TagClientTestCase{
		"GetResourcesFailsWithInvalidResourceType": func(ctx context.Context, t *testing.T, c tlsvault.TagClient, tagResource ResourceTagger) {
			out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"nonexistent"},
			})
			assert.Error(t, err)
			assert.Zero(t, out)
		},
		"GetResourcesSucceedsWithNoResults": func(ctx context.Context, t *testing.T, c tlsvault.TagClient, tagResource ResourceTagger) {
			out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"ec2:instance"},
				TagFilters: []types.TagFilter{
					{
						Key:    aws.String("nonexistent"),
						Values: []string{"nonexistent"},
					},
				},
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			assert.Empty(t, out.ResourceTagMappingList)
		},
		"GetResourcesReturnsTagsForResourceARN": func(ctx context.Context, t *testing.T, c tlsvault.TagClient, tagResource ResourceTagger) {
			arn := testutil.NewInstanceARN("us-east-1", "123456789012")
			key, val := utility.RandomString(), utility.RandomString()
			tagResource(t, arn, map[string]string{key: val})

			out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceARNList: []string{arn},
			})
			require.NoError(t, err)
			checkResources(t, out, []string{arn})

			tags := out.ResourceTagMappingList[0].Tags
			require.Len(t, tags, 1)
			assert.Equal(t, key, utility.FromStringPtr(tags[0].Key))
			assert.Equal(t, val, utility.FromStringPtr(tags[0].Value))
		},
		"GetResourcesMatchesTagKeyAndOneOfMultipleValues": func(ctx context.Context, t *testing.T, c tlsvault.TagClient, tagResource ResourceTagger) {
			arn := testutil.NewInstanceARN("us-east-1", "123456789012")
			key, val := utility.RandomString(), utility.RandomString()
			tagResource(t, arn, map[string]string{key: val})

			out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceTypeFilters: []string{"ec2:instance"},
				TagFilters: []types.TagFilter{
					{
						Key:    aws.String(key),
						Values: []string{"foo", val, "bar"},
					},
				},
			})
			require.NoError(t, err)
			checkResources(t, out, []string{arn})
		},
		"GetResourcesMatchesMultipleResources": func(ctx context.Context, t *testing.T, c tlsvault.TagClient, tagResource ResourceTagger) {
			key, val := utility.RandomString(), utility.RandomString()
			var arns []string
			for i := 0; i < 3; i++ {
				arn := testutil.NewInstanceARN("us-east-1", "123456789012")
				tagResource(t, arn, map[string]string{key: val})
				arns = append(arns, arn)
			}

			out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				TagFilters: []types.TagFilter{{Key: aws.String(key)}},
			})
			require.NoError(t, err)
			checkResources(t, out, arns)
		},
		"GetResourcesOmitsResultForAnyUnmatchedTagKey": func(ctx context.Context, t *testing.T, c tlsvault.TagClient, tagResource ResourceTagger) {
			arn := testutil.NewInstanceARN("us-east-1", "123456789012")
			key, val := utility.RandomString(), utility.RandomString()
			tagResource(t, arn, map[string]string{key: val})

			out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
				ResourceARNList: []string{arn},
				TagFilters: []types.TagFilter{
					{Key: aws.String(key), Values: []string{val}},
					{Key: aws.String("nonexistent")},
				},
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			assert.Empty(t, out.ResourceTagMappingList)
		},
		"GetResourcesPaginatesResults": func(ctx context.Context, t *testing.T, c tlsvault.TagClient, tagResource ResourceTagger) {
			key := utility.RandomString()
			var arns []string
			for i := 0; i < 3; i++ {
				arn := testutil.NewInstanceARN("us-east-1", "123456789012")
				tagResource(t, arn, map[string]string{key: utility.RandomString()})
				arns = append(arns, arn)
			}

			var found []string
			var token *string
			for pages := 0; pages < len(arns)+1; pages++ {
				out, err := c.GetResources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
					TagFilters:       []types.TagFilter{{Key: aws.String(key)}},
					ResourcesPerPage: aws.Int32(1),
					PaginationToken:  token,
				})
				require.NoError(t, err)
				require.NotZero(t, out)
				assert.LessOrEqual(t, len(out.ResourceTagMappingList), 1)
				for _, res := range out.ResourceTagMappingList {
					found = append(found, utility.FromStringPtr(res.ResourceARN))
				}
				token = out.PaginationToken
				if utility.FromStringPtr(token) == "" {
					break
				}
			}
			assert.ElementsMatch(t, arns, found)
		},
	}
}
