package mock

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/evergreen-ci/utility"
)

// taggedResource represents an arbitrary AWS resource with its tags.
type taggedResource struct {
	ARN  string
	Tags map[string]string
}

func exportTagMapping(res taggedResource) types.ResourceTagMapping {
	return types.ResourceTagMapping{
		ResourceARN: utility.ToStringPtr(res.ARN),
		Tags:        exportResourceTags(res.Tags),
	}
}

func exportResourceTags(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exported := make([]types.Tag, 0, len(tags))
	for _, k := range keys {
		exported = append(exported, types.Tag{
			Key:   utility.ToStringPtr(k),
			Value: utility.ToStringPtr(tags[k]),
		})
	}
	return exported
}

var (
	// GlobalTaggedResources is a global store of tagged AWS resources other
	// than secrets (e.g. EC2 instances), keyed by ARN. Secrets are tagged
	// through the GlobalSecretCache instead.
	GlobalTaggedResources map[string]map[string]string

	globalTaggedResourcesMu sync.RWMutex
)

func init() {
	ResetGlobalTaggedResources()
}

// ResetGlobalTaggedResources resets the global fake tagged resources to an
// initialized but clean state.
func ResetGlobalTaggedResources() {
	globalTaggedResourcesMu.Lock()
	defer globalTaggedResourcesMu.Unlock()

	GlobalTaggedResources = map[string]map[string]string{}
}

// TagResource sets the tags on the resource identified by the ARN in the global
// tagged resources, merging them with any existing tags.
func TagResource(arn string, tags map[string]string) {
	globalTaggedResourcesMu.Lock()
	defer globalTaggedResourcesMu.Unlock()

	existing, ok := GlobalTaggedResources[arn]
	if !ok {
		existing = map[string]string{}
	}
	for k, v := range tags {
		existing[k] = v
	}
	GlobalTaggedResources[arn] = existing
}

// TagClient provides a mock implementation of a tlsvault.TagClient. This makes
// it possible to introspect on inputs to the client and control the client's
// output. It provides some default implementations where possible. By default,
// it will search the fake GlobalTaggedResources and GlobalSecretCache.
type TagClient struct {
	mu sync.Mutex

	GetResourcesInput  *resourcegroupstaggingapi.GetResourcesInput
	GetResourcesOutput *resourcegroupstaggingapi.GetResourcesOutput
	GetResourcesError  error
	// GetResourcesErrors are returned in order, one per call, before falling
	// back to the default behavior.
	GetResourcesErrors []error
	GetResourcesCalls  int

	CloseError error
}

// serviceToResourceType maps a service filter to the resource types that it
// matches.
var serviceToResourceType = map[string]string{
	"ec2":            "ec2:instance",
	"secretsmanager": "secretsmanager:secret",
}

// GetResources saves the input and filters for the resources matching the
// input filters. The mock output can be customized. By default, it will search
// for matching resources in the global tagged resources and secret cache,
// returning them in ARN order and paginating them if a page size is given.
func (c *TagClient) GetResources(ctx context.Context, in *resourcegroupstaggingapi.GetResourcesInput) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GetResourcesInput = in
	c.GetResourcesCalls++

	if len(c.GetResourcesErrors) != 0 {
		err := c.GetResourcesErrors[0]
		c.GetResourcesErrors = c.GetResourcesErrors[1:]
		if err != nil {
			return nil, err
		}
	}

	if c.GetResourcesOutput != nil || c.GetResourcesError != nil {
		return c.GetResourcesOutput, c.GetResourcesError
	}

	resourceTypes := map[string]bool{}
	for _, filter := range in.ResourceTypeFilters {
		resourceType := filter
		if !strings.Contains(filter, ":") {
			var ok bool
			resourceType, ok = serviceToResourceType[filter]
			if !ok {
				return nil, &types.InvalidParameterException{Message: aws.String("unsupported service")}
			}
		}
		resourceTypes[resourceType] = true
	}
	for _, f := range in.TagFilters {
		if utility.FromStringPtr(f.Key) == "" {
			return nil, &types.InvalidParameterException{Message: aws.String("tag filter key cannot be empty")}
		}
	}

	var candidates []taggedResource
	for _, res := range c.allResources() {
		if len(resourceTypes) != 0 && !resourceTypes[resourceTypeOf(res.ARN)] {
			continue
		}
		if len(in.ResourceARNList) != 0 && !utility.StringSliceContains(in.ResourceARNList, res.ARN) {
			continue
		}
		if !c.matchesAllTagFilters(res, in.TagFilters) {
			continue
		}
		candidates = append(candidates, res)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ARN < candidates[j].ARN
	})

	start := 0
	if token := utility.FromStringPtr(in.PaginationToken); token != "" {
		var err error
		start, err = strconv.Atoi(token)
		if err != nil || start < 0 || start > len(candidates) {
			return nil, &types.PaginationTokenExpiredException{Message: aws.String("invalid pagination token")}
		}
	}
	end := len(candidates)
	if pageSize := int(aws.ToInt32(in.ResourcesPerPage)); pageSize > 0 && start+pageSize < end {
		end = start + pageSize
	}

	out := &resourcegroupstaggingapi.GetResourcesOutput{
		ResourceTagMappingList: []types.ResourceTagMapping{},
	}
	for _, res := range candidates[start:end] {
		out.ResourceTagMappingList = append(out.ResourceTagMappingList, exportTagMapping(res))
	}
	if end < len(candidates) {
		out.PaginationToken = aws.String(strconv.Itoa(end))
	}

	return out, nil
}

func (c *TagClient) allResources() []taggedResource {
	var all []taggedResource

	globalTaggedResourcesMu.RLock()
	for arn, tags := range GlobalTaggedResources {
		all = append(all, taggedResource{ARN: arn, Tags: tags})
	}
	globalTaggedResourcesMu.RUnlock()

	globalSecretCacheMu.RLock()
	for _, s := range GlobalSecretCache {
		if s.IsDeleted {
			continue
		}
		all = append(all, taggedResource{ARN: s.Name, Tags: s.Tags})
	}
	globalSecretCacheMu.RUnlock()

	return all
}

// matchesAllTagFilters returns whether the resource has every filtered tag key
// and, for filters with values, one of the filtered values.
func (c *TagClient) matchesAllTagFilters(res taggedResource, filters []types.TagFilter) bool {
	for _, f := range filters {
		v, ok := res.Tags[utility.FromStringPtr(f.Key)]
		if !ok {
			return false
		}
		if len(f.Values) != 0 && !utility.StringSliceContains(f.Values, v) {
			return false
		}
	}
	return true
}

// resourceTypeOf returns the resource type of the ARN. Anything that is not an
// ARN is assumed to be a secret, since mock secret ARNs are their names.
func resourceTypeOf(arn string) string {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) < 6 || parts[0] != "arn" {
		return "secretsmanager:secret"
	}
	resource := parts[5]
	if i := strings.IndexAny(resource, "/:"); i >= 0 {
		resource = resource[:i]
	}
	return parts[2] + ":" + resource
}

// Close closes the mock client. The mock output can be customized. By default,
// it is a no-op that returns no error.
func (c *TagClient) Close(ctx context.Context) error {
	if c.CloseError != nil {
		return c.CloseError
	}

	return nil
}
