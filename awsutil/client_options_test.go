package awsutil

import (
	"context"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientOptions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("SetCredentialsProvider", func(t *testing.T) {
		creds := credentials.NewStaticCredentialsProvider("id", "secret", "")
		opts := NewClientOptions().SetCredentialsProvider(creds)
		require.NotNil(t, opts.CredsProvider)
		assert.Equal(t, creds, *opts.CredsProvider)
	})
	t.Run("SetRole", func(t *testing.T) {
		role := "role"
		opts := NewClientOptions().SetRole(role)
		require.NotNil(t, opts.Role)
		assert.Equal(t, role, *opts.Role)
	})
	t.Run("SetRoleSessionName", func(t *testing.T) {
		opts := NewClientOptions().SetRoleSessionName("session")
		require.NotNil(t, opts.RoleSessionName)
		assert.Equal(t, "session", *opts.RoleSessionName)
	})
	t.Run("SetExternalID", func(t *testing.T) {
		opts := NewClientOptions().SetExternalID("external")
		require.NotNil(t, opts.ExternalID)
		assert.Equal(t, "external", *opts.ExternalID)
	})
	t.Run("SetRegion", func(t *testing.T) {
		region := "region"
		opts := NewClientOptions().SetRegion(region)
		require.NotNil(t, opts.Region)
		assert.Equal(t, region, *opts.Region)
	})
	t.Run("SetHTTPClient", func(t *testing.T) {
		hc := http.DefaultClient
		opts := NewClientOptions().SetHTTPClient(hc)
		require.NotNil(t, opts.HTTPClient)
		assert.Equal(t, hc, opts.HTTPClient)
		assert.False(t, opts.ownsHTTPClient)
	})
	t.Run("SetDisableTracing", func(t *testing.T) {
		opts := NewClientOptions().SetDisableTracing(true)
		assert.True(t, opts.DisableTracing)
	})
	t.Run("SetConfig", func(t *testing.T) {
		cfg := aws.Config{Region: "us-west-2"}
		opts := NewClientOptions().SetConfig(cfg)
		require.NotNil(t, opts.Config)
		assert.Equal(t, "us-west-2", opts.Config.Region)
	})
	t.Run("Validate", func(t *testing.T) {
		t.Run("SucceedsWithAllOptionsSet", func(t *testing.T) {
			creds := credentials.NewStaticCredentialsProvider("id", "secret", "")
			hc := http.DefaultClient
			opts := NewClientOptions().
				SetCredentialsProvider(creds).
				SetRole("role").
				SetRegion("region").
				SetHTTPClient(hc)

			require.NoError(t, opts.Validate())

			assert.Equal(t, creds, *opts.CredsProvider)
			assert.Equal(t, "region", *opts.Region)
			assert.Equal(t, "role", *opts.Role)
			assert.Equal(t, hc, opts.HTTPClient)
			assert.False(t, opts.ownsHTTPClient)
		})
		t.Run("SucceedsWithOnlyRegion", func(t *testing.T) {
			opts := NewClientOptions().
				SetRegion("region").
				SetHTTPClient(http.DefaultClient)
			assert.NoError(t, opts.Validate())
		})
		t.Run("FailsWithoutRegion", func(t *testing.T) {
			opts := NewClientOptions().
				SetCredentialsProvider(credentials.NewStaticCredentialsProvider("id", "secret", "")).
				SetRole("role").
				SetHTTPClient(http.DefaultClient)
			assert.Error(t, opts.Validate())
		})
		t.Run("SucceedsWithRoleSessionOptions", func(t *testing.T) {
			opts := NewClientOptions().
				SetRegion("region").
				SetRole("role").
				SetRoleSessionName("session").
				SetExternalID("external").
				SetHTTPClient(http.DefaultClient)
			assert.NoError(t, opts.Validate())
		})
		t.Run("FailsWithRoleSessionNameButNoRole", func(t *testing.T) {
			opts := NewClientOptions().
				SetRegion("region").
				SetRoleSessionName("session").
				SetHTTPClient(http.DefaultClient)
			assert.Error(t, opts.Validate())
		})
		t.Run("FailsWithExternalIDButNoRole", func(t *testing.T) {
			opts := NewClientOptions().
				SetRegion("region").
				SetExternalID("external").
				SetHTTPClient(http.DefaultClient)
			assert.Error(t, opts.Validate())
		})
		t.Run("FailsWithEmptyRoleSessionName", func(t *testing.T) {
			opts := NewClientOptions().
				SetRegion("region").
				SetRole("role").
				SetRoleSessionName("").
				SetHTTPClient(http.DefaultClient)
			assert.Error(t, opts.Validate())
		})
		t.Run("SucceedsWithConfigAndNoOtherOptions", func(t *testing.T) {
			opts := NewClientOptions().SetConfig(aws.Config{})
			assert.NoError(t, opts.Validate())
			assert.Nil(t, opts.HTTPClient)
		})
		t.Run("DefaultsHTTPClient", func(t *testing.T) {
			opts := NewClientOptions().SetRegion("region")

			require.NoError(t, opts.Validate())
			defer opts.Close()

			assert.NotZero(t, opts.HTTPClient)
			assert.True(t, opts.ownsHTTPClient)
		})
	})
	t.Run("GetCredentialsProvider", func(t *testing.T) {
		t.Run("ReturnsNilWithoutCredentialsOrRole", func(t *testing.T) {
			opts := NewClientOptions().SetRegion("region")
			creds, err := opts.GetCredentialsProvider(ctx)
			assert.NoError(t, err)
			assert.Nil(t, creds)
		})
		t.Run("ReturnsExplicitCredentialsWithoutRole", func(t *testing.T) {
			static := credentials.NewStaticCredentialsProvider("id", "secret", "")
			opts := NewClientOptions().
				SetRegion("region").
				SetCredentialsProvider(static)
			creds, err := opts.GetCredentialsProvider(ctx)
			require.NoError(t, err)
			assert.Equal(t, static, creds)
		})
		t.Run("ReturnsAssumeRoleProviderWithRole", func(t *testing.T) {
			opts := NewClientOptions().
				SetRegion("us-east-1").
				SetRole("arn:aws:iam::123456789012:role/tlsvault").
				SetCredentialsProvider(credentials.NewStaticCredentialsProvider("id", "secret", "")).
				SetHTTPClient(http.DefaultClient)
			creds, err := opts.GetCredentialsProvider(ctx)
			require.NoError(t, err)
			require.NotNil(t, creds)

			cached, err := opts.GetCredentialsProvider(ctx)
			require.NoError(t, err)
			assert.Equal(t, creds, cached)
		})
		t.Run("ReturnsAssumeRoleProviderWithSessionOptions", func(t *testing.T) {
			opts := NewClientOptions().
				SetRegion("us-east-1").
				SetRole("arn:aws:iam::123456789012:role/tlsvault").
				SetRoleSessionName("tlsvault-session").
				SetExternalID("external").
				SetCredentialsProvider(credentials.NewStaticCredentialsProvider("id", "secret", "")).
				SetHTTPClient(http.DefaultClient)
			creds, err := opts.GetCredentialsProvider(ctx)
			require.NoError(t, err)
			assert.NotNil(t, creds)
			assert.True(t, creds == opts.stsProvider)
		})
	})
	t.Run("GetConfig", func(t *testing.T) {
		t.Run("ReturnsPreconfiguredConfig", func(t *testing.T) {
			opts := NewClientOptions().SetConfig(aws.Config{Region: "eu-west-1"})
			cfg, err := opts.GetConfig(ctx)
			require.NoError(t, err)
			assert.Equal(t, "eu-west-1", cfg.Region)
		})
		t.Run("BuildsConfigFromOptions", func(t *testing.T) {
			opts := NewClientOptions().
				SetRegion("us-east-1").
				SetCredentialsProvider(credentials.NewStaticCredentialsProvider("id", "secret", "")).
				SetHTTPClient(http.DefaultClient)
			cfg, err := opts.GetConfig(ctx)
			require.NoError(t, err)
			assert.Equal(t, "us-east-1", cfg.Region)
			assert.NotEmpty(t, cfg.APIOptions)

			cached, err := opts.GetConfig(ctx)
			require.NoError(t, err)
			assert.Equal(t, cfg, cached)
		})
		t.Run("SkipsTracingMiddlewareWhenDisabled", func(t *testing.T) {
			newOpts := func() *ClientOptions {
				return NewClientOptions().
					SetRegion("us-east-1").
					SetCredentialsProvider(credentials.NewStaticCredentialsProvider("id", "secret", "")).
					SetHTTPClient(http.DefaultClient)
			}
			traced, err := newOpts().GetConfig(ctx)
			require.NoError(t, err)
			untraced, err := newOpts().SetDisableTracing(true).GetConfig(ctx)
			require.NoError(t, err)
			assert.Less(t, len(untraced.APIOptions), len(traced.APIOptions))
		})
	})
}

func TestBaseClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("GetConfigFailsWithInvalidOptions", func(t *testing.T) {
		c := NewBaseClient(*NewClientOptions())
		cfg, err := c.GetConfig(ctx)
		assert.Error(t, err)
		assert.Zero(t, cfg)
	})
	t.Run("GetConfigSucceedsAndCaches", func(t *testing.T) {
		c := NewBaseClient(*NewClientOptions().
			SetRegion("us-east-1").
			SetCredentialsProvider(credentials.NewStaticCredentialsProvider("id", "secret", "")))
		defer func() {
			assert.NoError(t, c.Close(ctx))
		}()

		cfg, err := c.GetConfig(ctx)
		require.NoError(t, err)
		require.NotZero(t, cfg)

		cached, err := c.GetConfig(ctx)
		require.NoError(t, err)
		assert.True(t, cfg == cached)
	})
}
