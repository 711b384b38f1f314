package awsutil

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// ClientOptions represent AWS client options such as authentication and making
// requests.
type ClientOptions struct {
	// Config is a preconfigured AWS config to use instead of constructing one from the
	// rest of the options. If Config is specified the rest of the options are ignored.
	Config *aws.Config
	// CredsProvider is a credentials provider, which may be used to either connect to
	// the AWS API directly, or authenticate to STS to retrieve temporary
	// credentials to access the API (if Role is specified).
	CredsProvider *aws.CredentialsProvider
	// Role is the STS role that should be used to perform authorized actions.
	// If specified, CredsProvider will be used to retrieve temporary
	// credentials from STS.
	Role *string
	// RoleSessionName identifies the session when assuming Role. Defaults to
	// a session name generated by the SDK.
	RoleSessionName *string
	// ExternalID is passed when assuming Role, for trust policies that
	// require one, such as when the secrets live in another account.
	ExternalID *string
	// Region is the geographical region where API calls should be made.
	Region *string
	// HTTPClient is the HTTP client to use to make requests.
	HTTPClient *http.Client
	// DisableTracing turns off the OpenTelemetry middleware that is otherwise
	// added to every API call.
	DisableTracing bool

	stsClient   *sts.Client
	stsProvider *stscreds.AssumeRoleProvider

	ownsHTTPClient bool
}

// NewClientOptions returns new unconfigured client options.
func NewClientOptions() *ClientOptions {
	return &ClientOptions{}
}

// SetConfig sets a preconfigured AWS config, which takes precedence over all
// other options.
func (o *ClientOptions) SetConfig(cfg aws.Config) *ClientOptions {
	o.Config = &cfg
	return o
}

// SetCredentialsProvider sets the client's credentials provider.
func (o *ClientOptions) SetCredentialsProvider(creds aws.CredentialsProvider) *ClientOptions {
	o.CredsProvider = &creds
	return o
}

// SetRole sets the client's role to assume.
func (o *ClientOptions) SetRole(role string) *ClientOptions {
	o.Role = &role
	return o
}

// SetRoleSessionName sets the session name used when assuming the role.
func (o *ClientOptions) SetRoleSessionName(name string) *ClientOptions {
	o.RoleSessionName = &name
	return o
}

// SetExternalID sets the external ID used when assuming the role.
func (o *ClientOptions) SetExternalID(id string) *ClientOptions {
	o.ExternalID = &id
	return o
}

// SetRegion sets the client's geographical region.
func (o *ClientOptions) SetRegion(region string) *ClientOptions {
	o.Region = &region
	return o
}

// SetHTTPClient sets the HTTP client to use.
func (o *ClientOptions) SetHTTPClient(hc *http.Client) *ClientOptions {
	o.HTTPClient = hc
	return o
}

// SetDisableTracing sets whether API calls should be traced.
func (o *ClientOptions) SetDisableTracing(disable bool) *ClientOptions {
	o.DisableTracing = disable
	return o
}

// Validate checks that all required fields are given and sets defaults for
// unspecified options.
func (o *ClientOptions) Validate() error {
	if o.Config != nil {
		return nil
	}

	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(o.Region == nil, "must provide geographical region")
	catcher.NewWhen(o.Role == nil && o.RoleSessionName != nil, "cannot specify a role session name without a role")
	catcher.NewWhen(o.Role == nil && o.ExternalID != nil, "cannot specify an external ID without a role")
	catcher.NewWhen(o.RoleSessionName != nil && *o.RoleSessionName == "", "role session name cannot be empty")

	if catcher.HasErrors() {
		return catcher.Resolve()
	}

	if o.HTTPClient == nil {
		o.HTTPClient = utility.GetHTTPClient()
		o.ownsHTTPClient = true
	}

	return nil
}

// GetCredentialsProvider retrieves the appropriate credentials provider to use
// for the client. If neither explicit credentials nor a role are given, it
// returns nil so that the default credentials chain (e.g. the instance
// profile) is used.
func (o *ClientOptions) GetCredentialsProvider(ctx context.Context) (aws.CredentialsProvider, error) {
	if o.Role == nil {
		if o.CredsProvider == nil {
			return nil, nil
		}
		return *o.CredsProvider, nil
	}

	if o.stsProvider != nil {
		return o.stsProvider, nil
	}

	if o.stsClient == nil {
		loadOpts := []func(*config.LoadOptions) error{
			config.WithRegion(*o.Region),
			config.WithHTTPClient(o.HTTPClient),
		}
		if o.CredsProvider != nil {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(*o.CredsProvider))
		}
		stsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "creating STS config")
		}

		o.stsClient = sts.NewFromConfig(stsConfig)
	}

	o.stsProvider = stscreds.NewAssumeRoleProvider(o.stsClient, *o.Role, func(aro *stscreds.AssumeRoleOptions) {
		if o.RoleSessionName != nil {
			aro.RoleSessionName = *o.RoleSessionName
		}
		aro.ExternalID = o.ExternalID
	})

	return o.stsProvider, nil
}

// GetConfig gets the authenticated config to perform authorized API actions.
func (o *ClientOptions) GetConfig(ctx context.Context) (*aws.Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}

	creds, err := o.GetCredentialsProvider(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting credentials")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(*o.Region),
		config.WithHTTPClient(o.HTTPClient),
	}
	if creds != nil {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(creds))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating config")
	}

	if !o.DisableTracing {
		otelaws.AppendMiddlewares(&cfg.APIOptions)
	}

	o.Config = &cfg

	return o.Config, nil
}

// Close cleans up the HTTP client if it is owned by this client.
func (o *ClientOptions) Close() {
	if o.ownsHTTPClient {
		utility.PutHTTPClient(o.HTTPClient)
		o.ownsHTTPClient = false
	}
}
