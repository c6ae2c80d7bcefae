package eks

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/credstore"
	"github.com/kompox/kprotect/internal/logging"
)

// Login checks the caller identity with STS. When that fails and the login is
// interactive, it asks once for an access key, verifies it and saves it to
// aws.conf for later runs.
func (d *driver) Login(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterLoginOption) (id *model.Identity, err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "Login")
	defer func() { cleanup(err) }()

	var o model.ClusterLoginOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.FromContext(ctx)

	cfg, method, err := d.awsConfig(ctx, cluster.Region)
	if err == nil {
		id, err = d.callerIdentity(ctx, cfg, method)
		if err == nil {
			return id, nil
		}
	}
	logger.Warn(ctx, "AWS credentials are not usable", "err", err)

	if !o.Interactive || d.deps.Prompter == nil {
		return nil, fmt.Errorf("aws: %w: %v", model.ErrNotLoggedIn, err)
	}
	return d.promptLogin(ctx, cluster.Region)
}

func (d *driver) callerIdentity(ctx context.Context, cfg aws.Config, method string) (*model.Identity, error) {
	if cfg.Region == "" {
		// STS has a global endpoint; any region resolves it.
		cfg.Region = "us-east-1"
	}
	out, err := d.newClients(cfg).sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("sts get-caller-identity: %w", err)
	}
	return &model.Identity{
		Provider: model.ProviderAWS,
		Account:  aws.ToString(out.Account),
		Subject:  aws.ToString(out.Arn),
		Method:   method,
	}, nil
}

func (d *driver) promptLogin(ctx context.Context, region string) (*model.Identity, error) {
	p := d.deps.Prompter
	fmt.Fprintln(p.Out, "AWS credentials are not configured. Enter an access key to continue.")
	keyID, err := p.Line("AWS Access Key ID", "")
	if err != nil {
		return nil, err
	}
	secret, err := p.Secret("AWS Secret Access Key")
	if err != nil {
		return nil, err
	}
	token, err := p.Line("AWS Session Token (optional)", "")
	if err != nil {
		return nil, err
	}
	region, err = p.Line("Default region", region)
	if err != nil {
		return nil, err
	}
	if keyID == "" || secret == "" {
		return nil, fmt.Errorf("aws: %w: access key id and secret are required", model.ErrNotLoggedIn)
	}

	opts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(keyID, secret, token)),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	id, err := d.callerIdentity(ctx, cfg, credstore.AWSCredentials)
	if err != nil {
		return nil, fmt.Errorf("aws: %w: %v", model.ErrNotLoggedIn, err)
	}
	if d.deps.Creds != nil {
		values := map[string]string{
			"AWS_ACCESS_KEY_ID":     keyID,
			"AWS_SECRET_ACCESS_KEY": secret,
			"AWS_SESSION_TOKEN":     token,
			"AWS_REGION":            region,
		}
		if err := d.deps.Creds.Save(credstore.AWSCredentials, values); err != nil {
			return nil, err
		}
		logging.FromContext(ctx).Info(ctx, "saved AWS credentials", "path", d.deps.Creds.Path(credstore.AWSCredentials))
	}
	return id, nil
}
