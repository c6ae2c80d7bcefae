// Package eks implements the AWS provider driver on Amazon EKS.
package eks

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseks "github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	providerdrv "github.com/kompox/kprotect/adapters/drivers/provider"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/awsauth"
)

// eksAPI is the subset of EKS API operations used by the driver.
// It also satisfies the Describe*APIClient interfaces of the SDK waiters.
type eksAPI interface {
	CreateCluster(ctx context.Context, in *awseks.CreateClusterInput, opts ...func(*awseks.Options)) (*awseks.CreateClusterOutput, error)
	DescribeCluster(ctx context.Context, in *awseks.DescribeClusterInput, opts ...func(*awseks.Options)) (*awseks.DescribeClusterOutput, error)
	DeleteCluster(ctx context.Context, in *awseks.DeleteClusterInput, opts ...func(*awseks.Options)) (*awseks.DeleteClusterOutput, error)

	CreateNodegroup(ctx context.Context, in *awseks.CreateNodegroupInput, opts ...func(*awseks.Options)) (*awseks.CreateNodegroupOutput, error)
	DescribeNodegroup(ctx context.Context, in *awseks.DescribeNodegroupInput, opts ...func(*awseks.Options)) (*awseks.DescribeNodegroupOutput, error)
	ListNodegroups(ctx context.Context, in *awseks.ListNodegroupsInput, opts ...func(*awseks.Options)) (*awseks.ListNodegroupsOutput, error)
	DeleteNodegroup(ctx context.Context, in *awseks.DeleteNodegroupInput, opts ...func(*awseks.Options)) (*awseks.DeleteNodegroupOutput, error)

	CreateFargateProfile(ctx context.Context, in *awseks.CreateFargateProfileInput, opts ...func(*awseks.Options)) (*awseks.CreateFargateProfileOutput, error)
	DescribeFargateProfile(ctx context.Context, in *awseks.DescribeFargateProfileInput, opts ...func(*awseks.Options)) (*awseks.DescribeFargateProfileOutput, error)
	ListFargateProfiles(ctx context.Context, in *awseks.ListFargateProfilesInput, opts ...func(*awseks.Options)) (*awseks.ListFargateProfilesOutput, error)
	DeleteFargateProfile(ctx context.Context, in *awseks.DeleteFargateProfileInput, opts ...func(*awseks.Options)) (*awseks.DeleteFargateProfileOutput, error)
}

// stsAPI is the subset of STS operations used by the login check.
type stsAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, opts ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type clients struct {
	eks eksAPI
	sts stsAPI
}

// driver implements the EKS provider driver.
type driver struct {
	settings map[string]string
	deps     *providerdrv.Deps

	// newClients builds API clients from an AWS config; tests replace it.
	newClients func(cfg aws.Config) *clients
}

// ID returns the provider identifier.
func (d *driver) ID() string { return string(model.ProviderAWS) }

// init registers the EKS driver.
func init() {
	providerdrv.Register(string(model.ProviderAWS), func(settings map[string]string, deps *providerdrv.Deps) (providerdrv.Driver, error) {
		return newDriver(settings, deps), nil
	})
}

func newDriver(settings map[string]string, deps *providerdrv.Deps) *driver {
	if deps == nil {
		deps = &providerdrv.Deps{}
	}
	return &driver{
		settings: settings,
		deps:     deps,
		newClients: func(cfg aws.Config) *clients {
			return &clients{eks: awseks.NewFromConfig(cfg), sts: sts.NewFromConfig(cfg)}
		},
	}
}

// credentialSource returns the credential precedence shared with the ECR client.
func (d *driver) credentialSource() awsauth.Source {
	return awsauth.Source{
		Profile: providerdrv.Setting(d.settings, model.SettingAWSProfile),
		Store:   d.deps.Creds,
	}
}

// awsConfig loads the SDK configuration from the credential source.
func (d *driver) awsConfig(ctx context.Context, region string) (aws.Config, string, error) {
	return d.credentialSource().Load(ctx, region)
}

func (d *driver) clients(ctx context.Context, cluster *model.Cluster) (*clients, aws.Config, error) {
	cfg, _, err := d.awsConfig(ctx, cluster.Region)
	if err != nil {
		return nil, aws.Config{}, err
	}
	if cfg.Region == "" {
		return nil, aws.Config{}, fmt.Errorf("%w: AWS region is required", model.ErrInvalidOptions)
	}
	return d.newClients(cfg), cfg, nil
}
