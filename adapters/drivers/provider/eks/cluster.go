package eks

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseks "github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	providerdrv "github.com/kompox/kprotect/adapters/drivers/provider"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/kubeconfig"
	"github.com/kompox/kprotect/internal/logging"
	"github.com/kompox/kprotect/internal/naming"
)

const (
	defaultNodeSize  = "t3.large"
	defaultNodeCount = 2
	amiType          = "AL2023_x86_64_STANDARD"

	clusterWait = 30 * time.Minute
	computeWait = 20 * time.Minute
)

// defaultFargateNamespaces are the namespaces scheduled on Fargate when none are configured.
var defaultFargateNamespaces = []string{"default", "kube-system", "falcon-system"}

var managedByTag = map[string]string{"managed-by": "kprotect"}

func isNotFound(err error) bool {
	var nf *ekstypes.ResourceNotFoundException
	return errors.As(err, &nf)
}

// ClusterValidate requires the IAM roles and subnets EKS cannot default.
func (d *driver) ClusterValidate(_ context.Context, cluster *model.Cluster) error {
	required := []string{model.SettingAWSClusterRoleARN, model.SettingAWSSubnetIDs}
	if cluster.Type == model.ClusterTypeEKSFargate {
		required = append(required, model.SettingAWSPodExecutionRoleARN)
	} else {
		required = append(required, model.SettingAWSNodeRoleARN)
	}
	if err := providerdrv.RequireSettings(cluster, required...); err != nil {
		return err
	}
	_, err := providerdrv.NodeCount(cluster, defaultNodeCount)
	return err
}

// ClusterProvision creates the control plane and then a managed node group or
// a Fargate profile, depending on the cluster type.
func (d *driver) ClusterProvision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterProvisionOption) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 45*time.Minute)
	defer cancel()
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterProvision")
	defer func() { cleanup(err) }()

	var o model.ClusterProvisionOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.FromContext(ctx)

	if err := d.ClusterValidate(ctx, cluster); err != nil {
		return err
	}
	nodeCount, err := providerdrv.NodeCount(cluster, defaultNodeCount)
	if err != nil {
		return err
	}

	c, _, err := d.clients(ctx, cluster)
	if err != nil {
		return err
	}
	subnets := providerdrv.SplitList(cluster.Setting(model.SettingAWSSubnetIDs))

	_, err = c.eks.DescribeCluster(ctx, &awseks.DescribeClusterInput{Name: aws.String(cluster.Name)})
	switch {
	case err == nil:
		if !o.Force {
			return fmt.Errorf("EKS cluster %s in %s: %w", cluster.Name, cluster.Region, model.ErrClusterExists)
		}
		logger.Info(ctx, "adopting existing EKS cluster", "cluster", cluster.Name)
	case isNotFound(err):
		in := &awseks.CreateClusterInput{
			Name:    aws.String(cluster.Name),
			RoleArn: aws.String(cluster.Setting(model.SettingAWSClusterRoleARN)),
			ResourcesVpcConfig: &ekstypes.VpcConfigRequest{
				SubnetIds:             subnets,
				SecurityGroupIds:      providerdrv.SplitList(cluster.Setting(model.SettingAWSSecurityGroupIDs)),
				EndpointPublicAccess:  aws.Bool(true),
				EndpointPrivateAccess: aws.Bool(true),
			},
			AccessConfig: &ekstypes.CreateAccessConfigRequest{
				AuthenticationMode:                      ekstypes.AuthenticationModeApiAndConfigMap,
				BootstrapClusterCreatorAdminPermissions: aws.Bool(true),
			},
			Tags: managedByTag,
		}
		if v := cluster.Setting(model.SettingKubernetesVersion); v != "" {
			in.Version = aws.String(v)
		}
		if _, err := c.eks.CreateCluster(ctx, in); err != nil {
			return fmt.Errorf("create EKS cluster %s: %w", cluster.Name, err)
		}
		logger.Info(ctx, "EKS cluster creation started", "cluster", cluster.Name)
	default:
		return fmt.Errorf("describe EKS cluster %s: %w", cluster.Name, err)
	}

	if err := awseks.NewClusterActiveWaiter(c.eks).Wait(ctx, &awseks.DescribeClusterInput{Name: aws.String(cluster.Name)}, clusterWait); err != nil {
		return fmt.Errorf("wait for EKS cluster %s: %w", cluster.Name, err)
	}

	if cluster.Type == model.ClusterTypeEKSFargate {
		return d.ensureFargateProfile(ctx, c.eks, cluster, subnets)
	}
	return d.ensureNodegroup(ctx, c.eks, cluster, subnets, nodeCount)
}

func (d *driver) ensureNodegroup(ctx context.Context, api eksAPI, cluster *model.Cluster, subnets []string, nodeCount int) error {
	name := naming.NodegroupName(cluster.Name)
	_, err := api.DescribeNodegroup(ctx, &awseks.DescribeNodegroupInput{ClusterName: aws.String(cluster.Name), NodegroupName: aws.String(name)})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("describe nodegroup %s: %w", name, err)
	}
	if isNotFound(err) {
		in := &awseks.CreateNodegroupInput{
			ClusterName:   aws.String(cluster.Name),
			NodegroupName: aws.String(name),
			NodeRole:      aws.String(cluster.Setting(model.SettingAWSNodeRoleARN)),
			Subnets:       subnets,
			InstanceTypes: []string{cluster.SettingOr(model.SettingNodeSize, defaultNodeSize)},
			AmiType:       ekstypes.AMITypes(amiType),
			CapacityType:  ekstypes.CapacityTypesOnDemand,
			ScalingConfig: &ekstypes.NodegroupScalingConfig{
				MinSize:     aws.Int32(1),
				MaxSize:     aws.Int32(int32(nodeCount)),
				DesiredSize: aws.Int32(int32(nodeCount)),
			},
			Labels: map[string]string{"kprotect.io/cluster-type": string(cluster.Type)},
			Tags:   managedByTag,
		}
		if _, err := api.CreateNodegroup(ctx, in); err != nil {
			return fmt.Errorf("create nodegroup %s: %w", name, err)
		}
		logging.FromContext(ctx).Info(ctx, "nodegroup creation started", "nodegroup", name, "nodes", nodeCount)
	}
	in := &awseks.DescribeNodegroupInput{ClusterName: aws.String(cluster.Name), NodegroupName: aws.String(name)}
	if err := awseks.NewNodegroupActiveWaiter(api).Wait(ctx, in, computeWait); err != nil {
		return fmt.Errorf("wait for nodegroup %s: %w", name, err)
	}
	return nil
}

func (d *driver) ensureFargateProfile(ctx context.Context, api eksAPI, cluster *model.Cluster, subnets []string) error {
	name := naming.FargateProfileName(cluster.Name)
	_, err := api.DescribeFargateProfile(ctx, &awseks.DescribeFargateProfileInput{ClusterName: aws.String(cluster.Name), FargateProfileName: aws.String(name)})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("describe fargate profile %s: %w", name, err)
	}
	if isNotFound(err) {
		namespaces := providerdrv.SplitList(cluster.Setting(model.SettingAWSFargateNamespaces))
		if len(namespaces) == 0 {
			namespaces = defaultFargateNamespaces
		}
		selectors := make([]ekstypes.FargateProfileSelector, 0, len(namespaces))
		for _, ns := range namespaces {
			selectors = append(selectors, ekstypes.FargateProfileSelector{Namespace: aws.String(ns)})
		}
		in := &awseks.CreateFargateProfileInput{
			ClusterName:         aws.String(cluster.Name),
			FargateProfileName:  aws.String(name),
			PodExecutionRoleArn: aws.String(cluster.Setting(model.SettingAWSPodExecutionRoleARN)),
			Subnets:             subnets,
			Selectors:           selectors,
			Tags:                managedByTag,
		}
		if _, err := api.CreateFargateProfile(ctx, in); err != nil {
			return fmt.Errorf("create fargate profile %s: %w", name, err)
		}
		logging.FromContext(ctx).Info(ctx, "fargate profile creation started", "profile", name, "namespaces", namespaces)
	}
	in := &awseks.DescribeFargateProfileInput{ClusterName: aws.String(cluster.Name), FargateProfileName: aws.String(name)}
	if err := awseks.NewFargateProfileActiveWaiter(api).Wait(ctx, in, computeWait); err != nil {
		return fmt.Errorf("wait for fargate profile %s: %w", name, err)
	}
	return nil
}

// ClusterDeprovision deletes node groups and Fargate profiles, then the cluster.
func (d *driver) ClusterDeprovision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterDeprovisionOption) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 45*time.Minute)
	defer cancel()
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterDeprovision")
	defer func() { cleanup(err) }()

	c, _, err := d.clients(ctx, cluster)
	if err != nil {
		return err
	}
	name := aws.String(cluster.Name)
	if _, err := c.eks.DescribeCluster(ctx, &awseks.DescribeClusterInput{Name: name}); err != nil {
		if isNotFound(err) {
			logging.FromContext(ctx).Info(ctx, "EKS cluster already gone", "cluster", cluster.Name)
			return nil
		}
		return fmt.Errorf("describe EKS cluster %s: %w", cluster.Name, err)
	}

	ngs, err := c.eks.ListNodegroups(ctx, &awseks.ListNodegroupsInput{ClusterName: name})
	if err != nil {
		return fmt.Errorf("list nodegroups: %w", err)
	}
	for _, ng := range ngs.Nodegroups {
		if _, err := c.eks.DeleteNodegroup(ctx, &awseks.DeleteNodegroupInput{ClusterName: name, NodegroupName: aws.String(ng)}); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete nodegroup %s: %w", ng, err)
		}
	}
	for _, ng := range ngs.Nodegroups {
		in := &awseks.DescribeNodegroupInput{ClusterName: name, NodegroupName: aws.String(ng)}
		if err := awseks.NewNodegroupDeletedWaiter(c.eks).Wait(ctx, in, computeWait); err != nil {
			return fmt.Errorf("wait for nodegroup %s deletion: %w", ng, err)
		}
	}

	fps, err := c.eks.ListFargateProfiles(ctx, &awseks.ListFargateProfilesInput{ClusterName: name})
	if err != nil {
		return fmt.Errorf("list fargate profiles: %w", err)
	}
	// EKS deletes one Fargate profile at a time.
	for _, fp := range fps.FargateProfileNames {
		if _, err := c.eks.DeleteFargateProfile(ctx, &awseks.DeleteFargateProfileInput{ClusterName: name, FargateProfileName: aws.String(fp)}); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete fargate profile %s: %w", fp, err)
		}
		in := &awseks.DescribeFargateProfileInput{ClusterName: name, FargateProfileName: aws.String(fp)}
		if err := awseks.NewFargateProfileDeletedWaiter(c.eks).Wait(ctx, in, computeWait); err != nil {
			return fmt.Errorf("wait for fargate profile %s deletion: %w", fp, err)
		}
	}

	if _, err := c.eks.DeleteCluster(ctx, &awseks.DeleteClusterInput{Name: name}); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete EKS cluster %s: %w", cluster.Name, err)
	}
	if err := awseks.NewClusterDeletedWaiter(c.eks).Wait(ctx, &awseks.DescribeClusterInput{Name: name}, clusterWait); err != nil {
		return fmt.Errorf("wait for EKS cluster %s deletion: %w", cluster.Name, err)
	}
	return nil
}

// ClusterStatus returns the status of an EKS cluster.
func (d *driver) ClusterStatus(ctx context.Context, cluster *model.Cluster) (*model.ClusterStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	c, _, err := d.clients(ctx, cluster)
	if err != nil {
		return nil, err
	}
	out, err := c.eks.DescribeCluster(ctx, &awseks.DescribeClusterInput{Name: aws.String(cluster.Name)})
	if err != nil {
		if isNotFound(err) {
			return &model.ClusterStatus{State: "NOT_FOUND"}, nil
		}
		return nil, fmt.Errorf("describe EKS cluster %s: %w", cluster.Name, err)
	}
	ec := out.Cluster
	return &model.ClusterStatus{
		Provisioned: ec.Status == ekstypes.ClusterStatusActive,
		State:       string(ec.Status),
		Endpoint:    aws.ToString(ec.Endpoint),
		Version:     aws.ToString(ec.Version),
	}, nil
}

// ClusterKubeconfig builds a kubeconfig that authenticates with `aws eks get-token`.
func (d *driver) ClusterKubeconfig(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterKubeconfigOption) (data []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterKubeconfig")
	defer func() { cleanup(err) }()

	c, cfg, err := d.clients(ctx, cluster)
	if err != nil {
		return nil, err
	}
	out, err := c.eks.DescribeCluster(ctx, &awseks.DescribeClusterInput{Name: aws.String(cluster.Name)})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("EKS cluster %s: %w", cluster.Name, model.ErrClusterNotFound)
		}
		return nil, fmt.Errorf("describe EKS cluster %s: %w", cluster.Name, err)
	}
	ec := out.Cluster
	var ca []byte
	if ec.CertificateAuthority != nil && ec.CertificateAuthority.Data != nil {
		ca, err = base64.StdEncoding.DecodeString(*ec.CertificateAuthority.Data)
		if err != nil {
			return nil, fmt.Errorf("decode cluster CA: %w", err)
		}
	}
	exec, err := d.execConfig(cluster.Name, cfg.Region)
	if err != nil {
		return nil, err
	}
	return kubeconfig.BuildExec(cluster.Name, aws.ToString(ec.Endpoint), ca, exec)
}

func (d *driver) execConfig(clusterName, region string) (*clientcmdapi.ExecConfig, error) {
	exec := &clientcmdapi.ExecConfig{
		APIVersion:      "client.authentication.k8s.io/v1beta1",
		Command:         "aws",
		Args:            []string{"--region", region, "eks", "get-token", "--cluster-name", clusterName, "--output", "json"},
		InteractiveMode: clientcmdapi.NeverExecInteractiveMode,
	}
	env, err := d.credentialSource().ExecEnv()
	if err != nil {
		return nil, err
	}
	for _, e := range env {
		exec.Env = append(exec.Env, clientcmdapi.ExecEnvVar{Name: e.Name, Value: e.Value})
	}
	return exec, nil
}
