package aks

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice"

	providerdrv "github.com/kompox/kprotect/adapters/drivers/provider"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
	"github.com/kompox/kprotect/internal/naming"
)

const (
	defaultNodeSize  = "Standard_D4s_v3"
	defaultNodeCount = 2
	systemPoolName   = "nodepool1"
)

func (d *driver) resourceGroup(cluster *model.Cluster) string {
	return cluster.SettingOr(model.SettingAzureResourceGroup, naming.ResourceGroupName(cluster.Name))
}

func managedByTags() map[string]*string {
	return map[string]*string{"managed-by": to.Ptr("kprotect")}
}

// ClusterValidate requires a location and a subscription from the settings,
// azure-sp.conf or the environment.
func (d *driver) ClusterValidate(_ context.Context, cluster *model.Cluster) error {
	if cluster.Region == "" {
		return fmt.Errorf("%w: azure location (--region) is required", model.ErrInvalidOptions)
	}
	if d.subscriptionID() == "" {
		return fmt.Errorf("%w: azure subscription id is required (--azure-subscription-id or %s)", model.ErrInvalidOptions, keySubscriptionID)
	}
	_, err := providerdrv.NodeCount(cluster, defaultNodeCount)
	return err
}

// ClusterProvision creates the resource group and the managed cluster.
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
	api, err := d.arm()
	if err != nil {
		return err
	}
	rg := d.resourceGroup(cluster)

	existing, err := api.GetCluster(ctx, rg, cluster.Name)
	switch {
	case err == nil:
		if !o.Force {
			return fmt.Errorf("AKS cluster %s in resource group %s: %w", cluster.Name, rg, model.ErrClusterExists)
		}
		state := ""
		if existing.Properties != nil {
			state = str(existing.Properties.ProvisioningState)
		}
		logger.Info(ctx, "adopting existing AKS cluster", "cluster", cluster.Name, "resource_group", rg, "state", state)
		return nil
	case !isNotFound(err):
		return fmt.Errorf("get AKS cluster %s: %w", cluster.Name, err)
	}

	if err := api.EnsureResourceGroup(ctx, rg, cluster.Region, managedByTags()); err != nil {
		return err
	}
	logger.Info(ctx, "resource group ready", "resource_group", rg, "location", cluster.Region)

	mc := armcontainerservice.ManagedCluster{
		Location: to.Ptr(cluster.Region),
		Tags:     managedByTags(),
		Identity: &armcontainerservice.ManagedClusterIdentity{
			Type: to.Ptr(armcontainerservice.ResourceIdentityTypeSystemAssigned),
		},
		Properties: &armcontainerservice.ManagedClusterProperties{
			DNSPrefix: to.Ptr(cluster.Name),
			AgentPoolProfiles: []*armcontainerservice.ManagedClusterAgentPoolProfile{
				{
					Name:   to.Ptr(systemPoolName),
					Count:  to.Ptr(int32(nodeCount)),
					VMSize: to.Ptr(cluster.SettingOr(model.SettingNodeSize, defaultNodeSize)),
					OSType: to.Ptr(armcontainerservice.OSTypeLinux),
					Type:   to.Ptr(armcontainerservice.AgentPoolTypeVirtualMachineScaleSets),
					Mode:   to.Ptr(armcontainerservice.AgentPoolModeSystem),
				},
			},
		},
	}
	if v := cluster.Setting(model.SettingKubernetesVersion); v != "" {
		mc.Properties.KubernetesVersion = to.Ptr(v)
	}
	logger.Info(ctx, "creating AKS cluster", "cluster", cluster.Name, "nodes", nodeCount)
	return api.CreateCluster(ctx, rg, cluster.Name, mc)
}

// ClusterDeprovision deletes the managed cluster and, with Purge, its resource group.
func (d *driver) ClusterDeprovision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterDeprovisionOption) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 45*time.Minute)
	defer cancel()
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterDeprovision")
	defer func() { cleanup(err) }()

	var o model.ClusterDeprovisionOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.FromContext(ctx)

	api, err := d.arm()
	if err != nil {
		return err
	}
	rg := d.resourceGroup(cluster)

	if _, err := api.GetCluster(ctx, rg, cluster.Name); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("get AKS cluster %s: %w", cluster.Name, err)
		}
		logger.Info(ctx, "AKS cluster already gone", "cluster", cluster.Name)
	} else if err := api.DeleteCluster(ctx, rg, cluster.Name); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete AKS cluster %s: %w", cluster.Name, err)
	}

	if o.Purge {
		logger.Info(ctx, "deleting resource group", "resource_group", rg)
		if err := api.DeleteResourceGroup(ctx, rg); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete resource group %s: %w", rg, err)
		}
	}
	return nil
}

// ClusterStatus returns the status of an AKS cluster.
func (d *driver) ClusterStatus(ctx context.Context, cluster *model.Cluster) (*model.ClusterStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	api, err := d.arm()
	if err != nil {
		return nil, err
	}
	mc, err := api.GetCluster(ctx, d.resourceGroup(cluster), cluster.Name)
	if err != nil {
		if isNotFound(err) {
			return &model.ClusterStatus{State: "NotFound"}, nil
		}
		return nil, fmt.Errorf("get AKS cluster %s: %w", cluster.Name, err)
	}
	st := &model.ClusterStatus{}
	if p := mc.Properties; p != nil {
		st.State = str(p.ProvisioningState)
		st.Provisioned = st.State == "Succeeded"
		if p.Fqdn != nil {
			st.Endpoint = "https://" + *p.Fqdn + ":443"
		}
		st.Version = str(p.KubernetesVersion)
	}
	return st, nil
}

// ClusterKubeconfig returns the user (or admin) kubeconfig of the managed cluster.
func (d *driver) ClusterKubeconfig(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterKubeconfigOption) (data []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	ctx, cleanup := d.withMethodLogger(ctx, "ClusterKubeconfig")
	defer func() { cleanup(err) }()

	var o model.ClusterKubeconfigOptions
	for _, opt := range opts {
		opt(&o)
	}
	api, err := d.arm()
	if err != nil {
		return nil, err
	}
	data, err = api.ClusterKubeconfig(ctx, d.resourceGroup(cluster), cluster.Name, o.Admin)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("AKS cluster %s: %w", cluster.Name, model.ErrClusterNotFound)
		}
		return nil, fmt.Errorf("get AKS credentials: %w", err)
	}
	return data, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
