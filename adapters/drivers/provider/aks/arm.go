package aks

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

// armAPI is the subset of Azure Resource Manager operations used by the driver.
type armAPI interface {
	EnsureResourceGroup(ctx context.Context, name, location string, tags map[string]*string) error
	DeleteResourceGroup(ctx context.Context, name string) error
	GetCluster(ctx context.Context, rg, name string) (*armcontainerservice.ManagedCluster, error)
	CreateCluster(ctx context.Context, rg, name string, mc armcontainerservice.ManagedCluster) error
	DeleteCluster(ctx context.Context, rg, name string) error
	ClusterKubeconfig(ctx context.Context, rg, name string, admin bool) ([]byte, error)
}

// isNotFound reports whether err is an ARM 404.
func isNotFound(err error) bool {
	var re *azcore.ResponseError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}

type armClients struct {
	groups   *armresources.ResourceGroupsClient
	clusters *armcontainerservice.ManagedClustersClient
}

func newARMClients(subscriptionID string, cred azcore.TokenCredential) (armAPI, error) {
	groups, err := armresources.NewResourceGroupsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create resource group client: %w", err)
	}
	clusters, err := armcontainerservice.NewManagedClustersClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create AKS client: %w", err)
	}
	return &armClients{groups: groups, clusters: clusters}, nil
}

func (c *armClients) EnsureResourceGroup(ctx context.Context, name, location string, tags map[string]*string) error {
	_, err := c.groups.CreateOrUpdate(ctx, name, armresources.ResourceGroup{Location: to.Ptr(location), Tags: tags}, nil)
	if err != nil {
		return fmt.Errorf("create resource group %s: %w", name, err)
	}
	return nil
}

func (c *armClients) DeleteResourceGroup(ctx context.Context, name string) error {
	poller, err := c.groups.BeginDelete(ctx, name, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (c *armClients) GetCluster(ctx context.Context, rg, name string) (*armcontainerservice.ManagedCluster, error) {
	resp, err := c.clusters.Get(ctx, rg, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.ManagedCluster, nil
}

func (c *armClients) CreateCluster(ctx context.Context, rg, name string, mc armcontainerservice.ManagedCluster) error {
	poller, err := c.clusters.BeginCreateOrUpdate(ctx, rg, name, mc, nil)
	if err != nil {
		return fmt.Errorf("start AKS cluster creation: %w", err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("create AKS cluster %s: %w", name, err)
	}
	return nil
}

func (c *armClients) DeleteCluster(ctx context.Context, rg, name string) error {
	poller, err := c.clusters.BeginDelete(ctx, rg, name, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (c *armClients) ClusterKubeconfig(ctx context.Context, rg, name string, admin bool) ([]byte, error) {
	var results []*armcontainerservice.CredentialResult
	if admin {
		resp, err := c.clusters.ListClusterAdminCredentials(ctx, rg, name, nil)
		if err != nil {
			return nil, err
		}
		results = resp.Kubeconfigs
	} else {
		resp, err := c.clusters.ListClusterUserCredentials(ctx, rg, name, nil)
		if err != nil {
			return nil, err
		}
		results = resp.Kubeconfigs
	}
	for _, r := range results {
		if r != nil && len(r.Value) > 0 {
			return r.Value, nil
		}
	}
	return nil, fmt.Errorf("no kubeconfig returned for AKS cluster %s", name)
}
