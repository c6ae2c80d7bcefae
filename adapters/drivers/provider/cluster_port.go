package providerdrv

import (
	"context"
	"fmt"

	"github.com/kompox/kprotect/domain/model"
)

// clusterPortAdapter implements model.ClusterPort backed by provider drivers.
type clusterPortAdapter struct {
	deps *Deps
}

func (a *clusterPortAdapter) driver(cluster *model.Cluster) (Driver, error) {
	if cluster == nil {
		return nil, fmt.Errorf("cluster is nil: %w", model.ErrClusterInvalid)
	}
	factory, exists := GetDriverFactory(string(cluster.Provider))
	if !exists {
		return nil, fmt.Errorf("unknown provider driver: %s", cluster.Provider)
	}
	driver, err := factory(cluster.Settings, a.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver %s: %w", cluster.Provider, err)
	}
	return driver, nil
}

func (a *clusterPortAdapter) Validate(ctx context.Context, cluster *model.Cluster) error {
	driver, err := a.driver(cluster)
	if err != nil {
		return err
	}
	return driver.ClusterValidate(ctx, cluster)
}

func (a *clusterPortAdapter) Login(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterLoginOption) (*model.Identity, error) {
	driver, err := a.driver(cluster)
	if err != nil {
		return nil, err
	}
	return driver.Login(ctx, cluster, opts...)
}

func (a *clusterPortAdapter) Status(ctx context.Context, cluster *model.Cluster) (*model.ClusterStatus, error) {
	driver, err := a.driver(cluster)
	if err != nil {
		return nil, err
	}
	return driver.ClusterStatus(ctx, cluster)
}

func (a *clusterPortAdapter) Provision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterProvisionOption) error {
	driver, err := a.driver(cluster)
	if err != nil {
		return err
	}
	return driver.ClusterProvision(ctx, cluster, opts...)
}

func (a *clusterPortAdapter) Deprovision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterDeprovisionOption) error {
	driver, err := a.driver(cluster)
	if err != nil {
		return err
	}
	return driver.ClusterDeprovision(ctx, cluster, opts...)
}

func (a *clusterPortAdapter) Kubeconfig(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterKubeconfigOption) ([]byte, error) {
	driver, err := a.driver(cluster)
	if err != nil {
		return nil, err
	}
	return driver.ClusterKubeconfig(ctx, cluster, opts...)
}

// GetClusterPort returns a model.ClusterPort implemented via provider drivers.
func GetClusterPort(deps *Deps) model.ClusterPort {
	if deps == nil {
		deps = &Deps{}
	}
	return &clusterPortAdapter{deps: deps}
}
