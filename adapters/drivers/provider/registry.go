package providerdrv

import (
	"context"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/credstore"
	"github.com/kompox/kprotect/internal/shell"
	"github.com/kompox/kprotect/internal/terminal"
)

// Driver abstracts provider-specific behavior.
// Implementations live under adapters/drivers/provider/<name> and return a
// provider identifier such as "aws" via ID().
type Driver interface {
	// ID returns the provider identifier (e.g., "aws").
	ID() string

	// Login verifies cloud credentials, falling back to an interactive login
	// when the options allow it.
	Login(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterLoginOption) (*model.Identity, error)

	// ClusterValidate reports missing or invalid settings for a create as
	// model.ErrInvalidOptions. It makes no cloud API calls.
	ClusterValidate(ctx context.Context, cluster *model.Cluster) error

	// ClusterProvision creates the managed Kubernetes cluster and waits until it is usable.
	ClusterProvision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterProvisionOption) error

	// ClusterDeprovision deletes the managed Kubernetes cluster. A missing cluster is success.
	ClusterDeprovision(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterDeprovisionOption) error

	// ClusterStatus returns the status of a Kubernetes cluster.
	ClusterStatus(ctx context.Context, cluster *model.Cluster) (*model.ClusterStatus, error)

	// ClusterKubeconfig returns kubeconfig bytes for the cluster.
	ClusterKubeconfig(ctx context.Context, cluster *model.Cluster, opts ...model.ClusterKubeconfigOption) ([]byte, error)
}

// Deps carries the local facilities drivers use for interactive logins.
// Nil fields disable the corresponding fallback.
type Deps struct {
	Creds    *credstore.Store
	Prompter *terminal.Prompter
	Shell    shell.Runner
}

// driverFactory is a constructor function for a provider driver.
type driverFactory func(settings map[string]string, deps *Deps) (Driver, error)

// registry holds registered drivers by name.
var registry = map[string]driverFactory{}

// Register makes a driver available by the given name. Drivers should call
// this from their init() function.
func Register(name string, factory driverFactory) {
	registry[name] = factory
}

// GetDriverFactory returns the driver factory function for the given name.
func GetDriverFactory(name string) (driverFactory, bool) {
	factory, exists := registry[name]
	return factory, exists
}
