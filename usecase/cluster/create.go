package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/kubeconfig"
	"github.com/kompox/kprotect/internal/logging"
	"github.com/kompox/kprotect/internal/naming"
)

// CreateInput represents a command to create a cluster.
type CreateInput struct {
	Target
	// Force adopts a cluster that already exists in the cloud.
	Force       bool `json:"force,omitempty"`
	Interactive bool `json:"interactive,omitempty"`
	// Timeout bounds provisioning. Zero uses DefaultProvisionTimeout.
	Timeout time.Duration `json:"timeout,omitempty"`
	// KubeconfigPath is the kubeconfig file to merge into; empty uses the default.
	KubeconfigPath string `json:"kubeconfig_path,omitempty"`
}

// CreateOutput is the result of Create.
type CreateOutput struct {
	Cluster  *model.Cluster  `json:"cluster"`
	Identity *model.Identity `json:"identity"`
}

// Create validates the provider settings, checks the cloud login, provisions the cluster, merges its kubeconfig
// and records it.
func (u *UseCase) Create(ctx context.Context, in *CreateInput) (*CreateOutput, error) {
	if in == nil {
		return nil, model.ErrClusterInvalid
	}
	logger := logging.FromContext(ctx)

	c, recorded, err := u.Resolve(ctx, in.Target)
	if err != nil {
		return nil, err
	}
	if c.Type == "" {
		c.Type = model.DefaultClusterType(c.Provider)
	}
	ct, err := model.ParseClusterType(c.Provider, string(c.Type))
	if err != nil {
		return nil, err
	}
	c.Type = ct
	if err := naming.ValidateClusterName(string(c.Provider), c.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidOptions, err)
	}
	if recorded && !in.Force {
		return nil, fmt.Errorf("cluster %s (%s): %w; use --force to adopt it", c.Name, c.Provider, model.ErrClusterExists)
	}
	if suffix, err := u.Suffix(ctx); err == nil {
		c.Suffix = suffix
	}

	if err := u.ClusterPort.Validate(ctx, c); err != nil {
		return nil, err
	}
	id, err := u.ClusterPort.Login(ctx, c, model.WithClusterLoginInteractive(in.Interactive))
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "logged in", "provider", id.Provider, "account", id.Account, "subject", id.Subject)

	var opts []model.ClusterProvisionOption
	if in.Force {
		opts = append(opts, model.WithClusterProvisionForce())
	}
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = DefaultProvisionTimeout
	}
	title := fmt.Sprintf("Creating %s cluster %s", c.Type, c.Name)
	if err := u.step(ctx, title, timeout, func(ctx context.Context) error {
		return u.ClusterPort.Provision(ctx, c, opts...)
	}); err != nil {
		return nil, err
	}

	data, err := u.ClusterPort.Kubeconfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("get kubeconfig: %w", err)
	}
	ctxName, err := kubeconfig.MergeBytes(data, naming.ContextName(string(c.Provider), c.Region, c.Name), in.KubeconfigPath)
	if err != nil {
		return nil, err
	}
	c.Context = ctxName
	logger.Info(ctx, "kubeconfig updated", "context", ctxName)

	if recorded {
		err = u.Repos.Cluster.Update(ctx, c)
	} else {
		err = u.Repos.Cluster.Create(ctx, c)
	}
	if err != nil {
		return nil, fmt.Errorf("record cluster: %w", err)
	}
	return &CreateOutput{Cluster: c, Identity: id}, nil
}
