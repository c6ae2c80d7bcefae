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

// DeleteInput represents a command to delete a cluster.
type DeleteInput struct {
	Target
	// Purge also deletes enclosing cloud resources such as the Azure resource group.
	Purge          bool          `json:"purge,omitempty"`
	Interactive    bool          `json:"interactive,omitempty"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	KubeconfigPath string        `json:"kubeconfig_path,omitempty"`
}

// DeleteOutput is the result of Delete.
type DeleteOutput struct {
	Cluster *model.Cluster `json:"cluster"`
}

// Delete deprovisions a cluster and forgets it. Clusters without a record are
// deleted by name.
func (u *UseCase) Delete(ctx context.Context, in *DeleteInput) (*DeleteOutput, error) {
	if in == nil {
		return nil, model.ErrClusterInvalid
	}
	logger := logging.FromContext(ctx)

	c, recorded, err := u.Resolve(ctx, in.Target)
	if err != nil {
		return nil, err
	}
	if _, err := u.ClusterPort.Login(ctx, c, model.WithClusterLoginInteractive(in.Interactive)); err != nil {
		return nil, err
	}

	var opts []model.ClusterDeprovisionOption
	if in.Purge {
		opts = append(opts, model.WithClusterDeprovisionPurge())
	}
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = DefaultDeprovisionTimeout
	}
	if err := u.step(ctx, fmt.Sprintf("Deleting cluster %s", c.Name), timeout, func(ctx context.Context) error {
		return u.ClusterPort.Deprovision(ctx, c, opts...)
	}); err != nil {
		return nil, err
	}

	ctxName := c.Context
	if ctxName == "" {
		ctxName = naming.ContextName(string(c.Provider), c.Region, c.Name)
	}
	if err := kubeconfig.RemoveContext(in.KubeconfigPath, ctxName); err != nil {
		logger.Warn(ctx, "failed to remove kubeconfig context", "context", ctxName, "err", err)
	}
	if recorded {
		if err := u.Repos.Cluster.Delete(ctx, c.ID); err != nil {
			return nil, fmt.Errorf("forget cluster: %w", err)
		}
	}
	return &DeleteOutput{Cluster: c}, nil
}
