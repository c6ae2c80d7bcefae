package cluster

import (
	"context"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/logging"
)

// StatusInput represents a command to get cluster status.
type StatusInput struct {
	Target
}

// StatusOutput represents the response of cluster status.
type StatusOutput struct {
	model.ClusterStatus
	Cluster       *model.Cluster        `json:"cluster"`
	Recorded      bool                  `json:"recorded"`
	DetectedType  model.ClusterType     `json:"detected_type,omitempty"`
	Installations []*model.Installation `json:"installations,omitempty"`
}

// Status returns the live status of a cluster together with its recorded installations.
func (u *UseCase) Status(ctx context.Context, in *StatusInput) (*StatusOutput, error) {
	if in == nil {
		return nil, model.ErrClusterInvalid
	}
	c, recorded, err := u.Resolve(ctx, in.Target)
	if err != nil {
		return nil, err
	}
	st, err := u.ClusterPort.Status(ctx, c)
	if err != nil {
		return nil, err
	}
	out := &StatusOutput{ClusterStatus: *st, Cluster: c, Recorded: recorded}
	if recorded {
		out.Installations, err = u.Repos.Installation.ListByCluster(ctx, c.ID)
		if err != nil {
			return nil, err
		}
	}
	if st.Provisioned && u.KubeConnector != nil {
		out.DetectedType = u.detectType(ctx, c)
	}
	return out, nil
}

// detectType is best effort; failures are logged and leave the type empty.
func (u *UseCase) detectType(ctx context.Context, c *model.Cluster) model.ClusterType {
	logger := logging.FromContext(ctx)
	data, err := u.ClusterPort.Kubeconfig(ctx, c)
	if err != nil {
		logger.Warn(ctx, "kubeconfig unavailable, cluster type not detected", "err", err)
		return ""
	}
	kube, err := u.KubeConnector(ctx, data)
	if err != nil {
		logger.Warn(ctx, "cluster unreachable, cluster type not detected", "err", err)
		return ""
	}
	defer kube.Close()
	t, err := kube.DetectClusterType(ctx)
	if err != nil {
		logger.Warn(ctx, "cluster type not detected", "err", err)
		return ""
	}
	return t
}
