package component

import (
	"context"
	"errors"
	"fmt"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/kubeconfig"
	"github.com/kompox/kprotect/internal/logging"
)

// session is an open connection to the target cluster.
type session struct {
	cluster  *model.Cluster
	recorded bool
	kube     model.KubePort
}

func (s *session) close() {
	if s != nil && s.kube != nil {
		s.kube.Close()
	}
}

// open resolves the cluster, fetches its kubeconfig and connects. The cluster
// type comes from the flag or the record when present, otherwise from the nodes.
func (u *UseCase) open(ctx context.Context, t Target, interactive bool) (*session, error) {
	logger := logging.FromContext(ctx)
	var (
		c        *model.Cluster
		recorded bool
		data     []byte
		err      error
	)
	if t.local() {
		var ctxName string
		data, ctxName, err = kubeconfig.ExtractContext(t.Kubeconfig, t.Context)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrClusterInvalid, err)
		}
		c, recorded, err = u.localCluster(ctx, t, ctxName)
		if err != nil {
			return nil, err
		}
	} else {
		c, recorded, err = u.Clusters.Resolve(ctx, t.Target)
		if err != nil {
			return nil, err
		}
		if _, err := u.ClusterPort.Login(ctx, c, model.WithClusterLoginInteractive(interactive)); err != nil {
			return nil, err
		}
		data, err = u.ClusterPort.Kubeconfig(ctx, c)
		if err != nil {
			if errors.Is(err, model.ErrClusterNotFound) {
				return nil, fmt.Errorf("cluster %s (%s) does not exist; create it first: %w", c.Name, c.Provider, err)
			}
			return nil, err
		}
	}

	kube, err := u.KubeConnector(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("connect to cluster %s: %w", c.Name, err)
	}
	s := &session{cluster: c, recorded: recorded, kube: kube}

	detected, derr := kube.DetectClusterType(ctx)
	switch {
	case c.Type == "" && derr != nil:
		s.close()
		return nil, fmt.Errorf("%w: cannot detect the cluster type, pass --cluster-type: %v", model.ErrClusterInvalid, derr)
	case c.Type == "":
		c.Type = detected
		logger.Info(ctx, "detected cluster type", "cluster", c.Name, "type", detected)
	case derr != nil:
		logger.Debug(ctx, "cluster type detection failed", "err", derr)
	case detected != c.Type:
		logger.Warn(ctx, "cluster type differs from the nodes, keeping the configured type",
			"cluster", c.Name, "configured", c.Type, "detected", detected)
	}
	if c.Provider != "" && c.Type.Provider() != c.Provider {
		s.close()
		return nil, fmt.Errorf("%w: cluster type %s does not run on %s", model.ErrInvalidOptions, c.Type, c.Provider)
	}
	return s, nil
}

// localCluster returns the record matching the target, or a transient cluster
// named after the target or the kubeconfig context.
func (u *UseCase) localCluster(ctx context.Context, t Target, ctxName string) (*model.Cluster, bool, error) {
	if t.Name != "" && t.Provider != "" {
		c, err := u.Repos.Cluster.FindByName(ctx, t.Provider, t.Name)
		if err == nil {
			if t.Type != "" {
				c.Type = t.Type
			}
			return c, true, nil
		}
		if !errors.Is(err, model.ErrClusterNotFound) {
			return nil, false, err
		}
	}
	name := t.Name
	if name == "" {
		name = ctxName
	}
	return &model.Cluster{
		Name:     name,
		Provider: t.Provider,
		Region:   t.Region,
		Type:     t.Type,
		Context:  ctxName,
		Settings: map[string]string{},
	}, false, nil
}
