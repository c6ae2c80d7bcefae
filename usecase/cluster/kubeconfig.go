package cluster

import (
	"context"
	"fmt"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/kubeconfig"
	"github.com/kompox/kprotect/internal/naming"
)

// KubeconfigInput represents a command to fetch cluster credentials.
type KubeconfigInput struct {
	Target
	Admin bool `json:"admin,omitempty"`
	// Merge writes the kubeconfig into Path (or the default kubeconfig).
	Merge bool   `json:"merge,omitempty"`
	Path  string `json:"path,omitempty"`
}

// KubeconfigOutput holds the raw kubeconfig and, after a merge, the context name.
type KubeconfigOutput struct {
	Kubeconfig []byte `json:"-"`
	Context    string `json:"context,omitempty"`
}

// Kubeconfig returns cluster credentials from the provider driver.
func (u *UseCase) Kubeconfig(ctx context.Context, in *KubeconfigInput) (*KubeconfigOutput, error) {
	if in == nil {
		return nil, model.ErrClusterInvalid
	}
	c, recorded, err := u.Resolve(ctx, in.Target)
	if err != nil {
		return nil, err
	}
	var opts []model.ClusterKubeconfigOption
	if in.Admin {
		opts = append(opts, model.WithClusterKubeconfigAdmin())
	}
	data, err := u.ClusterPort.Kubeconfig(ctx, c, opts...)
	if err != nil {
		return nil, err
	}
	out := &KubeconfigOutput{Kubeconfig: data}
	if !in.Merge {
		return out, nil
	}
	out.Context, err = kubeconfig.MergeBytes(data, naming.ContextName(string(c.Provider), c.Region, c.Name), in.Path)
	if err != nil {
		return nil, err
	}
	if recorded && c.Context != out.Context {
		c.Context = out.Context
		if err := u.Repos.Cluster.Update(ctx, c); err != nil {
			return nil, fmt.Errorf("record kubeconfig context: %w", err)
		}
	}
	return out, nil
}
