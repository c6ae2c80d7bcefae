package cluster

import (
	"context"
	"io"
	"time"

	"github.com/kompox/kprotect/domain"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/progress"
)

// Repos holds repositories needed for cluster use cases.
type Repos struct {
	Cluster      domain.ClusterRepository
	Installation domain.InstallationRepository
	Setting      domain.SettingRepository
}

// UseCase wires repositories and ports needed for cluster use cases.
type UseCase struct {
	Repos       *Repos
	ClusterPort model.ClusterPort
	// KubeConnector is optional; Status uses it to detect the cluster type.
	KubeConnector model.KubeConnector
	// Progress receives the spinner of long steps. Nil discards it.
	Progress io.Writer
}

// SettingSuffix is the setting key of the cached random name suffix.
const SettingSuffix = "suffix"

// Default step timeouts.
const (
	DefaultProvisionTimeout   = 60 * time.Minute
	DefaultDeprovisionTimeout = 60 * time.Minute
)

// Target names a cluster by provider, name and region. Settings override the
// recorded cluster settings when non-empty.
type Target struct {
	Provider model.CloudProvider `json:"provider"`
	Name     string              `json:"name"`
	Region   string              `json:"region"`
	Type     model.ClusterType   `json:"type,omitempty"`
	Settings map[string]string   `json:"settings,omitempty"`
}

func (u *UseCase) step(ctx context.Context, title string, timeout time.Duration, fn func(ctx context.Context) error) error {
	w := u.Progress
	if w == nil {
		w = io.Discard
	}
	return progress.Run(ctx, w, title, timeout, fn)
}
