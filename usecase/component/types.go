// Package component installs, upgrades and removes the vendor agents and the
// demo bundles on a cluster.
package component

import (
	"context"
	"io"
	"time"

	"github.com/kompox/kprotect/domain"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/progress"
	"github.com/kompox/kprotect/usecase/cluster"
)

// Repos holds repositories needed for component use cases.
type Repos struct {
	Cluster      domain.ClusterRepository
	Installation domain.InstallationRepository
}

// UseCase wires repositories and ports needed for component use cases.
type UseCase struct {
	Repos *Repos
	// Clusters resolves targets and their cached name suffix.
	Clusters        *cluster.UseCase
	ClusterPort     model.ClusterPort
	KubeConnector   model.KubeConnector
	VendorConnector model.VendorConnector
	// Mirror is required only when Options.Registry is set.
	Mirror model.MirrorPort
	// Progress receives the spinner of long steps. Nil discards it.
	Progress io.Writer
}

// Default timeouts.
const (
	DefaultHelmTimeout = 10 * time.Minute
	DefaultWaitTimeout = 5 * time.Minute
	DefaultCopyTimeout = 15 * time.Minute
)

// Target selects the cluster to install into. With Kubeconfig or Context set
// the cluster is reached through that kubeconfig instead of the cloud driver.
type Target struct {
	cluster.Target
	Kubeconfig string `json:"kubeconfig,omitempty"`
	Context    string `json:"context,omitempty"`
}

func (t Target) local() bool { return t.Kubeconfig != "" || t.Context != "" }

// Options carries the install parameters shared by all components.
type Options struct {
	Falcon     model.FalconCredentials
	KernelMode bool
	EBPFMode   bool
	// Tags are comma separated sensor grouping tags.
	Tags      string
	ProxyHost string
	ProxyPort string
	// Versions are image tag prefixes per component.
	Versions map[model.Component]string
	// Registry is a host[/path] that vendor images are copied into.
	Registry    string
	ValueFiles  []string
	Set         []string
	HelmTimeout time.Duration
	WaitTimeout time.Duration
	Interactive bool
}

// Backend returns the sensor backend chosen by KernelMode or EBPFMode.
func (o *Options) Backend() model.SensorBackend {
	switch {
	case o.KernelMode:
		return model.BackendKernel
	case o.EBPFMode:
		return model.BackendBPF
	}
	return ""
}

func (o *Options) helmTimeout() time.Duration {
	if o.HelmTimeout > 0 {
		return o.HelmTimeout
	}
	return DefaultHelmTimeout
}

func (o *Options) waitTimeout() time.Duration {
	if o.WaitTimeout > 0 {
		return o.WaitTimeout
	}
	return DefaultWaitTimeout
}

func (u *UseCase) step(ctx context.Context, title string, timeout time.Duration, fn func(ctx context.Context) error) error {
	w := u.Progress
	if w == nil {
		w = io.Discard
	}
	return progress.Run(ctx, w, title, timeout, fn)
}
