package model

import (
	"context"
	"time"
)

// ChartRef locates a chart in a Helm repository.
type ChartRef struct {
	RepoURL string
	Name    string
	Version string // empty selects the latest chart version
}

// ReleaseSpec describes a Helm release to install or upgrade.
type ReleaseSpec struct {
	Name      string
	Namespace string
	Chart     ChartRef
	Values    Values
	// ValueFiles and Set are layered over Values like helm -f and --set.
	ValueFiles []string
	Set        []string
	Timeout    time.Duration
}

// Release is a summary of a deployed Helm release.
type Release struct {
	Name         string `json:"name"`
	Namespace    string `json:"namespace"`
	Chart        string `json:"chart"`
	ChartVersion string `json:"chartVersion"`
	AppVersion   string `json:"appVersion"`
	Revision     int    `json:"revision"`
	Status       string `json:"status"`
}

// PodWait selects pods that must reach Running.
type PodWait struct {
	Namespace string
	Selector  string
	Timeout   time.Duration
}

// KubePort is the in-cluster side of component installs.
type KubePort interface {
	DetectClusterType(ctx context.Context) (ClusterType, error)
	EnsureNamespace(ctx context.Context, name string, labels map[string]string) error
	DeleteNamespace(ctx context.Context, name string) error
	// InstallRelease runs helm upgrade --install, or a plain upgrade that
	// fails with ErrReleaseNotFound when upgradeOnly is set.
	InstallRelease(ctx context.Context, spec ReleaseSpec, upgradeOnly bool) (*Release, error)
	UninstallRelease(ctx context.Context, name, namespace string) (bool, error)
	ReleaseStatus(ctx context.Context, name, namespace string) (*Release, error)
	WaitForPods(ctx context.Context, w PodWait) error
	ApplyManifests(ctx context.Context, data []byte, namespace string) error
	// DeleteManifests returns how many objects existed and were deleted.
	DeleteManifests(ctx context.Context, data []byte, namespace string) (int, error)
	Close()
}

// KubeConnector opens a KubePort from kubeconfig bytes.
type KubeConnector func(ctx context.Context, kubeconfig []byte) (KubePort, error)
