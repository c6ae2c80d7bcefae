package model

import "context"

// Operation-scoped options and functional option types.
type ClusterLoginOptions struct{ Interactive bool }
type ClusterProvisionOptions struct{ Force bool }
type ClusterDeprovisionOptions struct{ Purge bool }
type ClusterKubeconfigOptions struct{ Admin bool }

type ClusterLoginOption func(*ClusterLoginOptions)
type ClusterProvisionOption func(*ClusterProvisionOptions)
type ClusterDeprovisionOption func(*ClusterDeprovisionOptions)
type ClusterKubeconfigOption func(*ClusterKubeconfigOptions)

// Option helpers
func WithClusterLoginInteractive(v bool) ClusterLoginOption {
	return func(o *ClusterLoginOptions) { o.Interactive = v }
}
func WithClusterProvisionForce() ClusterProvisionOption {
	return func(o *ClusterProvisionOptions) { o.Force = true }
}

// WithClusterDeprovisionPurge also removes the enclosing cloud resources
// (Azure resource group) created for the cluster.
func WithClusterDeprovisionPurge() ClusterDeprovisionOption {
	return func(o *ClusterDeprovisionOptions) { o.Purge = true }
}
func WithClusterKubeconfigAdmin() ClusterKubeconfigOption {
	return func(o *ClusterKubeconfigOptions) { o.Admin = true }
}

// ClusterPort is an interface (domain port) for cluster operations.
type ClusterPort interface {
	// Validate checks the provider settings a create needs without contacting the cloud.
	Validate(ctx context.Context, cluster *Cluster) error
	Login(ctx context.Context, cluster *Cluster, opts ...ClusterLoginOption) (*Identity, error)
	Status(ctx context.Context, cluster *Cluster) (*ClusterStatus, error)
	Provision(ctx context.Context, cluster *Cluster, opts ...ClusterProvisionOption) error
	Deprovision(ctx context.Context, cluster *Cluster, opts ...ClusterDeprovisionOption) error
	Kubeconfig(ctx context.Context, cluster *Cluster, opts ...ClusterKubeconfigOption) ([]byte, error)
}

// Identity describes the cloud principal a login check resolved.
type Identity struct {
	Provider CloudProvider `json:"provider"`
	Account  string        `json:"account"`          // AWS account, Azure subscription or GCP project
	Subject  string        `json:"subject"`          // ARN, object id or service account email
	Method   string        `json:"method,omitempty"` // how the credentials were obtained
}

// ClusterStatus represents the status of a cluster.
type ClusterStatus struct {
	Provisioned bool   `json:"provisioned"`        // True when the Kubernetes cluster exists
	State       string `json:"state,omitempty"`    // Provider reported state
	Endpoint    string `json:"endpoint,omitempty"` // API server endpoint
	Version     string `json:"version,omitempty"`  // Kubernetes version
}
