package model

import (
	"fmt"
	"strings"
	"time"
)

// CloudProvider identifies the cloud that hosts a cluster.
type CloudProvider string

const (
	ProviderAWS   CloudProvider = "aws"
	ProviderAzure CloudProvider = "azure"
	ProviderGCP   CloudProvider = "gcp"
)

// Providers lists the supported cloud providers in display order.
var Providers = []CloudProvider{ProviderAWS, ProviderAzure, ProviderGCP}

// ParseCloudProvider parses a provider name such as "aws".
func ParseCloudProvider(s string) (CloudProvider, error) {
	p := CloudProvider(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Providers {
		if p == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown provider %q (expected aws, azure or gcp)", ErrInvalidOptions, s)
}

// ClusterType identifies the flavor of a managed Kubernetes cluster.
type ClusterType string

const (
	ClusterTypeEKSManagedNode     ClusterType = "eks-managed-node"
	ClusterTypeEKSSelfManagedNode ClusterType = "eks-self-managed-node"
	ClusterTypeEKSFargate         ClusterType = "eks-fargate"
	ClusterTypeAKS                ClusterType = "aks"
	ClusterTypeGKEStandard        ClusterType = "gke-standard"
	ClusterTypeGKEAutopilot       ClusterType = "gke-autopilot"
)

var clusterTypeProviders = map[ClusterType]CloudProvider{
	ClusterTypeEKSManagedNode:     ProviderAWS,
	ClusterTypeEKSSelfManagedNode: ProviderAWS,
	ClusterTypeEKSFargate:         ProviderAWS,
	ClusterTypeAKS:                ProviderAzure,
	ClusterTypeGKEStandard:        ProviderGCP,
	ClusterTypeGKEAutopilot:       ProviderGCP,
}

// ClusterTypesFor returns the cluster types available on a provider.
func ClusterTypesFor(p CloudProvider) []ClusterType {
	switch p {
	case ProviderAWS:
		return []ClusterType{ClusterTypeEKSManagedNode, ClusterTypeEKSSelfManagedNode, ClusterTypeEKSFargate}
	case ProviderAzure:
		return []ClusterType{ClusterTypeAKS}
	case ProviderGCP:
		return []ClusterType{ClusterTypeGKEStandard, ClusterTypeGKEAutopilot}
	}
	return nil
}

// DefaultClusterType returns the cluster type used when none is given.
func DefaultClusterType(p CloudProvider) ClusterType {
	if types := ClusterTypesFor(p); len(types) > 0 {
		return types[0]
	}
	return ""
}

// ParseClusterType parses s and checks it belongs to provider p.
// An empty p skips the provider check.
func ParseClusterType(p CloudProvider, s string) (ClusterType, error) {
	t := ClusterType(strings.ToLower(strings.TrimSpace(s)))
	owner, ok := clusterTypeProviders[t]
	if !ok {
		return "", fmt.Errorf("%w: unknown cluster type %q", ErrInvalidOptions, s)
	}
	if p != "" && owner != p {
		names := make([]string, 0, 3)
		for _, v := range ClusterTypesFor(p) {
			names = append(names, string(v))
		}
		return "", fmt.Errorf("%w: cluster type %q is not available on %s (expected one of %s)", ErrInvalidOptions, s, p, strings.Join(names, ", "))
	}
	return t, nil
}

// Provider returns the cloud that offers the cluster type.
func (t ClusterType) Provider() CloudProvider { return clusterTypeProviders[t] }

// SensorMode returns the EDR sensor topology the cluster type supports.
func (t ClusterType) SensorMode() SensorMode {
	if t == ClusterTypeEKSFargate {
		return SensorModeSidecar
	}
	return SensorModeDaemonset
}

// HasNodes reports whether the cluster type exposes worker nodes that kprotect manages.
func (t ClusterType) HasNodes() bool {
	return t != ClusterTypeEKSFargate && t != ClusterTypeGKEAutopilot
}

// Cluster is a cluster created or adopted by kprotect.
type Cluster struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Provider CloudProvider     `json:"provider"`
	Region   string            `json:"region"`
	Type     ClusterType       `json:"type"`
	Suffix   string            `json:"suffix,omitempty"`
	Context  string            `json:"context,omitempty"` // kubeconfig context name
	Settings map[string]string `json:"settings,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Setting returns a trimmed setting value or "".
func (c *Cluster) Setting(key string) string {
	if c == nil || c.Settings == nil {
		return ""
	}
	return strings.TrimSpace(c.Settings[key])
}

// SettingOr returns the setting value or def when unset.
func (c *Cluster) SettingOr(key, def string) string {
	if v := c.Setting(key); v != "" {
		return v
	}
	return def
}

// Cluster setting keys. Provider drivers read these from Cluster.Settings.
const (
	SettingKubernetesVersion = "kubernetes_version"
	SettingNodeCount         = "node_count"
	SettingNodeSize          = "node_size"

	SettingAWSProfile             = "aws_profile"
	SettingAWSClusterRoleARN      = "aws_cluster_role_arn"
	SettingAWSNodeRoleARN         = "aws_node_role_arn"
	SettingAWSPodExecutionRoleARN = "aws_pod_execution_role_arn"
	SettingAWSSubnetIDs           = "aws_subnet_ids"         // comma separated
	SettingAWSSecurityGroupIDs    = "aws_security_group_ids" // comma separated
	SettingAWSFargateNamespaces   = "aws_fargate_namespaces" // comma separated
	SettingAzureSubscriptionID    = "azure_subscription_id"
	SettingAzureTenantID          = "azure_tenant_id"
	SettingAzureAuthMethod        = "azure_auth_method"
	SettingAzureResourceGroup     = "azure_resource_group"
	SettingGCPProject             = "gcp_project"
)
