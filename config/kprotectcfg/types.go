// Package kprotectcfg defines the kprotect.yml schema. Every key can also be
// given as a command line flag or environment variable.
package kprotectcfg

import "time"

// Root is the root structure of kprotect.yml.
type Root struct {
	Falcon   Falcon   `yaml:"falcon" mapstructure:"falcon"`
	Cluster  Cluster  `yaml:"cluster" mapstructure:"cluster"`
	AWS      AWS      `yaml:"aws" mapstructure:"aws"`
	Azure    Azure    `yaml:"azure" mapstructure:"azure"`
	GCP      GCP      `yaml:"gcp" mapstructure:"gcp"`
	Registry Registry `yaml:"registry" mapstructure:"registry"`
	Sensor   Sensor   `yaml:"sensor" mapstructure:"sensor"`
	Helm     Helm     `yaml:"helm" mapstructure:"helm"`
}

// Falcon holds vendor API credentials and agent settings shared by all components.
type Falcon struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	Cloud        string `yaml:"cloud" mapstructure:"cloud"` // us-1, us-2, eu-1, us-gov-1
	Tags         string `yaml:"tags" mapstructure:"tags"`   // comma separated sensor grouping tags
	ProxyHost    string `yaml:"proxy_host" mapstructure:"proxy_host"`
	ProxyPort    string `yaml:"proxy_port" mapstructure:"proxy_port"`
	// Component image version prefixes. Empty selects the latest tag.
	SensorVersion string `yaml:"sensor_version" mapstructure:"sensor_version"`
	KACVersion    string `yaml:"kac_version" mapstructure:"kac_version"`
	IARVersion    string `yaml:"iar_version" mapstructure:"iar_version"`
	KPAVersion    string `yaml:"kpa_version" mapstructure:"kpa_version"`
}

// Cluster selects the target cluster and its shape on creation.
type Cluster struct {
	Name              string `yaml:"name" mapstructure:"name"`
	Region            string `yaml:"region" mapstructure:"region"`
	Type              string `yaml:"type" mapstructure:"type"`
	NodeCount         int    `yaml:"node_count" mapstructure:"node_count"`
	NodeSize          string `yaml:"node_size" mapstructure:"node_size"`
	KubernetesVersion string `yaml:"kubernetes_version" mapstructure:"kubernetes_version"`
	// Kubeconfig and Context point installs at an existing cluster instead of
	// asking the cloud for credentials.
	Kubeconfig string `yaml:"kubeconfig" mapstructure:"kubeconfig"`
	Context    string `yaml:"context" mapstructure:"context"`
}

// AWS holds EKS settings.
type AWS struct {
	Profile             string   `yaml:"profile" mapstructure:"profile"`
	ClusterRoleARN      string   `yaml:"cluster_role_arn" mapstructure:"cluster_role_arn"`
	NodeRoleARN         string   `yaml:"node_role_arn" mapstructure:"node_role_arn"`
	PodExecutionRoleARN string   `yaml:"pod_execution_role_arn" mapstructure:"pod_execution_role_arn"`
	SubnetIDs           []string `yaml:"subnet_ids" mapstructure:"subnet_ids"`
	SecurityGroupIDs    []string `yaml:"security_group_ids" mapstructure:"security_group_ids"`
	FargateNamespaces   []string `yaml:"fargate_namespaces" mapstructure:"fargate_namespaces"`
}

// Azure holds AKS settings.
type Azure struct {
	SubscriptionID string `yaml:"subscription_id" mapstructure:"subscription_id"`
	TenantID       string `yaml:"tenant_id" mapstructure:"tenant_id"`
	AuthMethod     string `yaml:"auth_method" mapstructure:"auth_method"`
	ResourceGroup  string `yaml:"resource_group" mapstructure:"resource_group"`
}

// GCP holds GKE settings.
type GCP struct {
	Project string `yaml:"project" mapstructure:"project"`
}

// Registry configures copying vendor images into a private registry.
type Registry struct {
	URL string `yaml:"url" mapstructure:"url"` // host[/path] of the target registry
}

// Sensor holds EDR sensor options.
type Sensor struct {
	KernelMode bool `yaml:"kernel_mode" mapstructure:"kernel_mode"`
	EBPFMode   bool `yaml:"ebpf_mode" mapstructure:"ebpf_mode"`
}

// Helm tunes chart installs.
type Helm struct {
	ValuesFiles []string      `yaml:"values_files" mapstructure:"values_files"`
	Set         []string      `yaml:"set" mapstructure:"set"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	WaitTimeout time.Duration `yaml:"wait_timeout" mapstructure:"wait_timeout"` // pod Running poll
}
