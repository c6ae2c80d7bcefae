package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kompox/kprotect/config/kprotectcfg"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/usecase/cluster"
	"github.com/kompox/kprotect/usecase/component"
)

// addClusterFlags adds the flags that select a cluster.
func addClusterFlags(fs *pflag.FlagSet) {
	fs.String("cluster-name", "", "Cluster name (default kprotect-<suffix>)")
	fs.String("region", "", "Cloud region or location")
	fs.String("cluster-type", "", "Cluster type (eks-managed-node|eks-self-managed-node|eks-fargate|aks|gke-standard|gke-autopilot)")
	fs.String("aws-profile", "", "AWS shared config profile (env AWS_PROFILE)")
	fs.String("azure-subscription-id", "", "Azure subscription ID (env AZURE_SUBSCRIPTION_ID)")
	fs.String("azure-tenant-id", "", "Azure tenant ID (env AZURE_TENANT_ID)")
	fs.String("azure-auth-method", "", "Azure credential (default|client_secret|managed_identity|workload_identity|azure_cli|azure_developer_cli|device_code|interactive_browser)")
	fs.String("azure-resource-group", "", "Azure resource group (default <cluster>-rg)")
	fs.String("gcp-project", "", "GCP project (env GOOGLE_CLOUD_PROJECT)")
}

// addProvisionFlags adds the flags that shape a new cluster.
func addProvisionFlags(fs *pflag.FlagSet) {
	fs.Int("node-count", kprotectcfg.DefaultNodeCount, "Number of worker nodes")
	fs.String("node-size", "", "Node instance type or VM size")
	fs.String("kubernetes-version", "", "Kubernetes version (default provider default)")
	fs.String("aws-cluster-role-arn", "", "IAM role of the EKS control plane")
	fs.String("aws-node-role-arn", "", "IAM role of EKS worker nodes")
	fs.String("aws-pod-execution-role-arn", "", "IAM pod execution role of the Fargate profile")
	fs.StringSlice("aws-subnet-ids", nil, "Subnets of the EKS cluster")
	fs.StringSlice("aws-security-group-ids", nil, "Extra security groups of the EKS cluster")
	fs.StringSlice("aws-fargate-namespaces", nil, "Namespaces scheduled on Fargate")
}

// addInstallFlags adds the component install flags.
func addInstallFlags(fs *pflag.FlagSet) {
	fs.String("falcon-client-id", "", "Falcon API client ID (env FALCON_CLIENT_ID)")
	fs.String("falcon-client-secret", "", "Falcon API client secret (env FALCON_CLIENT_SECRET)")
	fs.String("falcon-cloud", "", "Falcon cloud (us-1|us-2|eu-1|us-gov-1) (env FALCON_CLOUD)")
	fs.String("falcon-tags", "", "Comma separated sensor grouping tags")
	fs.String("proxy-host", "", "Proxy host for the agents")
	fs.String("proxy-port", "", "Proxy port for the agents")
	fs.String("sensor-version", "", "Sensor image tag prefix")
	fs.String("kac-version", "", "KAC image tag prefix")
	fs.String("iar-version", "", "IAR image tag prefix")
	fs.String("kpa-version", "", "KPA image tag prefix")
	fs.String("registry", "", "Private registry host[/path] to copy images into")
	fs.Bool("kernel-mode", false, "Run the daemonset sensor with the kernel module backend")
	fs.Bool("ebpf-mode", false, "Run the daemonset sensor with the eBPF backend")
	fs.StringSlice("helm-values", nil, "Extra helm values files")
	fs.StringArray("helm-set", nil, "Extra helm values (key=value)")
	fs.Duration("helm-timeout", kprotectcfg.DefaultHelmTimeout, "Helm install timeout")
	fs.Duration("wait-timeout", kprotectcfg.DefaultWaitTimeout, "Timeout for pods to reach Running")
	fs.String("kubeconfig", "", "Use this kubeconfig instead of asking the cloud")
	fs.String("context", "", "Kubeconfig context to use")
}

// loadConfig merges flags, environment and the config file.
func loadConfig(cmd *cobra.Command, provider model.CloudProvider) (*kprotectcfg.Root, error) {
	v := kprotectcfg.NewViper()
	if err := kprotectcfg.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := kprotectcfg.Load(v, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(provider); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseProvider parses a provider argument.
func parseProvider(arg string) (model.CloudProvider, error) {
	return model.ParseCloudProvider(arg)
}

// clusterTarget maps the config onto a cluster target with driver settings.
func clusterTarget(cfg *kprotectcfg.Root, provider model.CloudProvider) (cluster.Target, error) {
	t := cluster.Target{
		Provider: provider,
		Name:     cfg.Cluster.Name,
		Region:   cfg.Cluster.Region,
		Settings: clusterSettings(cfg, provider),
	}
	if cfg.Cluster.Type != "" {
		ct, err := model.ParseClusterType(provider, cfg.Cluster.Type)
		if err != nil {
			return t, err
		}
		t.Type = ct
	}
	return t, nil
}

func clusterSettings(cfg *kprotectcfg.Root, provider model.CloudProvider) map[string]string {
	s := map[string]string{
		model.SettingNodeSize:          cfg.Cluster.NodeSize,
		model.SettingKubernetesVersion: cfg.Cluster.KubernetesVersion,
	}
	if cfg.Cluster.NodeCount > 0 {
		s[model.SettingNodeCount] = strconv.Itoa(cfg.Cluster.NodeCount)
	}
	switch provider {
	case model.ProviderAWS:
		s[model.SettingAWSProfile] = cfg.AWS.Profile
		s[model.SettingAWSClusterRoleARN] = cfg.AWS.ClusterRoleARN
		s[model.SettingAWSNodeRoleARN] = cfg.AWS.NodeRoleARN
		s[model.SettingAWSPodExecutionRoleARN] = cfg.AWS.PodExecutionRoleARN
		s[model.SettingAWSSubnetIDs] = strings.Join(cfg.AWS.SubnetIDs, ",")
		s[model.SettingAWSSecurityGroupIDs] = strings.Join(cfg.AWS.SecurityGroupIDs, ",")
		s[model.SettingAWSFargateNamespaces] = strings.Join(cfg.AWS.FargateNamespaces, ",")
	case model.ProviderAzure:
		s[model.SettingAzureSubscriptionID] = cfg.Azure.SubscriptionID
		s[model.SettingAzureTenantID] = cfg.Azure.TenantID
		s[model.SettingAzureAuthMethod] = cfg.Azure.AuthMethod
		s[model.SettingAzureResourceGroup] = cfg.Azure.ResourceGroup
	case model.ProviderGCP:
		s[model.SettingGCPProject] = cfg.GCP.Project
	}
	for k, v := range s {
		if v == "" {
			delete(s, k)
		}
	}
	return s
}

// componentTarget adds the local kubeconfig selection to the cluster target.
func componentTarget(cfg *kprotectcfg.Root, provider model.CloudProvider) (component.Target, error) {
	t, err := clusterTarget(cfg, provider)
	if err != nil {
		return component.Target{}, err
	}
	return component.Target{Target: t, Kubeconfig: cfg.Cluster.Kubeconfig, Context: cfg.Cluster.Context}, nil
}

// componentOptions maps the config onto install options.
func componentOptions(cfg *kprotectcfg.Root, interactive bool) component.Options {
	helmTimeout := cfg.Helm.Timeout
	if helmTimeout <= 0 {
		helmTimeout = kprotectcfg.DefaultHelmTimeout
	}
	waitTimeout := cfg.Helm.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = kprotectcfg.DefaultWaitTimeout
	}
	registry := ""
	if cfg.Registry.URL != "" {
		registry = kprotectcfg.RegistryRepository(cfg.Registry.URL)
	}
	return component.Options{
		Falcon:     cfg.FalconCredentials(),
		KernelMode: cfg.Sensor.KernelMode,
		EBPFMode:   cfg.Sensor.EBPFMode,
		Tags:       cfg.Falcon.Tags,
		ProxyHost:  cfg.Falcon.ProxyHost,
		ProxyPort:  cfg.Falcon.ProxyPort,
		Versions: map[model.Component]string{
			model.ComponentSensor: cfg.Falcon.SensorVersion,
			model.ComponentKAC:    cfg.Falcon.KACVersion,
			model.ComponentIAR:    cfg.Falcon.IARVersion,
			model.ComponentKPA:    cfg.Falcon.KPAVersion,
		},
		Registry:    registry,
		ValueFiles:  cfg.Helm.ValuesFiles,
		Set:         cfg.Helm.Set,
		HelmTimeout: helmTimeout,
		WaitTimeout: waitTimeout,
		Interactive: interactive,
	}
}
