package kprotectcfg

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "kprotect.yml"

// Defaults applied below flags, env and the config file.
const (
	DefaultNodeCount   = 2
	DefaultHelmTimeout = 10 * time.Minute
	DefaultWaitTimeout = 5 * time.Minute
)

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"falcon-client-id":           "falcon.client_id",
	"falcon-client-secret":       "falcon.client_secret",
	"falcon-cloud":               "falcon.cloud",
	"falcon-tags":                "falcon.tags",
	"proxy-host":                 "falcon.proxy_host",
	"proxy-port":                 "falcon.proxy_port",
	"sensor-version":             "falcon.sensor_version",
	"kac-version":                "falcon.kac_version",
	"iar-version":                "falcon.iar_version",
	"kpa-version":                "falcon.kpa_version",
	"cluster-name":               "cluster.name",
	"region":                     "cluster.region",
	"cluster-type":               "cluster.type",
	"node-count":                 "cluster.node_count",
	"node-size":                  "cluster.node_size",
	"kubernetes-version":         "cluster.kubernetes_version",
	"kubeconfig":                 "cluster.kubeconfig",
	"context":                    "cluster.context",
	"aws-profile":                "aws.profile",
	"aws-cluster-role-arn":       "aws.cluster_role_arn",
	"aws-node-role-arn":          "aws.node_role_arn",
	"aws-pod-execution-role-arn": "aws.pod_execution_role_arn",
	"aws-subnet-ids":             "aws.subnet_ids",
	"aws-security-group-ids":     "aws.security_group_ids",
	"aws-fargate-namespaces":     "aws.fargate_namespaces",
	"azure-subscription-id":      "azure.subscription_id",
	"azure-tenant-id":            "azure.tenant_id",
	"azure-auth-method":          "azure.auth_method",
	"azure-resource-group":       "azure.resource_group",
	"gcp-project":                "gcp.project",
	"registry":                   "registry.url",
	"kernel-mode":                "sensor.kernel_mode",
	"ebpf-mode":                  "sensor.ebpf_mode",
	"helm-values":                "helm.values_files",
	"helm-set":                   "helm.set",
	"helm-timeout":               "helm.timeout",
	"wait-timeout":               "helm.wait_timeout",
}

// envKeys are the conventional variables honored besides KPROTECT_<KEY>.
var envKeys = map[string][]string{
	"falcon.client_id":      {"FALCON_CLIENT_ID"},
	"falcon.client_secret":  {"FALCON_CLIENT_SECRET"},
	"falcon.cloud":          {"FALCON_CLOUD"},
	"aws.profile":           {"AWS_PROFILE"},
	"azure.subscription_id": {"AZURE_SUBSCRIPTION_ID"},
	"azure.tenant_id":       {"AZURE_TENANT_ID"},
	"azure.auth_method":     {"AZURE_AUTH_METHOD"},
	"gcp.project":           {"GOOGLE_CLOUD_PROJECT", "CLOUDSDK_CORE_PROJECT"},
}

// NewViper returns a viper instance with kprotect env bindings and defaults.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("KPROTECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envKeys {
		_ = v.BindEnv(append([]string{key, "KPROTECT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, envs...)...)
	}
	v.SetDefault("cluster.node_count", DefaultNodeCount)
	v.SetDefault("helm.timeout", DefaultHelmTimeout)
	v.SetDefault("helm.wait_timeout", DefaultWaitTimeout)
	return v
}

// BindFlags binds every known flag present in fs to its config key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load reads path (or DefaultFile when present and path is empty) into v and
// decodes the merged flag, env, file and default values.
func Load(v *viper.Viper, path string) (*Root, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}
