package kprotectcfg

import (
	"fmt"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/internal/naming"
)

// Validate performs semantic validation that does not depend on the command.
// An empty provider skips provider specific checks.
func (r *Root) Validate(provider model.CloudProvider) error {
	if _, err := model.ParseFalconCloud(r.Falcon.Cloud); err != nil {
		return fmt.Errorf("falcon.cloud: %w", err)
	}
	if r.Cluster.Type != "" {
		if _, err := model.ParseClusterType(provider, r.Cluster.Type); err != nil {
			return fmt.Errorf("cluster.type: %w", err)
		}
	}
	if r.Cluster.Name != "" && provider != "" {
		if err := naming.ValidateClusterName(string(provider), r.Cluster.Name); err != nil {
			return fmt.Errorf("cluster.name: %w: %v", model.ErrInvalidOptions, err)
		}
	}
	if r.Cluster.NodeCount < 1 {
		return fmt.Errorf("cluster.node_count: %w: must be at least 1", model.ErrInvalidOptions)
	}
	if r.Sensor.KernelMode && r.Sensor.EBPFMode {
		return fmt.Errorf("%w: --kernel-mode and --ebpf-mode are mutually exclusive", model.ErrInvalidOptions)
	}
	if r.Registry.URL != "" {
		if _, err := name.NewRepository(RegistryRepository(r.Registry.URL), name.StrictValidation); err != nil {
			// a bare host is a valid registry target too
			if _, herr := name.NewRegistry(RegistryRepository(r.Registry.URL), name.StrictValidation); herr != nil {
				return fmt.Errorf("registry.url: %w: %v", model.ErrInvalidOptions, err)
			}
		}
	}
	return nil
}

// RegistryRepository strips a URL scheme and trailing slashes from a registry URL.
func RegistryRepository(url string) string {
	url = strings.TrimSpace(url)
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	return strings.TrimRight(url, "/")
}

// FalconCredentials returns the vendor credentials; the cloud is assumed valid.
func (r *Root) FalconCredentials() model.FalconCredentials {
	cloud, _ := model.ParseFalconCloud(r.Falcon.Cloud)
	return model.FalconCredentials{
		ClientID:     strings.TrimSpace(r.Falcon.ClientID),
		ClientSecret: strings.TrimSpace(r.Falcon.ClientSecret),
		Cloud:        cloud,
	}
}

// SensorBackend returns the backend chosen by --kernel-mode/--ebpf-mode, or "".
func (r *Root) SensorBackend() model.SensorBackend {
	switch {
	case r.Sensor.KernelMode:
		return model.BackendKernel
	case r.Sensor.EBPFMode:
		return model.BackendBPF
	}
	return ""
}
