package main

import (
	"github.com/spf13/cobra"

	providerdrv "github.com/kompox/kprotect/adapters/drivers/provider"
	"github.com/kompox/kprotect/adapters/falcon"
	"github.com/kompox/kprotect/adapters/kube"
	"github.com/kompox/kprotect/adapters/registry"
	"github.com/kompox/kprotect/config/kprotectcfg"
	"github.com/kompox/kprotect/internal/credstore"
	"github.com/kompox/kprotect/internal/shell"
	"github.com/kompox/kprotect/internal/terminal"
	"github.com/kompox/kprotect/usecase/cluster"
	"github.com/kompox/kprotect/usecase/component"
)

// buildDriverDeps returns the local facilities used by interactive logins.
func buildDriverDeps() *providerdrv.Deps {
	return &providerdrv.Deps{
		Creds:    credstore.Default(),
		Prompter: terminal.NewPrompter(),
		Shell:    shell.NewExecRunner(),
	}
}

// interactive reports whether logins may prompt.
func interactive(cmd *cobra.Command) bool {
	if v, err := cmd.Flags().GetBool("non-interactive"); err == nil && v {
		return false
	}
	return terminal.NewPrompter().Interactive()
}

// buildClusterUseCase creates cluster use case with required repositories and ports.
func buildClusterUseCase(cmd *cobra.Command) (*cluster.UseCase, error) {
	r, err := buildRepositories(cmd)
	if err != nil {
		return nil, err
	}
	return &cluster.UseCase{
		Repos:         &cluster.Repos{Cluster: r.Cluster, Installation: r.Installation, Setting: r.Setting},
		ClusterPort:   providerdrv.GetClusterPort(buildDriverDeps()),
		KubeConnector: kube.Connect,
		Progress:      cmd.ErrOrStderr(),
	}, nil
}

// buildComponentUseCase creates component use case on top of clusters, which
// shares its state store. A nil clusters builds a new one.
func buildComponentUseCase(cmd *cobra.Command, cfg *kprotectcfg.Root, clusters *cluster.UseCase) (*component.UseCase, error) {
	if clusters == nil {
		var err error
		if clusters, err = buildClusterUseCase(cmd); err != nil {
			return nil, err
		}
	}
	uc := &component.UseCase{
		Repos:           &component.Repos{Cluster: clusters.Repos.Cluster, Installation: clusters.Repos.Installation},
		Clusters:        clusters,
		ClusterPort:     clusters.ClusterPort,
		KubeConnector:   kube.Connect,
		VendorConnector: falcon.Connect,
		Progress:        cmd.ErrOrStderr(),
	}
	if cfg.Registry.URL != "" {
		creds, err := buildRegistryCredentials(cmd.Context(), cfg)
		if err != nil {
			return nil, err
		}
		uc.Mirror = &registry.Mirror{Credentials: creds, Copier: &registry.Copier{}}
	}
	return uc, nil
}
