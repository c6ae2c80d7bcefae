package main

import (
	"github.com/spf13/cobra"

	"github.com/kompox/kprotect/config/kprotectcfg"
	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/usecase/cluster"
	"github.com/kompox/kprotect/usecase/component"
)

// newCmdCluster returns the parent command for cluster inspection.
func newCmdCluster() *cobra.Command {
	c := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster related commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.AddCommand(newCmdClusterList())
	c.AddCommand(newCmdClusterStatus())
	c.AddCommand(newCmdClusterKubeconfig())
	return c
}

func newCmdClusterList() *cobra.Command {
	return &cobra.Command{
		Use:   "list [provider]",
		Short: "List recorded clusters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := &cluster.ListInput{}
			if len(args) == 1 {
				p, err := parseProvider(args[0])
				if err != nil {
					return err
				}
				in.Provider = p
			}
			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			out, err := u.List(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

// clusterStatus is the output of cluster status with --releases.
type clusterStatus struct {
	*cluster.StatusOutput
	Releases []component.ReleaseState `json:"releases,omitempty"`
}

func newCmdClusterStatus() *cobra.Command {
	var withReleases bool
	cmd := &cobra.Command{
		Use:   "status <provider>",
		Short: "Show live cluster status, installed components and detected type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			provider, cfg, target, err := clusterCommandConfig(cmd, args)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "cluster.status", string(provider)+"/"+target.Name)
			defer func() { cleanup(err) }()

			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			st, err := u.Status(ctx, &cluster.StatusInput{Target: target})
			if err != nil {
				return err
			}
			out := clusterStatus{StatusOutput: st}
			if withReleases && st.Provisioned {
				cu, err := buildComponentUseCase(cmd, cfg, u)
				if err != nil {
					return err
				}
				rs, err := cu.Status(ctx, &component.StatusInput{Target: component.Target{Target: target}, Interactive: interactive(cmd)})
				if err != nil {
					return err
				}
				out.Releases = rs.Releases
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	addClusterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&withReleases, "releases", false, "Also read the helm release of every vendor component")
	return cmd
}

func newCmdClusterKubeconfig() *cobra.Command {
	var (
		admin, merge bool
		path         string
	)
	cmd := &cobra.Command{
		Use:   "kubeconfig <provider>",
		Short: "Print or merge cluster credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			provider, target, err := clusterCommandTarget(cmd, args)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "cluster.kubeconfig", string(provider)+"/"+target.Name)
			defer func() { cleanup(err) }()

			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			out, err := u.Kubeconfig(ctx, &cluster.KubeconfigInput{Target: target, Admin: admin, Merge: merge, Path: path})
			if err != nil {
				return err
			}
			if merge {
				return printJSON(cmd.OutOrStdout(), out)
			}
			_, err = cmd.OutOrStdout().Write(out.Kubeconfig)
			return err
		},
	}
	addClusterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&admin, "admin", false, "Fetch admin credentials (AKS)")
	cmd.Flags().BoolVar(&merge, "merge", false, "Merge into the kubeconfig file instead of printing")
	cmd.Flags().StringVar(&path, "kubeconfig-path", "", "Kubeconfig file to merge into (default ~/.kube/config)")
	return cmd
}

func clusterCommandTarget(cmd *cobra.Command, args []string) (model.CloudProvider, cluster.Target, error) {
	provider, _, target, err := clusterCommandConfig(cmd, args)
	return provider, target, err
}

func clusterCommandConfig(cmd *cobra.Command, args []string) (model.CloudProvider, *kprotectcfg.Root, cluster.Target, error) {
	provider, err := parseProvider(args[0])
	if err != nil {
		return "", nil, cluster.Target{}, err
	}
	cfg, err := loadConfig(cmd, provider)
	if err != nil {
		return "", nil, cluster.Target{}, err
	}
	target, err := clusterTarget(cfg, provider)
	return provider, cfg, target, err
}
