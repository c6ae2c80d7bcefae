package main

import (
	"github.com/spf13/cobra"

	"github.com/kompox/kprotect/usecase/cluster"
)

func newCmdDelete() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "delete <provider> cluster",
		Short: "Delete a cluster and forget it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			provider, err := parseProvider(args[0])
			if err != nil {
				return err
			}
			if err := requireResource(args, "cluster"); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, provider)
			if err != nil {
				return err
			}
			target, err := clusterTarget(cfg, provider)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "delete", string(provider)+"/"+target.Name)
			defer func() { cleanup(err) }()

			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			out, err := u.Delete(ctx, &cluster.DeleteInput{Target: target, Purge: purge, Interactive: interactive(cmd)})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	addClusterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&purge, "purge", false, "Also delete the Azure resource group")
	return cmd
}
