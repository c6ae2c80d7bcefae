package main

import (
	"github.com/spf13/cobra"

	"github.com/kompox/kprotect/usecase/cluster"
)

func newCmdLogin() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Check the cloud login, logging in interactively when needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			provider, err := parseProvider(args[0])
			if err != nil {
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
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "login", string(provider))
			defer func() { cleanup(err) }()

			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			id, err := u.Login(ctx, &cluster.LoginInput{Target: target, Interactive: interactive(cmd)})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), id)
		},
	}
	addClusterFlags(cmd.Flags())
	return cmd
}
