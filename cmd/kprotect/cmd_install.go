package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/usecase/component"
)

const resourcesHelp = "sensor|kac|iar|kpa|demo|misconfigs|all"

// componentArgs parses <provider> <resource>.
func componentArgs(args []string) (model.CloudProvider, []model.Component, error) {
	provider, err := parseProvider(args[0])
	if err != nil {
		return "", nil, err
	}
	comps, err := model.ParseComponents(args[1])
	if err != nil {
		return "", nil, err
	}
	return provider, comps, nil
}

func newCmdInstall() *cobra.Command {
	return newCmdInstallLike("install", "Install components into a cluster", false)
}

func newCmdUpgrade() *cobra.Command {
	return newCmdInstallLike("upgrade", "Upgrade installed components", true)
}

func newCmdInstallLike(verb, short string, upgrade bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <provider> <%s>", verb, resourcesHelp),
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			provider, comps, err := componentArgs(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, provider)
			if err != nil {
				return err
			}
			target, err := componentTarget(cfg, provider)
			if err != nil {
				return err
			}
			in := &component.InstallInput{Target: target, Components: comps, Options: componentOptions(cfg, interactive(cmd))}
			// usage errors surface before anything is contacted
			if err := component.Validate(target.Type, comps, &in.Options); err != nil {
				return err
			}

			ctx, cleanup := withCmdRunLogger(cmd.Context(), verb, string(provider)+"/"+args[1])
			defer func() { cleanup(err) }()

			u, err := buildComponentUseCase(cmd, cfg, nil)
			if err != nil {
				return err
			}
			var out *component.InstallOutput
			if upgrade {
				out, err = u.Upgrade(ctx, in)
			} else {
				out, err = u.Install(ctx, in)
			}
			if out != nil {
				if perr := printJSON(cmd.OutOrStdout(), out); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}
	addClusterFlags(cmd.Flags())
	addInstallFlags(cmd.Flags())
	return cmd
}

func newCmdUninstall() *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("uninstall <provider> <%s>", resourcesHelp),
		Short: "Remove components from a cluster",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			provider, comps, err := componentArgs(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, provider)
			if err != nil {
				return err
			}
			target, err := componentTarget(cfg, provider)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "uninstall", string(provider)+"/"+args[1])
			defer func() { cleanup(err) }()

			u, err := buildComponentUseCase(cmd, cfg, nil)
			if err != nil {
				return err
			}
			out, err := u.Uninstall(ctx, &component.UninstallInput{Target: target, Components: comps, Interactive: interactive(cmd)})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	addClusterFlags(cmd.Flags())
	cmd.Flags().String("kubeconfig", "", "Use this kubeconfig instead of asking the cloud")
	cmd.Flags().String("context", "", "Kubeconfig context to use")
	return cmd
}
