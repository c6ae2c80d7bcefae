package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kompox/kprotect/domain/model"
	"github.com/kompox/kprotect/usecase/cluster"
	"github.com/kompox/kprotect/usecase/component"
)

// chainFlags maps create flags onto the components installed afterwards.
var chainFlags = []struct {
	flag      string
	component model.Component
	usage     string
}{
	{"install-sensor", model.ComponentSensor, "Install the Falcon sensor after creation"},
	{"install-kac", model.ComponentKAC, "Install the admission controller after creation"},
	{"install-iar", model.ComponentIAR, "Install image assessment after creation"},
	{"install-kpa", model.ComponentKPA, "Install the protection agent after creation"},
	{"install-demo", model.ComponentDemo, "Install the demo applications after creation"},
	{"generate-misconfigs", model.ComponentMisconfigs, "Create sample misconfigurations after creation"},
}

// requireResource checks the resource argument of create and delete.
func requireResource(args []string, want string) error {
	if len(args) < 2 || args[1] != want {
		return fmt.Errorf("%w: expected resource %q", model.ErrInvalidOptions, want)
	}
	return nil
}

func newCmdCreate() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "create <provider> cluster",
		Short: "Create a cluster and optionally install components",
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

			var chain []model.Component
			for _, f := range chainFlags {
				if on, _ := cmd.Flags().GetBool(f.flag); on {
					chain = append(chain, f.component)
				}
			}
			opts := componentOptions(cfg, interactive(cmd))
			if len(chain) > 0 {
				ct := target.Type
				if ct == "" {
					ct = model.DefaultClusterType(provider)
				}
				if err := component.Validate(ct, chain, &opts); err != nil {
					return err
				}
			}

			ctx, cleanup := withCmdRunLogger(cmd.Context(), "create", string(provider)+"/"+target.Name)
			defer func() { cleanup(err) }()

			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			var cu *component.UseCase
			if len(chain) > 0 {
				if cu, err = buildComponentUseCase(cmd, cfg, u); err != nil {
					return err
				}
			}
			out, err := u.Create(ctx, &cluster.CreateInput{
				Target:      target,
				Force:       force,
				Interactive: opts.Interactive,
			})
			if err != nil {
				return err
			}
			if len(chain) > 0 {
				ct := component.Target{Target: cluster.Target{
					Provider: provider,
					Name:     out.Cluster.Name,
					Region:   out.Cluster.Region,
					Type:     out.Cluster.Type,
					Settings: target.Settings,
				}}
				if _, err = cu.Install(ctx, &component.InstallInput{Target: ct, Components: chain, Options: opts}); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	fs := cmd.Flags()
	addClusterFlags(fs)
	addProvisionFlags(fs)
	addInstallFlags(fs)
	fs.BoolVar(&force, "force", false, "Adopt a cluster that already exists")
	for _, f := range chainFlags {
		fs.Bool(f.flag, false, f.usage)
	}
	return cmd
}
