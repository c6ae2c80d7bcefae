package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	_ "github.com/kompox/kprotect/adapters/drivers/provider/aks"
	_ "github.com/kompox/kprotect/adapters/drivers/provider/eks"
	_ "github.com/kompox/kprotect/adapters/drivers/provider/gke"
	"github.com/kompox/kprotect/internal/logging"
)

// logRetentionDays bounds how long kprotect-*.log files are kept.
const logRetentionDays = 7

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultDBURL() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "file:.kprotect/state.yml"
	}
	return "file:" + filepath.Join(home, ".kprotect", "state.yml")
}

func newRootCmd() *cobra.Command {
	var logFile *logging.LogFile
	cmd := &cobra.Command{
		Use:     "kprotect",
		Short:   "Provision Kubernetes clusters and install the Falcon agents",
		Long:    "kprotect creates EKS, AKS and GKE clusters and installs the Falcon sensor, KAC, IAR and KPA along with demo workloads.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", os.Getenv("KPROTECT_CONFIG"), "Config file with flag defaults (env KPROTECT_CONFIG) (default kprotect.yml when present)")
	pf.String("db-url", envOr("KPROTECT_DB_URL", defaultDBURL()), "State store URL (env KPROTECT_DB_URL) (file:/path/state.yml | sqlite:/path/state.db)")
	pf.String("log-format", envOr("KPROTECT_LOG_FORMAT", "human"), "Console log format (human|text|json) (env KPROTECT_LOG_FORMAT)")
	pf.String("log-level", envOr("KPROTECT_LOG_LEVEL", "INFO"), "Console log level (env KPROTECT_LOG_LEVEL)")
	pf.String("log-dir", os.Getenv("KPROTECT_LOG_DIR"), "Log file directory (env KPROTECT_LOG_DIR) (default "+logging.SystemLogDir+")")
	pf.String("log-output", "", "Log file name, - for stderr, none to disable")
	pf.Bool("non-interactive", false, "Never prompt; fail when a cloud login is required")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		format, _ := c.Flags().GetString("log-format")
		levelName, _ := c.Flags().GetString("log-level")
		dir, _ := c.Flags().GetString("log-dir")
		output, _ := c.Flags().GetString("log-output")

		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}
		console, err := logging.New(format, level)
		if err != nil {
			return err
		}
		if dir == "" {
			dir = logging.DefaultDir()
		}
		lf, err := logging.NewLogFile(&logging.LogConfig{Output: output, Dir: dir})
		if err != nil {
			return err
		}
		logFile = lf
		file, err := logging.NewWithWriter("json", slog.LevelDebug, lf.Writer())
		if err != nil {
			return err
		}
		l := logging.Tee(console, file).With("runId", uuid.NewString())
		ctx := logging.WithLogger(c.Context(), l)
		c.SetContext(ctx)
		if err := logging.CleanupOldLogFiles(dir, logRetentionDays); err != nil {
			l.Debug(ctx, "log cleanup failed", "err", err)
		}
		if lf.Path != "" {
			l.Debug(ctx, "logging to file", "path", lf.Path)
		}
		quietKlog()
		return nil
	}
	cmd.PersistentPostRunE = func(c *cobra.Command, _ []string) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	}

	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdCreate())
	cmd.AddCommand(newCmdDelete())
	cmd.AddCommand(newCmdInstall())
	cmd.AddCommand(newCmdUninstall())
	cmd.AddCommand(newCmdUpgrade())
	cmd.AddCommand(newCmdLogin())
	cmd.AddCommand(newCmdCluster())
	return cmd
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	executed, err := root.ExecuteC()
	if err != nil {
		ctx := root.Context()
		if executed != nil && executed.Context() != nil {
			ctx = executed.Context()
		}
		logging.FromContext(ctx).Errorf(ctx, "Failed: %s", err)
		os.Exit(1)
	}
}
