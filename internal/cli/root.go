package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/admit/internal/config"
)

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
}

// NewRootCmd creates the root admit command.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "admit",
		Short: "Multi-window sliding admission control",
		Long: `admit delays calls until every configured sliding window has room.

Each limit is "max/window" (for example 10/3s, 100/1m, 1000/24h). A call is
admitted once all windows allow it; callers that would exceed a window wait
instead of being rejected.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (JSON or YAML)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with ADMIT_* variables (skipped if missing)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")

	root.AddCommand(
		newServerCmd(opts),
		newRunCmd(opts),
		newSimulateCmd(opts),
		newGenerateCmd(),
		newCheckCmd(opts),
	)

	return root
}

// load builds the effective config for cmd: defaults, file, .env,
// environment, then the log flags if they were given explicitly.
func (o *globalOptions) load(cmd *cobra.Command) (config.Config, error) {
	var envFiles []string
	if o.envFile != "" {
		envFiles = append(envFiles, o.envFile)
	}
	cfg, err := config.Load(o.configPath, envFiles...)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}

// setup loads the config and builds the logger from it.
func (o *globalOptions) setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := o.load(cmd)
	if err != nil {
		return cfg, nil, err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}
