package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/admit/internal/config"
	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

func newCheckCmd(global *globalOptions) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the effective limits",
		Long: `Loads the configuration exactly as the other commands do (defaults, config
file, .env file, ADMIT_* variables) and validates it.`,
		Example: `  admit check --config admit.yaml
  ADMIT_LIMITS=5/1s,50/1m admit check --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				if cfg.Recorder.Redis.Password != "" {
					cfg.Recorder.Redis.Password = "redacted"
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			return printConfig(out, cfg)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "print the effective configuration as JSON")
	return cmd
}

func printConfig(w io.Writer, cfg config.Config) error {
	limits, err := cfg.LimitSet()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Configuration OK")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Limits:")
	for _, l := range limits {
		fmt.Fprintf(w, "    %-14s at most %d per %s\n", l, l.MaxCount(), l.Window())
	}
	fmt.Fprintf(w, "  Strategy:      %s\n", orDefault(cfg.Admission.Strategy, string(limiter.StrategyPoll)))
	fmt.Fprintf(w, "  Poll interval: %s\n", cfg.Admission.PollInterval)
	fmt.Fprintf(w, "  Server:        %s\n", cfg.Server.Addr)
	fmt.Fprintf(w, "  Work:          %s\n", cfg.Action.Work)
	fmt.Fprintf(w, "  Record stream: %s\n", orDefault(cfg.Recorder.Path, "off"))
	fmt.Fprintf(w, "  Redis stream:  %s\n", redisSummary(cfg.Recorder.Redis))
	fmt.Fprintf(w, "  Log:           %s (%s)\n", cfg.Log.Level, cfg.Log.Format)
	if cfg.Metrics.Enabled {
		fmt.Fprintf(w, "  Metrics:       %s\n", cfg.Metrics.Path)
	} else {
		fmt.Fprintln(w, "  Metrics:       off")
	}
	return nil
}

func redisSummary(r config.RedisConfig) string {
	if r.Addr == "" {
		return "off"
	}
	return fmt.Sprintf("%s db %d key %s", r.Addr, r.DB, r.Stream)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
