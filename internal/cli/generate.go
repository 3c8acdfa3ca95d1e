package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/admit/internal/config"
	"github.com/SmitUplenchwar2687/admit/pkg/generate"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample traces and config",
		Long: `Generates sample data for testing and experimentation.

Use "generate trace" to create a sample arrival trace for "admit simulate".
Use "generate config" to create an example config file.`,
	}

	cmd.AddCommand(newGenerateTraceCmd(), newGenerateConfigCmd())
	return cmd
}

func newGenerateTraceCmd() *cobra.Command {
	var (
		output string
		opts   = generate.DefaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Generate a sample trace JSON file",
		Long: `Creates a trace of arrivals with configurable parameters.

Patterns:
  steady    Evenly distributed arrivals
  burst     Concentrated bursts with quiet periods
  ramp      Gradually increasing arrival rate`,
		Example: `  admit generate trace --output trace.json --count 100 --args 5
  admit generate trace --output burst.json --count 200 --pattern burst --duration 10m
  admit generate trace --count 1010 --duration 24h --seed 42`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.Pattern {
			case generate.PatternSteady, generate.PatternBurst, generate.PatternRamp:
			default:
				return fmt.Errorf("unknown pattern %q, must be one of: steady, burst, ramp", opts.Pattern)
			}

			trace, err := generate.GenerateTrace(&opts)
			if err != nil {
				return err
			}
			if err := trace.WriteFile(output); err != nil {
				return fmt.Errorf("writing trace: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %d arrivals to %s\n", len(trace.Arrivals), output)
			fmt.Fprintf(out, "  Args:     %d\n", opts.Args)
			fmt.Fprintf(out, "  Span:     %s\n", trace.Span())
			fmt.Fprintf(out, "  Pattern:  %s\n", opts.Pattern)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "trace.json", "output file path")
	cmd.Flags().IntVar(&opts.Count, "count", opts.Count, "number of arrivals to generate")
	cmd.Flags().IntVar(&opts.Args, "args", opts.Args, "number of distinct call arguments")
	cmd.Flags().DurationVar(&opts.Duration, "duration", opts.Duration, "time span for generated arrivals")
	cmd.Flags().StringVar(&opts.Pattern, "pattern", opts.Pattern, "arrival pattern (steady, burst, ramp)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 picks one from the clock)")

	return cmd
}

func newGenerateConfigCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate an example config file",
		Long:  "Writes an example config file, as YAML when the output name ends in .yaml or .yml and JSON otherwise.",
		Example: `  admit generate config --output admit.json
  admit generate config --output admit.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.WriteExample(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated example config at %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "admit.json", "output file path")
	return cmd
}
