package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
	"github.com/SmitUplenchwar2687/admit/internal/recorder"
	"github.com/SmitUplenchwar2687/admit/internal/replay"
)

func newSimulateCmd(global *globalOptions) *cobra.Command {
	var (
		file        string
		recordsFile string
		work        time.Duration
		args        []string
		after       time.Duration
		before      time.Duration
		timeline    bool
		outputJSON  bool
		admission   admissionOptions
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a trace through the limits on a virtual clock",
		Long: `Runs every arrival of a trace through a real coordinator whose clock is
virtual. Time jumps straight to the next wakeup, so a day of traffic against
24h windows finishes in moments, and admission times are reproducible.

The input is either a trace ("admit generate trace") or a JSON export of
admission records ("admit server --record" or "admit run --record"), whose
request times become the arrivals.`,
		Example: `  admit simulate --file trace.json
  admit simulate --file trace.json --limits 2/300ms,3/600ms --strategy serialized
  admit simulate --records admissions.json --args user-1 --timeline
  admit simulate --file trace.json --after 10s --before 1m --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (file == "") == (recordsFile == "") {
				return fmt.Errorf("exactly one of --file or --records is required")
			}

			cfg, log, err := global.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := admission.applyConfigIfUnset(cmd, &cfg); err != nil {
				return err
			}
			limits, strategy, err := admission.resolve()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("work") {
				work = cfg.Action.Work
			}

			trace, err := loadSimulationInput(file, recordsFile)
			if err != nil {
				return err
			}

			log.Debug("simulating",
				zap.Int("arrivals", len(trace.Arrivals)),
				zap.Duration("span", trace.Span()),
				zap.String("limits", limiter.FormatLimits(limits)))

			summary, err := replay.Simulate(cmd.Context(), trace, limits, replay.Options{
				Strategy:     strategy,
				PollInterval: admission.pollInterval,
				Work:         work,
				Filter: replay.Filter{
					Args:   args,
					After:  after,
					Before: before,
				},
				Logger: log,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return err
				}
			} else {
				printSimulation(out, summary, limits, strategy, timeline)
			}
			return recorder.CheckReports(summary.Limits)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "trace file (JSON)")
	cmd.Flags().StringVar(&recordsFile, "records", "", "exported admission records to replay (JSON)")
	cmd.Flags().DurationVar(&work, "work", 0, "virtual work per admitted call")
	cmd.Flags().StringSliceVar(&args, "args", nil, "only replay arrivals whose arg contains one of these")
	cmd.Flags().DurationVar(&after, "after", 0, "only replay arrivals after this offset")
	cmd.Flags().DurationVar(&before, "before", 0, "only replay arrivals before this offset")
	cmd.Flags().BoolVar(&timeline, "timeline", false, "print every call")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")
	admission.addFlags(cmd)

	return cmd
}

func loadSimulationInput(file, recordsFile string) (replay.Trace, error) {
	if file != "" {
		return replay.LoadTraceFile(file)
	}

	f, err := os.Open(recordsFile)
	if err != nil {
		return replay.Trace{}, fmt.Errorf("opening records: %w", err)
	}
	defer f.Close()

	records, err := recorder.LoadJSON(f)
	if err != nil {
		return replay.Trace{}, fmt.Errorf("reading records: %w", err)
	}
	return replay.FromRecords(records), nil
}

func printSimulation(w io.Writer, s *replay.Summary, limits []limiter.Limit, strategy limiter.Strategy, timeline bool) {
	fmt.Fprintln(w, "=== admit simulate ===")
	fmt.Fprintf(w, "  limits:    %s\n", limiter.FormatLimits(limits))
	fmt.Fprintf(w, "  strategy:  %s\n", strategy)
	fmt.Fprintln(w)

	if timeline {
		for _, r := range s.Results {
			binding := "-"
			if r.Binding != "" {
				binding = r.Binding
			}
			fmt.Fprintf(w, "  #%04d %-12s arrived +%-10s admitted +%-10s delay %-10s binding %s\n",
				r.Index, r.Arg, r.Arrival, r.Admitted, r.Delay, binding)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "--- Summary ---")
	fmt.Fprintf(w, "  arrivals:   %d (%d after filter)\n", s.TotalArrivals, s.Filtered)
	fmt.Fprintf(w, "  admitted:   %d (%d delayed)\n", s.Admitted, s.Delayed)
	fmt.Fprintf(w, "  max delay:  %s\n", s.MaxDelay)
	fmt.Fprintf(w, "  mean delay: %s\n", s.MeanDelay)
	fmt.Fprintf(w, "  virtual:    %s\n", s.Duration)
	fmt.Fprintf(w, "  wall:       %s\n", s.WallDuration.Round(time.Microsecond))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "--- Windows ---")
	for _, l := range s.Limits {
		status := "ok"
		if !l.OK {
			status = "EXCEEDED"
		}
		fmt.Fprintf(w, "  %-14s peak %d/%d  %s\n", l.Limit, l.Peak, l.Max, status)
	}
}
