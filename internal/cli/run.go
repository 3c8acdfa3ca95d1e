package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SmitUplenchwar2687/admit/internal/clock"
	"github.com/SmitUplenchwar2687/admit/internal/limiter"
	"github.com/SmitUplenchwar2687/admit/internal/recorder"
	"github.com/SmitUplenchwar2687/admit/internal/server"
)

func newRunCmd(global *globalOptions) *cobra.Command {
	var (
		requests   int
		work       time.Duration
		timeout    time.Duration
		recordFile string
		outputJSON bool
		admission  admissionOptions
		recording  recorderOptions
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fire concurrent calls through the limits on the real clock",
		Long: `Starts every call at once, each on its own goroutine, and lets the
coordinator spread them out in real time. Prints when each call was admitted
and checks afterwards that no window ever held more than its maximum.

With the default limits the 11th call waits about 3s and the 101st about a
minute, so keep --requests small or pass tighter --limits for a quick look.`,
		Example: `  admit run --requests 25 --limits 10/3s
  admit run --requests 8 --limits 2/500ms,5/2s --strategy serialized
  admit run --requests 200 --record admissions.json --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if requests <= 0 {
				return fmt.Errorf("--requests must be positive, got %d", requests)
			}

			cfg, log, err := global.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := admission.applyConfigIfUnset(cmd, &cfg); err != nil {
				return err
			}
			recording.applyConfigIfUnset(cmd, &cfg.Recorder)
			limits, strategy, err := admission.resolve()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			rec, closeRecorder, err := recording.open(ctx, log)
			if err != nil {
				return err
			}

			clk := clock.NewRealClock()
			copts := append(admission.options(strategy),
				limiter.WithName("run"),
				limiter.WithClock(clk),
				limiter.WithLogger(log),
				limiter.WithObserver(rec),
			)
			coord, err := limiter.New(server.EchoAction(clk, work), limits, copts...)
			if err != nil {
				return errs.Combine(err, closeRecorder())
			}

			log.Info("starting calls",
				zap.Int("requests", requests),
				zap.String("limits", limiter.FormatLimits(limits)),
				zap.String("strategy", string(coord.Strategy())))

			start := clk.Now()
			runErr := runCalls(ctx, coord, requests)
			report := buildRunReport(coord.Strategy(), rec.Records(), limits, clk.Since(start))

			if recordFile != "" {
				runErr = errs.Combine(runErr, rec.ExportFile(recordFile))
			}
			if err := errs.Combine(runErr, closeRecorder()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printRunReport(out, report)
			}
			return recorder.CheckReports(report.Limits)
		},
	}

	cmd.Flags().IntVar(&requests, "requests", 200, "number of concurrent calls")
	cmd.Flags().DurationVar(&work, "work", 0, "work each admitted call does")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits for every call)")
	cmd.Flags().StringVar(&recordFile, "record", "", "export admission records to a JSON file")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")
	admission.addFlags(cmd)
	recording.addFlags(cmd)

	return cmd
}

// runCalls executes n calls concurrently and waits for all of them.
func runCalls(ctx context.Context, coord *limiter.Coordinator[string, server.EchoResult], n int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		arg := fmt.Sprintf("call-%03d", i+1)
		g.Go(func() error {
			_, err := coord.Execute(ctx, arg)
			return err
		})
	}
	return g.Wait()
}

// RunReport is the outcome of a run.
type RunReport struct {
	Limits   []recorder.LimitReport `json:"limits"`
	Strategy limiter.Strategy       `json:"strategy"`
	Requests int                    `json:"requests"`
	Admitted int                    `json:"admitted"`
	MaxWait  time.Duration          `json:"max_wait"`
	Elapsed  time.Duration          `json:"elapsed"`
	Calls    []RunCall              `json:"calls"`
}

// RunCall is one line of the timeline, offsets relative to the first request.
type RunCall struct {
	Arg      string        `json:"arg"`
	Admitted time.Duration `json:"admitted"`
	Wait     time.Duration `json:"wait"`
	Rounds   int           `json:"rounds"`
	Binding  string        `json:"binding,omitempty"`
	Outcome  string        `json:"outcome"`
}

func buildRunReport(strategy limiter.Strategy, records []recorder.AdmissionRecord, limits []limiter.Limit, elapsed time.Duration) RunReport {
	report := RunReport{
		Limits:   recorder.Verify(records, limits),
		Strategy: strategy,
		Requests: len(records),
		Elapsed:  elapsed,
		Calls:    make([]RunCall, 0, len(records)),
	}

	var origin time.Time
	for _, r := range records {
		if origin.IsZero() || r.RequestedAt.Before(origin) {
			origin = r.RequestedAt
		}
	}

	// Admission order first; callers that never got in go last.
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Admitted() != b.Admitted() {
			return a.Admitted()
		}
		if !a.AdmittedAt.Equal(b.AdmittedAt) {
			return a.AdmittedAt.Before(b.AdmittedAt)
		}
		return a.Seq < b.Seq
	})
	for _, r := range records {
		call := RunCall{
			Arg:     r.Arg,
			Wait:    r.Wait,
			Rounds:  r.Rounds,
			Binding: r.Binding,
			Outcome: string(r.Outcome),
		}
		if r.Admitted() {
			report.Admitted++
			call.Admitted = r.AdmittedAt.Sub(origin)
		}
		report.MaxWait = max(report.MaxWait, r.Wait)
		report.Calls = append(report.Calls, call)
	}
	return report
}

func printRunReport(w io.Writer, r RunReport) {
	fmt.Fprintln(w, "=== admit run ===")
	fmt.Fprintln(w)

	for i, c := range r.Calls {
		binding := "-"
		if c.Binding != "" {
			binding = c.Binding
		}
		fmt.Fprintf(w, "  #%03d %-10s admitted +%-12s wait %-12s rounds %-4d binding %s\n",
			i+1, c.Arg, c.Admitted.Round(time.Millisecond), c.Wait.Round(time.Millisecond), c.Rounds, binding)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "--- Summary ---")
	fmt.Fprintf(w, "  calls:    %d (%d admitted)\n", r.Requests, r.Admitted)
	fmt.Fprintf(w, "  strategy: %s\n", r.Strategy)
	fmt.Fprintf(w, "  max wait: %s\n", r.MaxWait.Round(time.Millisecond))
	fmt.Fprintf(w, "  elapsed:  %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "--- Windows ---")
	for _, l := range r.Limits {
		status := "ok"
		if !l.OK {
			status = "EXCEEDED"
		}
		fmt.Fprintf(w, "  %-14s peak %d/%d  %s\n", l.Limit, l.Peak, l.Max, status)
	}
}
