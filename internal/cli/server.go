package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/admit/internal/clock"
	"github.com/SmitUplenchwar2687/admit/internal/limiter"
	"github.com/SmitUplenchwar2687/admit/internal/metrics"
	"github.com/SmitUplenchwar2687/admit/internal/server"
)

func newServerCmd(global *globalOptions) *cobra.Command {
	var (
		addr       string
		work       time.Duration
		recordFile string
		admission  admissionOptions
		recording  recorderOptions
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the admit HTTP server",
		Long: `Starts an HTTP server whose demo action is gated by the configured limits.
Requests that would exceed a window wait until every window has room.

Endpoints:
  GET /                     Server info and current time
  GET /health               Health check
  GET /api/status           Per-limit occupancy and required delay
  GET /api/execute          Execute with the client address as argument
  GET /api/execute/{arg}    Execute with an explicit argument
  GET /metrics              Prometheus metrics
  GET /dashboard/           Live visual dashboard
  WS  /ws                   WebSocket stream of admission records`,
		Example: `  admit server
  admit server --addr :9090 --limits 5/1s,100/1m --strategy serialized
  admit server --config admit.yaml --record admissions.json
  admit server --redis-host localhost:6379`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := global.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("work") {
				work = cfg.Action.Work
			}
			if err := admission.applyConfigIfUnset(cmd, &cfg); err != nil {
				return err
			}
			recording.applyConfigIfUnset(cmd, &cfg.Recorder)

			limits, strategy, err := admission.resolve()
			if err != nil {
				return err
			}

			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rec, closeRecorder, err := recording.open(ctx, log)
			if err != nil {
				return err
			}

			clk := clock.NewRealClock()
			hub := server.NewHub(log)
			reg := prometheus.NewRegistry()
			copts := append(admission.options(strategy),
				limiter.WithName("server"),
				limiter.WithClock(clk),
				limiter.WithLogger(log),
				limiter.WithObserver(hub),
				limiter.WithObserver(rec),
			)
			if cfg.Metrics.Enabled {
				copts = append(copts, limiter.WithObserver(metrics.New(reg)))
			}

			coord, err := limiter.New(server.EchoAction(clk, work), limits, copts...)
			if err != nil {
				return errs.Combine(err, closeRecorder())
			}

			opts := server.Options{
				Hub:    hub,
				Logger: log,
			}
			if cfg.Metrics.Enabled {
				reg.MustRegister(
					metrics.NewOccupancyCollector(coord.Name(), coord),
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				opts.Gatherer = reg
				opts.MetricsPath = cfg.Metrics.Path
			}

			srv := server.New(addr, coord, clk, opts)

			log.Info("admission limits",
				zap.String("limits", limiter.FormatLimits(limits)),
				zap.String("strategy", string(coord.Strategy())))
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: http://localhost%s/dashboard/\n", addr)
			fmt.Fprintf(cmd.OutOrStdout(), "API:       http://localhost%s/api/execute/{arg}\n", addr)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return errs.Combine(err, closeRecorder())
			case <-ctx.Done():
				log.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				err := srv.Shutdown(shutdownCtx)

				// Export recordings if enabled.
				if recordFile != "" {
					log.Info("exporting records", zap.Int("count", rec.Len()), zap.String("path", recordFile))
					err = errs.Combine(err, rec.ExportFile(recordFile))
				}
				return errs.Combine(err, closeRecorder())
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().DurationVar(&work, "work", 0, "simulated work per admitted call")
	cmd.Flags().StringVar(&recordFile, "record", "", "export admission records to a JSON file on shutdown")
	admission.addFlags(cmd)
	recording.addFlags(cmd)

	return cmd
}
