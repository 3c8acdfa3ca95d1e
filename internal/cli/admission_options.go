package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/admit/internal/config"
	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

// admissionOptions are the limit and wait-strategy flags.
type admissionOptions struct {
	limits       string
	strategy     string
	pollInterval time.Duration
}

func (o *admissionOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.limits, "limits", "10/3s,100/1m,1000/24h", "comma-separated max/window limits")
	cmd.Flags().StringVar(&o.strategy, "strategy", string(limiter.StrategyPoll), "wait strategy (poll, serialized)")
	cmd.Flags().DurationVar(&o.pollInterval, "poll-interval", limiter.DefaultPollInterval, "sleep between admission rounds (poll strategy)")
}

func (o *admissionOptions) applyConfigIfUnset(cmd *cobra.Command, cfg *config.Config) error {
	if cfg == nil {
		return nil
	}

	if !cmd.Flags().Changed("limits") {
		limits, err := cfg.LimitSet()
		if err != nil {
			return err
		}
		o.limits = limiter.FormatLimits(limits)
	}
	if !cmd.Flags().Changed("strategy") {
		o.strategy = cfg.Admission.Strategy
	}
	if !cmd.Flags().Changed("poll-interval") {
		o.pollInterval = cfg.Admission.PollInterval
	}
	return nil
}

// resolve parses the limit and strategy flags.
func (o *admissionOptions) resolve() ([]limiter.Limit, limiter.Strategy, error) {
	limits, err := limiter.ParseLimits(o.limits)
	if err != nil {
		return nil, "", err
	}
	strategy, err := limiter.ParseStrategy(o.strategy)
	if err != nil {
		return nil, "", err
	}
	return limits, strategy, nil
}

// options returns the coordinator options selecting strategy and poll interval.
func (o *admissionOptions) options(strategy limiter.Strategy) []limiter.Option {
	return []limiter.Option{
		limiter.WithStrategy(strategy),
		limiter.WithPollInterval(o.pollInterval),
	}
}
