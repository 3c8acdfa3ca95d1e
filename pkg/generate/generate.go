// Package generate builds synthetic arrival traces for simulation.
package generate

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/SmitUplenchwar2687/admit/pkg/replay"
)

const (
	// PatternSteady generates evenly spaced arrivals.
	PatternSteady = "steady"
	// PatternBurst generates clustered bursts with quiet gaps.
	PatternBurst = "burst"
	// PatternRamp generates arrival density that increases over time.
	PatternRamp = "ramp"
)

// Options controls how a synthetic trace is generated.
type Options struct {
	Count    int
	Args     int // number of distinct call arguments
	Duration time.Duration
	Pattern  string
	Seed     int64
}

// DefaultOptions returns defaults aligned with the admit CLI.
func DefaultOptions() Options {
	return Options{
		Count:    200,
		Args:     5,
		Duration: time.Minute,
		Pattern:  PatternSteady,
	}
}

// GenerateTrace creates a trace sorted by arrival offset.
func GenerateTrace(opts *Options) (replay.Trace, error) {
	if opts == nil {
		return replay.Trace{}, fmt.Errorf("options are required")
	}
	if opts.Count <= 0 {
		return replay.Trace{}, fmt.Errorf("count must be positive, got %d", opts.Count)
	}
	if opts.Args <= 0 {
		return replay.Trace{}, fmt.Errorf("args must be positive, got %d", opts.Args)
	}
	if opts.Duration <= 0 {
		return replay.Trace{}, fmt.Errorf("duration must be positive, got %s", opts.Duration)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	args := makeArgs(opts.Args)

	var arrivals []replay.Arrival
	switch opts.Pattern {
	case PatternBurst:
		arrivals = generateBurst(rng, opts.Count, args, opts.Duration)
	case PatternRamp:
		arrivals = generateRamp(rng, opts.Count, args, opts.Duration)
	default: // steady and unknown patterns default to steady behavior.
		arrivals = generateSteady(rng, opts.Count, args, opts.Duration)
	}

	sort.SliceStable(arrivals, func(i, j int) bool { return arrivals[i].At < arrivals[j].At })
	return replay.Trace{Arrivals: arrivals}, nil
}

func makeArgs(n int) []string {
	args := make([]string, n)
	for i := range args {
		args[i] = fmt.Sprintf("req-%d", i+1)
	}
	return args
}

func generateSteady(rng *rand.Rand, count int, args []string, dur time.Duration) []replay.Arrival {
	interval := dur / time.Duration(count)
	out := make([]replay.Arrival, count)
	for i := range out {
		out[i] = replay.Arrival{
			At:  time.Duration(i) * interval,
			Arg: args[rng.Intn(len(args))],
		}
	}
	return out
}

func generateBurst(rng *rand.Rand, count int, args []string, dur time.Duration) []replay.Arrival {
	out := make([]replay.Arrival, 0, count)
	numBursts := 4
	burstSize := count / numBursts
	burstGap := dur / time.Duration(numBursts)

	spread := time.Second
	if burstGap < spread {
		spread = burstGap
	}

	for b := 0; b < numBursts; b++ {
		burstStart := time.Duration(b) * burstGap
		for i := 0; i < burstSize; i++ {
			out = append(out, replay.Arrival{
				At:  burstStart + time.Duration(rng.Int63n(int64(spread))),
				Arg: args[rng.Intn(len(args))],
			})
		}
	}

	for len(out) < count {
		out = append(out, replay.Arrival{
			At:  time.Duration(rng.Int63n(int64(dur))),
			Arg: args[rng.Intn(len(args))],
		})
	}
	return out
}

func generateRamp(rng *rand.Rand, count int, args []string, dur time.Duration) []replay.Arrival {
	out := make([]replay.Arrival, 0, count)
	// Quadratic spacing puts more arrivals towards the end.
	for i := 0; i < count; i++ {
		frac := float64(i) / float64(count)
		out = append(out, replay.Arrival{
			At:  time.Duration(frac * frac * float64(dur)),
			Arg: args[rng.Intn(len(args))],
		})
	}
	return out
}
