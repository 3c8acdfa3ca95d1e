package replay

import (
	"context"
	"io"

	internalreplay "github.com/SmitUplenchwar2687/admit/internal/replay"
	"github.com/SmitUplenchwar2687/admit/pkg/limiter"
)

// Arrival is one call in a trace.
type Arrival = internalreplay.Arrival

// Trace is a replayable sequence of arrivals.
type Trace = internalreplay.Trace

// Filter defines criteria for selecting arrivals.
type Filter = internalreplay.Filter

// Options configures a simulation run.
type Options = internalreplay.Options

// Result is the outcome of one simulated call.
type Result = internalreplay.Result

// Summary aggregates simulation statistics.
type Summary = internalreplay.Summary

var ErrEmptyTrace = internalreplay.ErrEmptyTrace

// Simulate replays trace through a Coordinator on a virtual clock.
func Simulate(ctx context.Context, trace Trace, limits []limiter.Limit, opts Options) (*Summary, error) {
	return internalreplay.Simulate(ctx, trace, limits, opts)
}

// LoadTrace reads a JSON trace.
func LoadTrace(r io.Reader) (Trace, error) {
	return internalreplay.LoadTrace(r)
}
