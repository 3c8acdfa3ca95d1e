// Package limiter is the public API for multi-window admission control.
package limiter

import (
	"time"

	internallimiter "github.com/SmitUplenchwar2687/admit/internal/limiter"
)

// ErrInvalidArgument marks construction-time configuration errors.
var ErrInvalidArgument = internallimiter.ErrInvalidArgument

// DefaultPollInterval is the sleep between admission rounds under StrategyPoll.
const DefaultPollInterval = internallimiter.DefaultPollInterval

// Limit is one sliding-window constraint.
type Limit = internallimiter.Limit

// Counter tracks admissions for a single Limit.
type Counter = internallimiter.Counter

// Action is the throttled operation.
type Action[A, R any] = internallimiter.Action[A, R]

// Coordinator admits calls to an action under a set of limits.
type Coordinator[A, R any] = internallimiter.Coordinator[A, R]

// Option configures a Coordinator.
type Option = internallimiter.Option

// Strategy selects how blocked callers wait.
type Strategy = internallimiter.Strategy

const (
	StrategyPoll       = internallimiter.StrategyPoll
	StrategySerialized = internallimiter.StrategySerialized
)

// Usage is one limit's state as of a single instant.
type Usage = internallimiter.Usage

// Outcome is the terminal state of one Execute call.
type Outcome = internallimiter.Outcome

const (
	OutcomeOK       = internallimiter.OutcomeOK
	OutcomeError    = internallimiter.OutcomeError
	OutcomeCanceled = internallimiter.OutcomeCanceled
)

// Event describes one finished Execute call.
type Event = internallimiter.Event

// Observer receives an Event after every Execute call finishes.
type Observer = internallimiter.Observer

// ObserverFunc adapts a function to Observer.
type ObserverFunc = internallimiter.ObserverFunc

// New builds a Coordinator for action enforcing every limit in limits.
func New[A, R any](action Action[A, R], limits []Limit, opts ...Option) (*Coordinator[A, R], error) {
	return internallimiter.New(action, limits, opts...)
}

// NewLimit validates and returns a Limit.
func NewLimit(maxCount int, window time.Duration) (Limit, error) {
	return internallimiter.NewLimit(maxCount, window)
}

// MustLimit is like NewLimit but panics on invalid input.
func MustLimit(maxCount int, window time.Duration) Limit {
	return internallimiter.MustLimit(maxCount, window)
}

// ParseLimit parses "max/window", e.g. "10/3s".
func ParseLimit(s string) (Limit, error) {
	return internallimiter.ParseLimit(s)
}

// ParseLimits parses a comma-separated list of limits.
func ParseLimits(s string) ([]Limit, error) {
	return internallimiter.ParseLimits(s)
}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	return internallimiter.ParseStrategy(s)
}

// NewCounter creates an empty counter for l.
func NewCounter(l Limit) *Counter {
	return internallimiter.NewCounter(l)
}

var (
	WithName         = internallimiter.WithName
	WithClock        = internallimiter.WithClock
	WithPollInterval = internallimiter.WithPollInterval
	WithStrategy     = internallimiter.WithStrategy
	WithObserver     = internallimiter.WithObserver
	WithLogger       = internallimiter.WithLogger
)
