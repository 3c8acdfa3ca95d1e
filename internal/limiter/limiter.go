// Package limiter gates calls to an action so that no configured sliding
// window ever admits more than its maximum.
//
// A Coordinator owns one Counter per Limit. Each admission round samples the
// clock once, asks every Counter for its required delay and takes the
// maximum: the binding constraint. A zero maximum records the round's
// timestamp in every Counter and runs the action outside the guard.
//
// # Waiting strategies
//
// StrategyPoll (the default) releases the guard and sleeps a short fixed
// poll interval before the next round. Waiters never observe each other's
// sleep, so they may not wake at the same favourable instant and all pass;
// the cost is up to one poll interval of extra latency and some wasted
// rounds under contention. Admission order is NOT the submission order: any
// waiter that re-polls and finds room proceeds.
//
// StrategySerialized hands out one admission turn at a time and lets the
// turn holder sleep for exactly the computed delay. Latency is exact and
// waiters are admitted roughly in arrival order, but every caller's waiting
// time is serialized behind the caller ahead of it.
//
// Both strategies honour context cancellation at the top of every round and
// while sleeping. A canceled caller never records a reservation.
package limiter

import (
	"fmt"
	"time"
)

// Strategy selects how blocked callers wait between admission rounds.
type Strategy string

const (
	StrategyPoll       Strategy = "poll"
	StrategySerialized Strategy = "serialized"
)

// ParseStrategy validates a strategy name. The empty string selects StrategyPoll.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyPoll:
		return StrategyPoll, nil
	case StrategySerialized:
		return StrategySerialized, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q, must be one of: poll, serialized", ErrInvalidArgument, s)
	}
}

// Usage is one limit's state as of a single instant.
type Usage struct {
	Limit    Limit
	InWindow int           // admissions inside the trailing window
	Delay    time.Duration // wait a new caller would need, zero if admissible
}

// Outcome is the terminal state of one Execute call.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeError    Outcome = "error"
	OutcomeCanceled Outcome = "canceled"
)

// Event describes one finished Execute call.
type Event struct {
	Coordinator    string
	Seq            uint64
	Arg            any
	RequestedAt    time.Time
	AdmittedAt     time.Time // zero when canceled before admission
	Wait           time.Duration
	Rounds         int
	Binding        Limit // last binding constraint; zero Limit if never delayed
	Outcome        Outcome
	Err            error
	ActionDuration time.Duration
}

// Delayed reports whether the caller had to wait for at least one round.
func (e Event) Delayed() bool {
	return e.Binding.Valid()
}

// Observer receives an Event after every Execute call finishes.
// Observers run on the caller's goroutine, outside the admission guard.
type Observer interface {
	ObserveAdmission(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) ObserveAdmission(e Event) { f(e) }
