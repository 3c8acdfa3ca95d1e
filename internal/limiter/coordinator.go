package limiter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/SmitUplenchwar2687/admit/internal/clock"
)

// DefaultPollInterval is the sleep between admission rounds under StrategyPoll.
const DefaultPollInterval = 10 * time.Millisecond

// Action is the throttled operation. Its result and error reach the caller
// of Execute untouched.
type Action[A, R any] func(ctx context.Context, arg A) (R, error)

// Option configures a Coordinator.
type Option func(*settings)

type settings struct {
	name      string
	clock     clock.Clock
	poll      time.Duration
	strategy  Strategy
	observers []Observer
	log       *zap.Logger
}

// WithName labels the coordinator in events, logs and metrics.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithClock replaces the wall clock, e.g. with a clock.VirtualClock in tests.
func WithClock(c clock.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithPollInterval sets the wait between rounds under StrategyPoll.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) { s.poll = d }
}

// WithStrategy selects how blocked callers wait.
func WithStrategy(st Strategy) Option {
	return func(s *settings) { s.strategy = st }
}

// WithObserver adds an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLogger sets a debug logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) { s.log = log }
}

// Coordinator admits calls to an action while keeping every configured
// sliding window within bound.
type Coordinator[A, R any] struct {
	name      string
	action    Action[A, R]
	clock     clock.Clock
	poll      time.Duration
	strategy  Strategy
	observers []Observer
	log       *zap.Logger

	// mu guards counters. It covers exactly one evaluate-and-record step and
	// is never held across a sleep.
	mu       sync.Mutex
	counters []*Counter

	// turn serializes waiters under StrategySerialized; nil otherwise.
	turn *semaphore.Weighted

	seq atomic.Uint64
}

// New builds a Coordinator for action enforcing every limit in limits.
func New[A, R any](action Action[A, R], limits []Limit, opts ...Option) (*Coordinator[A, R], error) {
	if action == nil {
		return nil, fmt.Errorf("%w: action is required", ErrInvalidArgument)
	}
	if len(limits) == 0 {
		return nil, fmt.Errorf("%w: at least one limit is required", ErrInvalidArgument)
	}

	s := settings{
		clock:    clock.NewRealClock(),
		poll:     DefaultPollInterval,
		strategy: StrategyPoll,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.clock == nil {
		return nil, fmt.Errorf("%w: clock is required", ErrInvalidArgument)
	}
	if s.poll <= 0 {
		return nil, fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidArgument, s.poll)
	}
	strategy, err := ParseStrategy(string(s.strategy))
	if err != nil {
		return nil, err
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	counters := make([]*Counter, len(limits))
	for i, l := range limits {
		if !l.Valid() {
			return nil, fmt.Errorf("%w: limit #%d: max count and window must be positive", ErrInvalidArgument, i)
		}
		counters[i] = NewCounter(l)
	}

	c := &Coordinator[A, R]{
		name:      s.name,
		action:    action,
		clock:     s.clock,
		poll:      s.poll,
		strategy:  strategy,
		observers: s.observers,
		log:       s.log.With(zap.String("coordinator", s.name)),
		counters:  counters,
	}
	if strategy == StrategySerialized {
		c.turn = semaphore.NewWeighted(1)
	}
	return c, nil
}

// Name returns the label given with WithName.
func (c *Coordinator[A, R]) Name() string { return c.name }

// Strategy returns the waiting strategy in use.
func (c *Coordinator[A, R]) Strategy() Strategy { return c.strategy }

// Limits returns the enforced limits in configuration order.
func (c *Coordinator[A, R]) Limits() []Limit {
	out := make([]Limit, len(c.counters))
	for i, ctr := range c.counters {
		out[i] = ctr.Limit()
	}
	return out
}

// Execute waits until every limit admits one more call, records the
// admission, then runs the action with arg and returns what it returns.
//
// If ctx ends before admission, Execute returns an error wrapping ctx.Err()
// and nothing is recorded. Once admitted, the call counts against every
// window whether or not the action succeeds.
func (c *Coordinator[A, R]) Execute(ctx context.Context, arg A) (R, error) {
	var zero R

	requested := c.clock.Now()
	adm, err := c.admit(ctx)

	ev := Event{
		Coordinator: c.name,
		Seq:         c.seq.Add(1),
		Arg:         arg,
		RequestedAt: requested,
		Rounds:      adm.rounds,
		Binding:     adm.binding,
	}
	if err != nil {
		ev.Outcome = OutcomeCanceled
		ev.Err = err
		ev.Wait = c.clock.Since(requested)
		c.emit(ev)
		return zero, err
	}
	ev.AdmittedAt = adm.at
	ev.Wait = adm.at.Sub(requested)

	res, err := c.action(ctx, arg)

	ev.ActionDuration = c.clock.Since(adm.at)
	ev.Outcome = OutcomeOK
	if err != nil {
		ev.Outcome = OutcomeError
		ev.Err = err
	}
	c.emit(ev)
	return res, err
}

// Status evaluates every limit at a single instant without recording.
func (c *Coordinator[A, R]) Status() []Usage {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	out := make([]Usage, len(c.counters))
	for i, ctr := range c.counters {
		d := ctr.RequiredDelay(now)
		out[i] = Usage{Limit: ctr.Limit(), InWindow: ctr.Len(), Delay: d}
	}
	return out
}

type admission struct {
	at      time.Time
	rounds  int
	binding Limit
}

func (c *Coordinator[A, R]) admit(ctx context.Context) (admission, error) {
	if c.strategy == StrategySerialized {
		return c.admitSerialized(ctx)
	}
	return c.admitPolling(ctx)
}

func (c *Coordinator[A, R]) admitPolling(ctx context.Context) (admission, error) {
	var adm admission
	for {
		if err := ctx.Err(); err != nil {
			return adm, canceled(err)
		}

		adm.rounds++
		now, delay, binding := c.tryRecord()
		if delay == 0 {
			adm.at = now
			return adm, nil
		}
		adm.binding = binding
		if adm.rounds == 1 {
			c.log.Debug("admission delayed",
				zap.Stringer("binding", binding),
				zap.Duration("delay", delay),
				zap.Duration("poll", c.poll))
		}

		if err := c.sleep(ctx, c.poll); err != nil {
			return adm, err
		}
	}
}

func (c *Coordinator[A, R]) admitSerialized(ctx context.Context) (admission, error) {
	var adm admission
	if err := ctx.Err(); err != nil {
		return adm, canceled(err)
	}
	if err := c.turn.Acquire(ctx, 1); err != nil {
		return adm, canceled(err)
	}
	defer c.turn.Release(1)

	for {
		if err := ctx.Err(); err != nil {
			return adm, canceled(err)
		}

		adm.rounds++
		now, delay, binding := c.tryRecord()
		if delay == 0 {
			adm.at = now
			return adm, nil
		}
		adm.binding = binding
		c.log.Debug("admission delayed, holding turn",
			zap.Stringer("binding", binding),
			zap.Duration("delay", delay))

		if err := c.sleep(ctx, delay); err != nil {
			return adm, err
		}
	}
}

// tryRecord runs one admission round under mu. When every counter admits,
// now is recorded everywhere and delay is zero; otherwise delay is the
// largest required delay and binding the limit that produced it.
func (c *Coordinator[A, R]) tryRecord() (now time.Time, delay time.Duration, binding Limit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now = c.clock.Now()
	for _, ctr := range c.counters {
		if d := ctr.RequiredDelay(now); d > delay {
			delay = d
			binding = ctr.Limit()
		}
	}
	if delay > 0 {
		return now, delay, binding
	}
	for _, ctr := range c.counters {
		ctr.Record(now)
	}
	return now, 0, Limit{}
}

// sleep waits d on the coordinator's clock. A canceled caller withdraws its
// timer so it stops counting as a waiter.
func (c *Coordinator[A, R]) sleep(ctx context.Context, d time.Duration) error {
	t := c.clock.NewTimer(d)
	select {
	case <-ctx.Done():
		t.Stop()
		return canceled(ctx.Err())
	case <-t.C():
		return nil
	}
}

func (c *Coordinator[A, R]) emit(ev Event) {
	for _, o := range c.observers {
		o.ObserveAdmission(ev)
	}
}

func canceled(err error) error {
	return fmt.Errorf("waiting for admission: %w", err)
}
