// Package replay runs traces of arrivals through a real Coordinator on a
// virtual clock, so that hours of traffic against day-long windows can be
// examined in milliseconds.
package replay

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/admit/internal/clock"
	"github.com/SmitUplenchwar2687/admit/internal/limiter"
	"github.com/SmitUplenchwar2687/admit/internal/recorder"
)

var (
	// ErrEmptyTrace is returned when there is nothing to simulate.
	ErrEmptyTrace = errors.New("trace has no arrivals")
	// ErrStalled means callers are in flight but nothing can wake them.
	ErrStalled = errors.New("simulation stalled")
)

// Start is the virtual instant a trace's zero offset maps to.
var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Options configures a simulation run.
type Options struct {
	Strategy     limiter.Strategy
	PollInterval time.Duration // zero uses limiter.DefaultPollInterval
	Work         time.Duration // virtual duration of each admitted action
	Filter       Filter
	// Observers receive every coordinator event. Event.Arg is the index of
	// the arrival among the filtered, sorted arrivals.
	Observers []limiter.Observer
	Logger    *zap.Logger
}

// Result is the outcome of one simulated call.
type Result struct {
	Index    int           `json:"index"`
	Arg      string        `json:"arg,omitempty"`
	Arrival  time.Duration `json:"arrival"`
	Admitted time.Duration `json:"admitted"`
	Delay    time.Duration `json:"delay"`
	Rounds   int           `json:"rounds"`
	Binding  string        `json:"binding,omitempty"`
}

// Summary aggregates simulation statistics.
type Summary struct {
	TotalArrivals int                    `json:"total_arrivals"`
	Filtered      int                    `json:"filtered"`
	Admitted      int                    `json:"admitted"`
	Delayed       int                    `json:"delayed"`
	MaxDelay      time.Duration          `json:"max_delay"`
	MeanDelay     time.Duration          `json:"mean_delay"`
	Duration      time.Duration          `json:"duration"`      // virtual time from first arrival to last admission
	WallDuration  time.Duration          `json:"wall_duration"` // actual wall clock time
	Limits        []recorder.LimitReport `json:"limits"`
	Results       []Result               `json:"results,omitempty"`
}

// Simulate replays trace through a Coordinator enforcing limits. Every
// arrival runs on its own goroutine from its virtual arrival time, and the
// clock only moves once every in-flight caller is parked, so admission
// times are reproducible.
func Simulate(ctx context.Context, trace Trace, limits []limiter.Limit, opts Options) (*Summary, error) {
	if len(trace.Arrivals) == 0 {
		return nil, ErrEmptyTrace
	}

	var arrivals []Arrival
	for _, a := range trace.Sorted() {
		if opts.Filter.Match(a) {
			arrivals = append(arrivals, a)
		}
	}
	summary := &Summary{
		TotalArrivals: len(trace.Arrivals),
		Filtered:      len(arrivals),
	}
	if len(arrivals) == 0 {
		return summary, nil
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	vc := clock.NewVirtualClock(Start)
	sim := &simulation{
		vc:       vc,
		arrivals: arrivals,
		work:     opts.Work,
		results:  make([]Result, len(arrivals)),
		admitted: make([]bool, len(arrivals)),
		started:  make([]bool, len(arrivals)),
		changed:  make(chan struct{}, 1),
	}

	copts := []limiter.Option{
		limiter.WithName("simulate"),
		limiter.WithClock(vc),
		limiter.WithStrategy(opts.Strategy),
		limiter.WithLogger(log),
		limiter.WithObserver(limiter.ObserverFunc(sim.observe)),
	}
	if opts.PollInterval != 0 {
		copts = append(copts, limiter.WithPollInterval(opts.PollInterval))
	}
	for _, o := range opts.Observers {
		copts = append(copts, limiter.WithObserver(o))
	}
	coord, err := limiter.New(sim.action, limits, copts...)
	if err != nil {
		return nil, err
	}
	sim.serialized = coord.Strategy() == limiter.StrategySerialized

	log.Debug("simulation starting",
		zap.Int("arrivals", len(arrivals)),
		zap.String("limits", limiter.FormatLimits(limits)),
		zap.String("strategy", string(coord.Strategy())))

	wallStart := time.Now()
	if err := sim.run(ctx, coord); err != nil {
		return summary, err
	}
	summary.WallDuration = time.Since(wallStart)
	sim.summarize(summary, limits)

	log.Debug("simulation finished",
		zap.Int("admitted", summary.Admitted),
		zap.Duration("virtual", summary.Duration),
		zap.Duration("wall", summary.WallDuration))
	return summary, nil
}

type simulation struct {
	vc         *clock.VirtualClock
	arrivals   []Arrival
	work       time.Duration
	serialized bool

	// Each index is written only by the goroutine serving that arrival and
	// read after all of them have finished.
	results  []Result
	admitted []bool

	mu       sync.Mutex
	version  uint64
	inFlight int
	working  int    // goroutines that entered the action and have not exited
	started  []bool // guarded by mu

	changed chan struct{}
}

func (s *simulation) run(ctx context.Context, coord *limiter.Coordinator[int, struct{}]) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	err := s.loop(ctx, &wg, coord)
	cancel()
	wg.Wait()
	return err
}

func (s *simulation) loop(ctx context.Context, wg *sync.WaitGroup, coord *limiter.Coordinator[int, struct{}]) error {
	next := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := s.vc.Now()
		for next < len(s.arrivals) && !Start.Add(s.arrivals[next].At).After(now) {
			s.launch(ctx, wg, coord, next)
			next++
		}

		if err := s.settle(ctx); err != nil {
			return err
		}
		if next == len(s.arrivals) && s.idle() {
			return nil
		}

		target, ok := s.vc.NextDeadline()
		if next < len(s.arrivals) {
			if at := Start.Add(s.arrivals[next].At); !ok || at.Before(target) {
				target, ok = at, true
			}
		}
		if !ok {
			return ErrStalled
		}
		s.vc.Set(target)
	}
}

func (s *simulation) launch(ctx context.Context, wg *sync.WaitGroup, coord *limiter.Coordinator[int, struct{}], idx int) {
	s.update(func() { s.inFlight++ })
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = coord.Execute(ctx, idx)
		s.update(func() {
			s.inFlight--
			if s.started[idx] {
				s.working--
			}
		})
	}()
}

func (s *simulation) action(ctx context.Context, idx int) (struct{}, error) {
	s.update(func() {
		s.started[idx] = true
		s.working++
	})
	if s.work <= 0 {
		return struct{}{}, nil
	}
	t := s.vc.NewTimer(s.work)
	select {
	case <-ctx.Done():
		t.Stop()
		return struct{}{}, ctx.Err()
	case <-t.C():
		return struct{}{}, nil
	}
}

func (s *simulation) observe(e limiter.Event) {
	idx := e.Arg.(int)
	a := s.arrivals[idx]
	r := Result{Index: idx, Arg: a.Arg, Arrival: a.At, Rounds: e.Rounds}
	if e.Outcome != limiter.OutcomeCanceled {
		r.Admitted = e.AdmittedAt.Sub(Start)
		r.Delay = r.Admitted - a.At
		s.admitted[idx] = true
	}
	if e.Delayed() {
		r.Binding = e.Binding.String()
	}
	s.results[idx] = r
}

func (s *simulation) update(f func()) {
	s.mu.Lock()
	f()
	s.version++
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *simulation) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight == 0
}

// settle blocks until no in-flight caller can make progress without the
// clock moving.
func (s *simulation) settle(ctx context.Context) error {
	for {
		notify := s.vc.Notify()
		if s.quiescent(notify) {
			return nil
		}
		select {
		case <-notify:
		case <-s.changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// quiescent compares the clock's parked waiters with the callers that should
// be parked. Under the serialized strategy only the turn holder waits on the
// clock; the rest queue behind it. The snapshot only counts if neither the
// waiter set nor the counters changed while it was taken.
func (s *simulation) quiescent(notify <-chan struct{}) bool {
	s.mu.Lock()
	version, inFlight, working := s.version, s.inFlight, s.working
	s.mu.Unlock()

	want := inFlight
	if pending := inFlight - working; s.serialized && pending > 1 {
		want = working + 1
	}
	if s.vc.Waiters() != want {
		return false
	}

	select {
	case <-notify:
		return false
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version == version
}

func (s *simulation) summarize(summary *Summary, limits []limiter.Limit) {
	var (
		records []recorder.AdmissionRecord
		total   time.Duration
		last    time.Duration
	)
	for i, r := range s.results {
		if !s.admitted[i] {
			continue
		}
		summary.Admitted++
		if r.Delay > 0 {
			summary.Delayed++
		}
		if r.Delay > summary.MaxDelay {
			summary.MaxDelay = r.Delay
		}
		if r.Admitted > last {
			last = r.Admitted
		}
		total += r.Delay
		records = append(records, recorder.AdmissionRecord{
			Seq:         uint64(i),
			Arg:         r.Arg,
			RequestedAt: Start.Add(r.Arrival),
			AdmittedAt:  Start.Add(r.Admitted),
			Wait:        r.Delay,
			Rounds:      r.Rounds,
			Binding:     r.Binding,
			Outcome:     limiter.OutcomeOK,
		})
	}
	if summary.Admitted > 0 {
		summary.MeanDelay = total / time.Duration(summary.Admitted)
	}
	summary.Duration = last - s.arrivals[0].At
	summary.Limits = recorder.Verify(records, limits)
	summary.Results = s.results
}
