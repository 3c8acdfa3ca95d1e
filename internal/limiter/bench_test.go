package limiter

import (
	"fmt"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/admit/internal/clock"
)

// BenchmarkCounter_Steady admits one event per millisecond into a full
// window, so every Record also evicts.
func BenchmarkCounter_Steady(b *testing.B) {
	c := NewCounter(MustLimit(1000, time.Second))
	now := epoch

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		now = now.Add(time.Millisecond)
		if c.RequiredDelay(now) == 0 {
			c.Record(now)
		}
	}
}

// BenchmarkCounter_Saturated measures the delay query against a full window.
func BenchmarkCounter_Saturated(b *testing.B) {
	c := NewCounter(MustLimit(10000, time.Hour))
	for i := 0; i < 10000; i++ {
		c.Record(epoch)
	}
	now := epoch.Add(time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.RequiredDelay(now)
	}
}

func newBenchCoordinator(b *testing.B, limits int, opts ...Option) *Coordinator[int, struct{}] {
	b.Helper()
	set := make([]Limit, limits)
	for i := range set {
		// Windows large enough that nothing ever waits.
		set[i] = MustLimit(1<<30, time.Duration(i+1)*time.Hour)
	}
	opts = append([]Option{WithClock(clock.NewVirtualClock(epoch))}, opts...)
	c, err := New(noop, set, opts...)
	if err != nil {
		b.Fatal(err)
	}
	return c
}

// BenchmarkCoordinator_Execute measures the uncontended admission path.
func BenchmarkCoordinator_Execute(b *testing.B) {
	for _, limits := range []int{1, 3, 10} {
		b.Run(fmt.Sprintf("limits=%d", limits), func(b *testing.B) {
			c := newBenchCoordinator(b, limits)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := c.Execute(ctx, i); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkCoordinator_Parallel measures guard contention.
func BenchmarkCoordinator_Parallel(b *testing.B) {
	for _, st := range []Strategy{StrategyPoll, StrategySerialized} {
		b.Run(string(st), func(b *testing.B) {
			c := newBenchCoordinator(b, 3, WithStrategy(st))
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					_, _ = c.Execute(ctx, i)
					i++
				}
			})
		})
	}
}

// BenchmarkCoordinator_Status measures a snapshot of every window.
func BenchmarkCoordinator_Status(b *testing.B) {
	c := newBenchCoordinator(b, 3)
	for i := 0; i < 1000; i++ {
		_, _ = c.Execute(ctx, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Status()
	}
}

// BenchmarkVirtualClock_Now measures VirtualClock.Now() overhead.
func BenchmarkVirtualClock_Now(b *testing.B) {
	vc := clock.NewVirtualClock(epoch)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			vc.Now()
		}
	})
}
