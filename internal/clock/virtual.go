package clock

import (
	"context"
	"sync"
	"time"
)

// VirtualClock is a controllable clock for deterministic admission tests
// and virtual-time simulation. Time only moves when Advance or Set is called,
// so callers parked on After stay parked until the test releases them.
//
// Thread-safe for concurrent use.
type VirtualClock struct {
	mu      sync.RWMutex
	current time.Time
	waiters []*waiter
	notify  chan struct{}
}

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewVirtualClock creates a VirtualClock starting at the given time.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{
		current: start,
	}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Since returns the virtual duration elapsed since t.
func (c *VirtualClock) Since(t time.Time) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Sub(t)
}

// After returns a channel that receives the virtual time once the clock
// has advanced past the current time plus d. The channel fires during
// Advance() or Set() calls when the deadline is reached.
func (c *VirtualClock) After(d time.Duration) <-chan time.Time {
	return c.add(d).ch
}

// NewTimer returns a stoppable After. A stopped timer no longer counts
// as a waiter.
func (c *VirtualClock) NewTimer(d time.Duration) Timer {
	return &virtualTimer{clock: c, w: c.add(d)}
}

func (c *VirtualClock) add(d time.Duration) *waiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := &waiter{deadline: c.current.Add(d), ch: make(chan time.Time, 1)}

	// Zero or negative durations fire immediately and never count as a waiter.
	if d <= 0 {
		w.ch <- c.current
		return w
	}

	c.waiters = append(c.waiters, w)
	c.broadcastLocked()
	return w
}

// stop removes w if it is still pending.
func (c *VirtualClock) stop(w *waiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, pending := range c.waiters {
		if pending == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			c.broadcastLocked()
			return true
		}
	}
	return false
}

type virtualTimer struct {
	clock *VirtualClock
	w     *waiter
}

func (t *virtualTimer) C() <-chan time.Time { return t.w.ch }

func (t *virtualTimer) Stop() bool { return t.clock.stop(t.w) }

// Advance moves the virtual clock forward by the given duration.
// It fires any waiters whose deadlines have been reached.
// Panics if d is negative.
func (c *VirtualClock) Advance(d time.Duration) {
	if d < 0 {
		panic("clock: cannot advance by negative duration")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)
	c.drainWaiters()
}

// Set sets the virtual clock to an exact time.
// It fires any waiters whose deadlines have been reached.
// Panics if t is before the current time.
func (c *VirtualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Before(c.current) {
		panic("clock: cannot set time to the past")
	}

	c.current = t
	c.drainWaiters()
}

// Waiters returns the number of pending After channels.
func (c *VirtualClock) Waiters() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.waiters)
}

// NextDeadline returns the earliest pending waiter deadline.
// ok is false when nothing is waiting.
func (c *VirtualClock) NextDeadline() (deadline time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i, w := range c.waiters {
		if i == 0 || w.deadline.Before(deadline) {
			deadline = w.deadline
		}
	}
	return deadline, len(c.waiters) > 0
}

// Notify returns a channel that is closed the next time the set of pending
// waiters changes. Grab the channel before inspecting Waiters to avoid
// missing a change.
func (c *VirtualClock) Notify() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.notify == nil {
		c.notify = make(chan struct{})
	}
	return c.notify
}

// BlockUntil blocks until at least n callers are parked on After,
// or ctx is done.
func (c *VirtualClock) BlockUntil(ctx context.Context, n int) error {
	for {
		changed := c.Notify()
		if c.Waiters() >= n {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainWaiters fires all waiters whose deadline is at or before the current time.
// Must be called with c.mu held.
func (c *VirtualClock) drainWaiters() {
	remaining := c.waiters[:0]
	fired := false
	for _, w := range c.waiters {
		if !w.deadline.After(c.current) {
			w.ch <- c.current
			fired = true
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
	if fired {
		c.broadcastLocked()
	}
}

// broadcastLocked wakes everyone blocked on Notify.
// Must be called with c.mu held.
func (c *VirtualClock) broadcastLocked() {
	if c.notify != nil {
		close(c.notify)
		c.notify = nil
	}
}
