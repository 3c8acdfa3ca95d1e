package limiter

import "time"

// Counter is the sliding window log for a single Limit.
//
// It keeps the timestamps of admitted events, oldest first, in a ring buffer
// that grows on demand up to the limit's MaxCount. Eviction is a prefix trim:
// timestamps leave in the order they arrived, so each one is inspected at most
// once after insertion.
//
// Counter never reads a clock; callers pass now explicitly so one admission
// round can evaluate every counter at the same instant. It is not safe for
// concurrent use: the owning Coordinator serializes access.
type Counter struct {
	limit Limit
	buf   []time.Time
	head  int // index of the oldest timestamp
	n     int // number of live timestamps
}

// initialCapacity bounds the up-front allocation for large limits.
const initialCapacity = 64

// NewCounter creates an empty counter enforcing l.
func NewCounter(l Limit) *Counter {
	return &Counter{
		limit: l,
		buf:   make([]time.Time, min(l.MaxCount(), initialCapacity)),
	}
}

// Limit returns the constraint this counter enforces.
func (c *Counter) Limit() Limit { return c.limit }

// RequiredDelay reports how long a new event must wait as of now.
// Zero means the event is admissible immediately.
func (c *Counter) RequiredDelay(now time.Time) time.Duration {
	c.evict(now)

	if c.n < c.limit.MaxCount() {
		return 0
	}

	delay := c.buf[c.head].Add(c.limit.Window()).Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}

// Record evicts expired timestamps and appends now.
// Callers must have just seen RequiredDelay(now) == 0.
func (c *Counter) Record(now time.Time) {
	c.evict(now)

	if c.n == len(c.buf) {
		c.grow()
	}
	c.buf[(c.head+c.n)%len(c.buf)] = now
	c.n++
}

// Len returns the number of timestamps retained since the last evaluation.
func (c *Counter) Len() int { return c.n }

// Timestamps returns the retained timestamps in ascending order.
func (c *Counter) Timestamps() []time.Time {
	out := make([]time.Time, c.n)
	for i := range out {
		out[i] = c.buf[(c.head+i)%len(c.buf)]
	}
	return out
}

// evict drops every leading timestamp t with now-t >= window.
func (c *Counter) evict(now time.Time) {
	window := c.limit.Window()
	for c.n > 0 && now.Sub(c.buf[c.head]) >= window {
		c.buf[c.head] = time.Time{}
		c.head = (c.head + 1) % len(c.buf)
		c.n--
	}
	if c.n == 0 {
		c.head = 0
	}
}

// grow doubles the buffer, keeping order. It stops at MaxCount unless Record
// is called without a preceding zero RequiredDelay.
func (c *Counter) grow() {
	size := 2 * len(c.buf)
	if size == 0 {
		size = 1
	}
	if len(c.buf) < c.limit.MaxCount() {
		size = min(size, c.limit.MaxCount())
	}
	buf := make([]time.Time, size)
	for i := 0; i < c.n; i++ {
		buf[i] = c.buf[(c.head+i)%len(c.buf)]
	}
	c.buf = buf
	c.head = 0
}
