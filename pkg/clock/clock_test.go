package clock

import (
	"testing"
	"time"
)

func TestClockImplementations(t *testing.T) {
	var _ Clock = NewRealClock()
	var _ Clock = NewVirtualClock(time.Now())
}

func TestVirtualClockAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	vc := NewVirtualClock(start)
	ch := vc.After(time.Minute)
	if vc.Waiters() != 1 {
		t.Fatalf("Waiters() = %d, want 1", vc.Waiters())
	}
	vc.Advance(time.Minute)

	if got := <-ch; !got.Equal(start.Add(time.Minute)) {
		t.Fatalf("After fired at %v, want %v", got, start.Add(time.Minute))
	}
}
