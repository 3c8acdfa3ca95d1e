package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/admit/internal/clock"
	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMetrics_ObserveAdmission(t *testing.T) {
	m := New(prometheus.NewRegistry())
	limit := limiter.MustLimit(2, time.Second)

	m.ObserveAdmission(limiter.Event{Coordinator: "api", Outcome: limiter.OutcomeOK, Rounds: 1})
	m.ObserveAdmission(limiter.Event{Coordinator: "api", Outcome: limiter.OutcomeOK, Rounds: 4, Binding: limit, Wait: 30 * time.Millisecond})
	m.ObserveAdmission(limiter.Event{Coordinator: "api", Outcome: limiter.OutcomeError, Rounds: 1, Err: errors.New("boom")})
	m.ObserveAdmission(limiter.Event{Coordinator: "api", Outcome: limiter.OutcomeCanceled, Rounds: 2, Binding: limit})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.admissions.WithLabelValues("api", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.admissions.WithLabelValues("api", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actionFailures.WithLabelValues("api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cancellations.WithLabelValues("api")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.rounds.WithLabelValues("api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bindingHits.WithLabelValues("api", "2/1s")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.waitSeconds))
}

func TestMetrics_NilRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil).ObserveAdmission(limiter.Event{Coordinator: "x", Outcome: limiter.OutcomeOK})
	})
}

func TestMetrics_AsCoordinatorObserver(t *testing.T) {
	m := New(prometheus.NewRegistry())
	c, err := limiter.New(func(context.Context, int) (int, error) { return 0, nil },
		[]limiter.Limit{limiter.MustLimit(10, time.Second)},
		limiter.WithName("demo"),
		limiter.WithClock(clock.NewVirtualClock(epoch)),
		limiter.WithObserver(m))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Execute(context.Background(), i)
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.admissions.WithLabelValues("demo", "ok")))
}

type fixedStatus []limiter.Usage

func (f fixedStatus) Status() []limiter.Usage { return f }

func TestOccupancyCollector(t *testing.T) {
	src := fixedStatus{
		{Limit: limiter.MustLimit(10, 3*time.Second), InWindow: 7, Delay: 0},
		{Limit: limiter.MustLimit(100, time.Minute), InWindow: 100, Delay: 1500 * time.Millisecond},
	}
	col := NewOccupancyCollector("api", src)

	expected := `
# HELP admit_required_delay_seconds Wait a new caller would need under the limit right now
# TYPE admit_required_delay_seconds gauge
admit_required_delay_seconds{coordinator="api",limit="10/3s"} 0
admit_required_delay_seconds{coordinator="api",limit="100/1m0s"} 1.5
# HELP admit_window_occupancy Admissions currently inside the limit's trailing window
# TYPE admit_window_occupancy gauge
admit_window_occupancy{coordinator="api",limit="10/3s"} 7
admit_window_occupancy{coordinator="api",limit="100/1m0s"} 100
`
	err := testutil.CollectAndCompare(col, strings.NewReader(expected),
		"admit_window_occupancy", "admit_required_delay_seconds")
	require.NoError(t, err)
	assert.Equal(t, 6, testutil.CollectAndCount(col))
}

func TestOccupancyCollector_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := limiter.New(func(context.Context, int) (int, error) { return 0, nil },
		[]limiter.Limit{limiter.MustLimit(1, time.Second)},
		limiter.WithClock(clock.NewVirtualClock(epoch)))
	require.NoError(t, err)

	require.NoError(t, reg.Register(NewOccupancyCollector("api", c)))
	_, err = c.Execute(context.Background(), 1)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)
}
