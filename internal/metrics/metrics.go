// Package metrics exports admission activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

const namespace = "admit"

// Metrics contains Prometheus collectors for coordinator events.
// It implements limiter.Observer.
type Metrics struct {
	admissions     *prometheus.CounterVec
	actionFailures *prometheus.CounterVec
	cancellations  *prometheus.CounterVec
	rounds         *prometheus.CounterVec
	bindingHits    *prometheus.CounterVec
	waitSeconds    *prometheus.HistogramVec
	actionSeconds  *prometheus.HistogramVec
}

// New registers the admission metrics on reg. A nil reg uses a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		admissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admissions_total",
				Help:      "Calls admitted, labelled by action outcome",
			},
			[]string{"coordinator", "outcome"},
		),

		actionFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "action_failures_total",
				Help:      "Admitted calls whose action returned an error",
			},
			[]string{"coordinator"},
		),

		cancellations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cancellations_total",
				Help:      "Callers that gave up before admission",
			},
			[]string{"coordinator"},
		),

		rounds: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rounds_total",
				Help:      "Admission rounds evaluated",
			},
			[]string{"coordinator"},
		),

		bindingHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "binding_limit_total",
				Help:      "Delayed calls by the limit that was binding on their last denied round",
			},
			[]string{"coordinator", "limit"},
		),

		waitSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "wait_seconds",
				Help:      "Time from Execute to admission",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
			},
			[]string{"coordinator"},
		),

		actionSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_seconds",
				Help:      "Duration of admitted actions",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"coordinator"},
		),
	}
}

// ObserveAdmission records one finished Execute call.
func (m *Metrics) ObserveAdmission(e limiter.Event) {
	m.rounds.WithLabelValues(e.Coordinator).Add(float64(e.Rounds))

	if e.Outcome == limiter.OutcomeCanceled {
		m.cancellations.WithLabelValues(e.Coordinator).Inc()
		return
	}

	m.admissions.WithLabelValues(e.Coordinator, string(e.Outcome)).Inc()
	m.waitSeconds.WithLabelValues(e.Coordinator).Observe(e.Wait.Seconds())
	m.actionSeconds.WithLabelValues(e.Coordinator).Observe(e.ActionDuration.Seconds())
	if e.Outcome == limiter.OutcomeError {
		m.actionFailures.WithLabelValues(e.Coordinator).Inc()
	}
	if e.Delayed() {
		m.bindingHits.WithLabelValues(e.Coordinator, e.Binding.String()).Inc()
	}
}
