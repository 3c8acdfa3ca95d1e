package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
)

// StatusSource is anything that can report per-limit usage, typically a
// *limiter.Coordinator.
type StatusSource interface {
	Status() []limiter.Usage
}

// OccupancyCollector samples a coordinator's windows at scrape time.
type OccupancyCollector struct {
	name   string
	source StatusSource

	inWindow *prometheus.Desc
	capacity *prometheus.Desc
	delay    *prometheus.Desc
}

// NewOccupancyCollector returns a collector for source labelled with name.
func NewOccupancyCollector(name string, source StatusSource) *OccupancyCollector {
	labels := prometheus.Labels{"coordinator": name}
	return &OccupancyCollector{
		name:   name,
		source: source,
		inWindow: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "window_occupancy"),
			"Admissions currently inside the limit's trailing window",
			[]string{"limit"}, labels,
		),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "window_capacity"),
			"Maximum admissions the limit allows per window",
			[]string{"limit"}, labels,
		),
		delay: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "required_delay_seconds"),
			"Wait a new caller would need under the limit right now",
			[]string{"limit"}, labels,
		),
	}
}

func (c *OccupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inWindow
	ch <- c.capacity
	ch <- c.delay
}

func (c *OccupancyCollector) Collect(ch chan<- prometheus.Metric) {
	for _, u := range c.source.Status() {
		label := u.Limit.String()
		ch <- prometheus.MustNewConstMetric(c.inWindow, prometheus.GaugeValue, float64(u.InWindow), label)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(u.Limit.MaxCount()), label)
		ch <- prometheus.MustNewConstMetric(c.delay, prometheus.GaugeValue, u.Delay.Seconds(), label)
	}
}
