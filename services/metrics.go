package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects poll cycle metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles      *prometheus.CounterVec
	duration    prometheus.Histogram
	objects     *prometheus.GaugeVec
	lastSuccess prometheus.Gauge
}

// NewMetrics creates and registers the cycle metrics for instance.
func NewMetrics(instance string) *Metrics {
	labels := prometheus.Labels{"instance_name": instance}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "fireflyiii",
				Name:        "poll_cycles_total",
				Help:        "How many poll cycles ran, partitioned by result.",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "fireflyiii",
			Name:        "poll_cycle_duration_seconds",
			Help:        "Wall time of poll cycles in seconds.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		objects: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   "fireflyiii",
				Name:        "snapshot_objects",
				Help:        "Objects in the published snapshot, partitioned by type.",
				ConstLabels: labels,
			},
			[]string{"type"},
		),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "fireflyiii",
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time of the last successful poll cycle.",
			ConstLabels: labels,
		}),
	}

	m.registry.MustRegister(m.cycles, m.duration, m.objects, m.lastSuccess)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records one cycle. counts is only applied on success, the
// gauges keep describing the retained snapshot otherwise.
func (m *Metrics) ObserveCycle(success bool, took time.Duration, counts map[string]int, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.duration.Observe(took.Seconds())
	if !success {
		m.cycles.WithLabelValues("failure").Inc()
		return
	}

	m.cycles.WithLabelValues("success").Inc()
	m.lastSuccess.Set(float64(finishedAt.Unix()))
	m.objects.Reset()
	for t, n := range counts {
		m.objects.WithLabelValues(t).Set(float64(n))
	}
}
