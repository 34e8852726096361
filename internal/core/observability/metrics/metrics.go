// Package metrics exports bus and lifecycle activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeusync/fxdemo/internal/core/events/bus"
	"github.com/zeusync/fxdemo/internal/core/system"
)

var (
	_ bus.Observer    = (*Metrics)(nil)
	_ system.Observer = (*Metrics)(nil)
)

// Metrics observes a bus and a system manager and keeps the counters in a
// private registry. A disabled instance accepts every call and records nothing.
type Metrics struct {
	published       *prometheus.CounterVec
	delivered       *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec

	passDuration   *prometheus.HistogramVec
	systemFailures *prometheus.CounterVec
	systems        prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors under namespace. With enabled false it returns a
// no-op instance.
func New(namespace string, enabled bool) *Metrics {
	if !enabled {
		return &Metrics{}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,

		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eventbus",
				Name:      "published_total",
				Help:      "Total number of publishes per channel",
			},
			[]string{"channel"},
		),
		delivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eventbus",
				Name:      "delivered_total",
				Help:      "Total number of listener invocations per channel",
			},
			[]string{"channel"},
		),
		publishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "eventbus",
				Name:      "publish_duration_seconds",
				Help:      "Time spent delivering one publish to all listeners",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"channel"},
		),

		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "systems",
				Name:      "pass_duration_seconds",
				Help:      "Duration of one lifecycle pass over all systems",
				Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
			[]string{"phase"},
		),
		systemFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "systems",
				Name:      "failures_total",
				Help:      "Total number of failed lifecycle calls per phase and system",
			},
			[]string{"phase", "system"},
		),
		systems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "systems",
				Name:      "registered",
				Help:      "Number of systems visited by the last pass",
			},
		),
	}

	registry.MustRegister(
		m.published,
		m.delivered,
		m.publishDuration,
		m.passDuration,
		m.systemFailures,
		m.systems,
	)
	return m
}

func (m *Metrics) Enabled() bool { return m.registry != nil }

// Registry returns the private registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// OnPublish implements bus.Observer.
func (m *Metrics) OnPublish(channel string) {
	if m.published == nil {
		return
	}
	m.published.WithLabelValues(channel).Inc()
}

// OnDelivered implements bus.Observer.
func (m *Metrics) OnDelivered(channel string, listeners int, duration time.Duration) {
	if m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(channel).Add(float64(listeners))
	m.publishDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// OnPass implements system.Observer.
func (m *Metrics) OnPass(phase system.Phase, systems int, failures []system.Failure, duration time.Duration) {
	if m.passDuration == nil {
		return
	}
	m.passDuration.WithLabelValues(string(phase)).Observe(duration.Seconds())
	m.systems.Set(float64(systems))
	for _, f := range failures {
		m.systemFailures.WithLabelValues(string(f.Phase), f.System).Inc()
	}
}
