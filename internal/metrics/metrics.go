// Package metrics exposes Prometheus collectors for the fleet monitor.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fleet_monitor"

// Metrics holds the collectors on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	readingsIngested *prometheus.CounterVec
	alertsFired      *prometheus.CounterVec
	cycleEvents      *prometheus.CounterVec
	predictions      *prometheus.CounterVec
	ingestLatency    prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		readingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Readings ingested by outcome.",
		}, []string{"outcome"}),
		alertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Alerts created by source.",
		}, []string{"source"}),
		cycleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Cycles started or closed.",
		}, []string{"event"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction calls by model and outcome.",
		}, []string{"model", "outcome"}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Latency of the ingest transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.readingsIngested,
		m.alertsFired,
		m.cycleEvents,
		m.predictions,
		m.ingestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveIngest(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.readingsIngested.WithLabelValues(outcome).Inc()
	m.ingestLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) AlertFired(source string) {
	if m == nil {
		return
	}
	m.alertsFired.WithLabelValues(source).Inc()
}

func (m *Metrics) Cycles(event string, n int) {
	if m == nil {
		return
	}
	m.cycleEvents.WithLabelValues(event).Add(float64(n))
}

func (m *Metrics) Prediction(model string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.predictions.WithLabelValues(model, outcome).Inc()
}
