// Package metrics provides Prometheus metrics for the engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	ActionsTotal      *prometheus.CounterVec
	EffectsTotal      *prometheus.CounterVec
	EffectsInFlight   prometheus.Gauge
	ActionQueueDepth  prometheus.Gauge
	SnapshotPublishes prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_actions_total",
				Help: "Total actions processed by the command loop, by kind.",
			},
			[]string{"kind"},
		),
		EffectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_effects_total",
				Help: "Total effects executed, by kind and outcome.",
			},
			[]string{"kind", "status"},
		),
		EffectsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "loom_effects_in_flight",
				Help: "Async effects currently executing.",
			},
		),
		ActionQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "loom_action_queue_depth",
				Help: "Actions waiting in the command queue.",
			},
		),
		SnapshotPublishes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "loom_snapshot_publishes_total",
				Help: "Snapshots published to the broadcaster.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.ActionsTotal)
	reg.MustRegister(m.EffectsTotal)
	reg.MustRegister(m.EffectsInFlight)
	reg.MustRegister(m.ActionQueueDepth)
	reg.MustRegister(m.SnapshotPublishes)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAction increments the action counter.
func (m *Metrics) RecordAction(kind string) {
	m.ActionsTotal.WithLabelValues(kind).Inc()
}

// RecordEffect increments the effect counter.
func (m *Metrics) RecordEffect(kind, status string) {
	m.EffectsTotal.WithLabelValues(kind, status).Inc()
}
