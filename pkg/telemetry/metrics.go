// Package telemetry exposes Prometheus metrics for the evaluation engine.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec

	breachLookupsTotal *prometheus.CounterVec

	trainingRunsTotal *prometheus.CounterVec
	trainingDuration  prometheus.Histogram
	modelGeneration   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance backed by its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passguard_evaluations_total",
				Help: "Total number of password evaluations by scoring method and status",
			},
			[]string{"method", "status"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "passguard_evaluation_duration_seconds",
				Help:    "Password evaluation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		breachLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passguard_breach_lookups_total",
				Help: "Total number of breach corpus lookups by outcome",
			},
			[]string{"outcome"},
		),

		trainingRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passguard_training_runs_total",
				Help: "Total number of model training runs by status",
			},
			[]string{"status"},
		),

		trainingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "passguard_training_duration_seconds",
				Help:    "Model training run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),

		modelGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "passguard_model_generation",
				Help: "Sequence number of the active model generation (0 = none loaded)",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.breachLookupsTotal,
		m.trainingRunsTotal,
		m.trainingDuration,
		m.modelGeneration,
	)

	return m
}

// RecordEvaluation records one scoring method run.
func (m *Metrics) RecordEvaluation(method, status string, duration time.Duration) {
	m.evaluationsTotal.WithLabelValues(method, status).Inc()
	m.evaluationDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordBreachLookup records a breach corpus lookup outcome.
func (m *Metrics) RecordBreachLookup(outcome string) {
	m.breachLookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordTrainingRun records a completed or failed training run.
func (m *Metrics) RecordTrainingRun(status string, duration time.Duration) {
	m.trainingRunsTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		m.trainingDuration.Observe(duration.Seconds())
	}
}

// SetModelGeneration updates the active generation gauge.
func (m *Metrics) SetModelGeneration(generation uint64) {
	m.modelGeneration.Set(float64(generation))
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
