// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the
// simulator service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring fault
// simulations, plus an OpenTelemetry-backed implementation of the engine's
// observability sink. Metrics include:
//   - Simulation counters (by family, outcome kind)
//   - Simulation latency histograms
//   - Circuit breaker transition counters
//   - Served HTTP error code counters
//   - Active simulation gauges
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for the alerting pipelines the simulated telemetry exercises.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics.
const metricsNamespace = "faultline"

// Subsystem for simulation metrics.
const simulationSubsystem = "simulation"

// SimulationMetrics holds all Prometheus metrics for fault simulations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring simulated fault
// activity. Initialize once at startup via NewSimulationMetrics().
//
// # Fields
//
//   - SimulationsTotal: Counter of simulations by family and outcome kind
//   - SimulationDurationSeconds: Histogram of simulated execution time
//   - RetryAttemptsTotal: Counter of database retry attempts by scenario
//   - CascadeSteps: Histogram of executed cascade steps per run
//   - BreakerTransitionsTotal: Counter of breaker transitions by state
//   - HTTPErrorsServedTotal: Counter of simulated HTTP errors by code
//   - ActiveSimulations: Gauge of in-flight simulations by family
//
// # Thread Safety
//
// All operations are thread-safe.
type SimulationMetrics struct {
	// SimulationsTotal counts completed simulations.
	// Labels: family (database_error, timeout, cascade, http_error),
	// kind (success, timeout, circuit_open, ...)
	SimulationsTotal *prometheus.CounterVec

	// SimulationDurationSeconds measures simulated execution time.
	// Labels: family
	SimulationDurationSeconds *prometheus.HistogramVec

	// RetryAttemptsTotal counts database retry attempts.
	// Labels: scenario
	RetryAttemptsTotal *prometheus.CounterVec

	// CascadeSteps measures executed steps per cascade run.
	// Labels: scenario
	CascadeSteps *prometheus.HistogramVec

	// BreakerTransitionsTotal counts circuit breaker state transitions.
	// Incremented by the OTelSink bridge when the engine reports a
	// transition; nothing else writes it.
	// Labels: state (open, half_open, closed)
	BreakerTransitionsTotal *prometheus.CounterVec

	// HTTPErrorsServedTotal counts simulated HTTP error responses.
	// Labels: code
	HTTPErrorsServedTotal *prometheus.CounterVec

	// ActiveSimulations tracks in-flight simulations.
	// Labels: family
	ActiveSimulations *prometheus.GaugeVec
}

// NewSimulationMetrics creates and registers all simulation metrics with the
// default Prometheus registry. Call once at startup; duplicate registration
// panics by promauto convention.
func NewSimulationMetrics() *SimulationMetrics {
	return newSimulationMetrics(prometheus.DefaultRegisterer)
}

// newSimulationMetrics registers against an explicit registerer so tests can
// use isolated registries.
func newSimulationMetrics(reg prometheus.Registerer) *SimulationMetrics {
	factory := promauto.With(reg)

	return &SimulationMetrics{
		SimulationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: simulationSubsystem,
				Name:      "runs_total",
				Help:      "Completed fault simulations by family and outcome kind.",
			},
			[]string{"family", "kind"},
		),
		SimulationDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: simulationSubsystem,
				Name:      "duration_seconds",
				Help:      "Simulated execution time per run.",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"family"},
		),
		RetryAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: simulationSubsystem,
				Name:      "retry_attempts_total",
				Help:      "Database retry attempts by scenario.",
			},
			[]string{"scenario"},
		),
		CascadeSteps: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: simulationSubsystem,
				Name:      "cascade_steps",
				Help:      "Executed steps per cascade simulation.",
				Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
			},
			[]string{"scenario"},
		),
		BreakerTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: simulationSubsystem,
				Name:      "breaker_transitions_total",
				Help:      "Circuit breaker state transitions.",
			},
			[]string{"state"},
		),
		HTTPErrorsServedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: simulationSubsystem,
				Name:      "http_errors_served_total",
				Help:      "Simulated HTTP error responses by status code.",
			},
			[]string{"code"},
		),
		ActiveSimulations: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: simulationSubsystem,
				Name:      "active",
				Help:      "In-flight simulations by family.",
			},
			[]string{"family"},
		),
	}
}

// RecordSimulation records one completed simulation.
func (m *SimulationMetrics) RecordSimulation(family, kind string, seconds float64) {
	m.SimulationsTotal.WithLabelValues(family, kind).Inc()
	m.SimulationDurationSeconds.WithLabelValues(family).Observe(seconds)
}

// SimulationStarted marks a simulation in-flight; the returned func marks it
// done. Use with defer.
func (m *SimulationMetrics) SimulationStarted(family string) func() {
	g := m.ActiveSimulations.WithLabelValues(family)
	g.Inc()
	return g.Dec
}
