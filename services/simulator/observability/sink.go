// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/faultline-io/faultline/services/simulator/engine"
)

// instrumentationName scopes the simulator's tracer and meter.
const instrumentationName = "faultline.simulator"

// breakerTransitionCounter is the sink counter name the engine's breaker
// registry emits on every state transition.
const breakerTransitionCounter = "circuit_breaker.transitions"

// OTelSink implements engine.Sink over OpenTelemetry.
//
// # Description
//
// Counters and histograms are created lazily by name and cached; spans wrap
// each simulation with events for retries, cascade steps, and breaker
// transitions. The engine stays ignorant of OpenTelemetry; this adapter is
// the only bridge.
//
// # Thread Safety
//
// Safe for concurrent use. Instrument caches are guarded by a mutex; OTel
// instruments themselves are thread-safe.
type OTelSink struct {
	tracer  trace.Tracer
	meter   metric.Meter
	log     *slog.Logger
	metrics *SimulationMetrics

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewOTelSink builds a sink on the global tracer and meter providers. Call
// after the providers are configured. When metrics is non-nil, breaker
// transition counts are mirrored into its promauto series so the Prometheus
// scrape carries them alongside the OTel export; pass nil to skip the bridge.
func NewOTelSink(logger *slog.Logger, metrics *SimulationMetrics) *OTelSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &OTelSink{
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
		log:        logger,
		metrics:    metrics,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// RecordCounter increments the named counter by one.
func (s *OTelSink) RecordCounter(ctx context.Context, name string, attrs engine.Attrs) {
	if s.metrics != nil && name == breakerTransitionCounter {
		s.metrics.BreakerTransitionsTotal.WithLabelValues(attrs["state"]).Inc()
	}
	counter, err := s.counter(name)
	if err != nil {
		s.log.Warn("counter creation failed", "name", name, "error", err)
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(toKeyValues(attrs)...))
}

// RecordHistogram records one observation of the named distribution.
func (s *OTelSink) RecordHistogram(ctx context.Context, name string, value float64, attrs engine.Attrs) {
	histogram, err := s.histogram(name)
	if err != nil {
		s.log.Warn("histogram creation failed", "name", name, "error", err)
		return
	}
	histogram.Record(ctx, value, metric.WithAttributes(toKeyValues(attrs)...))
}

// StartSpan opens a span for one unit of simulated work.
func (s *OTelSink) StartSpan(ctx context.Context, name string, attrs engine.Attrs) (context.Context, engine.Span) {
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(toKeyValues(attrs)...))
	return ctx, otelSpan{span: span}
}

func (s *OTelSink) counter(name string) (metric.Int64Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[name]; ok {
		return c, nil
	}
	c, err := s.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	s.counters[name] = c
	return c, nil
}

func (s *OTelSink) histogram(name string) (metric.Float64Histogram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.histograms[name]; ok {
		return h, nil
	}
	h, err := s.meter.Float64Histogram(name)
	if err != nil {
		return nil, err
	}
	s.histograms[name] = h
	return h, nil
}

// otelSpan adapts an OTel span to engine.Span.
type otelSpan struct {
	span trace.Span
}

func (s otelSpan) AddEvent(name string, attrs engine.Attrs) {
	s.span.AddEvent(name, trace.WithAttributes(toKeyValues(attrs)...))
}

func (s otelSpan) SetAttributes(attrs engine.Attrs) {
	s.span.SetAttributes(toKeyValues(attrs)...)
}

func (s otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

func (s otelSpan) End() {
	s.span.End()
}

// toKeyValues converts sink attributes to OTel key-values in stable order.
func toKeyValues(attrs engine.Attrs) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, attribute.String(k, attrs[k]))
	}
	return out
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ engine.Sink = (*OTelSink)(nil)
