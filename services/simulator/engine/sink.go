// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import "context"

// Attrs carries string attributes for sink records and span events.
type Attrs map[string]string

// Span is one traced unit of simulated work.
type Span interface {
	// AddEvent records a point-in-time event on the span (a retry attempt,
	// a cascade step, a breaker transition).
	AddEvent(name string, attrs Attrs)

	// SetAttributes attaches attributes to the span.
	SetAttributes(attrs Attrs)

	// RecordError records an exhausted or failed simulation on the span.
	RecordError(err error)

	// End completes the span. Must be called exactly once.
	End()
}

// Sink is the observability boundary of the engine.
//
// # Description
//
// The engine reports counters, histograms, and spans through this interface
// and knows nothing about the telemetry backend. Production wires an
// OpenTelemetry-backed implementation; tests use NopSink or a recording fake.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Sink interface {
	// RecordCounter increments a named counter by one.
	RecordCounter(ctx context.Context, name string, attrs Attrs)

	// RecordHistogram records one observation of a named distribution.
	RecordHistogram(ctx context.Context, name string, value float64, attrs Attrs)

	// StartSpan opens a span for a unit of simulated work. The returned
	// context carries the span for nested instrumentation.
	StartSpan(ctx context.Context, name string, attrs Attrs) (context.Context, Span)
}

// =============================================================================
// No-op Implementation
// =============================================================================

// NopSink discards all telemetry. Used when no sink is configured and as the
// default in tests.
type NopSink struct{}

func (NopSink) RecordCounter(context.Context, string, Attrs)            {}
func (NopSink) RecordHistogram(context.Context, string, float64, Attrs) {}

func (NopSink) StartSpan(ctx context.Context, _ string, _ Attrs) (context.Context, Span) {
	return ctx, nopSpan{}
}

type nopSpan struct{}

func (nopSpan) AddEvent(string, Attrs)  {}
func (nopSpan) SetAttributes(Attrs)     {}
func (nopSpan) RecordError(error)       {}
func (nopSpan) End()                    {}

var _ Sink = NopSink{}
