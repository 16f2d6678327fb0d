// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"

	"github.com/faultline-io/faultline/services/simulator/engine"
)

func TestOTelSink_ImplementsEngineSink(t *testing.T) {
	// Against the default (no-op) global providers every operation must be
	// safe; the sink is constructed before an SDK is installed in tests.
	sink := NewOTelSink(nil, nil)
	ctx := context.Background()

	sink.RecordCounter(ctx, "simulation.outcomes", engine.Attrs{"family": "timeout"})
	sink.RecordHistogram(ctx, "simulation.duration_ms", 12, nil)

	ctx, span := sink.StartSpan(ctx, "engine.SimulateTimeout", engine.Attrs{"scenario.id": "connect_timeout"})
	span.AddEvent("retry.failed", engine.Attrs{"attempt": "1"})
	span.SetAttributes(engine.Attrs{"success": "false"})
	span.RecordError(context.DeadlineExceeded)
	span.End()

	if ctx == nil {
		t.Fatal("StartSpan returned nil context")
	}
}

func TestOTelSink_InstrumentCaching(t *testing.T) {
	sink := NewOTelSink(nil, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		sink.RecordCounter(ctx, "repeat.counter", nil)
		sink.RecordHistogram(ctx, "repeat.histogram", float64(i), nil)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.counters) != 1 {
		t.Errorf("counters cached: got %d, want 1", len(sink.counters))
	}
	if len(sink.histograms) != 1 {
		t.Errorf("histograms cached: got %d, want 1", len(sink.histograms))
	}
}

func TestToKeyValues_StableOrder(t *testing.T) {
	attrs := engine.Attrs{"zebra": "1", "alpha": "2", "mid": "3"}

	got := toKeyValues(attrs)
	want := []attribute.KeyValue{
		attribute.String("alpha", "2"),
		attribute.String("mid", "3"),
		attribute.String("zebra", "1"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d attrs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attr %d: got %v, want %v", i, got[i], want[i])
		}
	}

	if toKeyValues(nil) != nil {
		t.Error("nil attrs must produce nil key-values")
	}
}

// steppedClock advances only when asked, so breaker windows elapse without
// real waiting.
type steppedClock struct {
	now time.Time
}

func (c *steppedClock) Now() time.Time        { return c.now }
func (c *steppedClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

func TestOTelSink_BridgesBreakerTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newSimulationMetrics(reg)
	clock := &steppedClock{now: time.Unix(1700000000, 0)}
	sink := NewOTelSink(nil, m)
	breakers := engine.NewBreakerRegistry(clock, sink, nil)

	ctx := context.Background()
	key := engine.BreakerKey{ScenarioType: "gateway_timeout", ServiceContext: "billing"}

	// Closed -> Open at the threshold.
	breakers.RecordFailure(ctx, key, 2)
	breakers.RecordFailure(ctx, key, 2)
	if got := testutil.ToFloat64(m.BreakerTransitionsTotal.WithLabelValues("open")); got != 1 {
		t.Fatalf("open transitions: got %v, want 1", got)
	}

	// Open -> Half-Open once the window elapses, then a probe success closes.
	clock.now = clock.now.Add(31 * time.Second)
	if breakers.ShouldReject(ctx, key) {
		t.Fatal("expected half-open probe admission after the open window")
	}
	breakers.RecordSuccess(ctx, key)

	if got := testutil.ToFloat64(m.BreakerTransitionsTotal.WithLabelValues("half_open")); got != 1 {
		t.Errorf("half_open transitions: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BreakerTransitionsTotal.WithLabelValues("closed")); got != 1 {
		t.Errorf("closed transitions: got %v, want 1", got)
	}
}

func TestOTelSink_NilMetricsSkipsBridge(t *testing.T) {
	sink := NewOTelSink(nil, nil)
	sink.RecordCounter(context.Background(), breakerTransitionCounter,
		engine.Attrs{"breaker_key": "timeout:default", "state": "open"})
}
