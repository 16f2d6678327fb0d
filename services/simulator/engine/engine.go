// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options configures an Engine. The zero value is usable: built-in catalogs,
// wall clock, time-seeded randomness, no-op sink, default slog logger.
type Options struct {
	// Catalogs is the scenario catalog set. Nil uses DefaultCatalogs().
	Catalogs *CatalogSet

	// Breakers is the circuit breaker registry. Nil constructs a fresh
	// registry on the engine's clock and sink.
	Breakers *BreakerRegistry

	// Clock supplies time and sleeps. Nil uses RealClock().
	Clock Clock

	// Seed seeds the random source. Zero seeds from the clock, making
	// probability-driven behavior non-reproducible (production default).
	Seed int64

	// Sink receives counters, histograms, and spans. Nil uses NopSink.
	Sink Sink

	// Logger is the structured logger. Nil uses slog.Default().
	Logger *slog.Logger
}

// Engine is the fault simulation core.
//
// # Description
//
// Engine owns the scenario catalogs, the breaker registry, and the injected
// clock/random/sink dependencies, and exposes one entry point per fault
// family: SimulateTimeout, SimulateDatabaseError, SimulateCascade,
// SimulateHTTPError.
//
// # Thread Safety
//
// Safe for concurrent use. The random source is serialized by an internal
// mutex; everything else is either immutable or internally synchronized.
type Engine struct {
	catalogs *CatalogSet
	breakers *BreakerRegistry
	clock    Clock
	sink     Sink
	log      *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New constructs an Engine from opts.
//
// # Outputs
//
//   - *Engine: ready-to-use engine
//   - error: non-nil when the catalog set fails validation; this indicates
//     a configuration defect and should abort startup
func New(opts Options) (*Engine, error) {
	catalogs := opts.Catalogs
	if catalogs == nil {
		catalogs = DefaultCatalogs()
	}
	if err := catalogs.Validate(); err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	sink := opts.Sink
	if sink == nil {
		sink = NopSink{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = clock.Now().UnixNano()
	}

	breakers := opts.Breakers
	if breakers == nil {
		breakers = NewBreakerRegistry(clock, sink, logger)
	}

	return &Engine{
		catalogs: catalogs,
		breakers: breakers,
		clock:    clock,
		sink:     sink,
		log:      logger,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Breakers returns the engine's circuit breaker registry for introspection
// and administrative reset.
func (e *Engine) Breakers() *BreakerRegistry { return e.breakers }

// Catalogs returns the engine's catalog set.
func (e *Engine) Catalogs() *CatalogSet { return e.catalogs }

// random draws a uniform value in [0, 1) from the serialized source.
func (e *Engine) random() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// sleepMs sleeps for ms milliseconds on the engine clock.
func (e *Engine) sleepMs(ms float64) {
	e.clock.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

// elapsedMs returns whole milliseconds elapsed since start on the engine
// clock.
func (e *Engine) elapsedMs(start time.Time) int64 {
	return e.clock.Now().Sub(start).Milliseconds()
}

// newRunID mints a unique id for one simulation execution.
func (e *Engine) newRunID() string {
	return uuid.NewString()
}

// resolveScenario returns the named scenario, or a weighted selection from
// the family's catalog when id is empty.
func (e *Engine) resolveScenario(cat Category, id string) (ScenarioDefinition, error) {
	if id == "" {
		return e.SelectScenario(cat)
	}
	return e.catalogs.Find(cat, id)
}

// recordOutcome stamps the outcome's execution time and reports the
// simulation to the sink.
func (e *Engine) recordOutcome(ctx context.Context, cat Category, o *Outcome, start time.Time) {
	o.ExecutionTimeMs = e.elapsedMs(start)

	attrs := Attrs{
		"family":   string(cat),
		"scenario": o.Scenario.ID,
		"kind":     string(o.Kind),
		"success":  fmt.Sprintf("%t", o.Success),
	}
	e.sink.RecordCounter(ctx, "simulation.outcomes", attrs)
	e.sink.RecordHistogram(ctx, "simulation.duration_ms", float64(o.ExecutionTimeMs), Attrs{
		"family": string(cat),
		"kind":   string(o.Kind),
	})
}
