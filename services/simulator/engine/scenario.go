// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine implements the fault simulation core: scenario catalogs,
// weighted scenario selection, the per-key circuit breaker registry, and the
// four fault simulators (database error retry, timeout, cascading failure,
// HTTP error).
//
// # Architecture
//
//	Request
//	   │
//	   ▼
//	Engine.Simulate{Timeout,DatabaseError,Cascade,HTTPError}
//	   │
//	   ├─► SelectScenario (weighted, when no explicit type given)
//	   │
//	   ├─► BreakerRegistry (timeout family only)
//	   │
//	   └─► Sink (counters, histograms, spans)
//
// All simulated failures are expected outcomes represented as data; the only
// Go errors returned by this package indicate catalog or parameter
// misconfiguration.
//
// # Determinism
//
// Randomness and time are injected (Options.Seed, Options.Clock) so tests run
// on virtual time with reproducible draws. Production uses the wall clock and
// a time-seeded source.
//
// # Thread Safety
//
// An Engine is safe for concurrent use. The random source is serialized
// internally; the breaker registry serializes per-key read-modify-write
// sequences. Catalogs are immutable after construction.
package engine

// Category identifies a fault family. Each category has its own scenario
// catalog and its own simulator entry point.
type Category string

const (
	// CategoryDatabaseError covers simulated database failures with a
	// bounded retry loop (connection refused, deadlocks, pool exhaustion).
	CategoryDatabaseError Category = "database_error"

	// CategoryTimeout covers simulated network timeouts guarded by the
	// circuit breaker registry.
	CategoryTimeout Category = "timeout"

	// CategoryCascade covers multi-service cascading failure chains.
	CategoryCascade Category = "cascade"

	// CategoryHTTPError covers arbitrary HTTP error code responses.
	CategoryHTTPError Category = "http_error"
)

// Categories lists every fault family in catalog order.
func Categories() []Category {
	return []Category{
		CategoryDatabaseError,
		CategoryTimeout,
		CategoryCascade,
		CategoryHTTPError,
	}
}

// DelayRange is a uniform delay window in milliseconds.
type DelayRange struct {
	MinMs int `json:"min_ms" yaml:"min_ms"`
	MaxMs int `json:"max_ms" yaml:"max_ms"`
}

// ChainStep is one stage of a cascading failure chain: the simulated service,
// the failure it exhibits, its local processing delay, and the propagation
// delay before the failure reaches the next stage.
type ChainStep struct {
	Service            string `json:"service" yaml:"service"`
	FailureType        string `json:"failure_type" yaml:"failure_type"`
	DelayMs            int    `json:"delay_ms" yaml:"delay_ms"`
	PropagationDelayMs int    `json:"propagation_delay_ms" yaml:"propagation_delay_ms"`
}

// ScenarioDefinition describes one named fault scenario.
//
// # Description
//
// Definitions are immutable and loaded at process start from the static
// catalogs (optionally overridden by a YAML file). Fields beyond the common
// set apply only to specific categories:
//
//   - TimeoutMs, BreakerThreshold: timeout family
//   - Chain: cascade family
//   - HTTPStatus, Delay, Headers: HTTP error family
//
// # Fields
//
//   - ID: stable scenario identifier, e.g. "connection_refused"
//   - Weight: relative selection weight, must be > 0
//   - SuccessRate: per-attempt success probability in [0, 1]
//   - BaseDelayMs: fixed per-attempt latency (database family)
//   - ErrorCode: error code reported on failure, e.g. "ECONNREFUSED"
//   - RecoveryStrategy: named recovery policy, reported for observability only
type ScenarioDefinition struct {
	ID          string   `json:"id" yaml:"id"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Category    Category `json:"category" yaml:"category"`
	Weight      float64  `json:"weight" yaml:"weight"`
	SuccessRate float64  `json:"success_rate" yaml:"success_rate"`
	BaseDelayMs int      `json:"base_delay_ms,omitempty" yaml:"base_delay_ms"`
	ErrorCode   string   `json:"error_code,omitempty" yaml:"error_code"`

	// RecoveryStrategy names the recovery policy associated with this
	// scenario. It is attached to outcomes for observability; the retry
	// loop's own backoff is the only policy the engine executes.
	RecoveryStrategy string `json:"recovery_strategy,omitempty" yaml:"recovery_strategy"`

	// Timeout family.
	TimeoutMs        int `json:"timeout_ms,omitempty" yaml:"timeout_ms"`
	BreakerThreshold int `json:"circuit_breaker_threshold,omitempty" yaml:"circuit_breaker_threshold"`

	// Cascade family.
	Chain []ChainStep `json:"chain,omitempty" yaml:"chain"`

	// HTTP error family.
	HTTPStatus int               `json:"http_status,omitempty" yaml:"http_status"`
	Delay      DelayRange        `json:"delay,omitempty" yaml:"delay"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers"`
}
