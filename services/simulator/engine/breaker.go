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
	"sync"
	"time"
)

// openWindow is how long an open breaker rejects before allowing a half-open
// probe.
const openWindow = 30 * time.Second

// BreakerState is the derived logical state of one breaker key.
type BreakerState string

const (
	// BreakerClosed is normal operation.
	BreakerClosed BreakerState = "closed"

	// BreakerOpen rejects all attempts until the open window elapses.
	BreakerOpen BreakerState = "open"

	// BreakerHalfOpen allows probe attempts after the open window; the
	// next success closes the breaker, the next failure reopens it.
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerKey partitions breaker state by scenario type and simulated service
// context (e.g. "connect_timeout" × "cache").
type BreakerKey struct {
	ScenarioType   string `json:"scenario_type"`
	ServiceContext string `json:"service_context"`
}

// String renders the key in "scenarioType:serviceContext" form, used as the
// map key in listings and as a telemetry attribute.
func (k BreakerKey) String() string {
	return k.ScenarioType + ":" + k.ServiceContext
}

// BreakerSnapshot is a read-only copy of one key's state for introspection.
type BreakerSnapshot struct {
	Key              BreakerKey   `json:"key"`
	State            BreakerState `json:"state"`
	IsOpen           bool         `json:"is_open"`
	FailureCount     int          `json:"failure_count"`
	LastFailureMs    int64        `json:"last_failure_time_ms"`
	HalfOpenAttempts int          `json:"half_open_attempts"`
}

// breakerEntry is the live state for one key. All fields are guarded by mu.
type breakerEntry struct {
	mu               sync.Mutex
	open             bool
	halfOpen         bool
	failureCount     int
	lastFailure      time.Time
	halfOpenAttempts int
}

// BreakerRegistry is the keyed circuit breaker state machine.
//
// # Description
//
// The registry tracks failure counts and open/half-open/closed status per
// (scenarioType, serviceContext) pair. Entries are created lazily on first
// use and live for the process lifetime; RecordSuccess resets a key rather
// than destroying it.
//
// State transitions:
//
//	Closed ──failureCount >= threshold──► Open
//	Open ──openWindow elapsed, next ShouldReject──► Half-Open (probe allowed)
//	Half-Open ──RecordSuccess──► Closed
//	Half-Open ──RecordFailure──► Open (failureCount is NOT reset, so a
//	           sustained failure storm flaps open/probe/open indefinitely
//	           until a success lands)
//
// # Thread Safety
//
// Safe for concurrent use. The entry map is guarded by an RWMutex; each
// entry's read-modify-write sequences are serialized by a per-key mutex, so
// keys never contend with each other.
type BreakerRegistry struct {
	mu      sync.RWMutex
	entries map[BreakerKey]*breakerEntry

	clock Clock
	sink  Sink
	log   *slog.Logger
}

// NewBreakerRegistry constructs an empty registry. Nil dependencies fall back
// to the production clock, a no-op sink, and the default logger.
func NewBreakerRegistry(clock Clock, sink Sink, logger *slog.Logger) *BreakerRegistry {
	if clock == nil {
		clock = RealClock()
	}
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakerRegistry{
		entries: make(map[BreakerKey]*breakerEntry),
		clock:   clock,
		sink:    sink,
		log:     logger,
	}
}

// entry returns the live entry for key, creating it if absent.
func (r *BreakerRegistry) entry(key BreakerKey) *breakerEntry {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.entries[key]; ok {
		return e
	}
	e = &breakerEntry{}
	r.entries[key] = e
	return e
}

// ShouldReject reports whether an attempt for key must be rejected.
//
// # Description
//
// Absent state means Closed: the attempt proceeds. An open breaker rejects
// until openWindow has elapsed since the last failure; the first call after
// the window flips the breaker to half-open and lets the caller's attempt
// through as the probe.
//
// # Outputs
//
//   - bool: true when the attempt must be rejected without simulated work
func (r *BreakerRegistry) ShouldReject(ctx context.Context, key BreakerKey) bool {
	e := r.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		if e.halfOpen {
			e.halfOpenAttempts++
		}
		return false
	}

	elapsed := r.clock.Now().Sub(e.lastFailure)
	if elapsed <= openWindow {
		r.sink.RecordCounter(ctx, "circuit_breaker.rejections", Attrs{
			"breaker_key": key.String(),
		})
		return true
	}

	// Window elapsed: transition to half-open and admit this attempt as
	// the probe. failureCount intentionally survives, so one more failure
	// reopens immediately.
	e.open = false
	e.halfOpen = true
	e.halfOpenAttempts = 0
	r.emitTransition(ctx, key, BreakerHalfOpen, e.failureCount)
	e.halfOpenAttempts++
	return false
}

// RecordFailure records a failed attempt for key.
//
// # Description
//
// Increments the failure count and stamps the failure time. When the count
// reaches threshold the breaker opens. Threshold is scenario-specific
// (2-10 across timeout types).
func (r *BreakerRegistry) RecordFailure(ctx context.Context, key BreakerKey, threshold int) {
	e := r.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failureCount++
	e.lastFailure = r.clock.Now()

	if e.failureCount >= threshold && !e.open {
		e.open = true
		e.halfOpen = false
		r.emitTransition(ctx, key, BreakerOpen, e.failureCount)
	}
}

// RecordSuccess records a successful attempt for key, resetting it to Closed.
// This is the only transition that resets the failure count.
func (r *BreakerRegistry) RecordSuccess(ctx context.Context, key BreakerKey) {
	e := r.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	wasTripped := e.open || e.halfOpen || e.failureCount > 0
	e.open = false
	e.halfOpen = false
	e.failureCount = 0
	e.halfOpenAttempts = 0

	if wasTripped {
		r.emitTransition(ctx, key, BreakerClosed, 0)
	}
}

// State returns the derived logical state for key without mutating it.
// Unknown keys are Closed.
func (r *BreakerRegistry) State(key BreakerKey) BreakerState {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return BreakerClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return stateOf(e)
}

// ListStates returns a snapshot of every tracked key, for read-only
// introspection endpoints. Snapshots are copies; mutating them has no effect
// on the registry.
func (r *BreakerRegistry) ListStates() map[string]BreakerSnapshot {
	r.mu.RLock()
	keys := make([]BreakerKey, 0, len(r.entries))
	entries := make([]*breakerEntry, 0, len(r.entries))
	for k, e := range r.entries {
		keys = append(keys, k)
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make(map[string]BreakerSnapshot, len(keys))
	for i, e := range entries {
		e.mu.Lock()
		out[keys[i].String()] = BreakerSnapshot{
			Key:              keys[i],
			State:            stateOf(e),
			IsOpen:           e.open,
			FailureCount:     e.failureCount,
			LastFailureMs:    unixMs(e.lastFailure),
			HalfOpenAttempts: e.halfOpenAttempts,
		}
		e.mu.Unlock()
	}
	return out
}

// Reset removes the state for key, returning whether it existed.
func (r *BreakerRegistry) Reset(key BreakerKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	return ok
}

// ResetAll clears all breaker state, returning the number of keys removed.
func (r *BreakerRegistry) ResetAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	r.entries = make(map[BreakerKey]*breakerEntry)
	return n
}

// emitTransition reports a state transition to the sink and log. Called with
// the entry mutex held; the sink must not call back into the registry.
func (r *BreakerRegistry) emitTransition(ctx context.Context, key BreakerKey, to BreakerState, failures int) {
	r.sink.RecordCounter(ctx, "circuit_breaker.transitions", Attrs{
		"breaker_key": key.String(),
		"state":       string(to),
	})
	r.log.Info("circuit breaker transition",
		"breaker_key", key.String(),
		"state", string(to),
		"failure_count", failures,
	)
}

func stateOf(e *breakerEntry) BreakerState {
	switch {
	case e.open:
		return BreakerOpen
	case e.halfOpen:
		return BreakerHalfOpen
	default:
		return BreakerClosed
	}
}

func unixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// =============================================================================
// Compile-time sanity
// =============================================================================

var _ fmt.Stringer = BreakerKey{}
