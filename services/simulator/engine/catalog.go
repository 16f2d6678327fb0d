// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrEmptyCatalog indicates a catalog with no entries. This is a
	// configuration defect, never a simulated condition.
	ErrEmptyCatalog = errors.New("engine: empty scenario catalog")

	// ErrUnknownScenario indicates a scenario id that is not present in the
	// requested catalog.
	ErrUnknownScenario = errors.New("engine: unknown scenario")

	// ErrUnknownCategory indicates a fault family with no catalog.
	ErrUnknownCategory = errors.New("engine: unknown scenario category")
)

// =============================================================================
// Static Catalogs
// =============================================================================

// databaseErrorScenarios are the built-in database failure scenarios. Delays
// model the latency observed before the corresponding real-world error
// surfaces (a refused connection fails fast, a lock wait fails slow).
var databaseErrorScenarios = []ScenarioDefinition{
	{
		ID:               "connection_refused",
		DisplayName:      "Connection Refused",
		Category:         CategoryDatabaseError,
		Weight:           30,
		SuccessRate:      0.05,
		BaseDelayMs:      50,
		ErrorCode:        "ECONNREFUSED",
		RecoveryStrategy: "exponential_backoff",
	},
	{
		ID:               "connection_timeout",
		DisplayName:      "Connection Timeout",
		Category:         CategoryDatabaseError,
		Weight:           20,
		SuccessRate:      0.15,
		BaseDelayMs:      300,
		ErrorCode:        "ETIMEDOUT",
		RecoveryStrategy: "exponential_backoff",
	},
	{
		ID:               "deadlock_detected",
		DisplayName:      "Deadlock Detected",
		Category:         CategoryDatabaseError,
		Weight:           15,
		SuccessRate:      0.40,
		BaseDelayMs:      120,
		ErrorCode:        "ER_LOCK_DEADLOCK",
		RecoveryStrategy: "immediate_retry",
	},
	{
		ID:               "pool_exhausted",
		DisplayName:      "Connection Pool Exhausted",
		Category:         CategoryDatabaseError,
		Weight:           15,
		SuccessRate:      0.25,
		BaseDelayMs:      80,
		ErrorCode:        "ER_CON_COUNT_ERROR",
		RecoveryStrategy: "exponential_backoff",
	},
	{
		ID:               "query_timeout",
		DisplayName:      "Query Timeout",
		Category:         CategoryDatabaseError,
		Weight:           12,
		SuccessRate:      0.30,
		BaseDelayMs:      500,
		ErrorCode:        "ER_QUERY_TIMEOUT",
		RecoveryStrategy: "exponential_backoff",
	},
	{
		ID:               "constraint_violation",
		DisplayName:      "Unique Constraint Violation",
		Category:         CategoryDatabaseError,
		Weight:           8,
		SuccessRate:      0.10,
		BaseDelayMs:      30,
		ErrorCode:        "ER_DUP_ENTRY",
		RecoveryStrategy: "none",
	},
}

// timeoutScenarios are the built-in timeout scenarios. Breaker thresholds
// range from 2 (gateway, trips fast) to 10 (DNS, trips slow).
var timeoutScenarios = []ScenarioDefinition{
	{
		ID:               "connect_timeout",
		DisplayName:      "TCP Connect Timeout",
		Category:         CategoryTimeout,
		Weight:           25,
		SuccessRate:      0.30,
		TimeoutMs:        1000,
		BreakerThreshold: 3,
		ErrorCode:        "CONNECT_TIMEOUT",
		RecoveryStrategy: "circuit_breaker",
	},
	{
		ID:               "read_timeout",
		DisplayName:      "Socket Read Timeout",
		Category:         CategoryTimeout,
		Weight:           25,
		SuccessRate:      0.50,
		TimeoutMs:        2000,
		BreakerThreshold: 5,
		ErrorCode:        "READ_TIMEOUT",
		RecoveryStrategy: "circuit_breaker",
	},
	{
		ID:               "write_timeout",
		DisplayName:      "Socket Write Timeout",
		Category:         CategoryTimeout,
		Weight:           15,
		SuccessRate:      0.55,
		TimeoutMs:        1500,
		BreakerThreshold: 4,
		ErrorCode:        "WRITE_TIMEOUT",
		RecoveryStrategy: "circuit_breaker",
	},
	{
		ID:               "gateway_timeout",
		DisplayName:      "Upstream Gateway Timeout",
		Category:         CategoryTimeout,
		Weight:           20,
		SuccessRate:      0.40,
		TimeoutMs:        5000,
		BreakerThreshold: 2,
		ErrorCode:        "GATEWAY_TIMEOUT",
		RecoveryStrategy: "circuit_breaker",
	},
	{
		ID:               "dns_timeout",
		DisplayName:      "DNS Resolution Timeout",
		Category:         CategoryTimeout,
		Weight:           15,
		SuccessRate:      0.70,
		TimeoutMs:        500,
		BreakerThreshold: 10,
		ErrorCode:        "DNS_TIMEOUT",
		RecoveryStrategy: "circuit_breaker",
	},
}

// cascadeScenarios are the built-in cascading failure chains. Each chain is a
// fixed ordered list of simulated services; the propagator walks it up to the
// requested depth.
var cascadeScenarios = []ScenarioDefinition{
	{
		ID:               "service_mesh",
		DisplayName:      "Service Mesh Cascade",
		Category:         CategoryCascade,
		Weight:           30,
		SuccessRate:      0.20,
		RecoveryStrategy: "bulkhead",
		Chain: []ChainStep{
			{Service: "auth-service", FailureType: "connection_refused", DelayMs: 100, PropagationDelayMs: 50},
			{Service: "user-service", FailureType: "timeout", DelayMs: 200, PropagationDelayMs: 80},
			{Service: "order-service", FailureType: "overload", DelayMs: 300, PropagationDelayMs: 120},
			{Service: "payment-service", FailureType: "timeout", DelayMs: 400, PropagationDelayMs: 150},
			{Service: "notification-service", FailureType: "queue_full", DelayMs: 150, PropagationDelayMs: 60},
		},
	},
	{
		ID:               "database_cascade",
		DisplayName:      "Database Tier Cascade",
		Category:         CategoryCascade,
		Weight:           25,
		SuccessRate:      0.15,
		RecoveryStrategy: "failover",
		Chain: []ChainStep{
			{Service: "primary-db", FailureType: "disk_full", DelayMs: 250, PropagationDelayMs: 100},
			{Service: "replica-db", FailureType: "replication_lag", DelayMs: 350, PropagationDelayMs: 120},
			{Service: "cache", FailureType: "stampede", DelayMs: 120, PropagationDelayMs: 40},
			{Service: "api-gateway", FailureType: "overload", DelayMs: 200, PropagationDelayMs: 90},
		},
	},
	{
		ID:               "infrastructure",
		DisplayName:      "Infrastructure Cascade",
		Category:         CategoryCascade,
		Weight:           25,
		SuccessRate:      0.10,
		RecoveryStrategy: "restart",
		Chain: []ChainStep{
			{Service: "dns", FailureType: "resolution_failure", DelayMs: 80, PropagationDelayMs: 30},
			{Service: "load-balancer", FailureType: "health_check_failure", DelayMs: 150, PropagationDelayMs: 60},
			{Service: "web-tier", FailureType: "connection_refused", DelayMs: 220, PropagationDelayMs: 100},
			{Service: "app-tier", FailureType: "thread_pool_exhausted", DelayMs: 300, PropagationDelayMs: 130},
			{Service: "message-queue", FailureType: "broker_down", DelayMs: 180, PropagationDelayMs: 70},
			{Service: "worker-pool", FailureType: "backlog_overflow", DelayMs: 260, PropagationDelayMs: 110},
		},
	},
	{
		ID:               "third_party",
		DisplayName:      "Third-Party Dependency Cascade",
		Category:         CategoryCascade,
		Weight:           20,
		SuccessRate:      0.25,
		RecoveryStrategy: "graceful_degradation",
		Chain: []ChainStep{
			{Service: "payment-provider", FailureType: "rate_limited", DelayMs: 500, PropagationDelayMs: 200},
			{Service: "checkout-service", FailureType: "timeout", DelayMs: 350, PropagationDelayMs: 140},
			{Service: "inventory-service", FailureType: "stale_reads", DelayMs: 200, PropagationDelayMs: 80},
		},
	},
}

// httpErrorScenarios are the built-in HTTP error code scenarios. Headers are
// attached verbatim to simulated responses.
var httpErrorScenarios = []ScenarioDefinition{
	{
		ID: "bad_request", DisplayName: "Bad Request", Category: CategoryHTTPError,
		Weight: 15, HTTPStatus: 400, ErrorCode: "BAD_REQUEST",
		Delay: DelayRange{MinMs: 10, MaxMs: 50},
	},
	{
		ID: "unauthorized", DisplayName: "Unauthorized", Category: CategoryHTTPError,
		Weight: 10, HTTPStatus: 401, ErrorCode: "UNAUTHORIZED",
		Delay:   DelayRange{MinMs: 10, MaxMs: 40},
		Headers: map[string]string{"WWW-Authenticate": `Bearer realm="faultline"`},
	},
	{
		ID: "forbidden", DisplayName: "Forbidden", Category: CategoryHTTPError,
		Weight: 8, HTTPStatus: 403, ErrorCode: "FORBIDDEN",
		Delay: DelayRange{MinMs: 10, MaxMs: 40},
	},
	{
		ID: "not_found", DisplayName: "Not Found", Category: CategoryHTTPError,
		Weight: 15, HTTPStatus: 404, ErrorCode: "NOT_FOUND",
		Delay: DelayRange{MinMs: 5, MaxMs: 30},
	},
	{
		ID: "conflict", DisplayName: "Conflict", Category: CategoryHTTPError,
		Weight: 7, HTTPStatus: 409, ErrorCode: "CONFLICT",
		Delay: DelayRange{MinMs: 20, MaxMs: 80},
	},
	{
		ID: "too_many_requests", DisplayName: "Too Many Requests", Category: CategoryHTTPError,
		Weight: 10, HTTPStatus: 429, ErrorCode: "RATE_LIMITED",
		Delay:   DelayRange{MinMs: 10, MaxMs: 50},
		Headers: map[string]string{"Retry-After": "120"},
	},
	{
		ID: "internal_error", DisplayName: "Internal Server Error", Category: CategoryHTTPError,
		Weight: 15, HTTPStatus: 500, ErrorCode: "INTERNAL_ERROR",
		Delay: DelayRange{MinMs: 50, MaxMs: 300},
	},
	{
		ID: "bad_gateway", DisplayName: "Bad Gateway", Category: CategoryHTTPError,
		Weight: 8, HTTPStatus: 502, ErrorCode: "BAD_GATEWAY",
		Delay: DelayRange{MinMs: 100, MaxMs: 500},
	},
	{
		ID: "service_unavailable", DisplayName: "Service Unavailable", Category: CategoryHTTPError,
		Weight: 7, HTTPStatus: 503, ErrorCode: "SERVICE_UNAVAILABLE",
		Delay:   DelayRange{MinMs: 100, MaxMs: 600},
		Headers: map[string]string{"Retry-After": "30"},
	},
	{
		ID: "gateway_timeout_http", DisplayName: "Gateway Timeout", Category: CategoryHTTPError,
		Weight: 5, HTTPStatus: 504, ErrorCode: "GATEWAY_TIMEOUT",
		Delay: DelayRange{MinMs: 500, MaxMs: 2000},
	},
}

// =============================================================================
// CatalogSet
// =============================================================================

// CatalogSet is the immutable set of scenario catalogs the engine runs on.
//
// # Description
//
// A CatalogSet is built once at process start from the static tables,
// optionally adjusted by ApplyOverrides before the engine is constructed.
// After that it is read-only; Catalog returns defensive copies of the slice
// headers but the definitions themselves are shared and must not be mutated.
//
// # Thread Safety
//
// Safe for concurrent reads after construction.
type CatalogSet struct {
	byCategory map[Category][]ScenarioDefinition
}

// DefaultCatalogs returns a CatalogSet holding the built-in scenario tables.
func DefaultCatalogs() *CatalogSet {
	return &CatalogSet{
		byCategory: map[Category][]ScenarioDefinition{
			CategoryDatabaseError: cloneScenarios(databaseErrorScenarios),
			CategoryTimeout:       cloneScenarios(timeoutScenarios),
			CategoryCascade:       cloneScenarios(cascadeScenarios),
			CategoryHTTPError:     cloneScenarios(httpErrorScenarios),
		},
	}
}

// Catalog returns the scenario table for a fault family.
//
// # Outputs
//
//   - []ScenarioDefinition: a copy of the catalog slice (entries shared)
//   - error: ErrUnknownCategory when the family has no catalog
func (c *CatalogSet) Catalog(cat Category) ([]ScenarioDefinition, error) {
	scenarios, ok := c.byCategory[cat]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	out := make([]ScenarioDefinition, len(scenarios))
	copy(out, scenarios)
	return out, nil
}

// Find looks up a scenario by id within a fault family.
//
// # Outputs
//
//   - ScenarioDefinition: the matching definition
//   - error: ErrUnknownCategory or ErrUnknownScenario
func (c *CatalogSet) Find(cat Category, id string) (ScenarioDefinition, error) {
	scenarios, ok := c.byCategory[cat]
	if !ok {
		return ScenarioDefinition{}, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	for _, s := range scenarios {
		if s.ID == id {
			return s, nil
		}
	}
	return ScenarioDefinition{}, fmt.Errorf("%w: %s/%s", ErrUnknownScenario, cat, id)
}

// Validate checks every catalog for configuration defects: empty tables,
// non-positive weights, success rates outside [0, 1], and cascade scenarios
// with empty chains. Called once at engine construction.
func (c *CatalogSet) Validate() error {
	for _, cat := range Categories() {
		scenarios, ok := c.byCategory[cat]
		if !ok || len(scenarios) == 0 {
			return fmt.Errorf("%w: %q", ErrEmptyCatalog, cat)
		}
		for _, s := range scenarios {
			if s.Weight <= 0 {
				return fmt.Errorf("engine: scenario %s/%s has non-positive weight %v", cat, s.ID, s.Weight)
			}
			if s.SuccessRate < 0 || s.SuccessRate > 1 {
				return fmt.Errorf("engine: scenario %s/%s has success rate %v outside [0,1]", cat, s.ID, s.SuccessRate)
			}
			if cat == CategoryCascade && len(s.Chain) == 0 {
				return fmt.Errorf("engine: cascade scenario %s has an empty chain", s.ID)
			}
			if cat == CategoryHTTPError && (s.HTTPStatus < 400 || s.HTTPStatus > 599) {
				return fmt.Errorf("engine: http error scenario %s has status %d outside 4xx/5xx", s.ID, s.HTTPStatus)
			}
		}
	}
	return nil
}

func cloneScenarios(in []ScenarioDefinition) []ScenarioDefinition {
	out := make([]ScenarioDefinition, len(in))
	copy(out, in)
	return out
}
