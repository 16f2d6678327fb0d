// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the wire types for the simulator HTTP API.
//
// Request types carry gin binding tags; validation failures surface as 400
// responses before any simulation runs. Response types wrap engine results
// with the HTTP-mapped status the caller should alert on.
package datatypes

// DatabaseErrorRequest drives POST /v1/simulate/database-error.
type DatabaseErrorRequest struct {
	// ErrorType selects the database error scenario; empty means weighted
	// selection.
	ErrorType string `json:"error_type" binding:"omitempty,scenario_id"`

	// ForceError guarantees failure on every attempt.
	ForceError bool `json:"force_error"`

	// MaxRetries is the retry budget, attempts run 0..MaxRetries.
	MaxRetries int `json:"max_retries" binding:"min=0,max=5"`

	// Context labels the simulated caller for log correlation.
	Context string `json:"context" binding:"omitempty,max=128"`
}

// TimeoutRequest drives POST /v1/simulate/timeout.
type TimeoutRequest struct {
	TimeoutType    string `json:"timeout_type" binding:"omitempty,scenario_id"`
	ServiceContext string `json:"service_context" binding:"omitempty,scenario_id"`
	ForceTimeout   bool   `json:"force_timeout"`

	// CustomTimeoutMs overrides the scenario threshold when > 0.
	CustomTimeoutMs int `json:"custom_timeout_ms" binding:"omitempty,min=1,max=60000"`

	// CircuitBreakerEnabled defaults to true; the pointer distinguishes
	// "absent" from an explicit false.
	CircuitBreakerEnabled *bool `json:"circuit_breaker_enabled"`
}

// BreakerEnabled resolves the tri-state flag, defaulting to enabled.
func (r TimeoutRequest) BreakerEnabled() bool {
	if r.CircuitBreakerEnabled == nil {
		return true
	}
	return *r.CircuitBreakerEnabled
}

// CascadeRequest drives POST /v1/simulate/cascade.
type CascadeRequest struct {
	FailureType  string `json:"failure_type" binding:"omitempty,scenario_id"`
	ForceCascade bool   `json:"force_cascade"`

	// MaxDepth bounds the chain walk. Zero uses the engine default.
	MaxDepth int `json:"max_depth" binding:"omitempty,min=1,max=10"`

	// DelayMultiplier scales all delays. Zero uses 1.0.
	DelayMultiplier float64 `json:"delay_multiplier" binding:"omitempty,min=0.1,max=5"`

	RecoveryEnabled     bool `json:"recovery_enabled"`
	StopOnFirstRecovery bool `json:"stop_on_first_recovery"`
}

// HTTPErrorRequest drives POST /v1/simulate/http-error.
type HTTPErrorRequest struct {
	// ErrorCode pins the status code when set.
	ErrorCode int `json:"error_code" binding:"omitempty,min=400,max=599"`

	// Category filters weighted selection when ErrorCode is absent.
	Category string `json:"category" binding:"omitempty,oneof=4xx 5xx all"`

	IncludeDelay bool `json:"include_delay"`
	Intermittent bool `json:"intermittent"`

	IntermittentSuccessRate float64 `json:"intermittent_success_rate" binding:"omitempty,min=0,max=1"`
}

// ErrorResponse is the uniform error document for invalid requests and
// catalog misconfiguration.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SimulationEnvelope wraps an engine result for the wire, adding the request
// correlation id assigned by the middleware.
type SimulationEnvelope struct {
	RequestID string `json:"request_id,omitempty"`
	Result    any    `json:"result"`
}
