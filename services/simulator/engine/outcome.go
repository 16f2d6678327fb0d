// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

// OutcomeKind classifies the terminal result of a simulator invocation.
// Callers map kinds to transport status codes; the engine itself has no
// knowledge of HTTP.
type OutcomeKind string

const (
	// OutcomeSuccess is a simulated operation that completed normally.
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeTimeout is a simulated operation that exceeded its timeout.
	OutcomeTimeout OutcomeKind = "timeout"

	// OutcomeCircuitOpen is a request rejected by an open circuit breaker
	// before any simulated work ran.
	OutcomeCircuitOpen OutcomeKind = "circuit_open"

	// OutcomeDatabaseError is a database simulation that exhausted its
	// retry budget without success.
	OutcomeDatabaseError OutcomeKind = "database_error"

	// OutcomeCascadeFailure is a cascade that ran its full chain (or depth
	// budget) with the final step still failed.
	OutcomeCascadeFailure OutcomeKind = "cascade_failure"

	// OutcomeHTTPError is a simulated HTTP error response.
	OutcomeHTTPError OutcomeKind = "http_error"
)

// Outcome is the common terminal result carried by every simulator result.
type Outcome struct {
	// RunID uniquely identifies this simulation execution.
	RunID string `json:"run_id"`

	// Kind classifies the terminal result.
	Kind OutcomeKind `json:"kind"`

	// Success reports whether the simulated operation succeeded.
	Success bool `json:"success"`

	// ExecutionTimeMs is the total simulated execution time, measured on
	// the engine clock.
	ExecutionTimeMs int64 `json:"execution_time_ms"`

	// Scenario is the definition the simulation ran against.
	Scenario ScenarioDefinition `json:"scenario"`
}

// RetryAttempt records one attempt of the database retry loop.
type RetryAttempt struct {
	AttemptNumber int    `json:"attempt_number"`
	Succeeded     bool   `json:"succeeded"`
	ErrorCode     string `json:"error_code,omitempty"`

	// BackoffMs is the delay slept after this attempt; zero on the final
	// attempt and on success.
	BackoffMs int64 `json:"backoff_ms"`
}

// DatabaseErrorResult is the terminal result of a database error simulation.
type DatabaseErrorResult struct {
	Outcome

	// TotalAttempts is len(Attempts); never exceeds maxRetries+1.
	TotalAttempts int            `json:"total_attempts"`
	Attempts      []RetryAttempt `json:"attempts"`

	// ErrorCode is the scenario error code when the loop exhausted, empty
	// on success.
	ErrorCode string `json:"error_code,omitempty"`
}

// TimeoutResult is the terminal result of a timeout simulation.
type TimeoutResult struct {
	Outcome

	TimedOut       bool   `json:"timed_out"`
	ServiceContext string `json:"service_context"`

	// TimeoutMs is the effective timeout threshold used for this run
	// (custom override or scenario default).
	TimeoutMs int `json:"timeout_ms"`

	// BreakerEnabled reports whether circuit breaker consultation was on.
	BreakerEnabled bool `json:"circuit_breaker_enabled"`

	// BreakerState is the registry state for this run's key after the run.
	BreakerState BreakerState `json:"circuit_breaker_state,omitempty"`
}

// CascadeStepStatus is the terminal status of one cascade step.
type CascadeStepStatus string

const (
	// StepFailed is a step whose simulated service failed and propagated.
	StepFailed CascadeStepStatus = "failed"

	// StepRecovered is a step whose simulated service recovered.
	StepRecovered CascadeStepStatus = "recovered"

	// StepSuccess is a step where the cascade stopped naturally without
	// propagating further.
	StepSuccess CascadeStepStatus = "success"
)

// CascadeStep records one executed stage of a cascade simulation.
type CascadeStep struct {
	StepIndex          int               `json:"step_index"`
	Service            string            `json:"service"`
	FailureType        string            `json:"failure_type"`
	Status             CascadeStepStatus `json:"status"`
	ExecutionTimeMs    int64             `json:"execution_time_ms"`
	PropagationDelayMs int64             `json:"propagation_delay_ms"`
}

// CascadeResult is the terminal result of a cascade simulation.
type CascadeResult struct {
	Outcome

	Steps []CascadeStep `json:"steps"`

	TotalSteps        int `json:"total_steps"`
	FailedServices    int `json:"failed_services"`
	RecoveredServices int `json:"recovered_services"`
	MaxDepthReached   int `json:"max_depth_reached"`

	// RecoveryTimeMs is the worst single-step cost: the maximum of
	// step execution time plus propagation delay across all steps.
	RecoveryTimeMs int64 `json:"recovery_time_ms"`
}

// HTTPErrorResult is the terminal result of an HTTP error simulation.
type HTTPErrorResult struct {
	Outcome

	// StatusCode is the resolved HTTP status. 0 is never returned; on
	// intermittent success the scenario's code is still reported here with
	// Success=true so callers can log what was skipped.
	StatusCode int    `json:"status_code"`
	Category   string `json:"category"`

	// ShouldRetry is true only for 5xx codes and for 409/429.
	ShouldRetry bool `json:"should_retry"`

	// Headers are scenario-specific response headers for the caller to
	// attach (Retry-After, WWW-Authenticate, ...).
	Headers map[string]string `json:"headers,omitempty"`
}

// shouldRetryStatus reports whether a client seeing this simulated status
// should retry the request.
func shouldRetryStatus(status int) bool {
	return status >= 500 || status == 409 || status == 429
}
