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
)

// defaultServiceContext partitions breaker state when the caller names no
// simulated dependency.
const defaultServiceContext = "default"

// TimeoutParams are the inputs to SimulateTimeout.
type TimeoutParams struct {
	// TimeoutType selects the timeout scenario; empty means weighted
	// selection from the timeout catalog.
	TimeoutType string

	// ServiceContext labels the simulated dependency (cache, database,
	// ...). Empty uses "default".
	ServiceContext string

	// ForceTimeout guarantees a timeout regardless of the scenario's
	// success rate.
	ForceTimeout bool

	// CustomTimeoutMs overrides the scenario's timeout threshold when > 0.
	CustomTimeoutMs int

	// BreakerEnabled turns circuit breaker consultation on.
	BreakerEnabled bool
}

// SimulateTimeout runs one timeout simulation.
//
// # Description
//
// Resolves the scenario, consults the breaker registry (when enabled), then
// decides timeout vs. success. A timeout sleeps 100%-200% of the effective
// threshold; a success sleeps 0%-80% of it. Failures and successes are
// recorded against the (timeoutType, serviceContext) breaker key.
//
// A breaker rejection short-circuits before any simulated delay and is
// terminal for the request.
//
// # Outputs
//
//   - *TimeoutResult: the terminal outcome (never nil on nil error)
//   - error: non-nil only for an unknown timeout type (config defect)
func (e *Engine) SimulateTimeout(ctx context.Context, p TimeoutParams) (*TimeoutResult, error) {
	scenario, err := e.resolveScenario(CategoryTimeout, p.TimeoutType)
	if err != nil {
		return nil, err
	}

	serviceContext := p.ServiceContext
	if serviceContext == "" {
		serviceContext = defaultServiceContext
	}
	key := BreakerKey{ScenarioType: scenario.ID, ServiceContext: serviceContext}

	timeoutMs := scenario.TimeoutMs
	if p.CustomTimeoutMs > 0 {
		timeoutMs = p.CustomTimeoutMs
	}

	ctx, span := e.sink.StartSpan(ctx, "engine.SimulateTimeout", Attrs{
		"scenario.id":     scenario.ID,
		"service_context": serviceContext,
	})
	defer span.End()

	result := &TimeoutResult{
		ServiceContext: serviceContext,
		TimeoutMs:      timeoutMs,
		BreakerEnabled: p.BreakerEnabled,
	}
	result.RunID = e.newRunID()
	result.Scenario = scenario

	start := e.clock.Now()

	if p.BreakerEnabled && e.breakers.ShouldReject(ctx, key) {
		result.Kind = OutcomeCircuitOpen
		result.BreakerState = e.breakers.State(key)
		span.AddEvent("circuit_breaker.rejected", Attrs{"breaker_key": key.String()})
		e.recordOutcome(ctx, CategoryTimeout, &result.Outcome, start)
		return result, nil
	}

	timedOut := p.ForceTimeout || e.random() > scenario.SuccessRate
	threshold := float64(timeoutMs)

	if timedOut {
		// Blow past the threshold: 100%-200% of it.
		e.sleepMs(threshold + e.random()*threshold)
		result.Kind = OutcomeTimeout
		result.TimedOut = true
		if p.BreakerEnabled {
			e.breakers.RecordFailure(ctx, key, scenario.BreakerThreshold)
		}
		span.RecordError(fmt.Errorf("simulated %s after %dms threshold", scenario.ErrorCode, timeoutMs))
	} else {
		// Land comfortably inside the threshold: 0%-80% of it.
		e.sleepMs(e.random() * threshold * 0.8)
		result.Kind = OutcomeSuccess
		result.Success = true
		if p.BreakerEnabled {
			e.breakers.RecordSuccess(ctx, key)
		}
	}

	if p.BreakerEnabled {
		result.BreakerState = e.breakers.State(key)
	}
	e.recordOutcome(ctx, CategoryTimeout, &result.Outcome, start)

	e.log.Info("timeout simulation complete",
		"scenario", scenario.ID,
		"service_context", serviceContext,
		"timed_out", result.TimedOut,
		"execution_time_ms", result.ExecutionTimeMs,
	)
	return result, nil
}
