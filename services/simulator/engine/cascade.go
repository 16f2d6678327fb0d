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

const (
	minCascadeDepth = 1
	maxCascadeDepth = 10

	minDelayMultiplier = 0.1
	maxDelayMultiplier = 5.0

	// propagationChance is the probability that a failed step pushes the
	// cascade into the next stage instead of stopping naturally.
	propagationChance = 0.8

	// recoveryBaseChance and recoveryStepChance shape per-step recovery:
	// chance = recoveryBaseChance + recoveryStepChance * stepIndex.
	recoveryBaseChance = 0.2
	recoveryStepChance = 0.1
)

// CascadeParams are the inputs to SimulateCascade.
type CascadeParams struct {
	// FailureType selects the cascade scenario; empty means weighted
	// selection from the cascade catalog.
	FailureType string

	// ForceCascade disables recovery and natural stops: every executed
	// step fails and propagates.
	ForceCascade bool

	// MaxDepth bounds how many chain stages execute. Values outside
	// [1, 10] are clamped.
	MaxDepth int

	// DelayMultiplier scales every step and propagation delay. Values
	// outside [0.1, 5.0] are clamped; zero uses 1.0.
	DelayMultiplier float64

	// RecoveryEnabled allows steps after the first to recover instead of
	// failing, with a chance that grows with depth.
	RecoveryEnabled bool

	// StopOnFirstRecovery halts the walk at the first recovered step.
	StopOnFirstRecovery bool
}

// SimulateCascade walks one cascading failure chain.
//
// # Description
//
// Iterates the scenario's fixed chain up to min(chainLength, MaxDepth). Each
// step sleeps its scaled delay, then resolves to one of three statuses:
//
//   - recovered: recovery is enabled, the step is not the root, the cascade
//     is not forced, and the per-step recovery draw hits
//     (0.2 + 0.1*stepIndex)
//   - failed: the failure propagates to the next stage (80% chance, always
//     when forced)
//   - success: the failed step did not propagate; the cascade stops
//     naturally
//
// Between propagating steps the walk sleeps the scaled propagation delay.
// A recovered step stops the walk only when StopOnFirstRecovery is set.
//
// # Outputs
//
//   - *CascadeResult: executed steps plus aggregates; Success is true when
//     the final step is not "failed"
//   - error: non-nil only for an unknown failure type (config defect)
func (e *Engine) SimulateCascade(ctx context.Context, p CascadeParams) (*CascadeResult, error) {
	scenario, err := e.resolveScenario(CategoryCascade, p.FailureType)
	if err != nil {
		return nil, err
	}

	depth := p.MaxDepth
	if depth < minCascadeDepth {
		depth = minCascadeDepth
	}
	if depth > maxCascadeDepth {
		depth = maxCascadeDepth
	}
	if len(scenario.Chain) < depth {
		depth = len(scenario.Chain)
	}

	multiplier := p.DelayMultiplier
	if multiplier == 0 {
		multiplier = 1.0
	}
	if multiplier < minDelayMultiplier {
		multiplier = minDelayMultiplier
	}
	if multiplier > maxDelayMultiplier {
		multiplier = maxDelayMultiplier
	}

	ctx, span := e.sink.StartSpan(ctx, "engine.SimulateCascade", Attrs{
		"scenario.id": scenario.ID,
		"max_depth":   fmt.Sprintf("%d", depth),
	})
	defer span.End()

	result := &CascadeResult{
		Steps: make([]CascadeStep, 0, depth),
	}
	result.RunID = e.newRunID()
	result.Scenario = scenario

	start := e.clock.Now()
	var recoveryMs int64

walk:
	for i := 0; i < depth; i++ {
		chainStep := scenario.Chain[i]
		scaledDelay := float64(chainStep.DelayMs) * multiplier

		stepStart := e.clock.Now()
		e.sleepMs(scaledDelay)
		stepMs := e.elapsedMs(stepStart)

		status := StepFailed
		if p.RecoveryEnabled && i > 0 && !p.ForceCascade {
			chance := recoveryBaseChance + recoveryStepChance*float64(i)
			if e.random() < chance {
				status = StepRecovered
			}
		}
		if status == StepFailed && !p.ForceCascade && e.random() >= propagationChance {
			// The failure did not propagate: the cascade dies here.
			status = StepSuccess
		}

		propagationMs := int64(float64(chainStep.PropagationDelayMs) * multiplier)
		step := CascadeStep{
			StepIndex:          i,
			Service:            chainStep.Service,
			FailureType:        chainStep.FailureType,
			Status:             status,
			ExecutionTimeMs:    stepMs,
			PropagationDelayMs: propagationMs,
		}
		result.Steps = append(result.Steps, step)

		span.AddEvent("cascade.step", Attrs{
			"service": chainStep.Service,
			"status":  string(status),
			"index":   fmt.Sprintf("%d", i),
		})

		if cost := stepMs + propagationMs; cost > recoveryMs {
			recoveryMs = cost
		}

		switch status {
		case StepRecovered:
			result.RecoveredServices++
			if p.StopOnFirstRecovery {
				break walk
			}
		case StepSuccess:
			// Natural stop: the failure did not propagate.
			break walk
		case StepFailed:
			result.FailedServices++
		}

		if i < depth-1 {
			e.sleepMs(float64(propagationMs))
		}
	}

	result.TotalSteps = len(result.Steps)
	result.MaxDepthReached = len(result.Steps)
	result.RecoveryTimeMs = recoveryMs

	last := result.Steps[len(result.Steps)-1]
	if last.Status == StepFailed {
		result.Kind = OutcomeCascadeFailure
		span.RecordError(fmt.Errorf("cascade %s failed through %d services", scenario.ID, result.FailedServices))
	} else {
		result.Kind = OutcomeSuccess
		result.Success = true
	}

	e.recordOutcome(ctx, CategoryCascade, &result.Outcome, start)
	e.sink.RecordHistogram(ctx, "cascade.steps", float64(result.TotalSteps), Attrs{
		"scenario": scenario.ID,
	})

	e.log.Info("cascade simulation complete",
		"scenario", scenario.ID,
		"steps", result.TotalSteps,
		"failed", result.FailedServices,
		"recovered", result.RecoveredServices,
		"execution_time_ms", result.ExecutionTimeMs,
	)
	return result, nil
}
