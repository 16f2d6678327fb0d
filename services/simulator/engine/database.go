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
	// maxRetriesCeiling bounds the retry budget a caller may request.
	maxRetriesCeiling = 5

	// backoffBaseMs and backoffCapMs shape the exponential backoff between
	// retry attempts: min(backoffBaseMs * 2^attempt, backoffCapMs).
	backoffBaseMs = 1000
	backoffCapMs  = 5000
)

// DatabaseErrorParams are the inputs to SimulateDatabaseError.
type DatabaseErrorParams struct {
	// ErrorType selects the database error scenario; empty means weighted
	// selection from the database error catalog.
	ErrorType string

	// ForceError guarantees failure on every attempt regardless of the
	// scenario's success rate.
	ForceError bool

	// MaxRetries is the retry budget: attempts run 0..MaxRetries
	// inclusive. Values outside [0, 5] are clamped.
	MaxRetries int

	// Context labels the simulated caller for log correlation.
	Context string
}

// BackoffMs returns the backoff slept after a failed attempt, in
// milliseconds: min(1000 * 2^attempt, 5000). Exposed for callers that want
// to report the schedule without running a simulation.
func BackoffMs(attempt int) int64 {
	ms := int64(backoffBaseMs) << uint(attempt)
	if ms > backoffCapMs || ms <= 0 {
		return backoffCapMs
	}
	return ms
}

// SimulateDatabaseError runs one database error simulation with a bounded
// retry loop.
//
// # Description
//
// Each attempt sleeps the scenario's fixed delay (modeling connection or
// lock-wait latency), then draws success against the scenario's success
// rate. The first success stops the loop. Failed attempts sleep an
// exponential backoff before the next attempt; the final attempt never
// sleeps a backoff. The loop performs at most MaxRetries+1 attempts.
//
// # Edge cases
//
//   - MaxRetries = 0: exactly one attempt, no backoff
//   - ForceError = true: every attempt fails, the loop always exhausts
//
// # Outputs
//
//   - *DatabaseErrorResult: the terminal outcome with per-attempt records
//   - error: non-nil only for an unknown error type (config defect)
func (e *Engine) SimulateDatabaseError(ctx context.Context, p DatabaseErrorParams) (*DatabaseErrorResult, error) {
	scenario, err := e.resolveScenario(CategoryDatabaseError, p.ErrorType)
	if err != nil {
		return nil, err
	}

	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxRetries > maxRetriesCeiling {
		e.log.Warn("retry budget clamped",
			"requested", p.MaxRetries,
			"ceiling", maxRetriesCeiling,
		)
		maxRetries = maxRetriesCeiling
	}

	ctx, span := e.sink.StartSpan(ctx, "engine.SimulateDatabaseError", Attrs{
		"scenario.id": scenario.ID,
		"max_retries": fmt.Sprintf("%d", maxRetries),
	})
	defer span.End()

	result := &DatabaseErrorResult{
		Attempts: make([]RetryAttempt, 0, maxRetries+1),
	}
	result.RunID = e.newRunID()
	result.Scenario = scenario

	start := e.clock.Now()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Fixed per-attempt latency: the time a real driver would burn
		// before the error (or the row) comes back.
		e.sleepMs(float64(scenario.BaseDelayMs))

		succeeded := !p.ForceError && e.random() < scenario.SuccessRate
		record := RetryAttempt{
			AttemptNumber: attempt + 1,
			Succeeded:     succeeded,
		}

		if succeeded {
			result.Attempts = append(result.Attempts, record)
			result.Kind = OutcomeSuccess
			result.Success = true
			span.AddEvent("retry.succeeded", Attrs{
				"attempt": fmt.Sprintf("%d", record.AttemptNumber),
			})
			break
		}

		record.ErrorCode = scenario.ErrorCode
		if attempt < maxRetries {
			record.BackoffMs = BackoffMs(attempt)
		}
		result.Attempts = append(result.Attempts, record)

		span.AddEvent("retry.failed", Attrs{
			"attempt":    fmt.Sprintf("%d", record.AttemptNumber),
			"error_code": scenario.ErrorCode,
			"backoff_ms": fmt.Sprintf("%d", record.BackoffMs),
		})
		e.sink.RecordCounter(ctx, "database.retry_attempts", Attrs{
			"scenario": scenario.ID,
		})

		if attempt < maxRetries {
			e.sleepMs(float64(record.BackoffMs))
		}
	}

	result.TotalAttempts = len(result.Attempts)
	if !result.Success {
		result.Kind = OutcomeDatabaseError
		result.ErrorCode = scenario.ErrorCode
		span.RecordError(fmt.Errorf("simulated %s after %d attempts", scenario.ErrorCode, result.TotalAttempts))
	}

	e.recordOutcome(ctx, CategoryDatabaseError, &result.Outcome, start)

	e.log.Info("database error simulation complete",
		"scenario", scenario.ID,
		"caller_context", p.Context,
		"attempts", result.TotalAttempts,
		"success", result.Success,
		"execution_time_ms", result.ExecutionTimeMs,
	)
	return result, nil
}
