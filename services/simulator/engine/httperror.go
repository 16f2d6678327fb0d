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

// HTTPErrorCategory filters the HTTP error catalog.
type HTTPErrorCategory string

const (
	HTTPErrors4xx HTTPErrorCategory = "4xx"
	HTTPErrors5xx HTTPErrorCategory = "5xx"
	HTTPErrorsAll HTTPErrorCategory = "all"
)

// HTTPErrorParams are the inputs to SimulateHTTPError.
type HTTPErrorParams struct {
	// RequestedCode pins the status code when > 0 and present in the
	// catalog; otherwise the responder falls back to weighted selection.
	RequestedCode int

	// Category filters weighted selection: "4xx", "5xx", or "all".
	// Empty means "all".
	Category HTTPErrorCategory

	// IncludeDelay sleeps the scenario's delay window on error paths.
	// Success paths never sleep.
	IncludeDelay bool

	// Intermittent makes the responder succeed with
	// IntermittentSuccessRate probability instead of always erroring.
	Intermittent bool

	// IntermittentSuccessRate is the success probability when
	// Intermittent is set. Values outside [0, 1] are clamped.
	IntermittentSuccessRate float64
}

// SimulateHTTPError resolves and simulates one HTTP error response.
//
// # Description
//
// The requested code wins when it exists in the catalog; otherwise the
// responder weighted-selects among catalog entries matching the category
// filter. With Intermittent set, a success draw skips both the delay and the
// error, modeling a flaky endpoint. Error paths with IncludeDelay sleep a
// uniform draw from the scenario's delay window.
//
// # Outputs
//
//   - *HTTPErrorResult: resolved code, retryability, scenario headers
//   - error: non-nil when the category filter matches no catalog entries or
//     the requested code is not in the catalog (config defect)
func (e *Engine) SimulateHTTPError(ctx context.Context, p HTTPErrorParams) (*HTTPErrorResult, error) {
	scenario, err := e.resolveHTTPScenario(p)
	if err != nil {
		return nil, err
	}

	ctx, span := e.sink.StartSpan(ctx, "engine.SimulateHTTPError", Attrs{
		"scenario.id": scenario.ID,
		"http.status": fmt.Sprintf("%d", scenario.HTTPStatus),
	})
	defer span.End()

	result := &HTTPErrorResult{
		StatusCode:  scenario.HTTPStatus,
		Category:    statusCategory(scenario.HTTPStatus),
		ShouldRetry: shouldRetryStatus(scenario.HTTPStatus),
		Headers:     scenario.Headers,
	}
	result.RunID = e.newRunID()
	result.Scenario = scenario

	start := e.clock.Now()

	success := false
	if p.Intermittent {
		rate := p.IntermittentSuccessRate
		if rate < 0 {
			rate = 0
		}
		if rate > 1 {
			rate = 1
		}
		success = e.random() < rate
	}

	if p.IncludeDelay && !success {
		window := scenario.Delay
		width := float64(window.MaxMs - window.MinMs)
		e.sleepMs(float64(window.MinMs) + e.random()*width)
	}

	if success {
		result.Kind = OutcomeSuccess
		result.Success = true
		result.ShouldRetry = false
	} else {
		result.Kind = OutcomeHTTPError
		span.RecordError(fmt.Errorf("simulated HTTP %d %s", scenario.HTTPStatus, scenario.ErrorCode))
	}

	e.recordOutcome(ctx, CategoryHTTPError, &result.Outcome, start)
	e.sink.RecordCounter(ctx, "http_error.responses", Attrs{
		"status":  fmt.Sprintf("%d", result.StatusCode),
		"success": fmt.Sprintf("%t", success),
	})

	e.log.Info("http error simulation complete",
		"scenario", scenario.ID,
		"status", result.StatusCode,
		"intermittent_success", success,
		"execution_time_ms", result.ExecutionTimeMs,
	)
	return result, nil
}

// resolveHTTPScenario applies the requested-code and category-filter rules.
func (e *Engine) resolveHTTPScenario(p HTTPErrorParams) (ScenarioDefinition, error) {
	catalog, err := e.catalogs.Catalog(CategoryHTTPError)
	if err != nil {
		return ScenarioDefinition{}, err
	}

	if p.RequestedCode > 0 {
		for _, s := range catalog {
			if s.HTTPStatus == p.RequestedCode {
				return s, nil
			}
		}
		return ScenarioDefinition{}, fmt.Errorf("%w: http status %d", ErrUnknownScenario, p.RequestedCode)
	}

	category := p.Category
	if category == "" {
		category = HTTPErrorsAll
	}
	filtered := catalog[:0:0]
	for _, s := range catalog {
		if category == HTTPErrorsAll || HTTPErrorCategory(statusCategory(s.HTTPStatus)) == category {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		return ScenarioDefinition{}, fmt.Errorf("%w: no http error scenarios in category %q", ErrEmptyCatalog, category)
	}
	return SelectScenario(filtered, e.random())
}

func statusCategory(status int) string {
	if status >= 500 {
		return "5xx"
	}
	return "4xx"
}
