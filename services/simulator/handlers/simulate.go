// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP handlers for the simulator service.
//
// Each simulate handler follows the same shape: bind and validate the
// request body, hand the parameters to the engine, then map the engine's
// outcome kind to the HTTP status the caller should observe.
//
//	Request
//	   │
//	   ▼
//	ShouldBindJSON ──invalid──► 400 error document
//	   │
//	   ▼
//	engine.Simulate* (sleeps, retries, breaker checks)
//	   │
//	   ▼
//	outcome kind ──► status (200 / 408 / 500 / 503 / simulated code)
//	   │
//	   ▼
//	JSON envelope {request_id, result}
//
// The engine never sees HTTP; all status mapping lives here.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/faultline-io/faultline/services/simulator/datatypes"
	"github.com/faultline-io/faultline/services/simulator/engine"
	"github.com/faultline-io/faultline/services/simulator/observability"
)

// requestIDKey is the gin context key the request-id middleware writes.
// Shared by convention with the middleware package.
const requestIDKey = "faultline_request_id"

// envelope wraps an engine result with the request correlation id.
func envelope(c *gin.Context, result any) datatypes.SimulationEnvelope {
	return datatypes.SimulationEnvelope{
		RequestID: c.GetString(requestIDKey),
		Result:    result,
	}
}

// replyBindError answers a failed bind with the uniform error document.
func replyBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
		Error:   "invalid request body",
		Details: err.Error(),
	})
}

// replyEngineError maps engine errors to HTTP. Unknown scenario ids are
// client mistakes; anything else is a catalog defect.
func replyEngineError(c *gin.Context, err error) {
	if errors.Is(err, engine.ErrUnknownScenario) || errors.Is(err, engine.ErrUnknownCategory) {
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
			Error:   "unknown scenario",
			Details: err.Error(),
		})
		return
	}
	slog.Error("simulation failed", "error", err)
	c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
		Error: "simulation failed",
	})
}

// SimulateDatabaseError handles POST /v1/simulate/database-error.
//
// Runs the retry loop and returns 200 when an attempt succeeded, 500 when
// the retry budget was exhausted. The outcome document is the body either
// way, so load drivers can scrape the simulated result.
func SimulateDatabaseError(eng *engine.Engine, metrics *observability.SimulationMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.DatabaseErrorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			replyBindError(c, err)
			return
		}

		done := metrics.SimulationStarted(string(engine.CategoryDatabaseError))
		defer done()

		result, err := eng.SimulateDatabaseError(c.Request.Context(), engine.DatabaseErrorParams{
			ErrorType:  req.ErrorType,
			ForceError: req.ForceError,
			MaxRetries: req.MaxRetries,
			Context:    req.Context,
		})
		if err != nil {
			replyEngineError(c, err)
			return
		}

		metrics.RecordSimulation(string(engine.CategoryDatabaseError), string(result.Kind),
			float64(result.ExecutionTimeMs)/1000)
		metrics.RetryAttemptsTotal.WithLabelValues(result.Scenario.ID).
			Add(float64(result.TotalAttempts))

		status := http.StatusOK
		if !result.Success {
			status = http.StatusInternalServerError
		}
		c.JSON(status, envelope(c, result))
	}
}

// SimulateTimeout handles POST /v1/simulate/timeout.
//
// Returns 200 on simulated success, 408 on a simulated timeout, and 503
// when the circuit breaker rejected the request before any work ran.
func SimulateTimeout(eng *engine.Engine, metrics *observability.SimulationMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.TimeoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			replyBindError(c, err)
			return
		}

		done := metrics.SimulationStarted(string(engine.CategoryTimeout))
		defer done()

		result, err := eng.SimulateTimeout(c.Request.Context(), engine.TimeoutParams{
			TimeoutType:     req.TimeoutType,
			ServiceContext:  req.ServiceContext,
			ForceTimeout:    req.ForceTimeout,
			CustomTimeoutMs: req.CustomTimeoutMs,
			BreakerEnabled:  req.BreakerEnabled(),
		})
		if err != nil {
			replyEngineError(c, err)
			return
		}

		metrics.RecordSimulation(string(engine.CategoryTimeout), string(result.Kind),
			float64(result.ExecutionTimeMs)/1000)

		status := http.StatusOK
		switch result.Kind {
		case engine.OutcomeCircuitOpen:
			status = http.StatusServiceUnavailable
		case engine.OutcomeTimeout:
			status = http.StatusRequestTimeout
		}
		c.JSON(status, envelope(c, result))
	}
}

// SimulateCascade handles POST /v1/simulate/cascade.
//
// Returns 200 with the step list when the cascade stopped or recovered,
// 500 when it ran its full depth with the final step still failed.
func SimulateCascade(eng *engine.Engine, metrics *observability.SimulationMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CascadeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			replyBindError(c, err)
			return
		}

		done := metrics.SimulationStarted(string(engine.CategoryCascade))
		defer done()

		result, err := eng.SimulateCascade(c.Request.Context(), engine.CascadeParams{
			FailureType:         req.FailureType,
			ForceCascade:        req.ForceCascade,
			MaxDepth:            req.MaxDepth,
			DelayMultiplier:     req.DelayMultiplier,
			RecoveryEnabled:     req.RecoveryEnabled,
			StopOnFirstRecovery: req.StopOnFirstRecovery,
		})
		if err != nil {
			replyEngineError(c, err)
			return
		}

		metrics.RecordSimulation(string(engine.CategoryCascade), string(result.Kind),
			float64(result.ExecutionTimeMs)/1000)
		metrics.CascadeSteps.WithLabelValues(result.Scenario.ID).
			Observe(float64(result.TotalSteps))

		status := http.StatusOK
		if !result.Success {
			status = http.StatusInternalServerError
		}
		c.JSON(status, envelope(c, result))
	}
}

// SimulateHTTPError handles POST /v1/simulate/http-error.
//
// Serves the resolved status code with the scenario's headers attached, or
// 200 when an intermittent success draw skipped the error.
func SimulateHTTPError(eng *engine.Engine, metrics *observability.SimulationMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.HTTPErrorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			replyBindError(c, err)
			return
		}

		done := metrics.SimulationStarted(string(engine.CategoryHTTPError))
		defer done()

		result, err := eng.SimulateHTTPError(c.Request.Context(), engine.HTTPErrorParams{
			RequestedCode:           req.ErrorCode,
			Category:                engine.HTTPErrorCategory(req.Category),
			IncludeDelay:            req.IncludeDelay,
			Intermittent:            req.Intermittent,
			IntermittentSuccessRate: req.IntermittentSuccessRate,
		})
		if err != nil {
			replyEngineError(c, err)
			return
		}

		metrics.RecordSimulation(string(engine.CategoryHTTPError), string(result.Kind),
			float64(result.ExecutionTimeMs)/1000)

		status := http.StatusOK
		if !result.Success {
			status = result.StatusCode
			for name, value := range result.Headers {
				c.Header(name, value)
			}
			metrics.HTTPErrorsServedTotal.WithLabelValues(strconv.Itoa(result.StatusCode)).Inc()
		}
		c.JSON(status, envelope(c, result))
	}
}
