// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/faultline-io/faultline/services/simulator/engine"
)

// defaultChaosErrorChance is used when the configured chance is invalid.
const defaultChaosErrorChance = 0.1

// ChaosConfig controls random fault injection on workload routes.
type ChaosConfig struct {
	// Enabled is the master switch. Off by default.
	Enabled bool

	// ErrorChance is the per-request probability of injecting an error.
	// Values outside (0, 1] fall back to 0.1.
	ErrorChance float64

	// Category constrains injected errors: "4xx", "5xx", or "all".
	// Empty means "all".
	Category string

	// IncludeDelay adds the scenario's latency window to injected errors.
	IncludeDelay bool
}

// Chaos injects random faults into the routes it wraps.
//
// # Description
//
// Each request rolls against ErrorChance through the engine's HTTP error
// responder. A losing roll aborts the request with a weighted-selected
// error response, scenario headers attached, before the handler runs. A
// winning roll passes through untouched. With Enabled false the middleware
// is a no-op.
//
// # Thread Safety
//
// Thread-safe. The engine serializes its random source.
func Chaos(eng *engine.Engine, cfg ChaosConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	chance := cfg.ErrorChance
	if chance <= 0 || chance > 1 {
		chance = defaultChaosErrorChance
	}

	return func(c *gin.Context) {
		result, err := eng.SimulateHTTPError(c.Request.Context(), engine.HTTPErrorParams{
			Category:                engine.HTTPErrorCategory(cfg.Category),
			IncludeDelay:            cfg.IncludeDelay,
			Intermittent:            true,
			IntermittentSuccessRate: 1 - chance,
		})
		if err != nil {
			slog.Error("chaos injection failed, passing request through", "error", err)
			c.Next()
			return
		}
		if result.Success {
			c.Next()
			return
		}

		slog.Info("chaos fault injected",
			"path", c.Request.URL.Path,
			"status", result.StatusCode,
			"scenario", result.Scenario.ID,
			"request_id", GetRequestID(c),
		)
		for name, value := range result.Headers {
			c.Header(name, value)
		}
		c.AbortWithStatusJSON(result.StatusCode, gin.H{
			"error":      http.StatusText(result.StatusCode),
			"simulated":  true,
			"request_id": GetRequestID(c),
		})
	}
}
