// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/faultline-io/faultline/services/simulator/datatypes"
	"github.com/faultline-io/faultline/services/simulator/engine"
)

// ListCircuitBreakers handles GET /v1/simulate/circuit-breakers.
//
// Returns snapshot copies of every tracked breaker keyed by
// "scenarioType:serviceContext".
func ListCircuitBreakers(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		states := eng.Breakers().ListStates()
		c.JSON(http.StatusOK, gin.H{
			"circuit_breakers": states,
			"count":            len(states),
		})
	}
}

// ResetCircuitBreakers handles DELETE /v1/simulate/circuit-breakers.
//
// Without query parameters it clears every breaker. With both
// scenario_type and service_context set it clears just that key, answering
// 404 when the key is untracked.
func ResetCircuitBreakers(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		scenarioType := c.Query("scenario_type")
		serviceContext := c.Query("service_context")

		if scenarioType == "" && serviceContext == "" {
			n := eng.Breakers().ResetAll()
			slog.Info("circuit breakers reset", "count", n)
			c.JSON(http.StatusOK, gin.H{"reset": n})
			return
		}

		if scenarioType == "" || serviceContext == "" {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error: "scenario_type and service_context must be set together",
			})
			return
		}

		key := engine.BreakerKey{ScenarioType: scenarioType, ServiceContext: serviceContext}
		if !eng.Breakers().Reset(key) {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{
				Error:   "unknown circuit breaker",
				Details: key.String(),
			})
			return
		}
		slog.Info("circuit breaker reset", "breaker_key", key.String())
		c.JSON(http.StatusOK, gin.H{"reset": 1, "breaker_key": key.String()})
	}
}
