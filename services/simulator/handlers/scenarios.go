// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/faultline-io/faultline/services/simulator/engine"
)

// ListScenarios handles GET /v1/simulate/scenarios.
//
// Returns the full catalog keyed by family so operators can see what the
// simulator will serve and with which weights.
func ListScenarios(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalogs := make(map[string][]engine.ScenarioDefinition, len(engine.Categories()))
		for _, cat := range engine.Categories() {
			scenarios, err := eng.Catalogs().Catalog(cat)
			if err != nil {
				replyEngineError(c, err)
				return
			}
			catalogs[string(cat)] = scenarios
		}
		c.JSON(http.StatusOK, gin.H{"scenarios": catalogs})
	}
}
