// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faultline-io/faultline/services/simulator/engine"
	"github.com/faultline-io/faultline/services/simulator/handlers"
	"github.com/faultline-io/faultline/services/simulator/middleware"
	"github.com/faultline-io/faultline/services/simulator/observability"
	"github.com/faultline-io/faultline/services/simulator/store"
)

// SetupRoutes wires the simulator API onto the router.
//
// The simulate endpoints always run fault-free plumbing; the books/reviews
// workload group additionally passes through the chaos middleware so
// injected faults land on ordinary-looking traffic.
func SetupRoutes(router *gin.Engine, eng *engine.Engine, metrics *observability.SimulationMetrics,
	lib *store.Library, chaos middleware.ChaosConfig) {

	router.GET("/health", handlers.Health())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		simulate := v1.Group("/simulate")
		{
			simulate.POST("/database-error", handlers.SimulateDatabaseError(eng, metrics))
			simulate.POST("/timeout", handlers.SimulateTimeout(eng, metrics))
			simulate.POST("/cascade", handlers.SimulateCascade(eng, metrics))
			simulate.POST("/http-error", handlers.SimulateHTTPError(eng, metrics))
			simulate.GET("/scenarios", handlers.ListScenarios(eng))
			// Circuit breaker administration routes
			simulate.GET("/circuit-breakers", handlers.ListCircuitBreakers(eng))
			simulate.DELETE("/circuit-breakers", handlers.ResetCircuitBreakers(eng))
		}

		books := v1.Group("/books", middleware.Chaos(eng, chaos))
		{
			books.POST("", handlers.CreateBook(lib))
			books.GET("", handlers.ListBooks(lib))
			books.GET("/:id", handlers.GetBook(lib))
			books.PUT("/:id", handlers.UpdateBook(lib))
			books.DELETE("/:id", handlers.DeleteBook(lib))
			books.POST("/:id/reviews", handlers.CreateReview(lib))
			books.GET("/:id/reviews", handlers.ListReviews(lib))
		}
	}
}
