// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command faultline starts the fault simulation HTTP server.
//
// This is the main entry point for the containerized simulator service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - FAULTLINE_PORT: HTTP server port (default: 12340)
//   - FAULTLINE_LOG_LEVEL: minimum log level - debug, info, warn, error
//   - FAULTLINE_LOG_FORMAT: log encoding - json, text (default: json)
//   - FAULTLINE_GIN_MODE: Gin mode - debug, release, test (default: debug)
//   - FAULTLINE_DATA_DIR: Badger store directory (default: ./data/library)
//   - FAULTLINE_IN_MEMORY_STORE: "true" keeps the store off disk
//   - FAULTLINE_CATALOG_FILE: YAML scenario override file (optional)
//   - FAULTLINE_SEED: random seed, 0 seeds from the clock (default: 0)
//   - FAULTLINE_TRACING_ENABLED: "false" disables the OTLP exporter
//   - FAULTLINE_CHAOS_ENABLED: "true" injects faults into workload routes
//   - FAULTLINE_CHAOS_ERROR_CHANCE: injection probability (default: 0.1)
//   - FAULTLINE_CHAOS_CATEGORY: injected error category - 4xx, 5xx, all
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector
//     (default: faultline-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o faultline ./cmd/faultline
//
//	# Run
//	./faultline
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/faultline-io/faultline/pkg/logging"
	"github.com/faultline-io/faultline/services/simulator"
	"github.com/faultline-io/faultline/services/simulator/middleware"
)

func main() {
	// Setup structured logging
	logging.Setup(logging.Config{
		Level:   getEnvString("FAULTLINE_LOG_LEVEL", "info"),
		Format:  logging.Format(getEnvString("FAULTLINE_LOG_FORMAT", "json")),
		Service: "simulator",
	})

	// Build configuration from environment variables
	tracing := getEnvBool("FAULTLINE_TRACING_ENABLED", true)
	cfg := simulator.Config{
		Port:           getEnvInt("FAULTLINE_PORT", 12340),
		GinMode:        getEnvString("FAULTLINE_GIN_MODE", ""),
		DataDir:        getEnvString("FAULTLINE_DATA_DIR", "./data/library"),
		InMemoryStore:  getEnvBool("FAULTLINE_IN_MEMORY_STORE", false),
		CatalogFile:    os.Getenv("FAULTLINE_CATALOG_FILE"),
		Seed:           int64(getEnvInt("FAULTLINE_SEED", 0)),
		OTelEndpoint:   getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "faultline-otel-collector:4317"),
		TracingEnabled: &tracing,
		Chaos: middleware.ChaosConfig{
			Enabled:     getEnvBool("FAULTLINE_CHAOS_ENABLED", false),
			ErrorChance: getEnvFloat("FAULTLINE_CHAOS_ERROR_CHANCE", 0.1),
			Category:    getEnvString("FAULTLINE_CHAOS_CATEGORY", "all"),
		},
	}

	slog.Info("Starting faultline simulator",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"in_memory", cfg.InMemoryStore,
		"chaos_enabled", cfg.Chaos.Enabled,
	)

	svc, err := simulator.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create simulator: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Simulator error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
