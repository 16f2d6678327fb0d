// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/faultline-io/faultline/services/simulator/datatypes"
	"github.com/faultline-io/faultline/services/simulator/engine"
	"github.com/faultline-io/faultline/services/simulator/middleware"
	"github.com/faultline-io/faultline/services/simulator/observability"
	"github.com/faultline-io/faultline/services/simulator/store"
)

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
	if err := datatypes.RegisterValidators(); err != nil {
		panic(err)
	}
}

// metrics registers against the default registry once per test binary.
var metrics = observability.NewSimulationMetrics()

// instantClock advances on Sleep so simulated delays cost nothing.
type instantClock struct{ now time.Time }

func (c *instantClock) Now() time.Time        { return c.now }
func (c *instantClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

func newRouter(t *testing.T, chaos middleware.ChaosConfig) *gin.Engine {
	t.Helper()
	eng, err := engine.New(engine.Options{
		Clock: &instantClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		Seed:  42,
	})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	lib, err := store.Open(store.InMemoryConfig())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })

	router := gin.New()
	SetupRoutes(router, eng, metrics, lib, chaos)
	return router
}

func TestSetupRoutes_CoreEndpoints(t *testing.T) {
	router := newRouter(t, middleware.ChaosConfig{})

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"scenarios", http.MethodGet, "/v1/simulate/scenarios", "", http.StatusOK},
		{"breakers", http.MethodGet, "/v1/simulate/circuit-breakers", "", http.StatusOK},
		{"books", http.MethodGet, "/v1/books", "", http.StatusOK},
		{"http error", http.MethodPost, "/v1/simulate/http-error",
			`{"error_code": 404}`, http.StatusNotFound},
		{"unknown route", http.MethodGet, "/v1/nope", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestSetupRoutes_ChaosCoversWorkloadOnly(t *testing.T) {
	router := newRouter(t, middleware.ChaosConfig{Enabled: true, ErrorChance: 1, Category: "5xx"})

	t.Run("workload routes get injected faults", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/books", nil))
		if w.Code < 500 {
			t.Errorf("expected an injected 5xx, got %d", w.Code)
		}
	})

	t.Run("simulate routes stay fault-free", func(t *testing.T) {
		body := bytes.NewReader([]byte(`{"force_timeout": true, "timeout_type": "read_timeout"}`))
		req := httptest.NewRequest(http.MethodPost, "/v1/simulate/timeout", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusRequestTimeout {
			t.Errorf("expected 408 from the simulation itself, got %d", w.Code)
		}
	})

	t.Run("health stays fault-free", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})
}
