// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package simulator provides the fault simulation HTTP service.
//
// This package contains the main service type that coordinates all
// components: the simulation engine, scenario catalogs, circuit breaker
// registry, badger-backed workload store, HTTP routing, and observability
// infrastructure.
//
//	cmd/faultline
//	   │
//	   ▼
//	simulator.New(cfg) ──► tracer ──► meter ──► store ──► engine ──► router
//	   │
//	   ▼
//	svc.Run() ──► HTTP server + graceful shutdown
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/faultline-io/faultline/services/simulator/datatypes"
	"github.com/faultline-io/faultline/services/simulator/engine"
	"github.com/faultline-io/faultline/services/simulator/middleware"
	"github.com/faultline-io/faultline/services/simulator/observability"
	"github.com/faultline-io/faultline/services/simulator/routes"
	"github.com/faultline-io/faultline/services/simulator/store"
)

// serviceName identifies this service in traces and resources.
const serviceName = "simulator-service"

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the simulator service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds simulator configuration options.
//
// All fields are optional; New() applies defaults for zero values.
type Config struct {
	// Port is the HTTP server port. Default: 12340
	Port int

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "faultline-otel-collector:4317"
	OTelEndpoint string

	// TracingEnabled turns the OTLP exporter on. When false the service
	// runs with the no-op global tracer. Default: true
	TracingEnabled *bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	GinMode string

	// DataDir is the directory for the badger workload store.
	// Default: "./data/library"
	DataDir string

	// InMemoryStore keeps the workload store off disk. Default: false
	InMemoryStore bool

	// CatalogFile optionally points to a YAML file with scenario
	// overrides applied on top of the built-in catalogs.
	CatalogFile string

	// Seed seeds the engine's random source. Zero seeds from the clock.
	Seed int64

	// Chaos configures random fault injection on the workload routes.
	Chaos middleware.ChaosConfig

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Fields
//
//   - config: Service configuration
//   - router: Gin HTTP engine
//   - engine: The fault simulation engine
//   - library: Badger-backed workload store
//   - metrics: Prometheus simulation metrics
//   - tracerCleanup: Function to shutdown the tracer on exit
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	engine        *engine.Engine
	library       *store.Library
	metrics       *observability.SimulationMetrics
	tracerCleanup func(context.Context)
}

// Compile-time interface check.
var _ Service = (*service)(nil)

// =============================================================================
// Constructor
// =============================================================================

// New creates a new simulator Service with the given configuration.
//
// # Description
//
// New initializes all simulator components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing and metrics
//  3. Opens the badger workload store and seeds starter data
//  4. Loads scenario catalogs (built-in plus optional overrides)
//  5. Builds the simulation engine on the OTel sink
//  6. Sets up HTTP routes
//
// # Outputs
//
//   - Service: Ready-to-run simulator service
//   - error: Non-nil if initialization fails
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	if tracingEnabled(s.config) {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if err := s.initMeter(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize meter: %w", err)
	}
	s.metrics = observability.NewSimulationMetrics()

	if err := s.initStore(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := s.initEngine(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	if err := s.initRouter(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
//
// # Description
//
// Serves until SIGINT/SIGTERM, then drains in-flight requests for up to
// ShutdownTimeout before closing the store and tracer.
func (s *service) Run() error {
	defer s.cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	slog.Info("Starting simulator server", "port", s.config.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down simulator server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12340
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "faultline-otel-collector:4317"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data/library"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return cfg
}

// tracingEnabled resolves the tri-state flag, defaulting to enabled.
func tracingEnabled(cfg Config) bool {
	if cfg.TracingEnabled == nil {
		return true
	}
	return *cfg.TracingEnabled
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Sets up the OTLP trace exporter over an insecure gRPC connection,
// appropriate for internal collector networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initMeter bridges the engine's OTel instruments into the Prometheus
// registry served on /metrics, so sink counters and promauto metrics land
// in the same scrape.
func (s *service) initMeter() error {
	exporter, err := otelprom.New()
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return nil
}

// initStore opens the badger workload store and seeds starter data.
func (s *service) initStore() error {
	var cfg store.Config
	if s.config.InMemoryStore {
		cfg = store.InMemoryConfig()
	} else {
		cfg = store.DefaultConfig(s.config.DataDir)
	}

	lib, err := store.Open(cfg)
	if err != nil {
		return err
	}
	s.library = lib

	if err := lib.Seed(); err != nil {
		return fmt.Errorf("seeding workload store: %w", err)
	}
	slog.Info("Workload store ready",
		"in_memory", s.config.InMemoryStore,
		"data_dir", s.config.DataDir)
	return nil
}

// initEngine builds the simulation engine on the configured catalogs.
func (s *service) initEngine() error {
	catalogs := engine.DefaultCatalogs()
	if s.config.CatalogFile != "" {
		loaded, err := engine.LoadCatalogOverrides(s.config.CatalogFile)
		if err != nil {
			return err
		}
		catalogs = loaded
		slog.Info("Scenario catalog overrides loaded", "path", s.config.CatalogFile)
	}

	eng, err := engine.New(engine.Options{
		Catalogs: catalogs,
		Seed:     s.config.Seed,
		Sink:     observability.NewOTelSink(slog.Default(), s.metrics),
	})
	if err != nil {
		return err
	}
	s.engine = eng
	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() error {
	if err := datatypes.RegisterValidators(); err != nil {
		return fmt.Errorf("registering validators: %w", err)
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware(serviceName))
	s.router.Use(middleware.RequestID())

	routes.SetupRoutes(s.router, s.engine, s.metrics, s.library, s.config.Chaos)
	return nil
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.library != nil {
		if err := s.library.Close(); err != nil {
			slog.Warn("workload store close error", "error", err)
		}
		s.library = nil
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
}
