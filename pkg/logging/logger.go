// Copyright (C) 2025 Faultline Labs (oss@faultline.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging setup for faultline services.
//
// The package is a thin layer over Go's standard library slog. Services
// call Setup once at startup; everything downstream logs through the slog
// default logger.
//
// # Basic Usage
//
//	logging.Setup(logging.Config{Service: "simulator"})
//	slog.Info("starting", "port", port)
//
// # Log Levels
//
// Four levels are supported, matching slog conventions:
//
//   - debug: development troubleshooting, verbose output
//   - info: normal operations (request start/end, state changes)
//   - warn: recoverable issues (retry attempts, degraded mode)
//   - error: operation failures (but system continues)
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. Callers must
// ensure PII, tokens, and secrets are not logged.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the handler encoding.
type Format string

const (
	// FormatJSON emits one JSON object per record. The container default.
	FormatJSON Format = "json"

	// FormatText emits human-readable key=value records for local runs.
	FormatText Format = "text"
)

// Config controls the process-wide logger.
type Config struct {
	// Level is the minimum severity: "debug", "info", "warn", "error".
	// Unknown or empty values mean info.
	Level string

	// Format selects json or text encoding. Default: json.
	Format Format

	// Service is stamped on every record when set.
	Service string

	// Output overrides the destination. Nil uses stdout.
	Output io.Writer
}

// Setup installs the configured logger as the slog default and returns it.
//
// Safe to call again with a new configuration; the last call wins for the
// whole process.
func Setup(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == FormatText {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to its slog level. Unknown names map to
// info so a typo in an environment variable never silences errors.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
