// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command forge-stub serves the CognitoForge backend contract from memory
// for local development.
//
// Environment:
//   - FORGE_STUB_PORT: listen port (default 8000)
//   - FORGE_STUB_AI: "false" disables the AI endpoints' answers
//   - FORGE_STUB_TOKEN: bearer token required on /api/gemini routes
//   - FORGE_STUB_DEDUP_WINDOW: simulate cache window, e.g. "10m" ("0s" disables)
//   - FORGE_STUB_LOG_LEVEL: debug, info, warn, error
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SahinS14/CognitoForge/pkg/logging"
	"github.com/SahinS14/CognitoForge/pkg/telemetry"
	"github.com/SahinS14/CognitoForge/services/stub"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(serve())
}

func serve() int {
	level, err := logging.ParseLevel(os.Getenv("FORGE_STUB_LOG_LEVEL"))
	logger := logging.New(logging.Config{Level: level, Service: stub.ServiceName, JSON: true, Console: os.Stdout})
	defer logger.Close()
	if err != nil {
		logger.Warn("ignoring FORGE_STUB_LOG_LEVEL", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("FORGE_STUB_PORT")
	if port == "" {
		port = "8000"
	}

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceName = stub.ServiceName
	tcfg.BaseURL = "http://localhost:" + port
	if os.Getenv("OTEL_METRICS_EXPORTER") == "" {
		tcfg.MetricExporter = telemetry.ExporterPrometheus
	}
	shutdownTelemetry, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		logger.Error("telemetry init failed", "error", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	cfg := stub.Config{
		AIEnabled:     envBool("FORGE_STUB_AI", true),
		RequiredToken: os.Getenv("FORGE_STUB_TOKEN"),
		Logger:        logger.Slog(),
	}
	if raw := os.Getenv("FORGE_STUB_DEDUP_WINDOW"); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil {
			logger.Error("invalid FORGE_STUB_DEDUP_WINDOW", "value", raw, "error", err)
			return 1
		}
		if window == 0 {
			window = -1
		}
		cfg.DedupWindow = window
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           stub.NewRouter(stub.NewBackend(cfg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("stub backend listening", "port", port, "ai_enabled", cfg.AIEnabled, "auth_required", cfg.RequiredToken != "")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			return 1
		}
	}
	return 0
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
