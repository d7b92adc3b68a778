// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_METRICS_EXPORTER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := DefaultConfig()

	assert.Equal(t, "forge", cfg.ServiceName)
	assert.Equal(t, Version, cfg.ServiceVersion)
	assert.Equal(t, ExporterNone, cfg.TraceExporter)
	assert.Equal(t, ExporterNone, cfg.MetricExporter)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
}

func TestDefaultConfig_EnvOverride(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")
	assert.Equal(t, ExporterStdout, DefaultConfig().TraceExporter)
}

func TestInit_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := Init(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestInit_Exporters(t *testing.T) {
	tests := []struct {
		name    string
		traces  string
		metrics string
	}{
		{name: "none", traces: ExporterNone, metrics: ExporterNone},
		{name: "empty means none", traces: "", metrics: ""},
		{name: "stdout", traces: ExporterStdout, metrics: ExporterStdout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Init(context.Background(), Config{
				ServiceName:    "forge",
				TraceExporter:  tt.traces,
				MetricExporter: tt.metrics,
			})
			require.NoError(t, err)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{TraceExporter: "zipkin"})
	assert.ErrorIs(t, err, ErrUnknownExporter)
	assert.Contains(t, err.Error(), `"zipkin"`)

	_, err = Init(context.Background(), Config{TraceExporter: ExporterStdout, MetricExporter: "graphite"})
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestInit_PrometheusServedFromDefaultRegistry(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "forge-stub", MetricExporter: ExporterPrometheus})
	require.NoError(t, err)
	defer shutdown(context.Background())

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMeterProvider_ForgeResourceAndBuckets(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := newMeterProvider(newResource(Config{
		ServiceName: "forge",
		BaseURL:     "http://backend:8000",
	}), reader)
	defer mp.Shutdown(context.Background())

	ctx := context.Background()
	meter := mp.Meter("test")
	analysis, err := meter.Float64Histogram("forge_analysis_duration_seconds")
	require.NoError(t, err)
	request, err := meter.Float64Histogram("forge_backend_request_duration_seconds")
	require.NoError(t, err)
	analysis.Record(ctx, 12)
	request.Record(ctx, 0.2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	baseURL, ok := rm.Resource.Set().Value(BaseURLKey)
	require.True(t, ok)
	assert.Equal(t, "http://backend:8000", baseURL.AsString())
	version, ok := rm.Resource.Set().Value("service.version")
	require.True(t, ok)
	assert.Equal(t, Version, version.AsString())

	bounds := map[string][]float64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok, m.Name)
			require.Len(t, hist.DataPoints, 1)
			bounds[m.Name] = hist.DataPoints[0].Bounds
		}
	}
	assert.Equal(t, analysisBuckets, bounds["forge_analysis_duration_seconds"])
	assert.Equal(t, requestBuckets, bounds["forge_backend_request_duration_seconds"])
}

func TestNewResource_OmitsEmptyBaseURL(t *testing.T) {
	_, ok := newResource(Config{ServiceName: "forge"}).Set().Value(BaseURLKey)
	assert.False(t, ok)
}

func TestPropagateToRequest_InjectsTraceparent(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "outgoing")
	defer span.End()

	req := PropagateToRequest(ctx, httptest.NewRequest(http.MethodGet, "http://backend/health", nil))
	assert.NotEmpty(t, req.Header.Get("traceparent"))

	extracted := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(req.Header))
	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(extracted).TraceID())
}
