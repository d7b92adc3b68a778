// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs OpenTelemetry providers for forge and
// forge-stub.
//
// Instrumented packages call otel.Tracer and otel.Meter themselves and
// record into no-ops until Init runs, which happens only in main packages.
// Init stamps every span and metric with the binary name and the backend
// base URL, and gives the forge duration histograms buckets sized for
// backend calls and for whole analyses.
//
// Trace exporters are "otlp", "stdout" and "none"; metric exporters are
// "prometheus", "stdout" and "none". The stdout exporters write to stderr
// so they never mix with a command's --json output.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names accepted in Config.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// Version is the default service.version.
const Version = "0.4.0"

// BaseURLKey is the resource attribute holding the backend base URL.
const BaseURLKey = attribute.Key("forge.base_url")

var (
	// ErrNilContext is returned by Init when called with a nil context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an unsupported exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// Config selects exporters and names the process.
type Config struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`

	// BaseURL is the backend this process calls (forge) or serves
	// (forge-stub). Set at runtime, not from the file.
	BaseURL string `yaml:"-"`

	TraceExporter  string `yaml:"trace_exporter"`
	MetricExporter string `yaml:"metric_exporter"`

	// OTLPEndpoint is host:port for a plaintext local collector, or a
	// URL whose scheme (http or https) decides TLS.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// DefaultConfig returns exporters switched off unless OTEL_TRACES_EXPORTER,
// OTEL_METRICS_EXPORTER or OTEL_EXPORTER_OTLP_ENDPOINT say otherwise.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "forge",
		ServiceVersion: Version,
		TraceExporter:  envOr("OTEL_TRACES_EXPORTER", ExporterNone),
		MetricExporter: envOr("OTEL_METRICS_EXPORTER", ExporterNone),
		OTLPEndpoint:   envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

// Histogram boundaries, in seconds.
var (
	requestBuckets  = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	analysisBuckets = []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}
)

// histogramBuckets maps the forge duration instruments to their buckets.
var histogramBuckets = map[string][]float64{
	"forge_backend_request_duration_seconds":  requestBuckets,
	"forge_dashboard_source_duration_seconds": requestBuckets,
	"forge_analysis_duration_seconds":         analysisBuckets,
}

// Init installs the W3C propagator and, for each exporter that is not
// "none", a global provider.
//
// # Description
//
// The propagator is installed even with both exporters off so outgoing
// requests keep any incoming trace context. On error nothing stays
// installed except the propagator.
//
// # Inputs
//
//   - ctx: Context for exporter connections
//   - cfg: Exporter selection and process identity
//
// # Outputs
//
//   - shutdown: Flushes and stops the providers in reverse order
//   - error: Wraps ErrUnknownExporter or the exporter's own error
//
// # Example
//
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    logger.Warn("telemetry disabled", "error", err)
//	}
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	res := newResource(cfg)
	var stops stopChain

	spans, err := spanExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("trace exporter %q: %w", cfg.TraceExporter, err)
	}
	var tp *sdktrace.TracerProvider
	if spans != nil {
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spans),
			sdktrace.WithResource(res),
		)
		stops = append(stops, tp.Shutdown)
	}

	reader, err := metricReader(cfg)
	if err != nil {
		_ = stops.stop(ctx)
		return nil, fmt.Errorf("metric exporter %q: %w", cfg.MetricExporter, err)
	}
	if tp != nil {
		otel.SetTracerProvider(tp)
	}
	if reader != nil {
		mp := newMeterProvider(res, reader)
		otel.SetMeterProvider(mp)
		stops = append(stops, mp.Shutdown)
	}

	return stops.stop, nil
}

// PropagateToRequest writes ctx's trace context into req's headers and
// binds ctx to req.
func PropagateToRequest(ctx context.Context, req *http.Request) *http.Request {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req.WithContext(ctx)
}

func newResource(cfg Config) *resource.Resource {
	version := cfg.ServiceVersion
	if version == "" {
		version = Version
	}
	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", version),
		attribute.String("process.executable.name", filepath.Base(os.Args[0])),
	}
	if cfg.BaseURL != "" {
		attrs = append(attrs, BaseURLKey.String(cfg.BaseURL))
	}
	return resource.NewSchemaless(attrs...)
}

func newMeterProvider(res *resource.Resource, reader sdkmetric.Reader) *sdkmetric.MeterProvider {
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	}
	names := make([]string, 0, len(histogramBuckets))
	for name := range histogramBuckets {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		opts = append(opts, sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: name},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
				Boundaries: histogramBuckets[name],
			}},
		)))
	}
	return sdkmetric.NewMeterProvider(opts...)
}

func spanExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.TraceExporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	case ExporterOTLP:
		if strings.Contains(cfg.OTLPEndpoint, "://") {
			return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(cfg.OTLPEndpoint))
		}
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure())
	default:
		return nil, ErrUnknownExporter
	}
}

func metricReader(cfg Config) (sdkmetric.Reader, error) {
	switch cfg.MetricExporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterPrometheus:
		// Registers with the default prometheus registry, which the stub
		// serves on /metrics.
		return promexporter.New()
	case ExporterStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	default:
		return nil, ErrUnknownExporter
	}
}

// stopChain shuts providers down newest first.
type stopChain []func(context.Context) error

func (s stopChain) stop(ctx context.Context) error {
	var errs []error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
