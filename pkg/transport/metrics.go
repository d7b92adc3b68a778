// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transport

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/SahinS14/CognitoForge/pkg/result"
)

var (
	tracer = otel.Tracer("cognitoforge.transport")
	meter  = otel.Meter("cognitoforge.transport")
)

var (
	requestLatency metric.Float64Histogram
	requestTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		requestLatency, err = meter.Float64Histogram(
			"forge_backend_request_duration_seconds",
			metric.WithDescription("Duration of backend API requests"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		requestTotal, err = meter.Int64Counter(
			"forge_backend_requests_total",
			metric.WithDescription("Total number of backend API requests"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startRequestSpan(ctx context.Context, req Request) (context.Context, trace.Span) {
	return tracer.Start(ctx, "transport.Do",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("forge.route", req.route()),
			attribute.Bool("forge.credential", req.IncludeCredential),
		),
	)
}

func setRequestSpanResult(span trace.Span, failure *result.Failure) {
	if failure == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	if failure.Status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", failure.Status))
	}
	span.SetStatus(codes.Error, failure.Message)
}

// outcome collapses a Result into a low-cardinality metric label.
func outcome(failure *result.Failure) string {
	switch {
	case failure == nil:
		return "ok"
	case failure.Status >= 500:
		return "server_error"
	case failure.Status >= 400:
		return "client_error"
	case failure.Code == result.CodeNetwork:
		return "network_error"
	case failure.Code == result.CodeParse:
		return "parse_error"
	case failure.Code == result.CodeCredential:
		return "credential_error"
	default:
		return "error"
	}
}

func recordRequestMetrics(ctx context.Context, req Request, duration time.Duration, failure *result.Failure) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("method", req.Method),
		attribute.String("route", req.route()),
		attribute.String("outcome", outcome(failure)),
	)

	requestLatency.Record(ctx, duration.Seconds(), attrs)
	requestTotal.Add(ctx, 1, attrs)
}
