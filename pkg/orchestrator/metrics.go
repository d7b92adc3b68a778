// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/SahinS14/CognitoForge/pkg/result"
)

var meter = otel.Meter("cognitoforge.orchestrator")

var (
	analysisLatency metric.Float64Histogram
	analysisTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		analysisLatency, err = meter.Float64Histogram(
			"forge_analysis_duration_seconds",
			metric.WithDescription("Duration of complete analyses"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analysisTotal, err = meter.Int64Counter(
			"forge_analysis_total",
			metric.WithDescription("Total number of complete analyses"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordAnalysisMetrics(ctx context.Context, duration time.Duration, failure *result.Failure) {
	if err := initMetrics(); err != nil {
		return
	}

	code := ""
	if failure != nil {
		code = failure.Code
	}
	attrs := metric.WithAttributes(
		attribute.Bool("success", failure == nil),
		attribute.String("code", code),
	)

	analysisLatency.Record(ctx, duration.Seconds(), attrs)
	analysisTotal.Add(ctx, 1, attrs)
}
