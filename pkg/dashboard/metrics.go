// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dashboard

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("cognitoforge.dashboard")

var (
	sourceLatency metric.Float64Histogram
	sourceTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		sourceLatency, err = meter.Float64Histogram(
			"forge_dashboard_source_duration_seconds",
			metric.WithDescription("Duration of dashboard source queries"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sourceTotal, err = meter.Int64Counter(
			"forge_dashboard_source_total",
			metric.WithDescription("Dashboard source queries by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordSourceMetrics(ctx context.Context, source string, duration time.Duration, state State) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("state", state.String()),
	)

	sourceLatency.Record(ctx, duration.Seconds(), attrs)
	sourceTotal.Add(ctx, 1, attrs)
}
