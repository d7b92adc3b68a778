// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package dashboard loads the three independent dashboard sources in
parallel and merges them into one CompositeView.

	           ┌── ListSimulations ─────▶ Simulations section
	Load(ctx) ─┼── GetAnalyticsSummary ─▶ Analytics section
	           └── GetComputeStatus ────▶ Compute section

Each query runs in its own goroutine and writes only its own section.
A failing or slow source never cancels, blocks or alters the others, and
Load itself never fails: the worst case is three Unavailable sections.
Nothing is retried or polled; call Load again to refresh.
*/
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/result"
)

var tracer = otel.Tracer("cognitoforge.dashboard")

// Source names used in logs, metrics and CompositeView.States.
const (
	SourceSimulations = "simulations"
	SourceAnalytics   = "analytics"
	SourceCompute     = "compute"
)

// Sources is the backend surface the dashboard reads.
// *forgeapi.Client implements it.
type Sources interface {
	ListSimulations(ctx context.Context) result.Result[forgeapi.SimulationList]
	GetAnalyticsSummary(ctx context.Context) result.Result[forgeapi.SeverityCounts]
	GetComputeStatus(ctx context.Context) result.Result[forgeapi.ComputeStatus]
}

// Config configures an Aggregator.
type Config struct {
	// SourceTimeout bounds each source independently. Zero means no
	// bound beyond ctx.
	SourceTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Aggregator builds CompositeViews. Safe for concurrent use.
type Aggregator struct {
	sources Sources
	config  Config
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(sources Sources, config Config) *Aggregator {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Aggregator{
		sources: sources,
		config:  config,
		logger:  config.Logger.With("component", "dashboard"),
	}
}

// Load queries all sources concurrently and returns the merged view.
//
// # Description
//
// The three queries are issued without waiting on one another and may
// settle in any order. Every section of the returned view is settled:
// Available with data or Unavailable with a reason. A panic inside a
// source is contained to that source's section.
//
// # Inputs
//
//   - ctx: Cancellation for all three queries
//
// # Outputs
//
//   - CompositeView: Never an error
func (a *Aggregator) Load(ctx context.Context) CompositeView {
	ctx, span := tracer.Start(ctx, "dashboard.Load")
	defer span.End()

	view := NewCompositeView()

	// A plain Group: one failing source must not cancel its siblings.
	var g errgroup.Group

	g.Go(func() error {
		view.Simulations = load(ctx, a, SourceSimulations, a.sources.ListSimulations)
		return nil
	})
	g.Go(func() error {
		view.Analytics = load(ctx, a, SourceAnalytics, a.sources.GetAnalyticsSummary)
		return nil
	})
	g.Go(func() error {
		view.Compute = load(ctx, a, SourceCompute, a.sources.GetComputeStatus)
		return nil
	})
	_ = g.Wait()

	view.LoadedAt = time.Now().UTC()

	unavailable := view.Unavailable()
	span.SetAttributes(attribute.Int("dashboard.unavailable", len(unavailable)))
	if len(unavailable) > 0 {
		a.logger.Warn("dashboard loaded with unavailable sources", "sources", unavailable)
	} else {
		a.logger.Debug("dashboard loaded")
	}
	return view
}

func load[T any](ctx context.Context, a *Aggregator, name string, query func(context.Context) result.Result[T]) (section Section[T]) {
	ctx, span := tracer.Start(ctx, "dashboard.source",
		trace.WithAttributes(attribute.String("dashboard.source", name)))
	defer span.End()

	if a.config.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.SourceTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			section = Section[T]{
				State:  StateUnavailable,
				Reason: fmt.Sprintf("%s source failed unexpectedly: %v", name, r),
				Code:   result.CodeWorkflow,
			}
		}
		recordSourceMetrics(ctx, name, time.Since(start), section.State)
		if section.State == StateUnavailable {
			span.SetAttributes(attribute.String("dashboard.reason", section.Reason))
			a.logger.Warn("dashboard source unavailable",
				"source", name,
				"status", section.Status,
				"reason", section.Reason)
		}
	}()

	return SectionFrom(query(ctx))
}
