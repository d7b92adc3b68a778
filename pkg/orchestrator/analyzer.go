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
Package orchestrator drives the register → simulate → finalize workflow
that turns a repository URL into a Simulation Record.

# Workflow

	┌──────────────┐   ┌──────────────┐   ┌──────────────────────────┐
	│ register     │──▶│ simulate     │──▶│ finalize                 │
	│ 25%          │   │ 50%          │   │ delay, 75%, 100%         │
	└──────┬───────┘   └──────┬───────┘   └──────────────────────────┘
	       │ Err              │ Err
	       ▼                  ▼
	   returned verbatim, nothing further runs

The simulation response already carries the full plan, so no report is
fetched afterwards. The finalize delay exists only so a progress display
has a visible last step.

# Overlapping calls

Concurrent calls for the same repository id and URL share one execution
and receive the same Result. The shared run is detached from every
caller's context: a caller whose context ends returns a WORKFLOW_ERROR on
its own, and the run is cancelled only once no caller is waiting on it.
*/
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/result"
)

var tracer = otel.Tracer("cognitoforge.orchestrator")

// Progress labels and percentages emitted by RunCompleteAnalysis.
const (
	LabelUploading  = "Uploading repository..."
	LabelSimulating = "Running attack simulation..."
	LabelReporting  = "Generating report..."
	LabelComplete   = "Analysis complete!"

	PercentUploading  = 25
	PercentSimulating = 50
	PercentReporting  = 75
	PercentComplete   = 100
)

// DefaultFinalizeDelay is the pause before the final progress updates.
const DefaultFinalizeDelay = 500 * time.Millisecond

// ProgressFunc receives progress updates. Percentages never decrease
// within one run. A caller that joins a run already in flight first gets
// the last checkpoint that run reached, then the remaining updates. It is
// called from the goroutine executing the run and never after
// RunCompleteAnalysis returns.
type ProgressFunc func(label string, percent int)

// Operations is the subset of the backend API the workflow needs.
// *forgeapi.Client implements it.
type Operations interface {
	RegisterRepository(ctx context.Context, repoID, repoURL string) result.Result[forgeapi.Registration]
	RunSimulation(ctx context.Context, repoID string, force bool) result.Result[forgeapi.SimulationRecord]
}

// Recorder stores successful records, e.g. in the local run history.
type Recorder interface {
	Record(ctx context.Context, rec forgeapi.SimulationRecord) error
}

// Config configures an Analyzer.
type Config struct {
	// FinalizeDelay is the pause before reporting 75% and 100%.
	// Zero uses DefaultFinalizeDelay; negative disables the pause.
	FinalizeDelay time.Duration

	// Recorder, when set, receives every successful record. A recorder
	// error is logged and does not fail the analysis.
	Recorder Recorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Analyzer runs complete analyses. Safe for concurrent use.
type Analyzer struct {
	ops    Operations
	config Config
	logger *slog.Logger
	group  singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// NewAnalyzer creates an Analyzer over ops.
func NewAnalyzer(ops Operations, config Config) *Analyzer {
	if config.FinalizeDelay == 0 {
		config.FinalizeDelay = DefaultFinalizeDelay
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Analyzer{
		ops:     ops,
		config:  config,
		logger:  config.Logger.With("component", "orchestrator"),
		flights: make(map[string]*flight),
	}
}

// RunCompleteAnalysis registers repoURL under repoID, runs a simulation
// and returns its record.
//
// # Description
//
// Steps run strictly in sequence and stop at the first failure, whose
// Failure is returned unchanged (same pointer). A registration failure
// means RunSimulation is never called. The simulation is requested with
// force=false, so the backend may answer from its dedup cache.
//
// # Inputs
//
//   - ctx: Cancellation and trace context
//   - repoID: Repository key used for both remote calls
//   - repoURL: Git URL passed to registration
//   - onProgress: Optional progress sink
//
// # Outputs
//
//   - result.Result[forgeapi.SimulationRecord]: The simulation's record,
//     the failing step's Err, or Err{WORKFLOW_ERROR} for internal faults
//     and for a ctx that ends first
//
// # Example
//
//	res := analyzer.RunCompleteAnalysis(ctx, "demo-1", "https://github.com/a/b",
//	    func(label string, pct int) { fmt.Printf("%3d%% %s\n", pct, label) })
func (a *Analyzer) RunCompleteAnalysis(ctx context.Context, repoID, repoURL string, onProgress ProgressFunc) result.Result[forgeapi.SimulationRecord] {
	key := flightKey(repoID, repoURL)
	f, sub, done, joined := a.join(ctx, key, repoID, repoURL, onProgress)
	defer a.leave(key, f, sub)
	if joined {
		a.logger.Info("joined in-flight analysis", "repo_id", repoID, "waiters", a.waiters(key))
	}

	select {
	case r := <-done:
		return r.Val.(result.Result[forgeapi.SimulationRecord])
	case <-sub.failed:
		return result.Err[forgeapi.SimulationRecord](
			result.Failuref(result.CodeWorkflow, "analysis of %s failed unexpectedly: %s", repoID, sub.panicMessage()))
	case <-ctx.Done():
		return result.Err[forgeapi.SimulationRecord](
			result.Failuref(result.CodeWorkflow, "analysis of %s cancelled: %v", repoID, ctx.Err()))
	}
}

// join subscribes to the flight for key, starting it if none is running.
// The flight map and the singleflight group change together under a.mu.
func (a *Analyzer) join(ctx context.Context, key, repoID, repoURL string, onProgress ProgressFunc) (*flight, *subscriber, <-chan singleflight.Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, joined := a.flights[key]
	if !joined {
		f = newFlight(ctx)
		a.flights[key] = f
	}
	sub := f.subscribe(onProgress)
	done := a.group.DoChan(key, func() (any, error) {
		defer a.finish(key, f)
		return a.run(f.ctx, repoID, repoURL, f.broadcast), nil
	})
	return f, sub, done, joined
}

// leave drops sub and cancels the flight when nobody is left waiting.
func (a *Analyzer) leave(key string, f *flight, sub *subscriber) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !f.unsubscribe(sub) {
		return
	}
	a.forget(key, f)
	f.cancel()
}

func (a *Analyzer) finish(key string, f *flight) {
	a.mu.Lock()
	a.forget(key, f)
	a.mu.Unlock()
	f.cancel()
}

// forget removes f so the next call for key starts a fresh run.
// Callers hold a.mu.
func (a *Analyzer) forget(key string, f *flight) {
	if a.flights[key] == f {
		delete(a.flights, key)
		a.group.Forget(key)
	}
}

func (a *Analyzer) run(ctx context.Context, repoID, repoURL string, onProgress ProgressFunc) (res result.Result[forgeapi.SimulationRecord]) {
	token := uuid.NewString()
	logger := a.logger.With("repo_id", repoID, "request_token", token)

	ctx, span := tracer.Start(ctx, "orchestrator.RunCompleteAnalysis",
		trace.WithAttributes(
			attribute.String("forge.repo_id", repoID),
			attribute.String("forge.request_token", token),
		))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = result.Err[forgeapi.SimulationRecord](
				result.Failuref(result.CodeWorkflow, "analysis of %s failed unexpectedly: %v", repoID, r))
		}
		failure := res.Failure()
		if failure != nil {
			span.SetStatus(codes.Error, failure.Message)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		recordAnalysisMetrics(ctx, time.Since(start), failure)
	}()

	progress := onProgress
	if progress == nil {
		progress = func(string, int) {}
	}

	var record forgeapi.SimulationRecord
	pipeline := NewPipeline(PipelineConfig{
		Logger: logger,
		OnStepFail: func(step Step, failure *result.Failure) {
			logger.Warn("analysis step failed",
				"step", step.Name,
				"status", failure.Status,
				"code", failure.Code,
				"error", failure.Message)
		},
	})

	pipeline.AddStep(Step{
		Name: "register",
		Run: func(ctx context.Context) *result.Failure {
			progress(LabelUploading, PercentUploading)
			return a.ops.RegisterRepository(ctx, repoID, repoURL).Failure()
		},
	})

	pipeline.AddStep(Step{
		Name: "simulate",
		Run: func(ctx context.Context) *result.Failure {
			progress(LabelSimulating, PercentSimulating)
			rec, failure := a.ops.RunSimulation(ctx, repoID, false).Get()
			if failure != nil {
				return failure
			}
			record = rec
			return nil
		},
	})

	pipeline.AddStep(Step{
		Name: "finalize",
		Run: func(ctx context.Context) *result.Failure {
			if a.config.FinalizeDelay > 0 {
				timer := time.NewTimer(a.config.FinalizeDelay)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-ctx.Done():
					return result.Failuref(result.CodeWorkflow, "analysis cancelled while finalizing: %v", ctx.Err())
				}
			}
			progress(LabelReporting, PercentReporting)
			progress(LabelComplete, PercentComplete)
			return nil
		},
	})

	logger.Info("analysis started", "repo_url", repoURL)
	if failure := pipeline.Execute(ctx); failure != nil {
		return result.Err[forgeapi.SimulationRecord](failure)
	}

	span.SetAttributes(attribute.String("forge.run_id", record.RunID))
	logger.Info("analysis completed",
		"run_id", record.RunID,
		"overall_severity", string(record.Plan.OverallSeverity),
		"duration", time.Since(start))

	if a.config.Recorder != nil {
		if err := a.config.Recorder.Record(ctx, record); err != nil {
			logger.Warn("failed to record run in local history", "run_id", record.RunID, "error", err)
		}
	}

	return result.Ok(record)
}
