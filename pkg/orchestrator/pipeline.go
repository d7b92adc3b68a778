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
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SahinS14/CognitoForge/pkg/result"
)

// Step is one stage of a Pipeline.
//
// # Description
//
// Run performs the stage and returns nil on success. A non-nil Failure
// stops the pipeline and is returned to the caller as-is. Steps have no
// compensation: a registered repository stays registered when a later
// step fails.
//
// # Example
//
//	step := Step{
//	    Name: "register",
//	    Run: func(ctx context.Context) *result.Failure {
//	        return api.RegisterRepository(ctx, id, url).Failure()
//	    },
//	}
type Step struct {
	// Name identifies the step in logs and spans.
	Name string

	// Run performs the forward action.
	Run func(ctx context.Context) *result.Failure
}

// PipelineConfig configures hooks and logging.
type PipelineConfig struct {
	// Logger receives step events. Default: slog.Default().
	Logger *slog.Logger

	// OnStepStart is called before each step runs.
	OnStepStart func(step Step)

	// OnStepComplete is called after each successful step.
	OnStepComplete func(step Step, duration time.Duration)

	// OnStepFail is called when a step fails.
	OnStepFail func(step Step, failure *result.Failure)
}

// Pipeline runs steps strictly in order and stops at the first failure.
//
// # Description
//
// Step N+1 never starts before step N has returned. There is no retry
// and no rollback. A panic inside a step is recovered and reported as a
// WORKFLOW_ERROR Failure; so is a context cancelled between steps.
//
// # Thread Safety
//
// Execute holds the pipeline lock for the whole run. Build one Pipeline
// per analysis.
type Pipeline struct {
	config    PipelineConfig
	steps     []Step
	completed []string
	failure   *result.Failure
	mu        sync.Mutex
}

// NewPipeline creates an empty pipeline.
func NewPipeline(config PipelineConfig) *Pipeline {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Pipeline{config: config}
}

// AddStep appends a step. Steps run in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, step)
}

// Execute runs every step.
//
// # Outputs
//
//   - *result.Failure: nil on success, otherwise the failing step's
//     Failure (same pointer) or a WORKFLOW_ERROR for internal faults
func (p *Pipeline) Execute(ctx context.Context) *result.Failure {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed = make([]string, 0, len(p.steps))
	p.failure = nil

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.failure = result.Failuref(result.CodeWorkflow, "analysis cancelled before %s: %v", step.Name, err)
			return p.failure
		}

		if failure := p.executeStep(ctx, step); failure != nil {
			p.failure = failure
			if p.config.OnStepFail != nil {
				p.config.OnStepFail(step, failure)
			}
			return failure
		}

		p.completed = append(p.completed, step.Name)
	}
	return nil
}

func (p *Pipeline) executeStep(ctx context.Context, step Step) (failure *result.Failure) {
	ctx, span := tracer.Start(ctx, "orchestrator.step",
		trace.WithAttributes(attribute.String("step.name", step.Name)))
	defer span.End()

	p.config.Logger.Debug("executing step", "step", step.Name)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			failure = result.Failuref(result.CodeWorkflow, "step %s failed unexpectedly: %v", step.Name, r)
		}
		duration := time.Since(start)
		if failure != nil {
			span.SetStatus(codes.Error, failure.Message)
			p.config.Logger.Debug("step failed",
				"step", step.Name,
				"duration", duration,
				"error", failure.Message)
			return
		}
		span.SetStatus(codes.Ok, "")
		p.config.Logger.Debug("step completed", "step", step.Name, "duration", duration)
		if p.config.OnStepComplete != nil {
			p.config.OnStepComplete(step, duration)
		}
	}()

	if p.config.OnStepStart != nil {
		p.config.OnStepStart(step)
	}
	if step.Run == nil {
		return result.Failuref(result.CodeWorkflow, "step %s has no action", step.Name)
	}
	return step.Run(ctx)
}

// CompletedSteps returns the names of steps that succeeded in the last run.
func (p *Pipeline) CompletedSteps() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.completed))
	copy(out, p.completed)
	return out
}

// LastFailure returns the failure of the last run, or nil.
func (p *Pipeline) LastFailure() *result.Failure {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.steps)
}
