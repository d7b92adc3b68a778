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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SahinS14/CognitoForge/pkg/result"
)

func TestPipeline_RunsStepsInOrder(t *testing.T) {
	var order []string
	p := NewPipeline(PipelineConfig{})
	for _, name := range []string{"one", "two", "three"} {
		name := name
		p.AddStep(Step{Name: name, Run: func(context.Context) *result.Failure {
			order = append(order, name)
			return nil
		}})
	}

	assert.Nil(t, p.Execute(context.Background()))
	assert.Equal(t, []string{"one", "two", "three"}, order)
	assert.Equal(t, order, p.CompletedSteps())
	assert.Equal(t, 3, p.StepCount())
}

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	failure := &result.Failure{Message: "nope", Status: 409}
	thirdRan := false

	var failedStep string
	p := NewPipeline(PipelineConfig{
		OnStepFail: func(step Step, f *result.Failure) { failedStep = step.Name },
	})
	p.AddStep(Step{Name: "ok", Run: func(context.Context) *result.Failure { return nil }})
	p.AddStep(Step{Name: "bad", Run: func(context.Context) *result.Failure { return failure }})
	p.AddStep(Step{Name: "never", Run: func(context.Context) *result.Failure {
		thirdRan = true
		return nil
	}})

	got := p.Execute(context.Background())

	assert.Same(t, failure, got)
	assert.Same(t, failure, p.LastFailure())
	assert.False(t, thirdRan)
	assert.Equal(t, "bad", failedStep)
	assert.Equal(t, []string{"ok"}, p.CompletedSteps())
}

func TestPipeline_RecoversPanic(t *testing.T) {
	p := NewPipeline(PipelineConfig{})
	p.AddStep(Step{Name: "explode", Run: func(context.Context) *result.Failure { panic("boom") }})

	failure := p.Execute(context.Background())

	require.NotNil(t, failure)
	assert.Equal(t, result.CodeWorkflow, failure.Code)
	assert.Contains(t, failure.Message, "boom")
}

func TestPipeline_NilRun(t *testing.T) {
	p := NewPipeline(PipelineConfig{})
	p.AddStep(Step{Name: "empty"})

	failure := p.Execute(context.Background())
	require.NotNil(t, failure)
	assert.Equal(t, result.CodeWorkflow, failure.Code)
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	p := NewPipeline(PipelineConfig{})
	p.AddStep(Step{Name: "step", Run: func(context.Context) *result.Failure {
		ran = true
		return nil
	}})

	failure := p.Execute(ctx)
	require.NotNil(t, failure)
	assert.Equal(t, result.CodeWorkflow, failure.Code)
	assert.False(t, ran)
}

func TestPipeline_Hooks(t *testing.T) {
	var started, completed []string
	p := NewPipeline(PipelineConfig{
		OnStepStart:    func(s Step) { started = append(started, s.Name) },
		OnStepComplete: func(s Step, d time.Duration) { completed = append(completed, s.Name) },
	})
	p.AddStep(Step{Name: "a", Run: func(context.Context) *result.Failure { return nil }})
	p.AddStep(Step{Name: "b", Run: func(context.Context) *result.Failure { return &result.Failure{Message: "x"} }})

	p.Execute(context.Background())

	assert.Equal(t, []string{"a", "b"}, started)
	assert.Equal(t, []string{"a"}, completed)
}

func TestPipeline_ReusableAfterFailure(t *testing.T) {
	fail := true
	p := NewPipeline(PipelineConfig{})
	p.AddStep(Step{Name: "flaky", Run: func(context.Context) *result.Failure {
		if fail {
			return &result.Failure{Message: "first"}
		}
		return nil
	}})

	require.NotNil(t, p.Execute(context.Background()))
	fail = false
	assert.Nil(t, p.Execute(context.Background()))
	assert.Nil(t, p.LastFailure())
}
