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
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/result"
)

// fakeSources answers each query after its own delay.
type fakeSources struct {
	failSims, failAnalytics, failCompute    bool
	delaySims, delayAnalytics, delayCompute time.Duration
	panicCompute                            bool
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSources) ListSimulations(ctx context.Context) result.Result[forgeapi.SimulationList] {
	if err := wait(ctx, f.delaySims); err != nil {
		return result.Err[forgeapi.SimulationList](&result.Failure{Message: err.Error(), Code: result.CodeNetwork})
	}
	if f.failSims {
		return result.Err[forgeapi.SimulationList](&result.Failure{Message: "simulation store offline", Status: 500})
	}
	return result.Ok(forgeapi.SimulationList{
		Success: true,
		Total:   1,
		Simulations: []forgeapi.SimulationRecord{
			{RepoID: "demo-1", RunID: "demo-1_1"},
		},
	})
}

func (f *fakeSources) GetAnalyticsSummary(ctx context.Context) result.Result[forgeapi.SeverityCounts] {
	if err := wait(ctx, f.delayAnalytics); err != nil {
		return result.Err[forgeapi.SeverityCounts](&result.Failure{Message: err.Error(), Code: result.CodeNetwork})
	}
	if f.failAnalytics {
		return result.Err[forgeapi.SeverityCounts](&result.Failure{Message: "warehouse unreachable", Code: result.CodeNetwork})
	}
	return result.Ok(forgeapi.SeverityCounts{Critical: 1, High: 2, Medium: 3, Low: 4})
}

func (f *fakeSources) GetComputeStatus(ctx context.Context) result.Result[forgeapi.ComputeStatus] {
	if f.panicCompute {
		panic("nil status map")
	}
	if err := wait(ctx, f.delayCompute); err != nil {
		return result.Err[forgeapi.ComputeStatus](&result.Failure{Message: err.Error(), Code: result.CodeNetwork})
	}
	if f.failCompute {
		return result.Err[forgeapi.ComputeStatus](&result.Failure{Message: "HTTP 502: Bad Gateway", Status: 502})
	}
	return result.Ok(forgeapi.ComputeStatus{Success: true, Status: forgeapi.ComputeState{Connected: true, MockMode: true}})
}

func TestNewCompositeView_AllLoading(t *testing.T) {
	view := NewCompositeView()
	for name, state := range view.States() {
		assert.Equal(t, StateLoading, state, name)
	}
	assert.Empty(t, view.Unavailable())
}

func TestLoad_AllAvailable(t *testing.T) {
	view := NewAggregator(&fakeSources{}, Config{}).Load(context.Background())

	require.True(t, view.Simulations.Available())
	require.True(t, view.Analytics.Available())
	require.True(t, view.Compute.Available())
	assert.Equal(t, 1, view.Simulations.Data.Total)
	assert.Equal(t, 10, view.Analytics.Data.Total())
	assert.True(t, view.Compute.Data.Status.MockMode)
	assert.False(t, view.LoadedAt.IsZero())
	assert.Len(t, view.RunsFor("demo-1"), 1)
	assert.Empty(t, view.RunsFor("other"))
}

// Every single-failure permutation, each under every completion order.
func TestLoad_SingleFailureIsolated(t *testing.T) {
	failures := []string{SourceSimulations, SourceAnalytics, SourceCompute}
	orders := [][3]time.Duration{
		{0, 10 * time.Millisecond, 20 * time.Millisecond},
		{20 * time.Millisecond, 0, 10 * time.Millisecond},
		{10 * time.Millisecond, 20 * time.Millisecond, 0},
	}

	for _, failing := range failures {
		for i, order := range orders {
			t.Run(fmt.Sprintf("%s/order%d", failing, i), func(t *testing.T) {
				src := &fakeSources{
					failSims:       failing == SourceSimulations,
					failAnalytics:  failing == SourceAnalytics,
					failCompute:    failing == SourceCompute,
					delaySims:      order[0],
					delayAnalytics: order[1],
					delayCompute:   order[2],
				}

				view := NewAggregator(src, Config{}).Load(context.Background())

				assert.Equal(t, []string{failing}, view.Unavailable())
				for name, state := range view.States() {
					if name == failing {
						assert.Equal(t, StateUnavailable, state)
					} else {
						assert.Equal(t, StateAvailable, state, name)
					}
				}
			})
		}
	}
}

func TestLoad_AllFailStillResolves(t *testing.T) {
	view := NewAggregator(&fakeSources{failSims: true, failAnalytics: true, failCompute: true}, Config{}).
		Load(context.Background())

	assert.Equal(t, []string{SourceSimulations, SourceAnalytics, SourceCompute}, view.Unavailable())
	assert.Equal(t, "simulation store offline", view.Simulations.Reason)
	assert.Equal(t, 500, view.Simulations.Status)
	assert.Equal(t, "warehouse unreachable", view.Analytics.Reason)
	assert.Equal(t, result.CodeNetwork, view.Analytics.Code)
	assert.Equal(t, 502, view.Compute.Status)
}

func TestLoad_SlowSourceDoesNotDelayOthers(t *testing.T) {
	src := &fakeSources{delayCompute: time.Second}

	start := time.Now()
	view := NewAggregator(src, Config{SourceTimeout: 50 * time.Millisecond}).Load(context.Background())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, view.Simulations.Available())
	assert.True(t, view.Analytics.Available())
	assert.Equal(t, StateUnavailable, view.Compute.State)
	assert.NotEmpty(t, view.Compute.Reason)
}

func TestLoad_QueriesRunConcurrently(t *testing.T) {
	d := 100 * time.Millisecond
	src := &fakeSources{delaySims: d, delayAnalytics: d, delayCompute: d}

	start := time.Now()
	NewAggregator(src, Config{}).Load(context.Background())

	assert.Less(t, time.Since(start), 3*d)
}

func TestLoad_PanickingSourceContained(t *testing.T) {
	view := NewAggregator(&fakeSources{panicCompute: true}, Config{}).Load(context.Background())

	assert.True(t, view.Simulations.Available())
	assert.True(t, view.Analytics.Available())
	assert.Equal(t, StateUnavailable, view.Compute.State)
	assert.Contains(t, view.Compute.Reason, "nil status map")
}

func TestLoad_RepeatedCallsAreFresh(t *testing.T) {
	src := &fakeSources{failAnalytics: true}
	agg := NewAggregator(src, Config{})

	first := agg.Load(context.Background())
	src.failAnalytics = false
	second := agg.Load(context.Background())

	assert.Equal(t, StateUnavailable, first.Analytics.State)
	assert.Equal(t, StateAvailable, second.Analytics.State)
}

func TestCompositeView_JSONStates(t *testing.T) {
	view := NewAggregator(&fakeSources{failCompute: true}, Config{}).Load(context.Background())

	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"available"`)
	assert.Contains(t, string(data), `"state":"unavailable"`)

	var back CompositeView
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, StateUnavailable, back.Compute.State)
	assert.Equal(t, StateAvailable, back.Analytics.State)
}

func TestState_UnmarshalUnknown(t *testing.T) {
	var s State
	assert.Error(t, s.UnmarshalText([]byte("pending")))
	assert.Equal(t, "unknown", State(42).String())
}
