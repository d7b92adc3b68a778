// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stub_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SahinS14/CognitoForge/pkg/credentials"
	"github.com/SahinS14/CognitoForge/pkg/dashboard"
	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/history"
	"github.com/SahinS14/CognitoForge/pkg/orchestrator"
	"github.com/SahinS14/CognitoForge/pkg/transport"
	"github.com/SahinS14/CognitoForge/services/stub"
)

type harness struct {
	backend *stub.Backend
	slot    *credentials.Slot
	api     *forgeapi.Client
}

func newHarness(t *testing.T, cfg stub.Config) *harness {
	t.Helper()
	backend := stub.NewBackend(cfg)
	server := httptest.NewServer(stub.NewRouter(backend))
	t.Cleanup(server.Close)

	slot := credentials.NewSlot()
	tc := transport.DefaultConfig()
	tc.BaseURL = server.URL
	return &harness{
		backend: backend,
		slot:    slot,
		api:     forgeapi.New(transport.New(tc, slot, nil)),
	}
}

func TestContract_CompleteAnalysisThenDashboard(t *testing.T) {
	h := newHarness(t, stub.Config{AIEnabled: true})
	ctx := context.Background()

	store, err := history.Open(history.InMemoryConfig())
	require.NoError(t, err)
	defer store.Close()

	analyzer := orchestrator.NewAnalyzer(h.api, orchestrator.Config{FinalizeDelay: -1, Recorder: store})

	var (
		mu       sync.Mutex
		progress []int
	)
	res := analyzer.RunCompleteAnalysis(ctx, "demo-1", "https://github.com/example/demo", func(_ string, pct int) {
		mu.Lock()
		progress = append(progress, pct)
		mu.Unlock()
	})

	rec, failure := res.Get()
	require.Nil(t, failure)
	assert.Equal(t, "demo-1", rec.RepoID)
	assert.Equal(t, forgeapi.ProvenanceGenerated, rec.Provenance())
	assert.Equal(t, []int{25, 50, 75, 100}, progress)

	stored, err := store.Latest(ctx, "demo-1")
	require.NoError(t, err)
	assert.Equal(t, rec.RunID, stored.RunID)

	view := dashboard.NewAggregator(h.api, dashboard.Config{}).Load(ctx)
	assert.Empty(t, view.Unavailable())
	runs := view.RunsFor("demo-1")
	require.Len(t, runs, 1)
	assert.Equal(t, rec.RunID, runs[0].RunID)
	assert.Equal(t, len(rec.Plan.Steps), view.Analytics.Data.Total())
	assert.True(t, view.Compute.Data.Status.MockMode)
}

func TestContract_LatestReportIsIdempotent(t *testing.T) {
	h := newHarness(t, stub.Config{})
	ctx := context.Background()

	require.True(t, h.api.RegisterRepository(ctx, "demo-1", "https://github.com/a/b").IsOk())
	sim, failure := h.api.RunSimulation(ctx, "demo-1", false).Get()
	require.Nil(t, failure)

	first, failure := h.api.GetLatestReport(ctx, "demo-1").Get()
	require.Nil(t, failure)
	second, failure := h.api.GetLatestReport(ctx, "demo-1").Get()
	require.Nil(t, failure)

	assert.Equal(t, first, second)
	assert.Equal(t, sim.RunID, first.RunID)
	assert.Equal(t, forgeapi.BuildReport(sim).Summary, first.Summary)

	byRun, failure := h.api.GetReport(ctx, "demo-1", sim.RunID).Get()
	require.Nil(t, failure)
	assert.Equal(t, first, byRun)
}

func TestContract_SimulateCacheAndForce(t *testing.T) {
	h := newHarness(t, stub.Config{})
	ctx := context.Background()

	require.True(t, h.api.RegisterRepository(ctx, "demo-1", "").IsOk())

	a, failure := h.api.RunSimulation(ctx, "demo-1", false).Get()
	require.Nil(t, failure)
	b, failure := h.api.RunSimulation(ctx, "demo-1", false).Get()
	require.Nil(t, failure)
	c, failure := h.api.RunSimulation(ctx, "demo-1", true).Get()
	require.Nil(t, failure)

	assert.Equal(t, a.RunID, b.RunID)
	assert.NotEqual(t, a.RunID, c.RunID)
	assert.Equal(t, forgeapi.ProvenanceFallback, c.Provenance())
}

func TestContract_InsightWithoutCredential(t *testing.T) {
	h := newHarness(t, stub.Config{AIEnabled: true})
	ctx := context.Background()

	in, failure := h.api.GetAIInsight(ctx, "demo-1").Get()
	require.Nil(t, failure)
	assert.Equal(t, forgeapi.InsightNotFound, in.Source)
	assert.Equal(t, []string{""}, h.backend.Tokens())
}

func TestContract_InsightCarriesCredential(t *testing.T) {
	h := newHarness(t, stub.Config{AIEnabled: true, RequiredToken: "tok-123"})
	ctx := context.Background()

	failure := h.api.GetAIInsight(ctx, "demo-1").Failure()
	require.NotNil(t, failure)
	assert.Equal(t, http.StatusUnauthorized, failure.Status)
	assert.Equal(t, "Invalid or missing credentials", failure.Message)

	h.slot.Install(func(context.Context) (string, error) { return "tok-123", nil })
	in, failure := h.api.GetAIInsight(ctx, "demo-1").Get()
	require.Nil(t, failure)
	assert.Equal(t, "demo-1", in.RepoID)

	ans, failure := h.api.QueryAI(ctx, "What is T1552?").Get()
	require.Nil(t, failure)
	assert.True(t, ans.Success)

	assert.Equal(t, []string{"", "tok-123", "tok-123"}, h.backend.Tokens())
}

func TestContract_ErrorBodiesNormalized(t *testing.T) {
	h := newHarness(t, stub.Config{AIEnabled: true})
	ctx := context.Background()

	failure := h.api.RegisterRepository(ctx, "bad id", "").Failure()
	require.NotNil(t, failure)
	assert.Equal(t, http.StatusBadRequest, failure.Status)
	assert.Contains(t, failure.Message, "Invalid repo_id format")

	failure = h.api.RunSimulation(ctx, "ghost", false).Failure()
	require.NotNil(t, failure)
	assert.Equal(t, http.StatusNotFound, failure.Status)
	assert.Equal(t, "Repository 'ghost' has not been uploaded", failure.Message)

	failure = h.api.QueryAI(ctx, "").Failure()
	require.NotNil(t, failure)
	assert.Equal(t, http.StatusUnprocessableEntity, failure.Status)
	assert.Contains(t, failure.Message, "prompt")
}

func TestContract_RegistrationFailureStopsAnalysis(t *testing.T) {
	h := newHarness(t, stub.Config{})
	analyzer := orchestrator.NewAnalyzer(h.api, orchestrator.Config{FinalizeDelay: -1})

	var labels []string
	res := analyzer.RunCompleteAnalysis(context.Background(), "bad id", "", func(label string, _ int) {
		labels = append(labels, label)
	})

	failure := res.Failure()
	require.NotNil(t, failure)
	assert.Equal(t, http.StatusBadRequest, failure.Status)
	assert.Equal(t, []string{orchestrator.LabelUploading}, labels)
	assert.Empty(t, h.backend.List())
}

func TestContract_Health(t *testing.T) {
	h := newHarness(t, stub.Config{})
	status, failure := h.api.Health(context.Background()).Get()
	require.Nil(t, failure)
	assert.Equal(t, "ok", status.Status)
}
