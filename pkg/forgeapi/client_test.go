// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package forgeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SahinS14/CognitoForge/pkg/result"
	"github.com/SahinS14/CognitoForge/pkg/transport"
)

// recordingDoer returns canned responses keyed by path and remembers
// every request it saw.
type recordingDoer struct {
	mu        sync.Mutex
	responses map[string]result.Result[json.RawMessage]
	requests  []transport.Request
}

func newRecordingDoer() *recordingDoer {
	return &recordingDoer{responses: make(map[string]result.Result[json.RawMessage])}
}

func (d *recordingDoer) respond(path, body string) {
	d.responses[path] = result.Ok(json.RawMessage(body))
}

func (d *recordingDoer) fail(path string, f *result.Failure) {
	d.responses[path] = result.Err[json.RawMessage](f)
}

func (d *recordingDoer) Do(_ context.Context, req transport.Request) result.Result[json.RawMessage] {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	if res, ok := d.responses[req.Path]; ok {
		return res
	}
	return result.Err[json.RawMessage](&result.Failure{Message: "HTTP 404: Not Found", Status: 404})
}

func (d *recordingDoer) last() transport.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests[len(d.requests)-1]
}

func bodyJSON(t *testing.T, body any) string {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return string(data)
}

func TestOperations_RequestShape(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func(c *Client)
		method     string
		path       string
		credential bool
		body       string
	}{
		{
			name:   "register",
			call:   func(c *Client) { c.RegisterRepository(ctx, "demo-1", "https://github.com/a/b") },
			method: http.MethodPost, path: "/upload_repo",
			body: `{"repo_id":"demo-1","repo_url":"https://github.com/a/b"}`,
		},
		{
			name:   "simulate",
			call:   func(c *Client) { c.RunSimulation(ctx, "demo-1", true) },
			method: http.MethodPost, path: "/simulate_attack",
			body: `{"repo_id":"demo-1","force":true}`,
		},
		{
			name:   "latest report",
			call:   func(c *Client) { c.GetLatestReport(ctx, "demo-1") },
			method: http.MethodGet, path: "/reports/demo-1/latest",
		},
		{
			name:   "historical report",
			call:   func(c *Client) { c.GetReport(ctx, "demo-1", "demo-1_20250101") },
			method: http.MethodGet, path: "/reports/demo-1/demo-1_20250101",
		},
		{
			name:   "insight escapes id",
			call:   func(c *Client) { c.GetAIInsight(ctx, "team/repo one") },
			method: http.MethodGet, path: "/api/gemini/insight/team%2Frepo%20one",
			credential: true,
		},
		{
			name:   "query ai",
			call:   func(c *Client) { c.QueryAI(ctx, "Explain T1552") },
			method: http.MethodPost, path: "/api/gemini",
			credential: true,
			body:       `{"prompt":"Explain T1552"}`,
		},
		{
			name:   "analytics",
			call:   func(c *Client) { c.GetAnalyticsSummary(ctx) },
			method: http.MethodGet, path: "/analytics/summary",
		},
		{
			name:   "list simulations",
			call:   func(c *Client) { c.ListSimulations(ctx) },
			method: http.MethodGet, path: "/api/simulations/list",
		},
		{
			name:   "compute status",
			call:   func(c *Client) { c.GetComputeStatus(ctx) },
			method: http.MethodGet, path: "/api/gradient/status",
		},
		{
			name:   "health",
			call:   func(c *Client) { c.Health(ctx) },
			method: http.MethodGet, path: "/health",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := newRecordingDoer()
			tt.call(New(doer))

			req := doer.last()
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			assert.Equal(t, tt.credential, req.IncludeCredential)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, bodyJSON(t, req.Body))
			} else {
				assert.Nil(t, req.Body)
			}
		})
	}
}

func TestHealth_LeavesTimeoutToTransport(t *testing.T) {
	doer := newRecordingDoer()
	New(doer).Health(context.Background())
	assert.Equal(t, transport.HealthPath, doer.last().Path)
	assert.Zero(t, doer.last().Timeout)
}

func TestHealth_HonorsConfiguredHealthTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(3 * time.Second):
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	client := New(transport.New(transport.Config{BaseURL: srv.URL, HealthTimeout: time.Second}, nil, nil))

	start := time.Now()
	_, failure := client.Health(context.Background()).Get()
	elapsed := time.Since(start)

	require.NotNil(t, failure)
	assert.Equal(t, result.CodeNetwork, failure.Code)
	assert.Less(t, elapsed, 2500*time.Millisecond)
}

func TestOperations_PropagateFailureUnchanged(t *testing.T) {
	failure := &result.Failure{Message: "repository not registered", Status: 404}
	doer := newRecordingDoer()
	doer.fail("/simulate_attack", failure)

	res := New(doer).RunSimulation(context.Background(), "demo-1", false)

	assert.Same(t, failure, res.Failure())
}

func TestRunSimulation_DecodesRecord(t *testing.T) {
	doer := newRecordingDoer()
	doer.respond("/simulate_attack", `{
		"repo_id": "demo-1",
		"run_id": "demo-1_1700000000",
		"timestamp": "2025-01-02T03:04:05Z",
		"plan": {
			"repo_id": "demo-1",
			"overall_severity": "critical",
			"plan_source": "gemini",
			"model_used": "gemini-pro",
			"ai_insight": "CI secrets exposed",
			"steps": [
				{"step_number": 1, "description": "d", "technique_id": "T1552", "severity": "high", "affected_files": ["a.yml"]}
			]
		},
		"sandbox": {"status": "completed"}
	}`)

	rec, ok := New(doer).RunSimulation(context.Background(), "demo-1", false).Value()
	require.True(t, ok)

	assert.Equal(t, "demo-1_1700000000", rec.RunID)
	assert.Equal(t, SeverityCritical, rec.Plan.OverallSeverity)
	require.Len(t, rec.Plan.Steps, 1)
	assert.Equal(t, "T1552", rec.Plan.Steps[0].TechniqueID)
	assert.Equal(t, "completed", rec.Sandbox["status"])
	require.NotNil(t, rec.AI)
	assert.Equal(t, ProvenanceGenerated, rec.AI.Source)
	assert.Equal(t, "gemini-pro", rec.AI.Model)
	assert.Equal(t, "CI secrets exposed", rec.AI.Insight)
	assert.Equal(t, RunKey{RepoID: "demo-1", RunID: "demo-1_1700000000"}, rec.Key())
}

func TestGetComputeStatus_Decodes(t *testing.T) {
	doer := newRecordingDoer()
	doer.respond("/api/gradient/status", `{"success":true,"status":{"connected":true,"mock_mode":true,"message":"simulated"}}`)

	status, ok := New(doer).GetComputeStatus(context.Background()).Value()
	require.True(t, ok)
	assert.True(t, status.Status.Connected)
	assert.True(t, status.Status.MockMode)
	assert.Equal(t, "simulated", status.Status.Message)
}

func TestGetLatestReport_Decodes(t *testing.T) {
	doer := newRecordingDoer()
	doer.respond("/reports/demo-1/latest", `{
		"repo_id":"demo-1","run_id":"r1",
		"summary":{"critical":1,"high":2,"medium":0,"low":0,"affected_files":["a","b"],"overall_severity":"critical"},
		"ai_insight":"insight"
	}`)

	report, ok := New(doer).GetLatestReport(context.Background(), "demo-1").Value()
	require.True(t, ok)
	assert.Equal(t, 1, report.Summary.Critical)
	assert.Equal(t, 2, report.Summary.High)
	assert.Equal(t, []string{"a", "b"}, report.Summary.AffectedFiles)
	assert.Equal(t, SeverityCritical, report.Summary.OverallSeverity)
	assert.Equal(t, "insight", report.AIInsight)
}
