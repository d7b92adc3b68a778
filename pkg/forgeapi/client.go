// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package forgeapi holds the CognitoForge data model and one typed
// wrapper per backend operation.
//
// Every operation fixes its method and path, serializes its parameters,
// declares whether the credential is wanted, and returns the transport's
// Result unchanged. No operation translates errors on its own.
//
//	api := forgeapi.New(transportClient)
//	reg := api.RegisterRepository(ctx, "demo-1", "https://github.com/a/b")
//	if f := reg.Failure(); f != nil {
//	    return f
//	}
package forgeapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/SahinS14/CognitoForge/pkg/result"
	"github.com/SahinS14/CognitoForge/pkg/transport"
)

// Client exposes the backend operations. Safe for concurrent use.
type Client struct {
	doer transport.Doer
}

// New wraps a transport.
func New(doer transport.Doer) *Client {
	return &Client{doer: doer}
}

// RegisterRepository registers a repository for analysis.
func (c *Client) RegisterRepository(ctx context.Context, repoID, repoURL string) result.Result[Registration] {
	return transport.Send[Registration](ctx, c.doer, transport.Request{
		Method: http.MethodPost,
		Path:   "/upload_repo",
		Body:   RegisterRequest{RepoID: repoID, RepoURL: repoURL},
	})
}

// RunSimulation runs (or, without force, may reuse) a simulation for a
// registered repository. force asks the backend to skip its dedup cache.
func (c *Client) RunSimulation(ctx context.Context, repoID string, force bool) result.Result[SimulationRecord] {
	return transport.Send[SimulationRecord](ctx, c.doer, transport.Request{
		Method: http.MethodPost,
		Path:   "/simulate_attack",
		Body:   SimulateRequest{RepoID: repoID, Force: force},
	})
}

// GetLatestReport returns the report of the most recent run.
func (c *Client) GetLatestReport(ctx context.Context, repoID string) result.Result[ReportSummary] {
	return transport.Send[ReportSummary](ctx, c.doer, transport.Request{
		Method: http.MethodGet,
		Path:   "/reports/" + url.PathEscape(repoID) + "/latest",
		Route:  "/reports/{repo_id}/latest",
	})
}

// GetReport returns the report of a specific run.
func (c *Client) GetReport(ctx context.Context, repoID, runID string) result.Result[ReportSummary] {
	return transport.Send[ReportSummary](ctx, c.doer, transport.Request{
		Method: http.MethodGet,
		Path:   "/reports/" + url.PathEscape(repoID) + "/" + url.PathEscape(runID),
		Route:  "/reports/{repo_id}/{run_id}",
	})
}

// GetAIInsight fetches the AI security insight for a repository. The
// credential is attached when one is available; its absence never blocks
// the call.
func (c *Client) GetAIInsight(ctx context.Context, repoID string) result.Result[Insight] {
	return transport.Send[Insight](ctx, c.doer, transport.Request{
		Method:            http.MethodGet,
		Path:              "/api/gemini/insight/" + url.PathEscape(repoID),
		Route:             "/api/gemini/insight/{repo_id}",
		IncludeCredential: true,
	})
}

// QueryAI sends a free-form prompt to the backend's AI model.
func (c *Client) QueryAI(ctx context.Context, prompt string) result.Result[AIAnswer] {
	return transport.Send[AIAnswer](ctx, c.doer, transport.Request{
		Method:            http.MethodPost,
		Path:              "/api/gemini",
		Body:              AIQuery{Prompt: prompt},
		IncludeCredential: true,
	})
}

// GetAnalyticsSummary returns warehouse-wide severity counts.
func (c *Client) GetAnalyticsSummary(ctx context.Context) result.Result[SeverityCounts] {
	return transport.Send[SeverityCounts](ctx, c.doer, transport.Request{
		Method: http.MethodGet,
		Path:   "/analytics/summary",
	})
}

// ListSimulations returns every stored simulation run.
func (c *Client) ListSimulations(ctx context.Context) result.Result[SimulationList] {
	return transport.Send[SimulationList](ctx, c.doer, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/simulations/list",
	})
}

// GetComputeStatus reports the compute-task service connectivity.
func (c *Client) GetComputeStatus(ctx context.Context) result.Result[ComputeStatus] {
	return transport.Send[ComputeStatus](ctx, c.doer, transport.Request{
		Method: http.MethodGet,
		Path:   "/api/gradient/status",
	})
}

// Health calls GET /health. A *transport.Client bounds it with its
// configured health timeout.
func (c *Client) Health(ctx context.Context) result.Result[HealthStatus] {
	return transport.Send[HealthStatus](ctx, c.doer, transport.Request{
		Method: http.MethodGet,
		Path:   transport.HealthPath,
	})
}
