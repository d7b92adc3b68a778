// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stub is an in-memory CognitoForge backend that speaks the same
// HTTP/JSON contract as the hosted service. It backs local development
// (cmd/forge-stub) and serves as the HTTP fixture for client tests.
//
// # Contract
//
//	POST /upload_repo                  register a repository
//	POST /simulate_attack              run or reuse a simulation
//	GET  /reports/{repo}/latest        report of the newest run
//	GET  /reports/{repo}/{run}         report of one run
//	GET  /api/gemini/insight/{repo}    AI insight (credential-bearing)
//	POST /api/gemini                   free-form AI query (credential-bearing)
//	GET  /analytics/summary            severity totals over all runs
//	GET  /api/simulations/list         every run, newest first
//	GET  /api/gradient/status          compute status (always mock mode)
//	GET  /health                       liveness
//	GET  /metrics                      Prometheus exposition
//
// A simulation requested without force inside DedupWindow of the previous
// run of the same repository returns that run unchanged.
package stub

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/validation"
)

// DefaultDedupWindow is how long a run is reused for unforced simulations.
const DefaultDedupWindow = 10 * time.Minute

// DefaultModel is the model name reported for generated plans.
const DefaultModel = "gemini-1.5-flash (stub)"

// DefaultTokenHistory is how many AI-endpoint bearer tokens Tokens keeps.
const DefaultTokenHistory = 32

var (
	errInvalidRepoID = errors.New("invalid repo_id format")
	errNotRegistered = errors.New("repository not registered")
	errNoRuns        = errors.New("no simulations for repository")
	errRunNotFound   = errors.New("simulation run not found")
)

// Config configures a Backend.
type Config struct {
	// DedupWindow defaults to DefaultDedupWindow. Negative disables reuse.
	DedupWindow time.Duration

	// AIEnabled turns on plan generation and the AI endpoints. When false,
	// plans are deterministic fallbacks and insight reports "disabled".
	AIEnabled bool

	// Model is reported as model_used. Defaults to DefaultModel.
	Model string

	// RequiredToken, when set, makes the AI endpoints reject requests
	// without "Authorization: Bearer <RequiredToken>".
	RequiredToken string

	// TokenHistory caps how many recent tokens Tokens returns. Defaults
	// to DefaultTokenHistory.
	TokenHistory int

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type registration struct {
	repoURL string
	at      time.Time
}

// Backend holds repositories and simulation runs. Safe for concurrent use.
type Backend struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	repos  map[string]registration
	runs   map[string][]forgeapi.SimulationRecord
	tokens []string
}

// NewBackend creates an empty Backend.
func NewBackend(config Config) *Backend {
	if config.DedupWindow == 0 {
		config.DedupWindow = DefaultDedupWindow
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.TokenHistory <= 0 {
		config.TokenHistory = DefaultTokenHistory
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Backend{
		config: config,
		logger: config.Logger.With("component", "stub"),
		repos:  make(map[string]registration),
		runs:   make(map[string][]forgeapi.SimulationRecord),
	}
}

func validRepoID(repoID string) bool {
	return validation.IsIdentifier(repoID)
}

// Register records a repository. Registering again replaces the URL.
func (b *Backend) Register(repoID, repoURL string) (forgeapi.Registration, error) {
	if !validRepoID(repoID) {
		return forgeapi.Registration{}, errInvalidRepoID
	}

	b.mu.Lock()
	b.repos[repoID] = registration{repoURL: repoURL, at: b.config.Now()}
	b.mu.Unlock()

	source := "upload"
	if repoURL != "" {
		source = "url"
	}
	b.logger.Info("repository registered", "repo_id", repoID, "source", source)
	return forgeapi.Registration{RepoID: repoID, Status: "received", Source: source}, nil
}

// Simulate returns a run for repoID. Without force, the newest run is
// reused when it is younger than the dedup window.
func (b *Backend) Simulate(repoID string, force bool) (forgeapi.SimulationRecord, bool, error) {
	if !validRepoID(repoID) {
		return forgeapi.SimulationRecord{}, false, errInvalidRepoID
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.repos[repoID]; !ok {
		return forgeapi.SimulationRecord{}, false, errNotRegistered
	}

	now := b.config.Now()
	if runs := b.runs[repoID]; !force && b.config.DedupWindow > 0 && len(runs) > 0 {
		last := runs[len(runs)-1]
		if now.Sub(last.Timestamp) < b.config.DedupWindow {
			b.logger.Info("reusing cached simulation", "repo_id", repoID, "run_id", last.RunID)
			return last, true, nil
		}
	}

	plan := BuildPlan(repoID, b.config.AIEnabled, b.config.Model)
	rec := forgeapi.SimulationRecord{
		RepoID:    repoID,
		RunID:     fmt.Sprintf("%s_%d_%s", repoID, now.Unix(), uuid.NewString()[:8]),
		Timestamp: now.UTC(),
		Plan:      plan,
		Sandbox: map[string]any{
			"status":         "completed",
			"steps_executed": len(plan.Steps),
		},
		AI: &forgeapi.AIProvenance{
			Source:  forgeapi.NormalizeProvenance(plan.PlanSource),
			Model:   plan.ModelUsed,
			Insight: plan.AIInsight,
		},
	}
	b.runs[repoID] = append(b.runs[repoID], rec)

	b.logger.Info("simulation completed", "repo_id", repoID, "run_id", rec.RunID, "forced", force)
	return rec, false, nil
}

// Latest returns the newest run of repoID.
func (b *Backend) Latest(repoID string) (forgeapi.SimulationRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	runs := b.runs[repoID]
	if len(runs) == 0 {
		return forgeapi.SimulationRecord{}, errNoRuns
	}
	return runs[len(runs)-1], nil
}

// Run returns one run of repoID.
func (b *Backend) Run(repoID, runID string) (forgeapi.SimulationRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range b.runs[repoID] {
		if rec.RunID == runID {
			return rec, nil
		}
	}
	return forgeapi.SimulationRecord{}, errRunNotFound
}

// Registered reports whether repoID has been registered.
func (b *Backend) Registered(repoID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.repos[repoID]
	return ok
}

// List returns every run, newest first.
func (b *Backend) List() []forgeapi.SimulationRecord {
	b.mu.Lock()
	var all []forgeapi.SimulationRecord
	for _, runs := range b.runs {
		all = append(all, runs...)
	}
	b.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].RunID > all[j].RunID
		}
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if all == nil {
		all = []forgeapi.SimulationRecord{}
	}
	return all
}

// Analytics tallies step severities across every run.
func (b *Backend) Analytics() forgeapi.SeverityCounts {
	b.mu.Lock()
	defer b.mu.Unlock()

	var counts forgeapi.SeverityCounts
	for _, runs := range b.runs {
		for _, rec := range runs {
			for _, step := range rec.Plan.Steps {
				counts.Add(step.Severity)
			}
		}
	}
	return counts
}

// recordToken remembers the bearer token (possibly empty) of a
// credential-bearing request, dropping the oldest past TokenHistory.
func (b *Backend) recordToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = append(b.tokens, token)
	if excess := len(b.tokens) - b.config.TokenHistory; excess > 0 {
		b.tokens = slices.Delete(b.tokens, 0, excess)
	}
}

// Tokens returns the most recent bearer tokens seen on the AI endpoints,
// oldest first. Requests without a credential appear as "".
func (b *Backend) Tokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens...)
}
