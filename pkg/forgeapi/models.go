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
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Severity
// -----------------------------------------------------------------------------

// Severity is one of the four tiers used for steps and whole plans.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists the tiers from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Valid reports whether s is one of the four tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Rank orders tiers, critical highest. Unknown values rank as medium.
func (s Severity) Rank() int {
	switch ParseSeverity(string(s)) {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityLow:
		return 1
	default:
		return 2
	}
}

// ParseSeverity normalizes a backend value. Anything unrecognized is
// treated as medium, matching how the backend grades unknown input.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Valid() {
		return sev
	}
	return SeverityMedium
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

// RegisterRequest is the body of POST /upload_repo.
type RegisterRequest struct {
	RepoID  string `json:"repo_id"`
	RepoURL string `json:"repo_url,omitempty"`
}

// Registration is the response of POST /upload_repo.
type Registration struct {
	RepoID string `json:"repo_id"`
	Status string `json:"status"`
	Source string `json:"source"`
}

// -----------------------------------------------------------------------------
// Simulation
// -----------------------------------------------------------------------------

// SimulateRequest is the body of POST /simulate_attack.
type SimulateRequest struct {
	RepoID string `json:"repo_id"`
	Force  bool   `json:"force"`
}

// AttackStep is one step of a simulated campaign.
type AttackStep struct {
	StepNumber    int      `json:"step_number"`
	Description   string   `json:"description"`
	TechniqueID   string   `json:"technique_id"`
	Severity      Severity `json:"severity"`
	AffectedFiles []string `json:"affected_files"`
}

// AttackPlan is the ordered campaign for one run. The plan_source,
// model_used and ai_insight fields carry AI provenance when the backend
// sends it.
type AttackPlan struct {
	RepoID          string       `json:"repo_id"`
	OverallSeverity Severity     `json:"overall_severity"`
	Steps           []AttackStep `json:"steps"`
	PlanSource      string       `json:"plan_source,omitempty"`
	ModelUsed       string       `json:"model_used,omitempty"`
	AIInsight       string       `json:"ai_insight,omitempty"`
}

// ProvenanceSource says where a plan came from.
type ProvenanceSource string

const (
	ProvenanceGenerated ProvenanceSource = "generated"
	ProvenanceFallback  ProvenanceSource = "fallback"
	ProvenanceLegacy    ProvenanceSource = "legacy"
)

// NormalizeProvenance maps the backend's plan_source onto a
// ProvenanceSource. "gemini" is a generated plan, "fallback" is the
// deterministic plan, anything else predates provenance tracking.
func NormalizeProvenance(planSource string) ProvenanceSource {
	switch strings.ToLower(strings.TrimSpace(planSource)) {
	case "gemini", "generated":
		return ProvenanceGenerated
	case "fallback":
		return ProvenanceFallback
	default:
		return ProvenanceLegacy
	}
}

// AIProvenance describes how the plan of a run was produced.
type AIProvenance struct {
	Source  ProvenanceSource `json:"source"`
	Model   string           `json:"model,omitempty"`
	Insight string           `json:"insight,omitempty"`
}

// SimulationRecord is the result of one simulation run. It is never
// modified after the backend returns it.
type SimulationRecord struct {
	RepoID    string         `json:"repo_id"`
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Plan      AttackPlan     `json:"plan"`
	Sandbox   map[string]any `json:"sandbox,omitempty"`
	AI        *AIProvenance  `json:"ai,omitempty"`
}

// UnmarshalJSON decodes a record and derives AI from the plan's
// provenance fields when the payload has no explicit "ai" object.
func (r *SimulationRecord) UnmarshalJSON(data []byte) error {
	type plain SimulationRecord
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = SimulationRecord(decoded)

	if r.AI == nil && (r.Plan.PlanSource != "" || r.Plan.ModelUsed != "" || r.Plan.AIInsight != "") {
		r.AI = &AIProvenance{
			Source:  NormalizeProvenance(r.Plan.PlanSource),
			Model:   r.Plan.ModelUsed,
			Insight: r.Plan.AIInsight,
		}
	} else if r.AI != nil {
		r.AI.Source = NormalizeProvenance(string(r.AI.Source))
	}
	return nil
}

// Provenance returns the AI source, legacy when the record has none.
func (r SimulationRecord) Provenance() ProvenanceSource {
	if r.AI == nil {
		return ProvenanceLegacy
	}
	return r.AI.Source
}

// Key returns the repo+run key of the record.
func (r SimulationRecord) Key() RunKey {
	return RunKey{RepoID: r.RepoID, RunID: r.RunID}
}

// RunKey identifies one simulation run.
type RunKey struct {
	RepoID string
	RunID  string
}

// String renders the key as "<repo>/<run>".
func (k RunKey) String() string {
	return k.RepoID + "/" + k.RunID
}

// SimulationList is the response of GET /api/simulations/list.
type SimulationList struct {
	Success     bool               `json:"success"`
	Total       int                `json:"total"`
	Simulations []SimulationRecord `json:"simulations"`
}

// -----------------------------------------------------------------------------
// Reports
// -----------------------------------------------------------------------------

// SeverityCounts tallies findings per tier. It is also the payload of
// GET /analytics/summary.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Total is the sum of all tiers.
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low
}

// Add increments the tier of sev.
func (c *SeverityCounts) Add(sev Severity) {
	switch ParseSeverity(string(sev)) {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityLow:
		c.Low++
	default:
		c.Medium++
	}
}

// ReportTotals is the aggregated body of a report.
type ReportTotals struct {
	SeverityCounts
	AffectedFiles   []string `json:"affected_files"`
	OverallSeverity Severity `json:"overall_severity"`
}

// ReportSummary is the response of GET /reports/{repo}/latest and
// GET /reports/{repo}/{run}.
type ReportSummary struct {
	RepoID    string       `json:"repo_id"`
	RunID     string       `json:"run_id"`
	Summary   ReportTotals `json:"summary"`
	AIInsight string       `json:"ai_insight,omitempty"`
}

// BuildReport aggregates a record into a ReportSummary: per-tier step
// counts and the sorted, de-duplicated set of affected files.
func BuildReport(rec SimulationRecord) ReportSummary {
	var totals ReportTotals
	seen := make(map[string]struct{})
	for _, step := range rec.Plan.Steps {
		totals.Add(step.Severity)
		for _, f := range step.AffectedFiles {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			totals.AffectedFiles = append(totals.AffectedFiles, f)
		}
	}
	sort.Strings(totals.AffectedFiles)
	if totals.AffectedFiles == nil {
		totals.AffectedFiles = []string{}
	}
	totals.OverallSeverity = ParseSeverity(string(rec.Plan.OverallSeverity))

	report := ReportSummary{
		RepoID:  rec.RepoID,
		RunID:   rec.RunID,
		Summary: totals,
	}
	if rec.AI != nil {
		report.AIInsight = rec.AI.Insight
	}
	return report
}

// -----------------------------------------------------------------------------
// AI
// -----------------------------------------------------------------------------

// Insight sources reported by GET /api/gemini/insight/{repo}.
const (
	InsightFromSimulation = "simulation"
	InsightFromManifest   = "manifest"
	InsightDisabled       = "disabled"
	InsightNotFound       = "not_found"
	InsightError          = "error"
)

// Insight is the response of GET /api/gemini/insight/{repo}.
type Insight struct {
	RepoID  string `json:"repo_id"`
	Insight string `json:"insight"`
	Source  string `json:"source"`
	RunID   string `json:"run_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AIQuery is the body of POST /api/gemini.
type AIQuery struct {
	Prompt string `json:"prompt"`
}

// AIAnswer is the response of POST /api/gemini.
type AIAnswer struct {
	Success  bool           `json:"success"`
	Response string         `json:"response"`
	Model    string         `json:"model,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// ComputeState is the inner status of the compute-task service.
type ComputeState struct {
	Connected bool   `json:"connected"`
	MockMode  bool   `json:"mock_mode"`
	Message   string `json:"message"`
}

// ComputeStatus is the response of GET /api/gradient/status.
type ComputeStatus struct {
	Success bool         `json:"success"`
	Status  ComputeState `json:"status"`
}

// HealthStatus is the response of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
