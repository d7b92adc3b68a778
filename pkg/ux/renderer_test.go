// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"strings"
	"testing"
	"time"

	"github.com/SahinS14/CognitoForge/pkg/dashboard"
	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/result"
)

func sampleRecord() forgeapi.SimulationRecord {
	return forgeapi.SimulationRecord{
		RepoID:    "demo-1",
		RunID:     "demo-1_1700000000",
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Plan: forgeapi.AttackPlan{
			RepoID:          "demo-1",
			OverallSeverity: forgeapi.SeverityCritical,
			Steps: []forgeapi.AttackStep{
				{StepNumber: 1, Description: "Harvest CI secrets", TechniqueID: "T1552", Severity: forgeapi.SeverityCritical, AffectedFiles: []string{".github/workflows/ci.yml"}},
				{StepNumber: 2, Description: "Poison dependency", TechniqueID: "T1195", Severity: forgeapi.SeverityHigh},
			},
		},
		AI: &forgeapi.AIProvenance{Source: forgeapi.ProvenanceGenerated, Model: "gemini-1.5", Insight: "Rotate CI tokens."},
	}
}

func assertContainsAll(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderRecord(t *testing.T) {
	out := RenderRecord(sampleRecord(), false)
	assertContainsAll(t, out,
		"Repository: demo-1",
		"Run:        demo-1_1700000000",
		"Severity:   CRITICAL",
		"Plan:       generated (gemini-1.5)",
		"1. [critical] T1552 Harvest CI secrets",
		".github/workflows/ci.yml",
		"2. [high    ] T1195 Poison dependency",
		"Rotate CI tokens.",
	)
}

func TestRenderRecord_LegacyWithoutAI(t *testing.T) {
	rec := sampleRecord()
	rec.AI = nil
	out := RenderRecord(rec, false)
	assertContainsAll(t, out, "Plan:       legacy")
	if strings.Contains(out, "AI insight") {
		t.Errorf("legacy record should not render an insight:\n%s", out)
	}
}

func TestRenderReport(t *testing.T) {
	rep := forgeapi.BuildReport(sampleRecord())
	out := RenderReport(rep, false)
	assertContainsAll(t, out,
		"Overall:    CRITICAL",
		"critical 1  high 1  medium 0  low 0  total 2",
		"Affected files (1)",
		".github/workflows/ci.yml",
		"Rotate CI tokens.",
	)
}

func TestRenderInsight(t *testing.T) {
	out := RenderInsight(forgeapi.Insight{RepoID: "demo-1", Source: forgeapi.InsightDisabled, Error: "AI disabled"}, false)
	assertContainsAll(t, out, "Source:     disabled", "AI disabled")
}

func TestRenderHistory(t *testing.T) {
	if got := RenderHistory(nil, false); got != "no runs recorded" {
		t.Errorf("got %q", got)
	}
	out := RenderHistory([]forgeapi.SimulationRecord{sampleRecord()}, false)
	assertContainsAll(t, out, "2025-03-01 12:00:00 UTC", "demo-1_1700000000", "critical", "generated")
}

func TestRenderDashboard_SectionsIndependent(t *testing.T) {
	view := dashboard.NewCompositeView()
	view.Simulations = dashboard.SectionFrom(result.Ok(forgeapi.SimulationList{
		Success: true, Total: 1, Simulations: []forgeapi.SimulationRecord{sampleRecord()},
	}))
	view.Analytics = dashboard.SectionFrom(result.Err[forgeapi.SeverityCounts](
		&result.Failure{Message: "HTTP 500: Internal Server Error", Status: 500}))

	out := RenderDashboard(view, false)
	assertContainsAll(t, out,
		"Simulations\n1 total",
		"demo-1_1700000000",
		"Analytics\n" + string(IconError) + " unavailable: HTTP 500: Internal Server Error",
		"Compute\n" + string(IconPending) + " loading",
	)
}

func TestRenderDashboard_Compute(t *testing.T) {
	view := dashboard.NewCompositeView()
	view.Compute = dashboard.SectionFrom(result.Ok(forgeapi.ComputeStatus{
		Success: true,
		Status:  forgeapi.ComputeState{Connected: true, MockMode: true, Message: "demo"},
	}))
	assertContainsAll(t, RenderDashboard(view, false), "connected (mock mode): demo")
}
