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
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/SahinS14/CognitoForge/pkg/dashboard"
	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// style applies st only when styled is set.
func style(styled bool, st lipgloss.Style, s string) string {
	if !styled {
		return s
	}
	return st.Render(s)
}

// RenderRecord renders one simulation run with its attack steps.
func RenderRecord(rec forgeapi.SimulationRecord, styled bool) string {
	var b strings.Builder

	sev := rec.Plan.OverallSeverity
	fmt.Fprintf(&b, "Repository: %s\n", rec.RepoID)
	fmt.Fprintf(&b, "Run:        %s\n", rec.RunID)
	if !rec.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Timestamp:  %s\n", rec.Timestamp.Format(timeLayout))
	}
	fmt.Fprintf(&b, "Severity:   %s\n", style(styled, SeverityStyle(sev), strings.ToUpper(string(sev))))
	fmt.Fprintf(&b, "Plan:       %s", rec.Provenance())
	if rec.AI != nil && rec.AI.Model != "" {
		fmt.Fprintf(&b, " (%s)", rec.AI.Model)
	}
	b.WriteString("\n")

	if len(rec.Plan.Steps) > 0 {
		b.WriteString("\n")
		b.WriteString(style(styled, Styles.Bold, "Attack steps"))
		b.WriteString("\n")
	}
	for _, step := range rec.Plan.Steps {
		tier := style(styled, SeverityStyle(step.Severity), fmt.Sprintf("%-8s", step.Severity))
		fmt.Fprintf(&b, "  %2d. [%s] %s %s\n", step.StepNumber, tier, step.TechniqueID, step.Description)
		if len(step.AffectedFiles) > 0 {
			files := strings.Join(step.AffectedFiles, ", ")
			fmt.Fprintf(&b, "      %s %s\n", IconArrow, style(styled, Styles.Muted, files))
		}
	}

	if rec.AI != nil && rec.AI.Insight != "" {
		b.WriteString("\n")
		b.WriteString(style(styled, Styles.Bold, "AI insight"))
		b.WriteString("\n  ")
		b.WriteString(rec.AI.Insight)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderReport renders an aggregated report.
func RenderReport(rep forgeapi.ReportSummary, styled bool) string {
	var b strings.Builder
	s := rep.Summary

	fmt.Fprintf(&b, "Repository: %s\n", rep.RepoID)
	fmt.Fprintf(&b, "Run:        %s\n", rep.RunID)
	fmt.Fprintf(&b, "Overall:    %s\n",
		style(styled, SeverityStyle(s.OverallSeverity), strings.ToUpper(string(s.OverallSeverity))))
	b.WriteString("\n")
	b.WriteString(renderCounts(s.SeverityCounts, styled))
	b.WriteString("\n")

	if len(s.AffectedFiles) > 0 {
		fmt.Fprintf(&b, "\nAffected files (%d)\n", len(s.AffectedFiles))
		for _, f := range s.AffectedFiles {
			fmt.Fprintf(&b, "  %s %s\n", IconBullet, f)
		}
	}
	if rep.AIInsight != "" {
		b.WriteString("\nAI insight\n  ")
		b.WriteString(rep.AIInsight)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCounts(c forgeapi.SeverityCounts, styled bool) string {
	cell := func(sev forgeapi.Severity, n int) string {
		return style(styled, SeverityStyle(sev), fmt.Sprintf("%s %d", sev, n))
	}
	return strings.Join([]string{
		cell(forgeapi.SeverityCritical, c.Critical),
		cell(forgeapi.SeverityHigh, c.High),
		cell(forgeapi.SeverityMedium, c.Medium),
		cell(forgeapi.SeverityLow, c.Low),
		fmt.Sprintf("total %d", c.Total()),
	}, "  ")
}

// RenderInsight renders an insight lookup.
func RenderInsight(in forgeapi.Insight, styled bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", in.RepoID)
	fmt.Fprintf(&b, "Source:     %s\n", in.Source)
	if in.RunID != "" {
		fmt.Fprintf(&b, "Run:        %s\n", in.RunID)
	}
	if in.Insight != "" {
		b.WriteString("\n")
		b.WriteString(in.Insight)
		b.WriteString("\n")
	}
	if in.Error != "" {
		b.WriteString("\n")
		b.WriteString(style(styled, Styles.Warning, in.Error))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderHistory renders a list of runs, one per line.
func RenderHistory(runs []forgeapi.SimulationRecord, styled bool) string {
	if len(runs) == 0 {
		return style(styled, Styles.Muted, "no runs recorded")
	}
	var b strings.Builder
	for _, rec := range runs {
		sev := rec.Plan.OverallSeverity
		fmt.Fprintf(&b, "%s  %-24s %-32s %s  %s\n",
			formatTime(rec.Timestamp),
			rec.RepoID,
			rec.RunID,
			style(styled, SeverityStyle(sev), fmt.Sprintf("%-8s", sev)),
			rec.Provenance())
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return strings.Repeat("-", len(timeLayout))
	}
	return t.Format(timeLayout)
}

// RenderDashboard renders every section of a composite view. Each
// section renders on its own; an unavailable section shows its reason
// and never hides the others.
func RenderDashboard(view dashboard.CompositeView, styled bool) string {
	sections := []string{
		renderSection(styled, "Simulations", view.Simulations.State, view.Simulations.Reason,
			func() string { return renderSimulations(view.Simulations.Data, styled) }),
		renderSection(styled, "Analytics", view.Analytics.State, view.Analytics.Reason,
			func() string { return renderCounts(view.Analytics.Data, styled) }),
		renderSection(styled, "Compute", view.Compute.State, view.Compute.Reason,
			func() string { return renderCompute(view.Compute.Data) }),
	}
	return strings.Join(sections, "\n\n")
}

func renderSection(styled bool, title string, state dashboard.State, reason string, body func() string) string {
	head := style(styled, Styles.Title, title)
	switch state {
	case dashboard.StateAvailable:
		return head + "\n" + body()
	case dashboard.StateUnavailable:
		return head + "\n" + IconError.Render() + " " + style(styled, Styles.Error, "unavailable: "+reason)
	default:
		return head + "\n" + IconPending.Render() + " " + style(styled, Styles.Muted, "loading")
	}
}

func renderSimulations(list forgeapi.SimulationList, styled bool) string {
	if len(list.Simulations) == 0 {
		return style(styled, Styles.Muted, "no simulations yet")
	}
	return fmt.Sprintf("%d total\n%s", list.Total, RenderHistory(list.Simulations, styled))
}

func renderCompute(status forgeapi.ComputeStatus) string {
	state := "disconnected"
	if status.Status.Connected {
		state = "connected"
	}
	if status.Status.MockMode {
		state += " (mock mode)"
	}
	if status.Status.Message != "" {
		state += ": " + status.Status.Message
	}
	return state
}
