// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stub

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
)

type technique struct {
	id          string
	description string
	severity    forgeapi.Severity
	files       []string
}

// techniques is the catalog plans are drawn from, roughly ordered by
// kill-chain stage.
var techniques = []technique{
	{"T1195.002", "Compromise a build dependency through a typosquatted package", forgeapi.SeverityHigh, []string{"package.json", "requirements.txt"}},
	{"T1552.001", "Harvest credentials committed to configuration files", forgeapi.SeverityCritical, []string{".env.example", "config/settings.yaml"}},
	{"T1059.004", "Inject shell commands through an unquoted CI script variable", forgeapi.SeverityHigh, []string{".github/workflows/ci.yml"}},
	{"T1190", "Exploit an unauthenticated admin endpoint", forgeapi.SeverityCritical, []string{"app/routes/admin.py"}},
	{"T1078", "Reuse a long-lived deploy token with broad scope", forgeapi.SeverityMedium, []string{".github/workflows/deploy.yml"}},
	{"T1070.004", "Delete build logs to hide tampering", forgeapi.SeverityLow, []string{"scripts/cleanup.sh"}},
	{"T1609", "Escape the build container through a privileged mount", forgeapi.SeverityHigh, []string{"Dockerfile", "docker-compose.yml"}},
	{"T1005", "Read source archives from a world-readable artifact bucket", forgeapi.SeverityMedium, []string{"infra/storage.tf"}},
}

func repoHash(repoID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(repoID))
	return h.Sum32()
}

// BuildPlan returns the attack plan for repoID. The same repo id always
// yields the same steps. With ai set the plan is marked as generated by
// model and carries an insight; otherwise it is a fallback plan.
func BuildPlan(repoID string, ai bool, model string) forgeapi.AttackPlan {
	h := repoHash(repoID)
	count := 2 + int(h%3)
	start := int((h / 3) % uint32(len(techniques)))

	plan := forgeapi.AttackPlan{
		RepoID:          repoID,
		OverallSeverity: forgeapi.SeverityLow,
		Steps:           make([]forgeapi.AttackStep, 0, count),
	}
	for i := 0; i < count; i++ {
		t := techniques[(start+i)%len(techniques)]
		plan.Steps = append(plan.Steps, forgeapi.AttackStep{
			StepNumber:    i + 1,
			Description:   t.description,
			TechniqueID:   t.id,
			Severity:      t.severity,
			AffectedFiles: append([]string(nil), t.files...),
		})
		if t.severity.Rank() > plan.OverallSeverity.Rank() {
			plan.OverallSeverity = t.severity
		}
	}

	if ai {
		plan.PlanSource = "gemini"
		plan.ModelUsed = model
		plan.AIInsight = insightFor(plan)
	} else {
		plan.PlanSource = "fallback"
	}
	return plan
}

func insightFor(plan forgeapi.AttackPlan) string {
	var critical []string
	for _, s := range plan.Steps {
		if s.Severity == forgeapi.SeverityCritical || s.Severity == forgeapi.SeverityHigh {
			critical = append(critical, s.TechniqueID)
		}
	}
	if len(critical) == 0 {
		return fmt.Sprintf("%s shows limited exposure; %d low-impact techniques were simulated.",
			plan.RepoID, len(plan.Steps))
	}
	return fmt.Sprintf("%s is rated %s. Prioritize mitigations for %s.",
		plan.RepoID, plan.OverallSeverity, strings.Join(critical, ", "))
}

// answer produces a deterministic reply to a free-form prompt.
func answer(prompt string) string {
	first := strings.TrimSpace(prompt)
	if i := strings.IndexAny(first, ".?!\n"); i > 0 {
		first = first[:i]
	}
	if len(first) > 80 {
		first = first[:80]
	}
	return fmt.Sprintf("Security analysis for %q: review access controls, rotate exposed secrets and pin dependencies.", first)
}
