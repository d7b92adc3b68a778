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
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
)

const (
	invalidRepoIDMessage = "Invalid repo_id format. Use only alphanumeric characters, hyphens, and underscores."
	maxPromptLength      = 10000
)

// validationError writes a 422 in the list form [{loc, msg, type}].
func validationError(c *gin.Context, field, msg string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"detail": []gin.H{{
			"loc":  []string{"body", field},
			"msg":  msg,
			"type": "value_error",
		}},
	})
}

func invalidRepoID(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"detail": gin.H{"success": false, "error": invalidRepoIDMessage},
	})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"detail": msg})
}

// handleRegister serves POST /upload_repo.
func (b *Backend) handleRegister(c *gin.Context) {
	var req forgeapi.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "repo_id", "Invalid JSON body: "+err.Error())
		return
	}
	if req.RepoID == "" {
		validationError(c, "repo_id", "Field required")
		return
	}

	reg, err := b.Register(req.RepoID, req.RepoURL)
	if errors.Is(err, errInvalidRepoID) {
		invalidRepoID(c)
		return
	}
	c.JSON(http.StatusOK, reg)
}

// handleSimulate serves POST /simulate_attack.
func (b *Backend) handleSimulate(c *gin.Context) {
	var req forgeapi.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "repo_id", "Invalid JSON body: "+err.Error())
		return
	}
	if req.RepoID == "" {
		validationError(c, "repo_id", "Field required")
		return
	}

	rec, cached, err := b.Simulate(req.RepoID, req.Force)
	switch {
	case errors.Is(err, errInvalidRepoID):
		invalidRepoID(c)
		return
	case errors.Is(err, errNotRegistered):
		notFound(c, fmt.Sprintf("Repository '%s' has not been uploaded", req.RepoID))
		return
	}

	outcome := "new"
	if cached {
		outcome = "cached"
	}
	simulationsTotal.WithLabelValues(outcome).Inc()
	c.JSON(http.StatusOK, rec)
}

// handleReport serves GET /reports/:repo_id/:run_id, where run_id
// "latest" selects the newest run.
func (b *Backend) handleReport(c *gin.Context) {
	repoID := c.Param("repo_id")
	runID := c.Param("run_id")
	if !validRepoID(repoID) {
		invalidRepoID(c)
		return
	}

	var (
		rec forgeapi.SimulationRecord
		err error
	)
	if runID == "latest" {
		rec, err = b.Latest(repoID)
		if err != nil {
			notFound(c, fmt.Sprintf("No simulations found for repository '%s'", repoID))
			return
		}
	} else {
		rec, err = b.Run(repoID, runID)
		if err != nil {
			notFound(c, fmt.Sprintf("Simulation run '%s' not found for repository '%s'", runID, repoID))
			return
		}
	}
	c.JSON(http.StatusOK, forgeapi.BuildReport(rec))
}

// handleInsight serves GET /api/gemini/insight/:repo_id.
func (b *Backend) handleInsight(c *gin.Context) {
	repoID := c.Param("repo_id")
	if !validRepoID(repoID) {
		invalidRepoID(c)
		return
	}

	if !b.config.AIEnabled {
		c.JSON(http.StatusOK, forgeapi.Insight{
			RepoID:  repoID,
			Insight: "AI insights are disabled. Set USE_GEMINI=true and configure GEMINI_API_KEY.",
			Source:  forgeapi.InsightDisabled,
		})
		return
	}

	if rec, err := b.Latest(repoID); err == nil {
		insight := rec.Plan.AIInsight
		if insight == "" {
			insight = insightFor(rec.Plan)
		}
		c.JSON(http.StatusOK, forgeapi.Insight{
			RepoID:  repoID,
			Insight: insight,
			Source:  forgeapi.InsightFromSimulation,
			RunID:   rec.RunID,
		})
		return
	}

	if b.Registered(repoID) {
		c.JSON(http.StatusOK, forgeapi.Insight{
			RepoID:  repoID,
			Insight: fmt.Sprintf("%s has not been simulated yet. Review CI workflows and committed configuration first.", repoID),
			Source:  forgeapi.InsightFromManifest,
		})
		return
	}

	c.JSON(http.StatusOK, forgeapi.Insight{
		RepoID:  repoID,
		Insight: "No simulation or repository data available for insight generation.",
		Source:  forgeapi.InsightNotFound,
	})
}

// handleQuery serves POST /api/gemini.
func (b *Backend) handleQuery(c *gin.Context) {
	var req forgeapi.AIQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "prompt", "Invalid JSON body: "+err.Error())
		return
	}
	switch n := len([]rune(req.Prompt)); {
	case n < 1:
		validationError(c, "prompt", "String should have at least 1 character")
		return
	case n > maxPromptLength:
		validationError(c, "prompt", fmt.Sprintf("String should have at most %d characters", maxPromptLength))
		return
	}

	if !b.config.AIEnabled {
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": gin.H{
				"success": false,
				"error":   "Gemini API configuration error",
				"details": "GEMINI_API_KEY is not configured",
			},
		})
		return
	}

	text := answer(req.Prompt)
	c.JSON(http.StatusOK, forgeapi.AIAnswer{
		Success:  true,
		Response: text,
		Model:    b.config.Model,
		Metadata: map[string]any{
			"prompt_length":   len(req.Prompt),
			"response_length": len(text),
		},
	})
}

// handleAnalytics serves GET /analytics/summary.
func (b *Backend) handleAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, b.Analytics())
}

// handleList serves GET /api/simulations/list.
func (b *Backend) handleList(c *gin.Context) {
	runs := b.List()
	c.JSON(http.StatusOK, forgeapi.SimulationList{Success: true, Total: len(runs), Simulations: runs})
}

// handleCompute serves GET /api/gradient/status.
func (b *Backend) handleCompute(c *gin.Context) {
	c.JSON(http.StatusOK, forgeapi.ComputeStatus{
		Success: true,
		Status: forgeapi.ComputeState{
			Connected: true,
			MockMode:  true,
			Message:   "Connected to compute cluster (simulated mode)",
		},
	})
}

// handleHealth serves GET /health.
func (b *Backend) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, forgeapi.HealthStatus{Status: "ok", Message: "CognitoForge stub backend"})
}
