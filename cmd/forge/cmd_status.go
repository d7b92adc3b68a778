// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SahinS14/CognitoForge/pkg/dashboard"
	"github.com/SahinS14/CognitoForge/pkg/ux"
	"github.com/SahinS14/CognitoForge/pkg/validation"
)

// =============================================================================
// DASHBOARD
// =============================================================================

// newDashboardCmd loads simulations, analytics and compute status
// concurrently and renders whatever arrived.
//
// # Description
//
// Each source is bounded by dashboard.source_timeout. A failing source
// is shown as unavailable next to the others; the command still exits 0.
func newDashboardCmd(c *cli) *cobra.Command {
	var repoID string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show simulations, severity analytics and compute status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if repoID != "" {
				id, err := validation.SanitizeRepoID(repoID)
				if err != nil {
					return err
				}
				repoID = id
			}
			a, err := c.load(cmd)
			if err != nil {
				return err
			}

			view := dashboard.NewAggregator(a.api, dashboard.Config{
				SourceTimeout: a.cfg.Dashboard.SourceTimeout,
				Logger:        a.log.Slog(),
			}).Load(cmd.Context())

			if repoID != "" && view.Simulations.Available() {
				runs := view.RunsFor(repoID)
				view.Simulations.Data.Simulations = runs
				view.Simulations.Data.Total = len(runs)
			}

			if err := a.emit(view, func(styled bool) string { return ux.RenderDashboard(view, styled) }); err != nil {
				return err
			}
			if down := view.Unavailable(); len(down) > 0 {
				a.out.Warning(fmt.Sprintf("Unavailable: %s", strings.Join(down, ", ")))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&repoID, "repo", "", "only list simulations for this repository")
	return cmd
}

// =============================================================================
// HEALTH
// =============================================================================

// newHealthCmd checks GET /health within api.health_timeout.
func newHealthCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.load(cmd)
			if err != nil {
				return err
			}

			status, failure := a.api.Health(cmd.Context()).Get()
			if failure != nil {
				return a.failed("Backend unreachable at "+a.transport.BaseURL(), failure)
			}
			if a.out.Mode() == ux.ModeJSON {
				return a.out.JSON(status)
			}
			a.out.Success(fmt.Sprintf("Backend at %s is healthy (status: %s)", a.transport.BaseURL(), status.Status))
			return nil
		},
	}
}

// =============================================================================
// HISTORY
// =============================================================================

// newHistoryCmd lists or clears locally recorded runs.
//
// # Examples
//
//	forge history
//	forge history demo-1
//	forge history demo-1 --clear
func newHistoryCmd(c *cli) *cobra.Command {
	var clearRuns bool

	cmd := &cobra.Command{
		Use:   "history [repo-id]",
		Short: "List runs recorded on this machine, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var repoID string
			if len(args) == 1 {
				id, err := validation.SanitizeRepoID(args[0])
				if err != nil {
					return err
				}
				repoID = id
			}
			if clearRuns && repoID == "" {
				return errors.New("--clear needs a repo-id")
			}
			a, err := c.load(cmd)
			if err != nil {
				return err
			}
			store, err := a.history()
			if err != nil {
				return err
			}

			if clearRuns {
				n, err := store.Delete(cmd.Context(), repoID)
				if err != nil {
					return err
				}
				if a.out.Mode() == ux.ModeJSON {
					return a.out.JSON(map[string]any{"repo_id": repoID, "deleted": n})
				}
				a.out.Success(fmt.Sprintf("Deleted %d run(s) for %s", n, repoID))
				return nil
			}

			runs, err := store.List(cmd.Context(), repoID)
			if err != nil {
				return err
			}
			return a.emit(runs, func(styled bool) string { return ux.RenderHistory(runs, styled) })
		},
	}
	cmd.Flags().BoolVar(&clearRuns, "clear", false, "delete the recorded runs for repo-id")
	return cmd
}
