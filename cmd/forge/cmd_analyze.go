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

	"github.com/spf13/cobra"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/orchestrator"
	"github.com/SahinS14/CognitoForge/pkg/result"
	"github.com/SahinS14/CognitoForge/pkg/ux"
)

// =============================================================================
// ANALYZE
// =============================================================================

// newAnalyzeCmd registers a repository and simulates an attack on it.
//
// # Description
//
// Runs the complete analysis workflow with a live progress indicator:
// upload (25%), simulate (50%), report (75%), complete (100%). The first
// failing step stops the workflow and its error is shown unchanged. A
// successful run is stored in the local history unless --no-history.
//
// # Examples
//
//	forge analyze demo-1 https://github.com/example/demo
//	forge analyze demo-1 --json
func newAnalyzeCmd(c *cli) *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "analyze <repo-id> [repo-url]",
		Short: "Register a repository and run a complete attack simulation",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := analyzeInput{RepoID: args[0]}
			if len(args) > 1 {
				in.RepoURL = args[1]
			}
			if err := validateInput(in); err != nil {
				return err
			}

			a, err := c.load(cmd)
			if err != nil {
				return err
			}

			cfg := orchestrator.Config{
				FinalizeDelay: a.cfg.Analysis.FinalizeDelay,
				Logger:        a.log.Slog(),
			}
			if !noHistory {
				store, err := a.history()
				switch {
				case err == nil:
					cfg.Recorder = store
				case !errors.Is(err, errHistoryDisabled):
					a.log.Warn("history unavailable, run will not be recorded", "error", err)
				}
			}
			analyzer := orchestrator.NewAnalyzer(a.api, cfg)

			spinner := ux.NewSpinner(a.out, "Analyzing "+in.RepoID)
			spinner.Start()
			rec, failure := analyzer.RunCompleteAnalysis(cmd.Context(), in.RepoID, in.RepoURL, spinner.Update).Get()
			if failure != nil {
				spinner.Stop()
				return a.failed("Analysis failed", failure)
			}
			spinner.StopWithSuccess("Analysis complete")

			return a.emit(rec, func(styled bool) string { return ux.RenderRecord(rec, styled) })
		},
	}
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the local history")
	return cmd
}

// =============================================================================
// SIMULATE
// =============================================================================

// newSimulateCmd runs a simulation for an already registered repository.
//
// # Description
//
// The backend answers repeated requests inside its dedup window with the
// previous run; --force asks for a fresh one.
func newSimulateCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "simulate <repo-id>",
		Short: "Run an attack simulation for a registered repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := repoInput{RepoID: args[0]}
			if err := validateInput(in); err != nil {
				return err
			}
			a, err := c.load(cmd)
			if err != nil {
				return err
			}

			rec, failure := a.api.RunSimulation(cmd.Context(), in.RepoID, force).Get()
			if failure != nil {
				return a.failed("Simulation failed", failure)
			}
			a.record(cmd.Context(), rec)

			return a.emit(rec, func(styled bool) string { return ux.RenderRecord(rec, styled) })
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the backend's simulation cache")
	return cmd
}

// =============================================================================
// REPORT
// =============================================================================

// newReportCmd shows the report for the latest or a specific run.
//
// # Description
//
// Reads from the backend by default. With --local the report is built
// from the local history instead, which works offline.
//
// # Examples
//
//	forge report demo-1
//	forge report demo-1 --run demo-1_1700000000_ab12cd34
//	forge report demo-1 --local
func newReportCmd(c *cli) *cobra.Command {
	var (
		runID string
		local bool
	)

	cmd := &cobra.Command{
		Use:   "report <repo-id>",
		Short: "Show the report for a repository's latest or given run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := repoInput{RepoID: args[0], RunID: runID}
			if err := validateInput(in); err != nil {
				return err
			}
			a, err := c.load(cmd)
			if err != nil {
				return err
			}

			var report forgeapi.ReportSummary
			if local {
				rec, err := localRecord(cmd, a, in)
				if err != nil {
					return err
				}
				report = forgeapi.BuildReport(rec)
			} else {
				var res result.Result[forgeapi.ReportSummary]
				if in.RunID != "" {
					res = a.api.GetReport(cmd.Context(), in.RepoID, in.RunID)
				} else {
					res = a.api.GetLatestReport(cmd.Context(), in.RepoID)
				}
				rep, failure := res.Get()
				if failure != nil {
					return a.failed("Report unavailable", failure)
				}
				report = rep
			}

			return a.emit(report, func(styled bool) string { return ux.RenderReport(report, styled) })
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id (default: latest)")
	cmd.Flags().BoolVar(&local, "local", false, "read from the local history instead of the backend")
	return cmd
}

func localRecord(cmd *cobra.Command, a *app, in repoInput) (forgeapi.SimulationRecord, error) {
	store, err := a.history()
	if err != nil {
		return forgeapi.SimulationRecord{}, err
	}
	if in.RunID != "" {
		return store.Get(cmd.Context(), in.RepoID, in.RunID)
	}
	return store.Latest(cmd.Context(), in.RepoID)
}
