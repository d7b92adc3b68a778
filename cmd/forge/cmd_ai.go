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
	"strings"

	"github.com/spf13/cobra"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/ux"
)

// newInsightCmd fetches the AI explanation for a repository.
//
// Sends the configured credential when one is set. A repository the
// backend has never seen is not an error: the insight reports
// source "not_found".
func newInsightCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "insight <repo-id>",
		Short: "Show the AI insight for a repository",
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

			insight, failure := a.api.GetAIInsight(cmd.Context(), in.RepoID).Get()
			if failure != nil {
				return a.failed("Insight unavailable", failure)
			}
			return a.emit(insight, func(styled bool) string { return ux.RenderInsight(insight, styled) })
		},
	}
}

// newAskCmd sends a free-form question to the AI endpoint.
//
// # Examples
//
//	forge ask "Which MITRE technique covers credential dumping?"
//	forge ask explain T1552 --json
func newAskCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <prompt...>",
		Short: "Ask the AI assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := promptInput{Prompt: strings.TrimSpace(strings.Join(args, " "))}
			if err := validateInput(in); err != nil {
				return err
			}
			a, err := c.load(cmd)
			if err != nil {
				return err
			}

			answer, failure := a.api.QueryAI(cmd.Context(), in.Prompt).Get()
			if failure != nil {
				return a.failed("AI query failed", failure)
			}
			return a.emit(answer, func(styled bool) string { return renderAnswer(answer, styled) })
		},
	}
}

func renderAnswer(answer forgeapi.AIAnswer, styled bool) string {
	if answer.Model == "" {
		return answer.Response
	}
	model := "model: " + answer.Model
	if styled {
		model = ux.Styles.Muted.Render(model)
	}
	return answer.Response + "\n\n" + model
}
