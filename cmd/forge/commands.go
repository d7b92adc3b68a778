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
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/SahinS14/CognitoForge/cmd/forge/config"
	"github.com/SahinS14/CognitoForge/pkg/transport"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFile    string
	baseURL    string
	jsonOutput bool
	logLevel   string
}

// cli is one invocation: flags, writers and the lazily built app.
type cli struct {
	opts   globalOptions
	stdout io.Writer
	stderr io.Writer
	app    *app
}

// load builds the app on the first call and returns it afterwards.
func (c *cli) load(cmd *cobra.Command) (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := newApp(cmd.Context(), c.opts, c.stdout, c.stderr)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

// run executes the command line and returns the process exit code.
//
// # Description
//
// Failures already rendered by a command (backend errors in an error box)
// are not printed again; any other error is printed once to stderr.
//
// # Outputs
//
//   - int: 0 on success, 1 on any error
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if c.app != nil {
		c.app.Close()
	}
	if err == nil {
		return 0
	}
	var reported *reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// newRootCmd builds the forge command tree.
//
// # Examples
//
//	forge analyze demo-1 https://github.com/example/demo
//	forge report demo-1 --run demo-1_1700000000_ab12cd34
//	forge dashboard --json
//	forge --base-url http://localhost:8000 health
func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "forge",
		Short: "Run and inspect CognitoForge attack simulations",
		Long: `forge registers repositories with a CognitoForge backend, runs attack
simulations against them and reports the results.

Configuration lives in ~/.cognitoforge/forge.yaml (created on first run).
Environment variables and a .env file in the working directory override it;
flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.opts.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.StringVar(&c.opts.envFile, "env-file", "", "dotenv file (default "+config.DefaultEnvFile+")")
	flags.StringVar(&c.opts.baseURL, "base-url", "", "backend URL (overrides "+transport.BaseURLEnv+")")
	flags.BoolVar(&c.opts.jsonOutput, "json", false, "print machine-readable JSON")
	flags.StringVar(&c.opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newAnalyzeCmd(c),
		newSimulateCmd(c),
		newReportCmd(c),
		newInsightCmd(c),
		newAskCmd(c),
		newDashboardCmd(c),
		newHealthCmd(c),
		newHistoryCmd(c),
	)
	return root
}
