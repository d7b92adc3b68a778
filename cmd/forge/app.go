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
	"time"

	"github.com/SahinS14/CognitoForge/cmd/forge/config"
	"github.com/SahinS14/CognitoForge/pkg/credentials"
	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/history"
	"github.com/SahinS14/CognitoForge/pkg/logging"
	"github.com/SahinS14/CognitoForge/pkg/result"
	"github.com/SahinS14/CognitoForge/pkg/telemetry"
	"github.com/SahinS14/CognitoForge/pkg/transport"
	"github.com/SahinS14/CognitoForge/pkg/ux"
)

// telemetryShutdownTimeout bounds the exporter flush on exit.
const telemetryShutdownTimeout = 5 * time.Second

// errHistoryDisabled is returned by commands that need the local store
// when history.enabled is false.
var errHistoryDisabled = errors.New("local history is disabled (history.enabled: false)")

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg       config.ForgeConfig
	out       *ux.Printer
	log       *logging.Logger
	session   *credentials.Session
	transport *transport.Client
	api       *forgeapi.Client

	shutdown func(context.Context) error
	store    *history.Store
}

// newApp loads configuration and wires the client stack.
//
// # Description
//
// Order: config file and environment, then flags; logger; telemetry;
// credential session; transport and resource client. The history store
// is opened lazily because badger takes a directory lock.
//
// # Inputs
//
//   - ctx: Lifetime of the OAuth2 token source
//   - opts: Global flags
//   - stdout: Command output
//   - stderr: Console log sink
//
// # Outputs
//
//   - *app: Ready to use. Call Close when the command returns.
//   - error: Invalid configuration or credentials
func newApp(ctx context.Context, opts globalOptions, stdout, stderr io.Writer) (*app, error) {
	mode := ux.DetectMode(stdout)
	if opts.jsonOutput {
		mode = ux.ModeJSON
	}
	out := ux.NewPrinter(stdout, mode)

	cfg, err := config.Load(config.Options{
		Path:    opts.configPath,
		EnvFile: opts.envFile,
		Notify: func(path string) {
			out.Info(fmt.Sprintf("Created default configuration at %s", path))
		},
	})
	if err != nil {
		return nil, err
	}
	if opts.baseURL != "" {
		cfg.API.BaseURL = opts.baseURL
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "forge",
		JSON:    cfg.Logging.JSON,
		Console: stderr,
	})

	a := &app{cfg: cfg, out: out, log: logger}

	tcfg := cfg.Telemetry
	tcfg.BaseURL = transport.ResolveBaseURL(cfg.API.BaseURL)
	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
	} else {
		a.shutdown = shutdown
	}

	slot := credentials.NewSlot()
	a.session = credentials.NewSession(slot, logger.Slog())
	if err := signIn(ctx, a.session, cfg.Auth); err != nil {
		a.Close()
		return nil, err
	}

	a.transport = transport.New(transport.Config{
		BaseURL:           cfg.API.BaseURL,
		DefaultTimeout:    cfg.API.DefaultTimeout,
		HealthTimeout:     cfg.API.HealthTimeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		FailOpen:          cfg.API.FailOpen,
	}, slot, logger.Slog())
	a.api = forgeapi.New(a.transport)

	logger.Debug("client ready", "base_url", a.transport.BaseURL(), "authenticated", a.session.Active())
	return a, nil
}

// signIn installs a credential getter when auth is configured. Without
// one the AI endpoints are called unauthenticated.
func signIn(ctx context.Context, session *credentials.Session, auth config.AuthConfig) error {
	switch {
	case auth.Token != "":
		session.SignIn(credentials.Static(auth.Token))
	case auth.HasClientCredentials():
		getter, err := credentials.ClientCredentials(ctx, credentials.ClientCredentialsConfig{
			ClientID:     auth.ClientID,
			ClientSecret: auth.ClientSecret,
			TokenURL:     auth.TokenURL,
			Audience:     auth.Audience,
			Scopes:       auth.Scopes,
		})
		if err != nil {
			return fmt.Errorf("configure credentials: %w", err)
		}
		session.SignIn(getter)
	}
	return nil
}

// history opens the local run store on first use. Returns
// errHistoryDisabled when history is turned off.
func (a *app) history() (*history.Store, error) {
	if !a.cfg.History.Enabled {
		return nil, errHistoryDisabled
	}
	if a.store != nil {
		return a.store, nil
	}
	cfg := history.DefaultConfig()
	if a.cfg.History.Path != "" {
		cfg.Path = a.cfg.History.Path
	}
	cfg.Logger = a.log.Slog()
	store, err := history.Open(cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// record stores rec in the local history. Failures are logged only.
func (a *app) record(ctx context.Context, rec forgeapi.SimulationRecord) {
	store, err := a.history()
	if errors.Is(err, errHistoryDisabled) {
		return
	}
	if err == nil {
		err = store.Record(ctx, rec)
	}
	if err != nil {
		a.log.Warn("run not recorded in history", "repo_id", rec.RepoID, "run_id", rec.RunID, "error", err)
	}
}

// emit prints v as JSON in JSON mode and render's output otherwise.
func (a *app) emit(v any, render func(styled bool) string) error {
	if a.out.Mode() == ux.ModeJSON {
		return a.out.JSON(v)
	}
	a.out.Print(render(a.out.Mode() == ux.ModeRich))
	return nil
}

// failed prints f and returns an error that run will not print again.
func (a *app) failed(title string, f *result.Failure) error {
	a.out.Failure(title, f)
	return &reportedError{failure: f}
}

// Close releases the history store, the credential session, the
// telemetry exporters and the log file.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close history", "error", err)
		}
		a.store = nil
	}
	if a.session != nil {
		a.session.SignOut()
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		if err := a.shutdown(ctx); err != nil {
			a.log.Warn("telemetry shutdown", "error", err)
		}
		cancel()
		a.shutdown = nil
	}
	_ = a.log.Close()
}

// reportedError marks a failure already shown to the user.
type reportedError struct {
	failure *result.Failure
}

func (e *reportedError) Error() string {
	return e.failure.Error()
}

func (e *reportedError) Unwrap() error {
	return e.failure
}
