// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/SahinS14/CognitoForge/pkg/telemetry"
	"github.com/SahinS14/CognitoForge/pkg/transport"
)

type ForgeConfig struct {
	// API: where the backend lives and how the transport behaves
	API APIConfig `yaml:"api"`

	// Auth: optional credential for the AI endpoints
	Auth AuthConfig `yaml:"auth"`

	Analysis  AnalysisConfig   `yaml:"analysis"`
	Dashboard DashboardConfig  `yaml:"dashboard"`
	History   HistoryConfig    `yaml:"history"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Logging   LoggingConfig    `yaml:"logging"`
}

type APIConfig struct {
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	DefaultTimeout    time.Duration `yaml:"default_timeout" validate:"gte=0"`
	HealthTimeout     time.Duration `yaml:"health_timeout" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	FailOpen          bool          `yaml:"fail_open"`
}

// AuthConfig holds either a static token or OAuth2 client credentials.
// When both are set the static token wins.
type AuthConfig struct {
	Token        string   `yaml:"token,omitempty"`
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	TokenURL     string   `yaml:"token_url,omitempty" validate:"omitempty,url"`
	Audience     string   `yaml:"audience,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// HasClientCredentials reports whether the OAuth2 fields are filled in.
func (a AuthConfig) HasClientCredentials() bool {
	return a.ClientID != "" && a.ClientSecret != "" && a.TokenURL != ""
}

type AnalysisConfig struct {
	// FinalizeDelay is the pause before the report stage. Negative disables it.
	FinalizeDelay time.Duration `yaml:"finalize_delay"`
}

type DashboardConfig struct {
	SourceTimeout time.Duration `yaml:"source_timeout" validate:"gte=0"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// forgeHome returns ~/.cognitoforge, or a relative fallback without a home.
func forgeHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cognitoforge"
	}
	return filepath.Join(home, ".cognitoforge")
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ForgeConfig {
	home := forgeHome()
	return ForgeConfig{
		API: APIConfig{
			BaseURL:        transport.DefaultBaseURL,
			DefaultTimeout: transport.DefaultTimeout,
			HealthTimeout:  transport.HealthTimeout,
			FailOpen:       true,
		},
		Analysis: AnalysisConfig{
			FinalizeDelay: 500 * time.Millisecond,
		},
		Dashboard: DashboardConfig{
			SourceTimeout: transport.DefaultTimeout,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(home, "history"),
		},
		Telemetry: telemetry.Config{
			ServiceName:    "forge",
			ServiceVersion: telemetry.Version,
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterNone,
			OTLPEndpoint:   "localhost:4317",
		},
		Logging: LoggingConfig{
			Level: "warn",
			Dir:   filepath.Join(home, "logs"),
		},
	}
}
