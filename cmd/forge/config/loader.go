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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/SahinS14/CognitoForge/pkg/transport"
)

// Environment variables that override the config file.
const (
	EnvAPIURL       = transport.BaseURLEnv
	EnvToken        = "COGNITOFORGE_TOKEN"
	EnvClientID     = "COGNITOFORGE_CLIENT_ID"
	EnvClientSecret = "COGNITOFORGE_CLIENT_SECRET"
	EnvTokenURL     = "COGNITOFORGE_TOKEN_URL"
	EnvAudience     = "COGNITOFORGE_AUDIENCE"
	EnvLogLevel     = "COGNITOFORGE_LOG_LEVEL"
)

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

var validate = validator.New()

// DefaultPath returns ~/.cognitoforge/forge.yaml.
func DefaultPath() string {
	return filepath.Join(forgeHome(), "forge.yaml")
}

// Options controls where Load looks.
type Options struct {
	// Path of the YAML file. Empty uses DefaultPath. Created with defaults
	// when missing.
	Path string

	// EnvFile is a dotenv file whose values apply when the process
	// environment does not set them. Empty uses DefaultEnvFile; a missing
	// file is ignored.
	EnvFile string

	// Notify is told when a first-run config file is created.
	Notify func(path string)
}

// Load reads the config file, applies the environment and validates the
// result.
//
// # Description
//
// Precedence, lowest to highest: built-in defaults, YAML file, dotenv
// file, process environment. Command-line flags are applied by the caller
// on top of the returned value.
//
// # Outputs
//
//   - ForgeConfig: The merged configuration
//   - error: Non-nil if the file can't be created, read or parsed, or if a
//     value fails validation
func Load(opts Options) (ForgeConfig, error) {
	path := opts.Path
	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return ForgeConfig{}, err
		}
		if opts.Notify != nil {
			opts.Notify(path)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ForgeConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ForgeConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return ForgeConfig{}, err
	}
	applyEnv(&cfg, func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	})

	if err := Validate(cfg); err != nil {
		return ForgeConfig{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func Validate(cfg ForgeConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		path = DefaultEnvFile
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

func applyEnv(cfg *ForgeConfig, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.API.BaseURL, EnvAPIURL)
	set(&cfg.Auth.Token, EnvToken)
	set(&cfg.Auth.ClientID, EnvClientID)
	set(&cfg.Auth.ClientSecret, EnvClientSecret)
	set(&cfg.Auth.TokenURL, EnvTokenURL)
	set(&cfg.Auth.Audience, EnvAudience)
	set(&cfg.Logging.Level, EnvLogLevel)
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
