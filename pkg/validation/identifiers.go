// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks identifiers before they are used in request
// paths or storage keys.
//
// Repository and run ids are interpolated into backend URLs
// (/reports/<repo_id>/<run_id>) and history keys (run/<repo_id>/<run_id>).
// Restricting both to letters, digits, hyphens and underscores prevents
// path traversal and keeps one repository's key prefix from matching
// another's.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern is the backend's repo_id rule.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const (
	// MaxRepoIDLength bounds repository ids accepted by the CLI.
	MaxRepoIDLength = 128

	// MaxRunIDLength bounds run ids, which embed the repository id.
	MaxRunIDLength = 256
)

// IsIdentifier reports whether s is a non-empty, path-safe identifier.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ValidateRepoID validates a repository id.
//
// Example:
//
//	if err := validation.ValidateRepoID(repoID); err != nil {
//	    return fmt.Errorf("register: %w", err)
//	}
func ValidateRepoID(repoID string) error {
	return validateIdentifier("repo id", repoID, MaxRepoIDLength)
}

// ValidateRunID validates a run id.
func ValidateRunID(runID string) error {
	return validateIdentifier("run id", runID, MaxRunIDLength)
}

// SanitizeRepoID trims surrounding whitespace and validates the result.
func SanitizeRepoID(repoID string) (string, error) {
	trimmed := strings.TrimSpace(repoID)
	if err := ValidateRepoID(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

func validateIdentifier(kind, s string, maxLen int) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	if len(s) > maxLen {
		return fmt.Errorf("%s is longer than %d characters", kind, maxLen)
	}
	if !IsIdentifier(s) {
		return fmt.Errorf("invalid %s %q: use only letters, digits, hyphens and underscores", kind, s)
	}
	return nil
}
