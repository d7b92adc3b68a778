// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transport

import "time"

// Timeout constants for backend calls.
//
// DefaultTimeout is carried as configuration metadata: plain calls are not
// cut off by the transport unless Request.Timeout is set. Health checks are
// the exception and use Config.HealthTimeout, which defaults to
// HealthTimeout.
const (
	// MinTimeout is the floor for any configured timeout.
	MinTimeout = 1 * time.Second

	// DefaultTimeout is the advertised per-request budget.
	DefaultTimeout = 10 * time.Second

	// HealthTimeout is the default bound on GET /health.
	HealthTimeout = 5 * time.Second
)

// EnforceMinTimeout returns at least minimum.
//
// # Description
//
// Zero, negative or too-small values are raised to minimum so a bad
// config value can't turn into an unbounded wait.
//
// # Example
//
//	timeout := EnforceMinTimeout(cfg.API.HealthTimeout, MinTimeout)
func EnforceMinTimeout(requested, minimum time.Duration) time.Duration {
	if requested <= 0 || requested < minimum {
		return minimum
	}
	return requested
}

// EnforceDefaultTimeout returns defaultVal when requested is not positive.
func EnforceDefaultTimeout(requested, defaultVal time.Duration) time.Duration {
	if requested <= 0 {
		return defaultVal
	}
	return requested
}
