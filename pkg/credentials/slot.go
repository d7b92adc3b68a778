// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package credentials supplies short-lived bearer tokens to the transport.
//
// # Architecture
//
// The transport never owns a token. It owns a Source (usually a *Slot) and
// asks it for a Getter on every privileged call:
//
//	identity integration ──SignIn──▶ Slot ◀──Get── transport.Client
//	                      ──SignOut─▶ (cleared)
//
// The Getter performs the actual acquisition (OAuth2 client credentials,
// static token, ...). Token caching and refresh belong to the Getter's
// backing SDK; this package never stores the token string itself.
//
// # Thread Safety
//
// Slot and Session are safe for concurrent use. Resource operations only
// read the slot; only the identity integration writes it.
package credentials

import (
	"context"
	"sync"
)

// Getter acquires an access token.
//
// An empty token with a nil error means "no credential available"; the
// caller proceeds unauthenticated.
type Getter func(ctx context.Context) (string, error)

// Source hands out the currently installed Getter, or nil.
type Source interface {
	Get() Getter
}

// Slot is a single replaceable Getter holder, initially empty.
type Slot struct {
	mu     sync.RWMutex
	getter Getter
}

// NewSlot returns an empty slot (unauthenticated state).
func NewSlot() *Slot {
	return &Slot{}
}

// Install replaces the current Getter.
func (s *Slot) Install(getter Getter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getter = getter
}

// Get returns the installed Getter or nil when none is installed.
func (s *Slot) Get() Getter {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getter
}

// Clear empties the slot so a stale Getter is never used after sign-out.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getter = nil
}

// Installed reports whether a Getter is present.
func (s *Slot) Installed() bool {
	return s.Get() != nil
}

var _ Source = (*Slot)(nil)
