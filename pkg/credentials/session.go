// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package credentials

import (
	"log/slog"
	"sync"
)

// Session is the identity integration's handle on a Slot.
//
// # Description
//
// SignIn installs a (silenced) Getter once the identity provider has
// confirmed the session. SignOut clears the slot. Repeated SignIn calls
// within one session are ignored so the Getter is installed exactly once.
type Session struct {
	slot   *Slot
	logger *slog.Logger

	mu     sync.Mutex
	active bool
}

// NewSession binds a session to the slot the transport reads.
func NewSession(slot *Slot, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{slot: slot, logger: logger}
}

// SignIn installs getter for an authenticated session.
//
// Returns false when a session is already active.
func (s *Session) SignIn(getter Getter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.slot.Install(Silent(getter, s.logger))
	s.active = true
	s.logger.Debug("credential supplier installed")
	return true
}

// SignOut clears the slot.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot.Clear()
	if s.active {
		s.logger.Debug("credential supplier cleared")
	}
	s.active = false
}

// Active reports whether SignIn has been called since the last SignOut.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
