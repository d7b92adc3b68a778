// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"context"
	"fmt"
	"sync"
)

// flight is one shared execution of the workflow and the callers waiting
// on it. Its context is detached from every caller and cancelled only
// when the last waiter leaves.
type flight struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	waiters int
	label   string
	percent int
	subs    map[*subscriber]struct{}
}

// subscriber is one caller's view of a flight.
type subscriber struct {
	onProgress ProgressFunc
	failed     chan struct{}
	panicValue any
}

func flightKey(repoID, repoURL string) string {
	return repoID + "\x00" + repoURL
}

func newFlight(parent context.Context) *flight {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &flight{ctx: ctx, cancel: cancel, subs: make(map[*subscriber]struct{})}
}

// subscribe adds a waiter and replays the last checkpoint the flight
// reached, so a late caller's percentages still never decrease.
func (f *flight) subscribe(onProgress ProgressFunc) *subscriber {
	sub := &subscriber{onProgress: onProgress, failed: make(chan struct{})}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waiters++
	f.subs[sub] = struct{}{}
	if f.percent > 0 {
		f.deliver(sub, f.label, f.percent)
	}
	return sub
}

// unsubscribe removes sub and reports whether it was the last waiter.
// No progress reaches sub after it returns.
func (f *flight) unsubscribe(sub *subscriber) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, sub)
	f.waiters--
	return f.waiters == 0
}

// broadcast is the ProgressFunc of the shared run.
func (f *flight) broadcast(label string, percent int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.label, f.percent = label, percent
	for sub := range f.subs {
		f.deliver(sub, label, percent)
	}
}

// deliver calls sub's callback with f.mu held. A panicking callback
// fails only its own caller.
func (f *flight) deliver(sub *subscriber, label string, percent int) {
	if sub.onProgress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			sub.panicValue = r
			sub.onProgress = nil
			delete(f.subs, sub)
			close(sub.failed)
		}
	}()
	sub.onProgress(label, percent)
}

// waiters reports how many callers wait on the run for key.
func (a *Analyzer) waiters(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := a.flights[key]
	if !ok {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waiters
}

func (s *subscriber) panicMessage() string {
	return fmt.Sprint(s.panicValue)
}
