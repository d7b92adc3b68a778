// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dashboard

import (
	"fmt"
	"time"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/result"
)

// State is the render state of one section.
type State int

const (
	// StateLoading means the source has not answered yet.
	StateLoading State = iota

	// StateAvailable means Data holds the source's payload.
	StateAvailable

	// StateUnavailable means the source failed; Reason says why.
	StateUnavailable
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "loading":
		*s = StateLoading
	case "available":
		*s = StateAvailable
	case "unavailable":
		*s = StateUnavailable
	default:
		return fmt.Errorf("unknown section state %q", text)
	}
	return nil
}

// Section is one independently loaded part of the dashboard.
type Section[T any] struct {
	State  State  `json:"state"`
	Data   T      `json:"data"`
	Reason string `json:"reason,omitempty"`
	Status int    `json:"status,omitempty"`
	Code   string `json:"code,omitempty"`
}

// Available reports whether Data is populated.
func (s Section[T]) Available() bool {
	return s.State == StateAvailable
}

// SectionFrom converts a Result into a settled Section.
func SectionFrom[T any](r result.Result[T]) Section[T] {
	var s Section[T]
	r.Match(
		func(data T) {
			s = Section[T]{State: StateAvailable, Data: data}
		},
		func(f *result.Failure) {
			s = Section[T]{
				State:  StateUnavailable,
				Reason: f.Message,
				Status: f.Status,
				Code:   f.Code,
			}
		},
	)
	return s
}

// CompositeView merges the three dashboard sources.
type CompositeView struct {
	Simulations Section[forgeapi.SimulationList] `json:"simulations"`
	Analytics   Section[forgeapi.SeverityCounts] `json:"analytics"`
	Compute     Section[forgeapi.ComputeStatus]  `json:"compute"`
	LoadedAt    time.Time                        `json:"loaded_at"`
}

// NewCompositeView returns a view with every section loading.
func NewCompositeView() CompositeView {
	return CompositeView{
		Simulations: Section[forgeapi.SimulationList]{State: StateLoading},
		Analytics:   Section[forgeapi.SeverityCounts]{State: StateLoading},
		Compute:     Section[forgeapi.ComputeStatus]{State: StateLoading},
	}
}

// States returns the state of each section keyed by source name.
func (v CompositeView) States() map[string]State {
	return map[string]State{
		SourceSimulations: v.Simulations.State,
		SourceAnalytics:   v.Analytics.State,
		SourceCompute:     v.Compute.State,
	}
}

// Unavailable lists the names of failed sources in a fixed order.
func (v CompositeView) Unavailable() []string {
	var out []string
	if v.Simulations.State == StateUnavailable {
		out = append(out, SourceSimulations)
	}
	if v.Analytics.State == StateUnavailable {
		out = append(out, SourceAnalytics)
	}
	if v.Compute.State == StateUnavailable {
		out = append(out, SourceCompute)
	}
	return out
}

// RunsFor returns the listed simulations of one repository.
func (v CompositeView) RunsFor(repoID string) []forgeapi.SimulationRecord {
	if !v.Simulations.Available() {
		return nil
	}
	var runs []forgeapi.SimulationRecord
	for _, rec := range v.Simulations.Data.Simulations {
		if rec.RepoID == repoID {
			runs = append(runs, rec)
		}
	}
	return runs
}
