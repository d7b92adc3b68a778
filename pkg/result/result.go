// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package result provides the tagged Ok/Err envelope returned by every
// CognitoForge backend operation.
//
// A Result carries exactly one of a payload or a *Failure. The payload is
// unexported, so callers can only reach it through Value, Get or Match,
// all of which force a branch on the tag first:
//
//	res := api.GetLatestReport(ctx, "demo-1")
//	report, ok := res.Value()
//	if !ok {
//	    fmt.Println(res.Failure().Message)
//	    return
//	}
//	fmt.Println(report.Summary.Critical)
package result

import "fmt"

// Failure codes attached by the client itself. Backend-supplied codes are
// passed through untouched.
const (
	// CodeNetwork marks a request that never produced an HTTP response.
	CodeNetwork = "NETWORK_ERROR"

	// CodeParse marks a response body that could not be read or decoded.
	CodeParse = "PARSE_ERROR"

	// CodeCredential marks a credential acquisition failure when the
	// transport is configured to fail closed.
	CodeCredential = "CREDENTIAL_ERROR"

	// CodeWorkflow marks a failure raised by the orchestrator itself rather
	// than by one of its remote steps.
	CodeWorkflow = "WORKFLOW_ERROR"
)

// Failure is the Err variant of a Result.
//
// # Description
//
// Message is always human readable and non-empty. Status is the HTTP status
// code when the failure came from a response (0 otherwise). Code is an
// optional machine-readable discriminator.
type Failure struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f == nil {
		return "<nil failure>"
	}
	if f.Status != 0 {
		return fmt.Sprintf("%s (status %d)", f.Message, f.Status)
	}
	return f.Message
}

// Failuref builds a Failure with a formatted message and optional code.
func Failuref(code string, format string, args ...any) *Failure {
	return &Failure{Message: fmt.Sprintf(format, args...), Code: code}
}

// Result is the Ok/Err envelope.
//
// The zero value is an Err with a generic message, so a Result that was
// never populated can't be mistaken for success.
type Result[T any] struct {
	value   T
	failure *Failure
	ok      bool
}

// Ok wraps a successful payload.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Err wraps a failure. A nil failure is replaced by a generic one so the
// Err variant always carries a message.
func Err[T any](failure *Failure) Result[T] {
	if failure == nil {
		failure = &Failure{Message: "unknown error"}
	}
	return Result[T]{failure: failure}
}

// IsOk reports whether the Result holds a payload.
func (r Result[T]) IsOk() bool {
	return r.ok
}

// Value returns the payload and true for Ok, the zero value and false for Err.
func (r Result[T]) Value() (T, bool) {
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Get returns the payload and a nil failure for Ok, or the zero value and
// the failure for Err.
func (r Result[T]) Get() (T, *Failure) {
	if !r.ok {
		var zero T
		return zero, r.Failure()
	}
	return r.value, nil
}

// Failure returns the Err variant, or nil for Ok.
func (r Result[T]) Failure() *Failure {
	if r.ok {
		return nil
	}
	if r.failure == nil {
		return &Failure{Message: "unknown error"}
	}
	return r.failure
}

// Match calls exactly one of onOk or onErr.
func (r Result[T]) Match(onOk func(T), onErr func(*Failure)) {
	if r.ok {
		if onOk != nil {
			onOk(r.value)
		}
		return
	}
	if onErr != nil {
		onErr(r.Failure())
	}
}

// Propagate forwards the Err variant of r as a Result of another payload
// type. The *Failure is passed through unchanged (same pointer).
//
// It panics if r is Ok: there is no payload conversion to apply.
func Propagate[U, T any](r Result[T]) Result[U] {
	if r.ok {
		panic("result: Propagate called on an Ok result")
	}
	return Result[U]{failure: r.Failure()}
}

// Map converts an Ok payload with fn and propagates Err unchanged.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.ok {
		return Propagate[U](r)
	}
	return Ok(fn(r.value))
}
