// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"rich", ModeRich},
		{"FULL", ModeRich},
		{"json", ModeJSON},
		{"machine", ModeJSON},
		{"plain", ModePlain},
		{"", ModePlain},
		{"sparkly", ModePlain},
	}
	for _, tt := range tests {
		if got := ParseMode(tt.input); got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDetectMode_EnvWins(t *testing.T) {
	t.Setenv(ModeEnv, "json")
	if got := DetectMode(&bytes.Buffer{}); got != ModeJSON {
		t.Errorf("expected json, got %q", got)
	}
}

func TestDetectMode_NonTerminalIsPlain(t *testing.T) {
	t.Setenv(ModeEnv, "")
	if got := DetectMode(&bytes.Buffer{}); got != ModePlain {
		t.Errorf("expected plain, got %q", got)
	}
}
