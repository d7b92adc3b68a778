// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ModeEnv overrides output mode detection.
const ModeEnv = "FORGE_OUTPUT"

// Mode controls how richly output is rendered.
type Mode string

const (
	// ModeRich enables colors, boxes and animated progress.
	ModeRich Mode = "rich"

	// ModePlain prints unstyled line-oriented text suitable for logs and pipes.
	ModePlain Mode = "plain"

	// ModeJSON prints machine-readable JSON documents only.
	ModeJSON Mode = "json"
)

// ParseMode converts a string to a Mode. Unknown values map to ModePlain.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rich", "full", "color":
		return ModeRich
	case "json", "machine":
		return ModeJSON
	default:
		return ModePlain
	}
}

// DetectMode picks a mode for w: the FORGE_OUTPUT environment variable
// wins, then rich for terminals and plain for everything else.
func DetectMode(w io.Writer) Mode {
	if env := os.Getenv(ModeEnv); env != "" {
		return ParseMode(env)
	}
	if isTerminal(w) {
		return ModeRich
	}
	return ModePlain
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
