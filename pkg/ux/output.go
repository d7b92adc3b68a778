// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the forge CLI.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/SahinS14/CognitoForge/pkg/forgeapi"
	"github.com/SahinS14/CognitoForge/pkg/result"
)

// CognitoForge palette - forge embers over graphite
var (
	ColorEmber    = lipgloss.Color("#FF7A3D") // Ember - titles, highlights
	ColorFlame    = lipgloss.Color("#F2542D") // Flame - brand accent
	ColorSteel    = lipgloss.Color("#7D8FA3") // Steel - borders
	ColorGraphite = lipgloss.Color("#4A5160") // Graphite - muted text

	ColorSuccess = lipgloss.Color("#3DDC97")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = ColorGraphite

	// Severity tiers
	ColorCritical = lipgloss.Color("#C0392B")
	ColorHigh     = lipgloss.Color("#E67E22")
	ColorMedium   = lipgloss.Color("#F1C40F")
	ColorLow      = lipgloss.Color("#5DADE2")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box      lipgloss.Style
	ErrorBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorEmber),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorFlame),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorMuted),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorEmber).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSteel).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// SeverityStyle returns the style for a severity tier.
func SeverityStyle(sev forgeapi.Severity) lipgloss.Style {
	switch forgeapi.ParseSeverity(string(sev)) {
	case forgeapi.SeverityCritical:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorCritical)
	case forgeapi.SeverityHigh:
		return lipgloss.NewStyle().Foreground(ColorHigh)
	case forgeapi.SeverityLow:
		return lipgloss.NewStyle().Foreground(ColorLow)
	default:
		return lipgloss.NewStyle().Foreground(ColorMedium)
	}
}

// Icon provides status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes styled output to one writer. Safe for concurrent use.
type Printer struct {
	mu   sync.Mutex
	w    io.Writer
	mode Mode
}

// NewPrinter returns a Printer for w in the given mode.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode}
}

// Mode returns the printer's mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) rich() bool {
	return p.mode == ModeRich
}

func (p *Printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

// Print writes s followed by a newline. Suppressed in JSON mode.
func (p *Printer) Print(s string) {
	if p.mode == ModeJSON {
		return
	}
	p.println(s)
}

// Title prints a styled title
func (p *Printer) Title(text string) {
	switch p.mode {
	case ModeJSON:
		return
	case ModeRich:
		p.println(Styles.Title.Render(text))
	default:
		p.println("== " + text + " ==")
	}
}

// Success prints a success line
func (p *Printer) Success(text string) {
	p.status(IconSuccess, "OK", Styles.Success, text)
}

// Warning prints a warning line
func (p *Printer) Warning(text string) {
	p.status(IconWarning, "WARN", Styles.Warning, text)
}

// Error prints an error line
func (p *Printer) Error(text string) {
	p.status(IconError, "ERROR", Styles.Error, text)
}

// Info prints an informational line
func (p *Printer) Info(text string) {
	p.status(IconArrow, "INFO", Styles.Subtitle, text)
}

func (p *Printer) status(icon Icon, tag string, style lipgloss.Style, text string) {
	switch p.mode {
	case ModeJSON:
		return
	case ModeRich:
		p.println(icon.Render() + " " + style.Render(text))
	default:
		p.println(tag + ": " + text)
	}
}

// Box prints content in a rounded box
func (p *Printer) Box(title, content string) {
	switch p.mode {
	case ModeJSON:
		return
	case ModeRich:
		p.println(Styles.Box.Render(Styles.Title.Render(title) + "\n" + content))
	default:
		p.println(title + "\n" + content)
	}
}

// Failure prints a Failure in an error box.
func (p *Printer) Failure(title string, f *result.Failure) {
	if p.mode == ModeJSON {
		_ = p.JSON(map[string]any{"success": false, "error": f})
		return
	}
	body := FormatFailure(f)
	if p.rich() {
		p.println(Styles.ErrorBox.Render(Styles.Error.Bold(true).Render(title) + "\n" + body))
		return
	}
	p.println("ERROR: " + title + "\n" + body)
}

// JSON writes v as an indented JSON document.
func (p *Printer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	p.println(string(data))
	return nil
}

// FormatFailure renders the message, status and code of f on separate
// lines, omitting unset fields.
func FormatFailure(f *result.Failure) string {
	if f == nil {
		return "unknown error"
	}
	lines := []string{f.Message}
	if f.Status != 0 {
		lines = append(lines, fmt.Sprintf("status: %d", f.Status))
	}
	if f.Code != "" {
		lines = append(lines, "code: "+f.Code)
	}
	return strings.Join(lines, "\n")
}

// ProgressBar renders a percentage as a bar of the given width.
func ProgressBar(percent, width int, styled bool) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	full := strings.Repeat("█", filled)
	empty := strings.Repeat("░", width-filled)
	if styled {
		full = Styles.Success.Render(full)
		empty = Styles.Muted.Render(empty)
	}
	return fmt.Sprintf("%s %3d%%", full+empty, percent)
}
