// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner shows an animated indicator with a progress bar while an
// analysis runs. In plain mode every update is printed once as a line;
// in JSON mode nothing is printed.
type Spinner struct {
	printer *Printer

	mu         sync.Mutex
	message    string
	percent    int
	running    bool
	frameIndex int
	stop       chan struct{}
	done       chan struct{}
}

// NewSpinner creates a spinner that writes through p.
func NewSpinner(p *Printer, message string) *Spinner {
	return &Spinner{printer: p, message: message}
}

// Start begins the animation. Calling Start twice is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	msg := s.message
	s.mu.Unlock()

	switch s.printer.mode {
	case ModeJSON:
		return
	case ModePlain:
		s.printer.println("PROGRESS: " + msg)
		return
	}

	go func() {
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		defer close(s.done)

		for {
			select {
			case <-s.stop:
				s.printer.mu.Lock()
				fmt.Fprint(s.printer.w, "\r\033[K")
				s.printer.mu.Unlock()
				return
			case <-ticker.C:
				s.draw()
			}
		}
	}()
}

func (s *Spinner) draw() {
	s.mu.Lock()
	frame := spinnerFrames[s.frameIndex]
	s.frameIndex = (s.frameIndex + 1) % len(spinnerFrames)
	line := fmt.Sprintf("\r\033[K%s %s %s",
		Styles.Highlight.Render(frame), ProgressBar(s.percent, 20, true), s.message)
	s.mu.Unlock()

	s.printer.mu.Lock()
	fmt.Fprint(s.printer.w, line)
	s.printer.mu.Unlock()
}

// Update sets the label and percentage. Its signature matches the
// orchestrator's progress callback.
func (s *Spinner) Update(label string, percent int) {
	s.mu.Lock()
	changed := label != s.message || percent != s.percent
	s.message = label
	s.percent = percent
	running := s.running
	s.mu.Unlock()

	if running && changed && s.printer.mode == ModePlain {
		s.printer.println(fmt.Sprintf("PROGRESS: %3d%% %s", percent, label))
	}
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	if s.printer.mode != ModeRich {
		return
	}
	close(s.stop)
	<-s.done
}

// StopWithSuccess stops and prints a success message
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	s.printer.Success(message)
}

// StopWithError stops and prints an error message
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	s.printer.Error(message)
}
