// Package cliui carries flowstate's terminal-facing concerns: TTY/color
// detection and styled tables, grounded on the teacher's internal/ui
// package.
package cliui

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is connected to a TTY.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ColorEnabled reports whether styled output should be emitted: stdout
// must be a TTY and termenv must not have detected a "no color" profile
// (NO_COLOR, dumb terminals, non-TTY pipes).
func ColorEnabled(noColorFlag bool) bool {
	if noColorFlag || !IsTerminal() {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}
