package main

import (
	"fmt"
	"strings"

	"recordlinker/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const checkNameWidth = 20

// renderChecks lists each result under a header counting the passed checks.
// Only the status label is colored.
func renderChecks(results []preflight.Result, colorize bool) string {
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Checks: %d of %d passed\n", passed, len(results))
	for _, r := range results {
		b.WriteString(renderCheckLine(r, colorize))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCheckLine(r preflight.Result, colorize bool) string {
	label, color := "FAIL", ansiRed
	if r.Passed {
		label, color = "OK", ansiGreen
	}
	if colorize {
		label = color + label + ansiReset
	}
	line := fmt.Sprintf("  %-*s [%s]", checkNameWidth, r.Name+":", label)
	if r.Detail != "" {
		line += " " + r.Detail
	}
	return line
}
