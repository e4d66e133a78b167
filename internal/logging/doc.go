// Package logging assembles structured slog loggers and formatting helpers used
// across recordlinker components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes helpers so pipeline code tags log lines with
// components, run identifiers, and event types in a consistent shape. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
