// Package logging assembles structured slog loggers and formatting helpers used
// across strmhook.
//
// It owns the console/JSON handlers, centralizes level and output plumbing, and
// exposes context-aware helpers so generation code can tag log lines with run
// identifiers and modes. When a JSON file is configured every record is also
// teed there, so the state directory keeps a machine-readable log next to the
// console stream.
package logging
