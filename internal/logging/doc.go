// Package logging assembles structured slog loggers and attribute helpers used
// across sedeck.
//
// It owns the console and JSON handlers, level parsing, and writer fan-out to
// stdout plus the optional log file. Context helpers tag log lines with the
// cycle run ID so fetch and commit output can be correlated after the fact.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
