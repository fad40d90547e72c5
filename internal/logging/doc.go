// Package logging assembles structured slog loggers used across screenrec.
//
// It owns the console and JSON handlers, level parsing, file fan-out, and
// context helpers that tag log lines with the active recording session. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
