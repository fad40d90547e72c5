// Package settings persists user-facing capture preferences and recording
// history in a single SQLite database.
//
// The key-value table backs the session configuration; the recordings table
// keeps one row per capture with its outcome. Writes retry briefly when the
// database is busy so the CLI and the daemon can share the file.
package settings
