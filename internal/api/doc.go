// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates recorder, catalog, and history models into
// transport-friendly DTOs so clients render them without importing internal
// packages.
//
// # Key Types
//
// SessionConfig: the user-chosen capture parameters.
//
// RecorderStatus and DaemonStatus: lifecycle state, active session, last
// outcome, and dependency health.
//
// StopResult: what a stop did, including the remux outcome.
//
// Event/EventStreamResponse: lifecycle events for live tailing.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Errors travel as strings together with their failure kind so the CLI and
// HTTP clients can branch on the kind instead of matching messages.
package api
