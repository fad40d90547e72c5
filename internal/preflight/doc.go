// Package preflight provides readiness checks for the display, external
// tools, and filesystem paths that screenrec depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failure.
//   - The CLI "screenrec doctor" command prints each result as a table row.
//
// Checks tied to optional features are skipped when the feature is disabled.
package preflight
