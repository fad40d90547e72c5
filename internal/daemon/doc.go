// Package daemon coordinates the long-running screenrec process and system
// integration points.
//
// It wires configuration, the settings store, the monitor catalog, and the
// recorder into a single lifecycle with flock-based locking to prevent
// multiple instances per state directory. On start it closes history rows a
// crashed run left open, prunes old capture logs, and runs preflight checks.
// A udev netlink listener refreshes the monitor catalog when a display is
// plugged in, and an optional HTTP API (gin) exposes the same operations as
// the IPC server plus a websocket event stream.
//
// Keep orchestration logic here: recording semantics live in the recorder
// package while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
