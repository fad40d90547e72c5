// Package daemonrun wires the long-running screenrec daemon process: logger,
// settings store, daemon core, pid file, and IPC socket.
package daemonrun
