// Package daemonctl starts, stops, and inspects the screenrec daemon process
// from the CLI side of the IPC socket.
package daemonctl
