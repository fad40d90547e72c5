// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs, which
// alias the api package types so HTTP and IPC clients see the same shapes.
// Daemon errors cross the socket with their failure kind attached; the client
// turns them back into RemoteError values that failure.KindOf understands.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable
// and compatible with existing command implementations.
package ipc
