// Package ffmpeg builds encoder command lines and owns the child processes
// that run them.
//
// Capture processes are started detached from the caller's context and
// stopped with SIGTERM so the encoder can finalize the container. One-shot
// invocations such as remux run under a context and report the tail of
// stderr on failure.
package ffmpeg
