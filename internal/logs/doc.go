// Package logs reads the daemon log and per-session encoder logs for the
// CLI.
//
// Last returns the trailing lines of a file together with the byte offset
// of its end; Since continues from such an offset and Follow polls for
// appended lines until its context ends. NewestCaptureLog locates the
// ffmpeg stderr log of the most recent session.
package logs
