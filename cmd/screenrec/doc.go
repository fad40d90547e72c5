// Command screenrec records X11 monitors with ffmpeg.
//
// Recording control (start, stop, status) goes through the screenrec daemon
// over its IPC socket; the daemon is launched on demand. Settings, monitor
// listing, history, and remux also work without a daemon by opening the
// settings store directly. `screenrec record` runs a capture in the
// foreground until Ctrl+C or --duration elapses.
package main
