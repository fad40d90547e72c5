// Package monitors enumerates the X11 screens a capture can target.
//
// The catalog asks xrandr first and falls back to the xdpyinfo XINERAMA
// extension. When neither tool produces a usable answer it returns a single
// full-screen entry, so callers always have at least one target to offer.
package monitors
