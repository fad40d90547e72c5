// Package remux rewraps the newest capture in a directory into a second
// container without re-encoding.
package remux
