// Package session holds the capture parameters the user picks before a
// recording and persists them between runs.
//
// Config is a plain value. Load, Save, and Reset take an explicit store
// handle so callers decide where preferences live; every field is read
// independently and falls back to its default when missing or invalid.
package session
