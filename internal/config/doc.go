// Package config loads, normalizes, and validates screenrec configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DISPLAY. The Config type centralizes the tool locations, capture defaults,
// and daemon endpoints that the CLI and daemon need.
//
// Per-recording choices (resolution, codec, quality, destination) are not
// kept here; they live in the settings store and are handled by the session
// package.
package config
