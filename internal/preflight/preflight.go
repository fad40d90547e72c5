package preflight

import (
	"context"
	"os"
	"strings"

	"screenrec/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks. destination is the
// capture folder; empty means the current working directory.
func RunAll(_ context.Context, cfg *config.Config, destination string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Paths.LogDir != "" && cfg.Paths.LogDir != cfg.Paths.StateDir {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	destination = strings.TrimSpace(destination)
	if destination == "" {
		if wd, err := os.Getwd(); err == nil {
			destination = wd
		}
	}
	results = append(results, CheckDirectoryAccess("Destination", destination))
	results = append(results, CheckDisplay(cfg.Capture.Display))

	if cfg.Notifications.Enabled {
		results = append(results, CheckSessionBus())
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
