// Package deps checks that the external programs screenrec drives are
// installed and built with what the recorder needs.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultProbeTimeout = 5 * time.Second

// Requirement defines an external program screenrec relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are passed to Command to read its version.
	VersionArgs []string
	Features    []Feature
}

// Feature is a capability detected by running Command with Args and looking
// for Token as a whitespace-separated word of the output, e.g. the x11grab
// device in `ffmpeg -devices`.
type Feature struct {
	Args  []string
	Token string
}

// Status reports the availability of a dependency.
type Status struct {
	Name            string   `json:"name"`
	Command         string   `json:"command"`
	Path            string   `json:"path,omitempty"`
	Description     string   `json:"description"`
	Optional        bool     `json:"optional"`
	Available       bool     `json:"available"`
	Version         string   `json:"version,omitempty"`
	MissingFeatures []string `json:"missing_features,omitempty"`
	Detail          string   `json:"detail,omitempty"`
}

// Runner executes a probe and returns its stdout.
type Runner interface {
	Output(ctx context.Context, binary string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).Output()
}

// Checker resolves requirements against PATH and, when probing is enabled,
// runs version and feature probes.
type Checker struct {
	runner   Runner
	lookPath func(string) (string, error)
	probe    bool
	timeout  time.Duration
}

// Option customizes a Checker.
type Option func(*Checker)

// WithRunner replaces the process runner used for probes.
func WithRunner(r Runner) Option {
	return func(c *Checker) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithLookPath replaces PATH resolution.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(c *Checker) {
		if fn != nil {
			c.lookPath = fn
		}
	}
}

// WithProbes enables version and feature probes.
func WithProbes() Option {
	return func(c *Checker) { c.probe = true }
}

// NewChecker builds a checker that only resolves binaries unless WithProbes
// is given.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{runner: execRunner{}, lookPath: exec.LookPath, timeout: defaultProbeTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckBinaries reports which requirements resolve on PATH without running
// anything.
func CheckBinaries(requirements []Requirement) []Status {
	return NewChecker().Check(context.Background(), requirements)
}

// Check evaluates requirements in order.
func (c *Checker) Check(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, c.check(ctx, req))
	}
	return results
}

func (c *Checker) check(ctx context.Context, req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := c.lookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Path = path
	status.Available = true
	if !c.probe {
		return status
	}

	if len(req.VersionArgs) > 0 {
		if out, err := c.run(ctx, path, req.VersionArgs); err == nil {
			status.Version = ParseVersion(out)
		}
	}

	outputs := make(map[string]string)
	for _, feature := range req.Features {
		key := strings.Join(feature.Args, "\x00")
		out, seen := outputs[key]
		if !seen {
			// A failed probe leaves the output empty, so the feature reads as missing.
			out, _ = c.run(ctx, path, feature.Args)
			outputs[key] = out
		}
		if !hasWord(out, feature.Token) {
			status.MissingFeatures = append(status.MissingFeatures, feature.Token)
		}
	}
	if len(status.MissingFeatures) > 0 {
		status.Detail = fmt.Sprintf("%s build lacks %s", req.Name, strings.Join(status.MissingFeatures, ", "))
	}
	return status
}

func (c *Checker) run(ctx context.Context, path string, args []string) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := c.runner.Output(probeCtx, path, args...)
	return string(out), err
}

// ParseVersion extracts a version from the first line of a `-version` style
// banner: the word after "version" ("ffmpeg version 6.1.1 Copyright ...")
// or else the last word ("xdpyinfo 1.3.4").
func ParseVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	for i, field := range fields {
		if strings.EqualFold(field, "version") && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	if len(fields) > 1 {
		return fields[len(fields)-1]
	}
	return ""
}

func hasWord(output, token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return true
	}
	for _, field := range strings.Fields(output) {
		if field == token {
			return true
		}
	}
	return false
}

// MissingRequired returns the names of unavailable non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

// MissingFeatures lists "name: feature" for every available dependency whose
// probes found gaps.
func MissingFeatures(statuses []Status) []string {
	var gaps []string
	for _, s := range statuses {
		for _, feature := range s.MissingFeatures {
			gaps = append(gaps, s.Name+": "+feature)
		}
	}
	return gaps
}
