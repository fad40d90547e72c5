package monitors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"screenrec/internal/logging"
)

// FallbackName labels the whole-screen entry used when enumeration fails.
const FallbackName = "Primary Display (Full Screen)"

// ErrEnumerationUnavailable reports that no tool produced a monitor list.
// The catalog recovers from it and never returns it to callers.
var ErrEnumerationUnavailable = errors.New("monitor enumeration unavailable")

// Runner executes an enumeration tool and returns its stdout.
type Runner interface {
	Output(ctx context.Context, binary string, args ...string) ([]byte, error)
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(c *Catalog) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithLogger attaches a logger for enumeration diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logging.NewComponentLogger(logger, "monitors")
	}
}

// WithTools overrides the xrandr and xdpyinfo binaries.
func WithTools(xrandr, xdpyinfo string) Option {
	return func(c *Catalog) {
		if s := strings.TrimSpace(xrandr); s != "" {
			c.xrandr = s
		}
		if s := strings.TrimSpace(xdpyinfo); s != "" {
			c.xdpyinfo = s
		}
	}
}

// Catalog holds the most recently enumerated monitor list.
type Catalog struct {
	display  string
	xrandr   string
	xdpyinfo string
	runner   Runner
	logger   *slog.Logger

	mu      sync.RWMutex
	entries []Entry
	loaded  bool
}

// NewCatalog constructs a catalog for the given base display (":0.0" when empty).
func NewCatalog(display string, opts ...Option) *Catalog {
	display = strings.TrimSpace(display)
	if display == "" {
		display = ":0.0"
	}
	c := &Catalog{
		display:  display,
		xrandr:   "xrandr",
		xdpyinfo: "xdpyinfo",
		runner:   commandRunner{},
		logger:   logging.NewComponentLogger(nil, "monitors"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Display returns the base X display used for geometry specs.
func (c *Catalog) Display() string {
	return c.display
}

// Refresh rebuilds the entry list. It never fails and never returns an
// empty list.
func (c *Catalog) Refresh(ctx context.Context) []Entry {
	entries, err := c.enumerate(ctx)
	if err != nil {
		logging.WarnWithContext(c.logger, "monitor enumeration unavailable; using full screen", "monitor_enumeration_unavailable",
			logging.Error(err),
			logging.String("display", c.display),
			logging.String(logging.FieldErrorHint, "install xrandr or xdpyinfo, or check DISPLAY"),
			logging.String(logging.FieldImpact, "only the full screen can be captured"),
		)
		entries = []Entry{{Name: FallbackName, Geometry: c.display}}
	}

	c.mu.Lock()
	c.entries = entries
	c.loaded = true
	c.mu.Unlock()

	c.logger.Debug("monitors refreshed", logging.Int("count", len(entries)))
	return cloneEntries(entries)
}

func (c *Catalog) enumerate(ctx context.Context) ([]Entry, error) {
	var failures []string

	out, err := c.runner.Output(ctx, c.xrandr, "--listmonitors")
	if err == nil {
		if entries := ParseListMonitors(string(out), c.display); len(entries) > 0 {
			return entries, nil
		}
		failures = append(failures, c.xrandr+": no monitors listed")
	} else {
		failures = append(failures, fmt.Sprintf("%s: %v", c.xrandr, err))
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumerationUnavailable, ctx.Err())
	}

	out, err = c.runner.Output(ctx, c.xdpyinfo, "-ext", "XINERAMA")
	if err == nil {
		if entries := ParseXinerama(string(out), c.display); len(entries) > 0 {
			return entries, nil
		}
		failures = append(failures, c.xdpyinfo+": no xinerama heads")
	} else {
		failures = append(failures, fmt.Sprintf("%s: %v", c.xdpyinfo, err))
	}

	return nil, fmt.Errorf("%w (%s)", ErrEnumerationUnavailable, strings.Join(failures, "; "))
}

// Entries returns the last refreshed list, refreshing once on first use.
func (c *Catalog) Entries(ctx context.Context) []Entry {
	c.mu.RLock()
	loaded := c.loaded
	entries := cloneEntries(c.entries)
	c.mu.RUnlock()
	if !loaded {
		return c.Refresh(ctx)
	}
	return entries
}

// Resolve returns the entry at index. Out-of-range indexes select the first entry.
func (c *Catalog) Resolve(ctx context.Context, index int) (Entry, int) {
	entries := c.Entries(ctx)
	if index < 0 || index >= len(entries) {
		index = 0
	}
	return entries[index], index
}

func cloneEntries(entries []Entry) []Entry {
	return append([]Entry(nil), entries...)
}

type commandRunner struct{}

func (commandRunner) Output(ctx context.Context, binary string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}
