package remux

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"screenrec/internal/failure"
	"screenrec/internal/ffmpeg"
	"screenrec/internal/logging"
)

var (
	// ErrNoDestination reports a remux request without a directory.
	ErrNoDestination = failure.New(failure.KindConfiguration, "no destination directory")
	// ErrNoSourceFile reports a directory without any capture file.
	ErrNoSourceFile = failure.New(failure.KindNotFound, "no capture file found")
	// ErrRemuxFailed reports a non-zero exit from the remux tool.
	ErrRemuxFailed = failure.New(failure.KindExternal, "remux failed")
)

// Error describes a failed remux invocation.
type Error struct {
	Input  string
	Output string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("remux %s: %v", filepath.Base(e.Input), e.Err)
}

func (e *Error) Unwrap() []error { return []error{ErrRemuxFailed, e.Err} }

func (e *Error) ErrorKind() string { return string(failure.KindExternal) }

// CreationTimeFunc reports when a file was created.
type CreationTimeFunc func(path string, info os.FileInfo) time.Time

// Option configures a Remuxer.
type Option func(*Remuxer)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(r ffmpeg.Runner) Option {
	return func(m *Remuxer) {
		if r != nil {
			m.runner = r
		}
	}
}

// WithExtensions overrides the source and target container extensions.
func WithExtensions(source, target string) Option {
	return func(m *Remuxer) {
		if s := normalizeExt(source); s != "" {
			m.sourceExt = s
		}
		if t := normalizeExt(target); t != "" {
			m.targetExt = t
		}
	}
}

// WithCreationTime overrides how file creation time is determined.
func WithCreationTime(fn CreationTimeFunc) Option {
	return func(m *Remuxer) {
		if fn != nil {
			m.created = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Remuxer) {
		m.logger = logging.NewComponentLogger(logger, "remux")
	}
}

// Remuxer converts captures with a stream copy.
type Remuxer struct {
	binary    string
	runner    ffmpeg.Runner
	sourceExt string
	targetExt string
	created   CreationTimeFunc
	logger    *slog.Logger
}

// New constructs a Remuxer that runs binary (ffmpeg when empty).
func New(binary string, opts ...Option) *Remuxer {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	m := &Remuxer{
		binary:    binary,
		runner:    ffmpeg.ExecRunner{},
		sourceExt: ".mkv",
		targetExt: ".mp4",
		created:   creationTime,
		logger:    logging.NewComponentLogger(nil, "remux"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Newest returns the capture in dir with the most recent creation time.
// Ties go to the lexically greatest name.
func (m *Remuxer) Newest(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", ErrNoDestination
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w in %s", ErrNoSourceFile, dir)
		}
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(entry.Name()), m.sourceExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		created := m.created(path, info)
		if best == "" || created.After(bestTime) || (created.Equal(bestTime) && entry.Name() > filepath.Base(best)) {
			best = path
			bestTime = created
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w in %s", ErrNoSourceFile, dir)
	}
	return best, nil
}

// OutputPath maps a capture path to its remuxed sibling.
func (m *Remuxer) OutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + m.targetExt
}

// Remux rewraps the newest capture in dir and returns the new file path.
func (m *Remuxer) Remux(ctx context.Context, dir string) (string, error) {
	input, err := m.Newest(dir)
	if err != nil {
		return "", err
	}
	output := m.OutputPath(input)

	m.logger.Info("remux started",
		logging.String("input", input),
		logging.String("output", output),
		logging.String(logging.FieldEventType, "remux_started"),
	)
	started := time.Now()
	if err := m.runner.Run(ctx, m.binary, ffmpeg.RemuxArgs(input, output)); err != nil {
		remuxErr := &Error{Input: input, Output: output, Err: err}
		logging.ErrorWithContext(m.logger, "remux failed", "remux_failed",
			logging.String("input", input),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the capture with ffprobe; the original file is untouched"),
		)
		return "", remuxErr
	}
	m.logger.Info("remux completed",
		logging.String("output", output),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "remux_completed"),
	)
	return output, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
