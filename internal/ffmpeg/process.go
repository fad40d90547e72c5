package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Command is a detached process launch request.
type Command struct {
	Binary string
	Args   []string
	// LogPath receives the process stderr. Empty discards it.
	LogPath string
}

// Process is a running encoder.
type Process interface {
	PID() int
	// Terminate asks the process to finish writing and exit.
	Terminate() error
	Kill() error
	// Wait blocks until the process exits. It may be called once.
	Wait() error
}

// Launcher starts detached processes.
type Launcher interface {
	Launch(cmd Command) (Process, error)
}

// Runner executes a process to completion.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) error
}

// ExecLauncher starts processes with os/exec.
type ExecLauncher struct{}

// Launch starts cmd in its own process group so terminal signals aimed at
// the caller do not reach the encoder.
func (ExecLauncher) Launch(spec Command) (Process, error) {
	if strings.TrimSpace(spec.Binary) == "" {
		return nil, errors.New("encoder binary not configured")
	}
	cmd := exec.Command(spec.Binary, spec.Args...) //nolint:gosec
	detach(cmd)

	var logFile *os.File
	if spec.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(spec.LogPath), 0o755); err != nil {
			return nil, fmt.Errorf("create encoder log dir: %w", err)
		}
		f, err := os.OpenFile(spec.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open encoder log: %w", err)
		}
		logFile = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, err
	}
	return &execProcess{cmd: cmd, logFile: logFile}, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	logFile *os.File
}

func (p *execProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Terminate() error {
	return terminate(p.cmd.Process)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	if p.logFile != nil {
		_ = p.logFile.Close()
	}
	return err
}

// RunError reports a non-zero exit together with the last stderr lines.
type RunError struct {
	Binary string
	Err    error
	Stderr string
}

func (e *RunError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", filepath.Base(e.Binary), e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", filepath.Base(e.Binary), e.Err, e.Stderr)
}

func (e *RunError) Unwrap() error { return e.Err }

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

const stderrTailLines = 5

// Run executes binary and waits for it. Failures are returned as *RunError.
func (ExecRunner) Run(ctx context.Context, binary string, args []string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &RunError{Binary: binary, Err: err, Stderr: tailLines(stderr.String(), stderrTailLines)}
	}
	return nil
}

func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
