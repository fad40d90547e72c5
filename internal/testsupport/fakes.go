package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"screenrec/internal/ffmpeg"
)

// FakeProcess is an encoder process that exits when terminated.
type FakeProcess struct {
	pid  int
	exit chan error
	once sync.Once
}

// NewFakeProcess returns a running fake with the given pid.
func NewFakeProcess(pid int) *FakeProcess {
	return &FakeProcess{pid: pid, exit: make(chan error, 1)}
}

func (p *FakeProcess) PID() int { return p.pid }

// Exit ends the process with err as if the encoder quit on its own.
func (p *FakeProcess) Exit(err error) {
	p.once.Do(func() { p.exit <- err })
}

func (p *FakeProcess) Terminate() error {
	p.Exit(nil)
	return nil
}

func (p *FakeProcess) Kill() error {
	p.Exit(errors.New("signal: killed"))
	return nil
}

func (p *FakeProcess) Wait() error { return <-p.exit }

// FakeLauncher records launched commands and hands out FakeProcesses.
type FakeLauncher struct {
	mu    sync.Mutex
	Err   error
	cmds  []ffmpeg.Command
	procs []*FakeProcess
}

func (l *FakeLauncher) Launch(cmd ffmpeg.Command) (ffmpeg.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cmds = append(l.cmds, cmd)
	if l.Err != nil {
		return nil, l.Err
	}
	proc := NewFakeProcess(4000 + len(l.cmds))
	l.procs = append(l.procs, proc)
	return proc, nil
}

// Commands returns every command launched so far.
func (l *FakeLauncher) Commands() []ffmpeg.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ffmpeg.Command(nil), l.cmds...)
}

// Last returns the most recently launched process, or nil.
func (l *FakeLauncher) Last() *FakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.procs) == 0 {
		return nil
	}
	return l.procs[len(l.procs)-1]
}

// MonitorRunner answers xrandr --listmonitors with a fixed layout.
type MonitorRunner struct {
	Stdout string
	Err    error
}

// TwoMonitors is xrandr --listmonitors output for a dual-head layout.
const TwoMonitors = "Monitors: 2\n" +
	" 0: +*DP-1 1920/527x1080/296+0+0  DP-1\n" +
	" 1: +HDMI-1 1280/338x1024/270+1920+0  HDMI-1\n"

func (r MonitorRunner) Output(_ context.Context, binary string, _ ...string) ([]byte, error) {
	if r.Err != nil {
		return nil, fmt.Errorf("%s: %w", binary, r.Err)
	}
	return []byte(r.Stdout), nil
}

// RemuxRunner records remux invocations and succeeds unless Err is set.
type RemuxRunner struct {
	mu   sync.Mutex
	Err  error
	args [][]string
}

func (r *RemuxRunner) Run(_ context.Context, _ string, args []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.args = append(r.args, append([]string(nil), args...))
	return r.Err
}

// Calls returns the argument lists of every run.
func (r *RemuxRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.args...)
}
