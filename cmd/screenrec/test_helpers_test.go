package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"screenrec/internal/config"
	"screenrec/internal/daemon"
	"screenrec/internal/ipc"
	"screenrec/internal/logging"
	"screenrec/internal/monitors"
	"screenrec/internal/recorder"
	"screenrec/internal/remux"
	"screenrec/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	dest       string
	launcher   *testsupport.FakeLauncher
	remux      *testsupport.RemuxRunner
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithAPIDisabled())
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(base, "config.toml"),
		dest:       filepath.Join(base, "captures"),
		launcher:   &testsupport.FakeLauncher{},
		remux:      &testsupport.RemuxRunner{},
	}
	writeTestConfig(t, env.configPath, cfg)
	return env
}

func (e *cliTestEnv) daemonOptions() []daemon.Option {
	return []daemon.Option{
		daemon.WithCatalogOptions(monitors.WithRunner(testsupport.MonitorRunner{Stdout: testsupport.TwoMonitors})),
		daemon.WithRecorderOptions(recorder.WithLauncher(e.launcher)),
		daemon.WithRemuxOptions(remux.WithRunner(e.remux)),
	}
}

// startDaemon serves a daemon on the env socket for the rest of the test.
func (e *cliTestEnv) startDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	store := testsupport.MustOpenStore(t, e.cfg)
	logger := logging.NewNop()
	d, err := daemon.New(e.cfg, store, logger, e.daemonOptions()...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon start: %v", err)
	}
	srv, err := ipc.NewServer(ctx, e.cfg.Paths.SocketPath, d, logger)
	if err != nil {
		cancel()
		d.Stop()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping daemon-backed CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
	})
	return d
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(withDaemonOptions(env.daemonOptions()...))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
socket_path = %q

[capture]
display = %q
stop_timeout = %d

[api]
enabled = false

[notifications]
enabled = false

[hotplug]
enabled = false
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.SocketPath,
		cfg.Capture.Display,
		cfg.Capture.StopTimeout,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
