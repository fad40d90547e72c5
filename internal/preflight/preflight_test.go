package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"screenrec/internal/config"
	"screenrec/internal/deps"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDirectoryAccess("test", f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func withSocketDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := x11SocketDir
	x11SocketDir = dir
	t.Cleanup(func() { x11SocketDir = old })
	return dir
}

func TestCheckDisplay(t *testing.T) {
	dir := withSocketDir(t)
	if err := os.WriteFile(filepath.Join(dir, "X1"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		display string
		pass    bool
	}{
		{":1.0", true},
		{":1", true},
		{"unix:1", true},
		{":0.0", false},
		{"remotehost:0", true},
		{"", false},
		{"nodisplay", false},
		{":x", false},
	}
	for _, tc := range cases {
		if got := CheckDisplay(tc.display); got.Passed != tc.pass {
			t.Errorf("CheckDisplay(%q) passed=%v (%s), want %v", tc.display, got.Passed, got.Detail, tc.pass)
		}
	}
}

func TestCheckSessionBus(t *testing.T) {
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path=/run/user/1000/bus")
	if !CheckSessionBus().Passed {
		t.Fatal("expected pass with address set")
	}
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "")
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	if CheckSessionBus().Passed {
		t.Fatal("expected failure without bus")
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.FFmpeg = "definitely-missing-ffmpeg"
	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[0].Available || statuses[0].Optional {
		t.Fatalf("expected required ffmpeg to be missing, got %+v", statuses[0])
	}
	if !statuses[1].Optional || !statuses[2].Optional {
		t.Fatal("expected enumeration tools to be optional")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, ""); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	dir := withSocketDir(t)
	if err := os.WriteFile(filepath.Join(dir, "X0"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = cfg.Paths.StateDir
	cfg.Capture.Display = ":0.0"
	cfg.Notifications.Enabled = false

	results := RunAll(context.Background(), &cfg, t.TempDir())
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func TestRunAll_ReportsMissingDestination(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Capture.Display = ""
	cfg.Notifications.Enabled = true

	results := RunAll(context.Background(), &cfg, filepath.Join(t.TempDir(), "missing"))
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	failed := Failed(results)
	names := map[string]bool{}
	for _, r := range failed {
		names[r.Name] = true
	}
	if !names["Destination"] || !names["X display"] {
		t.Fatalf("expected destination and display failures, got %+v", failed)
	}
}

type bannerRunner map[string]string

func (r bannerRunner) Output(_ context.Context, binary string, args ...string) ([]byte, error) {
	return []byte(r[filepath.Base(binary)+" "+strings.Join(args, " ")]), nil
}

func TestProbeSystemDeps(t *testing.T) {
	cfg := config.Default()
	runner := bannerRunner{
		"ffmpeg -hide_banner -version":  "ffmpeg version 7.1 Copyright (c) 2000-2024 the FFmpeg developers\n",
		"ffmpeg -hide_banner -devices":  " D  x11grab  X11 screen capture\n DE pulse    Pulse audio\n",
		"ffmpeg -hide_banner -encoders": " V....D libx264  H.264\n V....D libx265  H.265\n",
		"xrandr --version":              "xrandr program version       1.5.2\n",
	}
	lookPath := func(cmd string) (string, error) {
		if cmd == "xdpyinfo" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + cmd, nil
	}

	statuses := ProbeSystemDeps(context.Background(), &cfg, deps.WithRunner(runner), deps.WithLookPath(lookPath))
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	ffmpeg := statuses[0]
	if ffmpeg.Version != "7.1" || len(ffmpeg.MissingFeatures) != 0 {
		t.Fatalf("unexpected ffmpeg status: %+v", ffmpeg)
	}
	if statuses[1].Version != "1.5.2" {
		t.Fatalf("unexpected xrandr version %q", statuses[1].Version)
	}
	if statuses[2].Available {
		t.Fatalf("expected xdpyinfo to be missing: %+v", statuses[2])
	}

	runner["ffmpeg -hide_banner -devices"] = " DE pulse    Pulse audio\n"
	statuses = ProbeSystemDeps(context.Background(), &cfg, deps.WithRunner(runner), deps.WithLookPath(lookPath))
	if got := statuses[0].MissingFeatures; len(got) != 1 || got[0] != "x11grab" {
		t.Fatalf("expected missing x11grab, got %v", got)
	}
}
