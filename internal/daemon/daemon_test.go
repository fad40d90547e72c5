package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"screenrec/internal/config"
	"screenrec/internal/daemon"
	"screenrec/internal/failure"
	"screenrec/internal/logging"
	"screenrec/internal/monitors"
	"screenrec/internal/recorder"
	"screenrec/internal/remux"
	"screenrec/internal/session"
	"screenrec/internal/settings"
	"screenrec/internal/testsupport"
)

type fixture struct {
	cfg      *config.Config
	store    *settings.Store
	launcher *testsupport.FakeLauncher
	remux    *testsupport.RemuxRunner
	daemon   *daemon.Daemon
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAPIDisabled())
	store := testsupport.MustOpenStore(t, cfg)
	f := &fixture{
		cfg:      cfg,
		store:    store,
		launcher: &testsupport.FakeLauncher{},
		remux:    &testsupport.RemuxRunner{},
	}
	d, err := daemon.New(cfg, store, logging.NewNop(),
		daemon.WithCatalogOptions(monitors.WithRunner(testsupport.MonitorRunner{Stdout: testsupport.TwoMonitors})),
		daemon.WithRecorderOptions(recorder.WithLauncher(f.launcher)),
		daemon.WithRemuxOptions(remux.WithRunner(f.remux)),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	f.daemon = d
	t.Cleanup(func() { d.Stop() })
	return f
}

func TestNewRequiresConfigAndStore(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil); err == nil {
		t.Fatal("expected error without config and store")
	}
}

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := f.daemon.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Monitors != 2 {
		t.Fatalf("expected 2 monitors, got %d", status.Monitors)
	}
	if status.LockFilePath != f.cfg.LockPath() {
		t.Fatalf("lock path = %q", status.LockFilePath)
	}

	// Second start should fail
	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	f.daemon.Stop()
	if f.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	other, err := daemon.New(f.cfg, f.store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	err = other.Start(ctx)
	if err == nil {
		other.Stop()
		t.Fatal("expected lock conflict")
	}
	if failure.KindOf(err) != failure.KindConflict {
		t.Fatalf("expected conflict kind, got %v", err)
	}

	f.daemon.Stop()
	if err := other.Start(ctx); err != nil {
		t.Fatalf("start after release: %v", err)
	}
	other.Stop()
}

func TestStartClosesAbandonedRecordings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.InsertRecording(ctx, settings.Recording{
		ID:         "stale",
		OutputPath: "/tmp/REC_20260101_000000.mkv",
		Status:     settings.StatusRecording,
		StartedAt:  time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("InsertRecording: %v", err)
	}

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	rec, err := f.store.GetRecording(ctx, "stale")
	if err != nil || rec == nil {
		t.Fatalf("GetRecording: %v %v", rec, err)
	}
	if rec.Status != settings.StatusFailed {
		t.Fatalf("expected abandoned row to be failed, got %q", rec.Status)
	}
}

func TestConfigOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg, err := f.daemon.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != session.Defaults() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	cfg, err = f.daemon.SetSetting(ctx, "monitor", "1")
	if err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if cfg.MonitorIndex != 1 {
		t.Fatalf("monitor = %d", cfg.MonitorIndex)
	}
	if _, err := f.daemon.SetSetting(ctx, "quality", "99"); !errors.Is(err, session.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	loaded, err := f.daemon.LoadConfig(ctx)
	if err != nil || loaded.MonitorIndex != 1 {
		t.Fatalf("reload = %+v, %v", loaded, err)
	}

	reset, err := f.daemon.ResetConfig(ctx)
	if err != nil || reset != session.Defaults() {
		t.Fatalf("ResetConfig = %+v, %v", reset, err)
	}
	loaded, _ = f.daemon.LoadConfig(ctx)
	if loaded != session.Defaults() {
		t.Fatalf("expected defaults after reset, got %+v", loaded)
	}
}

func TestRecordingLifecycleWithRemux(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dest := filepath.Join(testsupport.BaseDir(f.cfg), "captures")

	cfg := session.Defaults()
	cfg.MonitorIndex = 1
	cfg.Remux = true
	cfg.Destination = dest
	if _, err := f.daemon.SaveConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	sess, err := f.daemon.StartRecording(ctx, nil)
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if sess.Monitor.Geometry != ":0.0+1920,0" {
		t.Fatalf("geometry = %q", sess.Monitor.Geometry)
	}
	if _, err := f.daemon.StartRecording(ctx, nil); !errors.Is(err, recorder.ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if n := len(f.launcher.Commands()); n != 1 {
		t.Fatalf("expected a single launch, got %d", n)
	}

	// the fake encoder never writes, so provide the capture it would have made
	testsupport.WriteCapture(t, sess.OutputPath, 1024, time.Time{})

	res, err := f.daemon.StopRecording(ctx)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if !res.Stopped || res.RemuxErr != nil {
		t.Fatalf("unexpected stop result: %+v", res)
	}
	if want := sess.OutputPath[:len(sess.OutputPath)-len(".mkv")] + ".mp4"; res.RemuxOutput != want {
		t.Fatalf("remux output = %q want %q", res.RemuxOutput, want)
	}
	if len(f.remux.Calls()) != 1 {
		t.Fatalf("expected one remux run, got %d", len(f.remux.Calls()))
	}

	history, err := f.daemon.History(ctx, 10)
	if err != nil || len(history) != 1 {
		t.Fatalf("History = %v, %v", history, err)
	}
	if history[0].Status != settings.StatusCompleted || history[0].RemuxOutput != res.RemuxOutput {
		t.Fatalf("unexpected history row: %+v", history[0])
	}
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	f := newFixture(t)
	res, err := f.daemon.StopRecording(context.Background())
	if err != nil || res.Stopped {
		t.Fatalf("expected no-op stop, got %+v, %v", res, err)
	}
}

func TestRemuxWithoutDestination(t *testing.T) {
	f := newFixture(t)
	_, err := f.daemon.Remux(context.Background(), "")
	if !errors.Is(err, remux.ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
	if len(f.remux.Calls()) != 0 {
		t.Fatal("remux must not run without a destination")
	}
}

func TestStopEndsActiveRecording(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	override := session.Defaults()
	override.Destination = filepath.Join(testsupport.BaseDir(f.cfg), "captures")
	if _, err := f.daemon.StartRecording(ctx, &override); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	f.daemon.Stop()

	if state := f.daemon.Status(ctx).Recorder.State; state != recorder.StateIdle {
		t.Fatalf("expected idle after daemon stop, got %q", state)
	}
}
