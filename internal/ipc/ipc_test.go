package ipc_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"screenrec/internal/daemon"
	"screenrec/internal/failure"
	"screenrec/internal/ipc"
	"screenrec/internal/logging"
	"screenrec/internal/monitors"
	"screenrec/internal/recorder"
	"screenrec/internal/remux"
	"screenrec/internal/testsupport"
)

type harness struct {
	client   *ipc.Client
	launcher *testsupport.FakeLauncher
	dest     string
	shutdown chan struct{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAPIDisabled())
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	h := &harness{
		launcher: &testsupport.FakeLauncher{},
		dest:     filepath.Join(testsupport.BaseDir(cfg), "captures"),
		shutdown: make(chan struct{}),
	}
	d, err := daemon.New(cfg, store, logger,
		daemon.WithCatalogOptions(monitors.WithRunner(testsupport.MonitorRunner{Stdout: testsupport.TwoMonitors})),
		daemon.WithRecorderOptions(recorder.WithLauncher(h.launcher)),
		daemon.WithRemuxOptions(remux.WithRunner(&testsupport.RemuxRunner{})),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger,
		ipc.WithShutdown(func() { close(h.shutdown) }))
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	h.client = client
	return h
}

func TestIPCRecordingRoundTrip(t *testing.T) {
	h := newHarness(t)

	status, err := h.client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.Recorder.State != string(recorder.StateIdle) {
		t.Fatalf("unexpected status: %+v", status)
	}

	mons, err := h.client.ListMonitors(true)
	if err != nil {
		t.Fatalf("ListMonitors: %v", err)
	}
	if len(mons.Monitors) != 2 || !strings.HasPrefix(mons.Monitors[1].Name, "HDMI-1") {
		t.Fatalf("unexpected monitors: %+v", mons.Monitors)
	}

	if _, err := h.client.SetSetting("destination", h.dest); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	cfg, err := h.client.SetSetting("monitor", "1")
	if err != nil {
		t.Fatalf("SetSetting monitor: %v", err)
	}
	if cfg.Monitor != 1 || cfg.Destination != h.dest {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	started, err := h.client.StartRecording(nil)
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if !strings.HasPrefix(started.Session.Monitor.Name, "HDMI-1") {
		t.Fatalf("expected HDMI-1, got %+v", started.Session.Monitor)
	}
	if !strings.HasPrefix(started.Session.OutputPath, h.dest) {
		t.Fatalf("output %q not under %q", started.Session.OutputPath, h.dest)
	}
	if started.Message == "" {
		t.Fatal("expected a status message")
	}

	_, err = h.client.StartRecording(nil)
	var remote *ipc.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %T %v", err, err)
	}
	if failure.KindOf(err) != failure.KindConflict {
		t.Fatalf("expected conflict kind, got %q (%v)", failure.KindOf(err), err)
	}

	stopped, err := h.client.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if !stopped.Stopped || stopped.Session == nil || stopped.Session.ID != started.Session.ID {
		t.Fatalf("unexpected stop result: %+v", stopped)
	}

	again, err := h.client.StopRecording()
	if err != nil || again.Stopped {
		t.Fatalf("expected idle stop to be a no-op, got %+v, %v", again, err)
	}

	history, err := h.client.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history.Recordings) != 1 || history.Recordings[0].ID != started.Session.ID {
		t.Fatalf("unexpected history: %+v", history.Recordings)
	}

	events, err := h.client.Events(ipc.EventsRequest{Tail: true, Limit: 10})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events.Events) == 0 || events.Next == 0 {
		t.Fatalf("expected lifecycle events, got %+v", events)
	}
}

func TestIPCConfigErrorsKeepKind(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.SetSetting("framerate", "0")
	if failure.KindOf(err) != failure.KindConfiguration {
		t.Fatalf("expected configuration kind, got %v", err)
	}

	bad := ipc.SessionConfig{Resolution: "huge", FrameRate: 30, Codec: "h264", Quality: 20}
	if _, err := h.client.SaveConfig(bad); failure.KindOf(err) != failure.KindConfiguration {
		t.Fatalf("expected configuration kind for save, got %v", err)
	}

	_, err = h.client.Remux("")
	if failure.KindOf(err) != failure.KindConfiguration {
		t.Fatalf("expected configuration kind for remux without destination, got %v", err)
	}
	_, err = h.client.Remux(h.dest)
	if failure.KindOf(err) != failure.KindNotFound {
		t.Fatalf("expected not_found for empty directory, got %v", err)
	}

	reset, err := h.client.ResetConfig()
	if err != nil {
		t.Fatalf("ResetConfig: %v", err)
	}
	loaded, err := h.client.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if *loaded != *reset {
		t.Fatalf("loaded %+v differs from reset %+v", loaded, reset)
	}
}

func TestIPCEventsFollow(t *testing.T) {
	h := newHarness(t)

	tail, err := h.client.Events(ipc.EventsRequest{Tail: true})
	if err != nil {
		t.Fatalf("Events tail: %v", err)
	}

	done := make(chan *ipc.EventsResponse, 1)
	go func() {
		resp, err := h.client.Events(ipc.EventsRequest{Since: tail.Next, Follow: true, WaitSeconds: 5})
		if err != nil {
			t.Errorf("Events follow: %v", err)
		}
		done <- resp
	}()

	time.Sleep(100 * time.Millisecond)
	override := ipc.SessionConfig{Resolution: "1920x1080", FrameRate: 30, Codec: "h264", Quality: 20, Destination: h.dest}
	if _, err := h.client.StartRecording(&override); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	select {
	case resp := <-done:
		if resp == nil || len(resp.Events) == 0 {
			t.Fatalf("expected followed events, got %+v", resp)
		}
		if resp.Events[0].Sequence <= tail.Next {
			t.Fatalf("event %d not after cursor %d", resp.Events[0].Sequence, tail.Next)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("event follow timed out")
	}
}

func TestIPCShutdown(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.Shutdown()
	if err != nil || !resp.Acknowledged {
		t.Fatalf("Shutdown = %+v, %v", resp, err)
	}
	select {
	case <-h.shutdown:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown hook not called")
	}
}
