package recorder_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"screenrec/internal/config"
	"screenrec/internal/failure"
	"screenrec/internal/ffmpeg"
	"screenrec/internal/monitors"
	"screenrec/internal/recorder"
	"screenrec/internal/remux"
	"screenrec/internal/session"
	"screenrec/internal/settings"
)

type fakeProcess struct {
	pid        int
	ignoreTerm bool

	mu         sync.Mutex
	terminated int
	killed     int
	exit       chan error
	once       sync.Once
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, exit: make(chan error, 1)}
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) finish(err error) {
	p.once.Do(func() { p.exit <- err })
}

func (p *fakeProcess) Terminate() error {
	p.mu.Lock()
	p.terminated++
	p.mu.Unlock()
	if !p.ignoreTerm {
		p.finish(nil)
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed++
	p.mu.Unlock()
	p.finish(errors.New("signal: killed"))
	return nil
}

func (p *fakeProcess) Wait() error { return <-p.exit }

type stubLauncher struct {
	mu       sync.Mutex
	calls    []ffmpeg.Command
	procs    []*fakeProcess
	err      error
	gate     chan struct{}
	entered  chan struct{}
	template func() *fakeProcess
}

func (l *stubLauncher) Launch(cmd ffmpeg.Command) (ffmpeg.Process, error) {
	if l.entered != nil {
		l.entered <- struct{}{}
	}
	if l.gate != nil {
		<-l.gate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, cmd)
	if l.err != nil {
		return nil, l.err
	}
	proc := newFakeProcess(1000 + len(l.calls))
	if l.template != nil {
		proc = l.template()
	}
	l.procs = append(l.procs, proc)
	return proc, nil
}

func (l *stubLauncher) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type stubRemuxer struct {
	dirs []string
	out  string
	err  error
}

func (s *stubRemuxer) Remux(_ context.Context, dir string) (string, error) {
	s.dirs = append(s.dirs, dir)
	return s.out, s.err
}

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []string
}

func (n *recordingNotifier) Notify(_ context.Context, summary, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Capture.Display = ":0.0"
	cfg.Capture.StopTimeout = 1
	return &cfg
}

func openStore(t *testing.T) *settings.Store {
	t.Helper()
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var fixedNow = time.Date(2026, 5, 4, 13, 14, 15, 0, time.Local)

var monitor = monitors.Entry{Name: "DP-1 (1920x1080) at +0,0", Geometry: ":0.0+0,0"}

func TestStartLaunchesCapture(t *testing.T) {
	dest := t.TempDir()
	launcher := &stubLauncher{}
	store := openStore(t)
	notifier := &recordingNotifier{}
	rec := recorder.New(testConfig(t),
		recorder.WithLauncher(launcher),
		recorder.WithStore(store),
		recorder.WithNotifier(notifier),
		recorder.WithClock(func() time.Time { return fixedNow }),
	)

	cfg := session.Defaults()
	cfg.Destination = dest
	cfg.Quality = 30
	sess, err := rec.Start(context.Background(), cfg, monitor)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	wantOutput := filepath.Join(dest, "REC_20260504_131415.mkv")
	if sess.OutputPath != wantOutput {
		t.Fatalf("output = %q, want %q", sess.OutputPath, wantOutput)
	}
	if sess.ID == "" || sess.PID != 1001 {
		t.Fatalf("unexpected session %+v", sess)
	}
	if rec.State() != recorder.StateRecording {
		t.Fatalf("state = %s, want recording", rec.State())
	}

	args := strings.Join(launcher.calls[0].Args, " ")
	for _, fragment := range []string{"-i :0.0+0,0", "-crf 30", "-f pulse", wantOutput} {
		if !strings.Contains(args, fragment) {
			t.Fatalf("expected %q in args %q", fragment, args)
		}
	}
	if launcher.calls[0].Binary != "ffmpeg" {
		t.Fatalf("unexpected binary %q", launcher.calls[0].Binary)
	}

	persisted, err := session.Load(context.Background(), store, 1)
	if err != nil {
		t.Fatalf("load persisted config: %v", err)
	}
	if persisted.Quality != 30 || persisted.Destination != dest {
		t.Fatalf("expected config persisted on start, got %+v", persisted)
	}
	row, err := store.GetRecording(context.Background(), sess.ID)
	if err != nil || row == nil || row.Status != settings.StatusRecording {
		t.Fatalf("expected history row, got %+v (%v)", row, err)
	}

	status := rec.Status()
	if status.Message != "Recording DP-1 (1920x1080) at +0,0: "+wantOutput {
		t.Fatalf("unexpected status message %q", status.Message)
	}
	if len(notifier.summaries) != 1 {
		t.Fatalf("expected start notification, got %v", notifier.summaries)
	}
}

func TestStartWhileRecordingIsRejected(t *testing.T) {
	launcher := &stubLauncher{}
	rec := recorder.New(testConfig(t), recorder.WithLauncher(launcher))
	cfg := session.Defaults()
	cfg.Destination = t.TempDir()

	if _, err := rec.Start(context.Background(), cfg, monitor); err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	_, err := rec.Start(context.Background(), cfg, monitor)
	if !errors.Is(err, recorder.ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if failure.KindOf(err) != failure.KindConflict {
		t.Fatalf("unexpected kind %q", failure.KindOf(err))
	}
	if launcher.callCount() != 1 {
		t.Fatalf("expected exactly one spawn, got %d", launcher.callCount())
	}
}

func TestStartWhileSpawnPendingIsRejected(t *testing.T) {
	launcher := &stubLauncher{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	rec := recorder.New(testConfig(t), recorder.WithLauncher(launcher))
	cfg := session.Defaults()
	cfg.Destination = t.TempDir()

	first := make(chan error, 1)
	go func() {
		_, err := rec.Start(context.Background(), cfg, monitor)
		first <- err
	}()
	<-launcher.entered

	if rec.State() != recorder.StateIdle {
		t.Fatalf("state must stay idle while spawning, got %s", rec.State())
	}
	if _, err := rec.Start(context.Background(), cfg, monitor); !errors.Is(err, recorder.ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording during spawn, got %v", err)
	}
	if res, err := rec.Stop(context.Background()); err != nil || res.Stopped {
		t.Fatalf("stop during spawn must be a no-op, got %+v %v", res, err)
	}

	close(launcher.gate)
	if err := <-first; err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	if launcher.callCount() != 1 {
		t.Fatalf("expected one spawn, got %d", launcher.callCount())
	}
}

func TestStartContextCancelledStillApplies(t *testing.T) {
	launcher := &stubLauncher{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	rec := recorder.New(testConfig(t), recorder.WithLauncher(launcher))
	cfg := session.Defaults()
	cfg.Destination = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := rec.Start(ctx, cfg, monitor)
		result <- err
	}()
	<-launcher.entered
	cancel()
	if err := <-result; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(launcher.gate)

	deadline := time.Now().Add(2 * time.Second)
	for rec.State() != recorder.StateRecording {
		if time.Now().After(deadline) {
			t.Fatal("spawn result was not applied")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartSpawnFailure(t *testing.T) {
	launcher := &stubLauncher{err: errors.New("exec: \"ffmpeg\": executable file not found in $PATH")}
	rec := recorder.New(testConfig(t), recorder.WithLauncher(launcher))
	cfg := session.Defaults()
	cfg.Destination = t.TempDir()

	_, err := rec.Start(context.Background(), cfg, monitor)
	var spawnErr *recorder.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected SpawnError, got %v", err)
	}
	if !errors.Is(err, recorder.ErrSpawnFailed) || failure.KindOf(err) != failure.KindSpawnFailed {
		t.Fatalf("unexpected classification for %v", err)
	}
	if !strings.Contains(err.Error(), "executable file not found") {
		t.Fatalf("expected human-readable cause, got %q", err.Error())
	}
	if rec.State() != recorder.StateIdle {
		t.Fatalf("state = %s, want idle", rec.State())
	}
	if rec.Status().LastError == "" {
		t.Fatal("expected last error recorded")
	}

	launcher.err = nil
	if _, err := rec.Start(context.Background(), cfg, monitor); err != nil {
		t.Fatalf("start after failure returned error: %v", err)
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	launcher := &stubLauncher{}
	rec := recorder.New(testConfig(t), recorder.WithLauncher(launcher))
	cfg := session.Defaults()
	cfg.Quality = 99
	if _, err := rec.Start(context.Background(), cfg, monitor); err == nil {
		t.Fatal("expected validation error")
	}
	if launcher.callCount() != 0 {
		t.Fatal("invalid config must not spawn")
	}
}

func TestStartUsesWorkingDirWhenNoDestination(t *testing.T) {
	wd := t.TempDir()
	rec := recorder.New(testConfig(t),
		recorder.WithLauncher(&stubLauncher{}),
		recorder.WithWorkingDir(func() (string, error) { return wd, nil }),
	)
	sess, err := rec.Start(context.Background(), session.Defaults(), monitors.Entry{Name: monitors.FallbackName})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if filepath.Dir(sess.OutputPath) != wd {
		t.Fatalf("expected output in working dir, got %s", sess.OutputPath)
	}
	if sess.Monitor.Geometry != ":0.0" {
		t.Fatalf("expected bare display geometry, got %q", sess.Monitor.Geometry)
	}
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	rec := recorder.New(testConfig(t), recorder.WithLauncher(&stubLauncher{}))
	res, err := rec.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if res.Stopped {
		t.Fatalf("expected no-op result, got %+v", res)
	}
	if rec.State() != recorder.StateIdle {
		t.Fatalf("state = %s", rec.State())
	}
}

func TestStopTerminatesAndRemuxes(t *testing.T) {
	dest := t.TempDir()
	launcher := &stubLauncher{}
	remuxer := &stubRemuxer{out: filepath.Join(dest, "REC_20260504_131415.mp4")}
	store := openStore(t)
	rec := recorder.New(testConfig(t),
		recorder.WithLauncher(launcher),
		recorder.WithRemuxer(remuxer),
		recorder.WithStore(store),
		recorder.WithClock(func() time.Time { return fixedNow }),
	)
	cfg := session.Defaults()
	cfg.Destination = dest
	cfg.Remux = true
	sess, err := rec.Start(context.Background(), cfg, monitor)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	res, err := rec.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if !res.Stopped || res.Forced || res.Session.ID != sess.ID {
		t.Fatalf("unexpected stop result %+v", res)
	}
	if launcher.procs[0].terminated != 1 || launcher.procs[0].killed != 0 {
		t.Fatalf("expected graceful terminate, got term=%d kill=%d", launcher.procs[0].terminated, launcher.procs[0].killed)
	}
	if len(remuxer.dirs) != 1 || remuxer.dirs[0] != dest {
		t.Fatalf("expected remux of %s, got %v", dest, remuxer.dirs)
	}
	if res.RemuxOutput != remuxer.out || res.RemuxErr != nil {
		t.Fatalf("unexpected remux result %+v", res)
	}
	if rec.State() != recorder.StateIdle || rec.Current() != nil {
		t.Fatal("expected idle after stop")
	}
	if msg := rec.Status().Message; msg != "Remuxed to MP4: "+remuxer.out {
		t.Fatalf("unexpected status %q", msg)
	}
	row, _ := store.GetRecording(context.Background(), sess.ID)
	if row == nil || row.Status != settings.StatusCompleted || row.RemuxOutput != remuxer.out {
		t.Fatalf("unexpected history row %+v", row)
	}

	if res, _ := rec.Stop(context.Background()); res.Stopped {
		t.Fatal("second stop must be a no-op")
	}
}

func TestStopRemuxRequiresDestination(t *testing.T) {
	wd := t.TempDir()
	store := openStore(t)
	rec := recorder.New(testConfig(t),
		recorder.WithLauncher(&stubLauncher{}),
		recorder.WithRemuxer(remux.New("ffmpeg")),
		recorder.WithStore(store),
		recorder.WithWorkingDir(func() (string, error) { return wd, nil }),
	)
	cfg := session.Defaults()
	cfg.Remux = true
	sess, err := rec.Start(context.Background(), cfg, monitor)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if filepath.Dir(sess.OutputPath) != wd {
		t.Fatalf("expected capture in working directory, got %s", sess.OutputPath)
	}

	res, err := rec.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if !res.Stopped || res.RemuxOutput != "" {
		t.Fatalf("unexpected stop result %+v", res)
	}
	if !errors.Is(res.RemuxErr, remux.ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", res.RemuxErr)
	}
	if msg := rec.Status().Message; !strings.HasPrefix(msg, "Remux failed") {
		t.Fatalf("unexpected status %q", msg)
	}
	row, _ := store.GetRecording(context.Background(), sess.ID)
	if row == nil || row.Status != settings.StatusCompleted || row.RemuxOutput != "" {
		t.Fatalf("unexpected history row %+v", row)
	}
}

func TestStopSkipsRemuxWhenDisabled(t *testing.T) {
	remuxer := &stubRemuxer{}
	rec := recorder.New(testConfig(t), recorder.WithLauncher(&stubLauncher{}), recorder.WithRemuxer(remuxer))
	cfg := session.Defaults()
	cfg.Destination = t.TempDir()
	if _, err := rec.Start(context.Background(), cfg, monitor); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if _, err := rec.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if len(remuxer.dirs) != 0 {
		t.Fatal("remux must not run when disabled")
	}
	if rec.Status().Message != recorder.MessageStopped {
		t.Fatalf("unexpected status %q", rec.Status().Message)
	}
}

func TestStopReportsRemuxFailure(t *testing.T) {
	remuxer := &stubRemuxer{err: errors.New("remux failed")}
	rec := recorder.New(testConfig(t), recorder.WithLauncher(&stubLauncher{}), recorder.WithRemuxer(remuxer))
	cfg := session.Defaults()
	cfg.Destination = t.TempDir()
	cfg.Remux = true
	if _, err := rec.Start(context.Background(), cfg, monitor); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	res, err := rec.Stop(context.Background())
	if err != nil {
		t.Fatalf("remux failure must not fail stop, got %v", err)
	}
	if res.RemuxErr == nil || !res.Stopped {
		t.Fatalf("expected remux error in result, got %+v", res)
	}
	if rec.State() != recorder.StateIdle {
		t.Fatal("expected idle after stop")
	}
}

func TestStopKillsUnresponsiveEncoder(t *testing.T) {
	launcher := &stubLauncher{template: func() *fakeProcess {
		p := newFakeProcess(42)
		p.ignoreTerm = true
		return p
	}}
	cfg := testConfig(t)
	cfg.Capture.StopTimeout = 60
	rec := recorder.New(cfg, recorder.WithLauncher(launcher))
	sc := session.Defaults()
	sc.Destination = t.TempDir()
	if _, err := rec.Start(context.Background(), sc, monitor); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := rec.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if !res.Forced || launcher.procs[0].killed != 1 {
		t.Fatalf("expected forced kill, got %+v killed=%d", res, launcher.procs[0].killed)
	}
	if rec.State() != recorder.StateIdle {
		t.Fatal("expected idle after forced stop")
	}
}

func TestUnexpectedExitReturnsToIdle(t *testing.T) {
	launcher := &stubLauncher{}
	store := openStore(t)
	rec := recorder.New(testConfig(t), recorder.WithLauncher(launcher), recorder.WithStore(store))
	cfg := session.Defaults()
	cfg.Destination = t.TempDir()
	sess, err := rec.Start(context.Background(), cfg, monitor)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	launcher.procs[0].finish(errors.New("exit status 1"))

	events, _, err := waitForEvent(t, rec.Events(), recorder.EventSessionFailed)
	if err != nil {
		t.Fatalf("wait for failure event: %v", err)
	}
	if events.SessionID != sess.ID {
		t.Fatalf("unexpected event %+v", events)
	}
	if rec.State() != recorder.StateIdle {
		t.Fatalf("state = %s, want idle", rec.State())
	}
	if !strings.Contains(rec.Status().LastError, "exit status 1") {
		t.Fatalf("unexpected last error %q", rec.Status().LastError)
	}
	row, _ := store.GetRecording(context.Background(), sess.ID)
	if row == nil || row.Status != settings.StatusFailed {
		t.Fatalf("expected failed history row, got %+v", row)
	}
	if res, _ := rec.Stop(context.Background()); res.Stopped {
		t.Fatal("stop after crash must be a no-op")
	}
}

func waitForEvent(t *testing.T, hub *recorder.EventHub, want recorder.EventType) (recorder.Event, uint64, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var since uint64
	for {
		events, next, err := hub.Fetch(ctx, since, 0, true)
		if err != nil {
			return recorder.Event{}, since, err
		}
		for _, evt := range events {
			if evt.Type == want {
				return evt, next, nil
			}
		}
		since = next
	}
}

func TestEventsPublishedForLifecycle(t *testing.T) {
	rec := recorder.New(testConfig(t), recorder.WithLauncher(&stubLauncher{}))
	cfg := session.Defaults()
	cfg.Destination = t.TempDir()
	if _, err := rec.Start(context.Background(), cfg, monitor); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if _, err := rec.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	events, _ := rec.Events().Tail(0)
	var types []recorder.EventType
	for _, evt := range events {
		types = append(types, evt.Type)
	}
	if len(types) != 2 || types[0] != recorder.EventSessionStarted || types[1] != recorder.EventSessionStopped {
		t.Fatalf("unexpected event sequence %v", types)
	}
}
