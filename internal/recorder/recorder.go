package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"screenrec/internal/config"
	"screenrec/internal/ffmpeg"
	"screenrec/internal/logging"
	"screenrec/internal/monitors"
	"screenrec/internal/session"
	"screenrec/internal/settings"
)

// State is the recorder lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// Session describes the active (or last) capture.
type Session struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	OutputPath string         `json:"output_path"`
	LogPath    string         `json:"log_path,omitempty"`
	PID        int            `json:"pid"`
	Config     session.Config `json:"config"`
	Monitor    monitors.Entry `json:"monitor"`
}

// StopResult reports what Stop did.
type StopResult struct {
	Stopped     bool          `json:"stopped"`
	Session     *Session      `json:"session,omitempty"`
	Forced      bool          `json:"forced,omitempty"`
	Duration    time.Duration `json:"duration"`
	ExitErr     error         `json:"-"`
	RemuxOutput string        `json:"remux_output,omitempty"`
	RemuxErr    error         `json:"-"`
}

// Store persists the session config and the recording history.
type Store interface {
	session.Store
	InsertRecording(ctx context.Context, rec settings.Recording) error
	FinishRecording(ctx context.Context, id string, status settings.RecordingStatus, stoppedAt time.Time, remuxOutput, errMsg string) error
}

// Remuxer converts the newest capture in a directory.
type Remuxer interface {
	Remux(ctx context.Context, dir string) (string, error)
}

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(ctx context.Context, summary, body string) error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLauncher injects a process launcher (primarily for tests).
func WithLauncher(l ffmpeg.Launcher) Option {
	return func(r *Recorder) {
		if l != nil {
			r.launcher = l
		}
	}
}

// WithStore persists the config on start and keeps history rows.
func WithStore(s Store) Option {
	return func(r *Recorder) { r.store = s }
}

// WithRemuxer enables the post-stop remux step.
func WithRemuxer(m Remuxer) Option {
	return func(r *Recorder) { r.remuxer = m }
}

// WithNotifier enables desktop notifications.
func WithNotifier(n Notifier) Option {
	return func(r *Recorder) { r.notifier = n }
}

// WithEventHub publishes transitions to hub.
func WithEventHub(h *EventHub) Option {
	return func(r *Recorder) {
		if h != nil {
			r.hub = h
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logging.NewComponentLogger(logger, "recorder")
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithWorkingDir overrides the directory used when no destination is set.
func WithWorkingDir(fn func() (string, error)) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.workingDir = fn
		}
	}
}

// Recorder owns at most one encoder process.
type Recorder struct {
	cfg        *config.Config
	launcher   ffmpeg.Launcher
	store      Store
	remuxer    Remuxer
	notifier   Notifier
	hub        *EventHub
	logger     *slog.Logger
	now        func() time.Time
	workingDir func() (string, error)
	newID      func() string

	mu       sync.Mutex
	state    State
	pending  bool
	stopping bool
	current  *Session
	proc     ffmpeg.Process
	exited   chan struct{}
	exitErr  error
	status   statusInfo
}

// New constructs an idle recorder.
func New(cfg *config.Config, opts ...Option) *Recorder {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	r := &Recorder{
		cfg:        cfg,
		launcher:   ffmpeg.ExecLauncher{},
		hub:        NewEventHub(0),
		logger:     logging.NewComponentLogger(nil, "recorder"),
		now:        time.Now,
		workingDir: os.Getwd,
		newID:      func() string { return uuid.NewString() },
		state:      StateIdle,
		status:     statusInfo{message: MessageReady},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events returns the hub transitions are published to.
func (r *Recorder) Events() *EventHub {
	return r.hub
}

// State reports the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Current returns a copy of the active session, or nil when idle.
func (r *Recorder) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	cp := *r.current
	return &cp
}

type spawnOutcome struct {
	session *Session
	err     error
}

// Start launches a capture of monitor using cfg. It fails with
// ErrAlreadyRecording while another session is active or launching. The
// launch itself runs on a worker goroutine; if ctx ends first Start returns
// ctx.Err() and the launch result is still applied.
func (r *Recorder) Start(ctx context.Context, cfg session.Config, monitor monitors.Entry) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	r.mu.Lock()
	if r.state != StateIdle || r.pending {
		r.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	r.pending = true
	r.mu.Unlock()

	sess, cmd, err := r.prepare(cfg, monitor)
	if err != nil {
		r.failSpawn(sess, err)
		return nil, err
	}

	done := make(chan spawnOutcome, 1)
	go func() {
		proc, launchErr := r.launcher.Launch(cmd)
		done <- r.applySpawn(context.WithoutCancel(ctx), sess, proc, launchErr)
	}()

	select {
	case out := <-done:
		return out.session, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Recorder) prepare(cfg session.Config, monitor monitors.Entry) (*Session, ffmpeg.Command, error) {
	binary := r.cfg.Tools.FFmpeg
	sess := &Session{
		ID:        r.newID(),
		StartedAt: r.now(),
		Config:    cfg,
		Monitor:   monitor,
	}
	if strings.TrimSpace(monitor.Geometry) == "" {
		sess.Monitor.Geometry = r.cfg.Capture.Display
		if sess.Monitor.Geometry == "" {
			sess.Monitor.Geometry = ":0.0"
		}
	}

	dest := strings.TrimSpace(cfg.Destination)
	if dest == "" {
		wd, err := r.workingDir()
		if err != nil {
			return sess, ffmpeg.Command{}, &SpawnError{Binary: binary, Err: fmt.Errorf("resolve working directory: %w", err)}
		}
		dest = wd
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return sess, ffmpeg.Command{}, &SpawnError{Binary: binary, Err: fmt.Errorf("create destination: %w", err)}
	}

	sess.OutputPath = filepath.Join(dest, OutputName(sess.StartedAt, r.cfg.Capture.Container))
	if r.cfg.Paths.LogDir != "" {
		sess.LogPath = filepath.Join(r.cfg.Paths.LogDir, "capture-"+sess.ID+".log")
	}

	args := ffmpeg.CaptureArgs(ffmpeg.CaptureOptions{
		Geometry:         sess.Monitor.Geometry,
		Resolution:       string(cfg.Resolution),
		FrameRate:        int(cfg.FrameRate),
		InputFormat:      r.cfg.Capture.InputFormat,
		Encoder:          cfg.Codec.Encoder(),
		Quality:          cfg.Quality,
		Preset:           r.cfg.Capture.Preset,
		Audio:            cfg.Audio,
		AudioInputFormat: r.cfg.Capture.AudioInputFormat,
		AudioDevice:      r.cfg.Capture.AudioDevice,
		AudioCodec:       r.cfg.Capture.AudioCodec,
		Output:           sess.OutputPath,
	})
	return sess, ffmpeg.Command{Binary: binary, Args: args, LogPath: sess.LogPath}, nil
}

// OutputName returns the capture file name for a start time.
func OutputName(started time.Time, container string) string {
	container = strings.TrimPrefix(strings.TrimSpace(container), ".")
	if container == "" {
		container = "mkv"
	}
	return "REC_" + started.Format("20060102_150405") + "." + container
}

func (r *Recorder) failSpawn(sess *Session, err error) {
	r.mu.Lock()
	r.pending = false
	r.status.lastError = err.Error()
	r.status.message = "Error: " + err.Error()
	r.mu.Unlock()

	attrs := []logging.Attr{
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "run `screenrec doctor` to verify ffmpeg and the destination"),
	}
	if sess != nil {
		attrs = append(attrs, logging.String(logging.FieldSessionID, sess.ID))
	}
	logging.ErrorWithContext(r.logger, "recording start failed", string(EventSpawnFailed), attrs...)
	r.hub.Publish(Event{Type: EventSpawnFailed, State: StateIdle, Message: "Recording could not be started", Error: err.Error()})
}

func (r *Recorder) applySpawn(ctx context.Context, sess *Session, proc ffmpeg.Process, launchErr error) spawnOutcome {
	if launchErr != nil {
		err := &SpawnError{Binary: r.cfg.Tools.FFmpeg, Err: launchErr}
		r.failSpawn(sess, err)
		return spawnOutcome{err: err}
	}

	sess.PID = proc.PID()
	exited := make(chan struct{})

	r.mu.Lock()
	r.pending = false
	r.state = StateRecording
	r.current = sess
	r.proc = proc
	r.exited = exited
	r.exitErr = nil
	r.status.lastError = ""
	r.status.message = fmt.Sprintf("Recording %s: %s", sess.Monitor.Name, sess.OutputPath)
	r.mu.Unlock()

	go r.watch(sess.ID, proc, exited)

	logger := r.logger.With(logging.String(logging.FieldSessionID, sess.ID))
	logger.Info("recording started",
		logging.String("monitor", sess.Monitor.Name),
		logging.String("geometry", sess.Monitor.Geometry),
		logging.String("output", sess.OutputPath),
		logging.Int("pid", sess.PID),
		logging.String(logging.FieldEventType, string(EventSessionStarted)),
	)

	if r.store != nil {
		if err := session.Save(ctx, r.store, sess.Config); err != nil {
			logging.WarnWithContext(logger, "session config not persisted", "session_config_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the next run starts from the previous settings"),
			)
		}
		err := r.store.InsertRecording(ctx, settings.Recording{
			ID:         sess.ID,
			OutputPath: sess.OutputPath,
			Monitor:    sess.Monitor.Name,
			Geometry:   sess.Monitor.Geometry,
			StartedAt:  sess.StartedAt,
		})
		if err != nil {
			logging.WarnWithContext(logger, "recording history not written", "history_insert_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this capture will be missing from history"),
			)
		}
	}

	r.hub.Publish(Event{
		Type:      EventSessionStarted,
		State:     StateRecording,
		SessionID: sess.ID,
		Path:      sess.OutputPath,
		Message:   fmt.Sprintf("Recording %s", sess.Monitor.Name),
	})
	r.notify(ctx, "Recording started", filepath.Base(sess.OutputPath))

	cp := *sess
	return spawnOutcome{session: &cp}
}

// watch reaps the encoder. An exit that was not requested through Stop
// returns the recorder to idle and marks the session failed.
func (r *Recorder) watch(id string, proc ffmpeg.Process, exited chan struct{}) {
	err := proc.Wait()

	r.mu.Lock()
	r.exitErr = err
	close(exited)
	if r.current == nil || r.current.ID != id || r.stopping {
		r.mu.Unlock()
		return
	}
	sess := *r.current
	r.state = StateIdle
	r.current = nil
	r.proc = nil
	reason := "encoder exited unexpectedly"
	if err != nil {
		reason = fmt.Sprintf("encoder exited unexpectedly: %v", err)
	}
	r.status.lastError = reason
	r.status.lastOutput = sess.OutputPath
	r.status.message = "Error: " + reason
	r.mu.Unlock()

	ctx := context.Background()
	logging.ErrorWithContext(r.logger, "recording ended unexpectedly", string(EventSessionFailed),
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String("output", sess.OutputPath),
		logging.String("encoder_log", sess.LogPath),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the encoder log for the ffmpeg error"),
	)
	if r.store != nil {
		if ferr := r.store.FinishRecording(ctx, sess.ID, settings.StatusFailed, r.now(), "", reason); ferr != nil {
			r.logger.Warn("history update failed", logging.Error(ferr))
		}
	}
	r.hub.Publish(Event{
		Type:      EventSessionFailed,
		State:     StateIdle,
		SessionID: sess.ID,
		Path:      sess.OutputPath,
		Message:   "Recording stopped unexpectedly",
		Error:     reason,
	})
	r.notify(ctx, "Recording failed", reason)
}

// Stop ends the active session. It is a no-op while idle. The encoder is
// asked to exit and given the configured stop timeout (or until ctx ends)
// before it is killed. If the session had remux enabled, the remux step
// runs before Stop returns; its failure is reported in the result, not as
// an error.
func (r *Recorder) Stop(ctx context.Context) (StopResult, error) {
	r.mu.Lock()
	if r.state != StateRecording || r.stopping || r.current == nil {
		r.mu.Unlock()
		return StopResult{}, nil
	}
	r.stopping = true
	sess := *r.current
	proc := r.proc
	exited := r.exited
	r.mu.Unlock()

	logger := r.logger.With(logging.String(logging.FieldSessionID, sess.ID))
	if err := proc.Terminate(); err != nil {
		logger.Debug("terminate signal not delivered", logging.Error(err))
	}

	forced := false
	graceCtx, cancel := context.WithTimeout(ctx, r.stopTimeout())
	select {
	case <-exited:
	case <-graceCtx.Done():
		forced = true
		if err := proc.Kill(); err != nil {
			logger.Debug("kill not delivered", logging.Error(err))
		}
		<-exited
	}
	cancel()

	stoppedAt := r.now()
	r.mu.Lock()
	exitErr := r.exitErr
	r.state = StateIdle
	r.current = nil
	r.proc = nil
	r.stopping = false
	r.status.lastOutput = sess.OutputPath
	r.status.lastRemux = ""
	r.status.lastError = ""
	r.status.message = MessageStopped
	r.mu.Unlock()

	result := StopResult{
		Stopped:  true,
		Session:  &sess,
		Forced:   forced,
		Duration: stoppedAt.Sub(sess.StartedAt),
		ExitErr:  exitErr,
	}
	if forced {
		logging.WarnWithContext(logger, "encoder did not exit in time; killed", "encoder_killed",
			logging.Duration("timeout", r.stopTimeout()),
			logging.String(logging.FieldImpact, "the capture may be missing its final frames"),
			logging.String(logging.FieldErrorHint, "raise capture.stop_timeout if this repeats"),
		)
	}
	logger.Info("recording stopped",
		logging.String("output", sess.OutputPath),
		logging.Duration("duration", result.Duration),
		logging.Bool("forced", forced),
		logging.String(logging.FieldEventType, string(EventSessionStopped)),
	)
	r.hub.Publish(Event{
		Type:      EventSessionStopped,
		State:     StateIdle,
		SessionID: sess.ID,
		Path:      sess.OutputPath,
		Message:   MessageStopped,
	})

	if sess.Config.Remux && r.remuxer != nil {
		r.runRemux(ctx, &sess, &result)
	}

	if r.store != nil {
		errMsg := ""
		if result.RemuxErr != nil {
			errMsg = result.RemuxErr.Error()
		}
		if err := r.store.FinishRecording(context.WithoutCancel(ctx), sess.ID, settings.StatusCompleted, stoppedAt, result.RemuxOutput, errMsg); err != nil {
			logger.Warn("history update failed", logging.Error(err))
		}
	}

	body := filepath.Base(sess.OutputPath)
	if result.RemuxOutput != "" {
		body = filepath.Base(result.RemuxOutput)
	}
	r.notify(ctx, "Recording saved", body)
	return result, nil
}

func (r *Recorder) runRemux(ctx context.Context, sess *Session, result *StopResult) {
	// Remux only looks at the configured destination, never the working
	// directory fallback used for the capture itself.
	dir := strings.TrimSpace(sess.Config.Destination)
	r.hub.Publish(Event{Type: EventRemuxStarted, State: StateIdle, SessionID: sess.ID, Path: sess.OutputPath, Message: "Remuxing"})

	out, err := r.remuxer.Remux(ctx, dir)
	if err != nil {
		result.RemuxErr = err
		logging.WarnWithContext(r.logger, "remux failed; capture kept", string(EventRemuxFailed),
			logging.String(logging.FieldSessionID, sess.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "only the original capture is available"),
		)
		r.mu.Lock()
		r.status.lastError = err.Error()
		r.status.message = "Remux failed: " + err.Error()
		r.mu.Unlock()
		r.hub.Publish(Event{Type: EventRemuxFailed, State: StateIdle, SessionID: sess.ID, Path: sess.OutputPath, Message: "Remux failed", Error: err.Error()})
		return
	}

	result.RemuxOutput = out
	r.mu.Lock()
	r.status.lastRemux = out
	r.status.message = fmt.Sprintf("Remuxed to %s: %s", strings.ToUpper(strings.TrimPrefix(filepath.Ext(out), ".")), out)
	r.mu.Unlock()
	r.hub.Publish(Event{Type: EventRemuxCompleted, State: StateIdle, SessionID: sess.ID, Path: out, Message: "Remux completed"})
}

func (r *Recorder) stopTimeout() time.Duration {
	if r.cfg.Capture.StopTimeout > 0 {
		return time.Duration(r.cfg.Capture.StopTimeout) * time.Second
	}
	return 15 * time.Second
}

func (r *Recorder) notify(ctx context.Context, summary, body string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(context.WithoutCancel(ctx), summary, body); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Debug("desktop notification failed", logging.Error(err))
	}
}
