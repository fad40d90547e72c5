package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"screenrec/internal/config"
	"screenrec/internal/deps"
	"screenrec/internal/failure"
	"screenrec/internal/logging"
	"screenrec/internal/monitors"
	"screenrec/internal/notifications"
	"screenrec/internal/preflight"
	"screenrec/internal/recorder"
	"screenrec/internal/remux"
	"screenrec/internal/session"
	"screenrec/internal/settings"
)

// LogFileName is the daemon log file inside the log directory.
const LogFileName = "screenrecd.log"

// Daemon owns the settings store, the monitor catalog, and the recorder, and
// enforces single-instance execution per state directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *settings.Store
	catalog  *monitors.Catalog
	recorder *recorder.Recorder
	remuxer  *remux.Remuxer
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	hotplug *hotplugMonitor
	api     *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool               `json:"running"`
	Recorder     recorder.Status    `json:"recorder"`
	Display      string             `json:"display"`
	Monitors     int                `json:"monitors"`
	Dependencies []deps.Status      `json:"dependencies"`
	Preflight    []preflight.Result `json:"preflight,omitempty"`
	SettingsPath string             `json:"settings_path"`
	LockFilePath string             `json:"lock_file_path"`
	LogPath      string             `json:"log_path"`
	APIAddress   string             `json:"api_address,omitempty"`
	Hotplug      bool               `json:"hotplug"`
}

// Option customizes daemon construction.
type Option func(*options)

type options struct {
	catalogOpts  []monitors.Option
	recorderOpts []recorder.Option
	remuxOpts    []remux.Option
	notifier     notifications.Service
}

// WithCatalogOptions passes options to the monitor catalog.
func WithCatalogOptions(opts ...monitors.Option) Option {
	return func(o *options) { o.catalogOpts = append(o.catalogOpts, opts...) }
}

// WithRecorderOptions passes options to the recorder.
func WithRecorderOptions(opts ...recorder.Option) Option {
	return func(o *options) { o.recorderOpts = append(o.recorderOpts, opts...) }
}

// WithRemuxOptions passes options to the remuxer.
func WithRemuxOptions(opts ...remux.Option) Option {
	return func(o *options) { o.remuxOpts = append(o.remuxOpts, opts...) }
}

// WithNotifier replaces the desktop notification service.
func WithNotifier(n notifications.Service) Option {
	return func(o *options) { o.notifier = n }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *settings.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and settings store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = notifications.NewService(cfg)
	}

	catalogOpts := append([]monitors.Option{
		monitors.WithLogger(logger),
		monitors.WithTools(cfg.Tools.XRandR, cfg.Tools.XDPYInfo),
	}, o.catalogOpts...)
	catalog := monitors.NewCatalog(cfg.Capture.Display, catalogOpts...)

	remuxOpts := append([]remux.Option{
		remux.WithExtensions(cfg.CaptureExtension(), cfg.RemuxExtension()),
		remux.WithLogger(logger),
	}, o.remuxOpts...)
	remuxer := remux.New(cfg.Tools.FFmpeg, remuxOpts...)

	recorderOpts := append([]recorder.Option{
		recorder.WithStore(store),
		recorder.WithRemuxer(remuxer),
		recorder.WithNotifier(o.notifier),
		recorder.WithLogger(logger),
	}, o.recorderOpts...)
	rec := recorder.New(cfg, recorderOpts...)

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		catalog:  catalog,
		recorder: rec,
		remuxer:  remuxer,
		notifier: o.notifier,
		logPath:  logPathFor(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.hotplug = newHotplugMonitor(cfg, logger, d.refreshMonitors)
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

func logPathFor(cfg *config.Config) string {
	if strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, LogFileName)
}

// Start acquires the daemon lock and brings up the background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return failure.New(failure.KindConflict, "another screenrec daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if n, err := d.store.MarkAbandoned(d.ctx, time.Now()); err != nil {
		logging.WarnWithContext(d.logger, "failed to close abandoned recordings", "history_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history may list stale in-progress sessions"),
		)
	} else if n > 0 {
		d.logger.Info("closed recordings left open by a previous run", logging.Int64("count", n))
	}

	if d.cfg.Logging.RetentionDays > 0 && d.cfg.Paths.LogDir != "" {
		logging.PruneOldFiles(d.logger, d.cfg.Paths.LogDir, "capture-*.log", d.cfg.Logging.RetentionDays)
	}

	entries := d.catalog.Refresh(d.ctx)
	d.logger.Info("monitor catalog loaded", logging.Int("count", len(entries)), logging.String("display", d.catalog.Display()))
	d.runPreflight(d.ctx)

	if err := d.hotplug.Start(d.ctx); err != nil {
		d.release()
		return fmt.Errorf("start hotplug monitor: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.hotplug.Stop()
		d.release()
		return err
	}

	d.running.Store(true)
	d.logger.Info("screenrec daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) runPreflight(ctx context.Context) {
	cfg, err := d.LoadConfig(ctx)
	if err != nil {
		cfg = session.Defaults()
	}
	for _, r := range preflight.Failed(preflight.RunAll(ctx, d.cfg, cfg.Destination)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldImpact, "recording may fail until this is fixed"),
		)
	}
	for _, missing := range deps.MissingRequired(preflight.CheckSystemDeps(d.cfg)) {
		logging.WarnWithContext(d.logger, "required tool missing", "dependency_missing",
			logging.String("tool", missing),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set tools.ffmpeg in config.toml"),
			logging.String(logging.FieldImpact, "recordings cannot start"),
		)
	}
}

func (d *Daemon) release() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
}

// Stop ends an active recording, stops background services, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.recorder.State() == recorder.StateRecording {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := d.recorder.Stop(stopCtx); err != nil {
			d.logger.Warn("failed to stop recording during shutdown", logging.Error(err))
		}
		cancel()
	}

	d.api.stop()
	d.hotplug.Stop()
	d.release()
	d.running.Store(false)
	d.logger.Info("screenrec daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// RecorderStatus returns the recorder snapshot without running checks.
func (d *Daemon) RecorderStatus() recorder.Status {
	return d.recorder.Status()
}

// Events exposes the recorder event stream.
func (d *Daemon) Events() *recorder.EventHub {
	return d.recorder.Events()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddress returns the HTTP listener address, or "" when the API is off.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

func (d *Daemon) refreshMonitors(ctx context.Context) {
	entries := d.catalog.Refresh(ctx)
	d.logger.Info("monitor layout changed",
		logging.Int("count", len(entries)),
		logging.String(logging.FieldEventType, "monitors_refreshed"),
	)
}

// ListMonitors returns the monitor catalog, re-enumerating when refresh is set.
func (d *Daemon) ListMonitors(ctx context.Context, refresh bool) []monitors.Entry {
	if refresh {
		return d.catalog.Refresh(ctx)
	}
	return d.catalog.Entries(ctx)
}

// LoadConfig reads the persisted session config.
func (d *Daemon) LoadConfig(ctx context.Context) (session.Config, error) {
	return session.Load(ctx, d.store, len(d.catalog.Entries(ctx)))
}

// SaveConfig validates and persists cfg.
func (d *Daemon) SaveConfig(ctx context.Context, cfg session.Config) (session.Config, error) {
	if err := session.Save(ctx, d.store, cfg); err != nil {
		return session.Config{}, err
	}
	return cfg, nil
}

// SetSetting updates a single persisted key and returns the resulting config.
func (d *Daemon) SetSetting(ctx context.Context, key, value string) (session.Config, error) {
	cfg, err := d.LoadConfig(ctx)
	if err != nil {
		return session.Config{}, err
	}
	if err := cfg.Set(key, value); err != nil {
		return session.Config{}, err
	}
	return d.SaveConfig(ctx, cfg)
}

// ResetConfig clears the persisted session config.
func (d *Daemon) ResetConfig(ctx context.Context) (session.Config, error) {
	return session.Reset(ctx, d.store)
}

// StartRecording begins a capture. A nil override uses the persisted config.
func (d *Daemon) StartRecording(ctx context.Context, override *session.Config) (*recorder.Session, error) {
	var cfg session.Config
	if override != nil {
		cfg = *override
	} else {
		loaded, err := d.LoadConfig(ctx)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	entry, idx := d.catalog.Resolve(ctx, cfg.MonitorIndex)
	cfg.MonitorIndex = idx
	return d.recorder.Start(ctx, cfg, entry)
}

// StopRecording ends the active capture. Stopping while idle is a no-op.
func (d *Daemon) StopRecording(ctx context.Context) (recorder.StopResult, error) {
	return d.recorder.Stop(ctx)
}

// Remux rewraps the newest capture in dir, defaulting to the configured destination.
func (d *Daemon) Remux(ctx context.Context, dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		cfg, err := d.LoadConfig(ctx)
		if err != nil {
			return "", err
		}
		dir = cfg.Destination
	}
	return d.remuxer.Remux(ctx, dir)
}

// History lists recent recordings, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]settings.Recording, error) {
	return d.store.ListRecordings(ctx, limit)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if !d.cfg.Notifications.Enabled {
		return false, "notifications disabled in config", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	st := Status{
		Running:      d.running.Load(),
		Recorder:     d.recorder.Status(),
		Display:      d.catalog.Display(),
		Monitors:     len(d.catalog.Entries(ctx)),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
		SettingsPath: d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		APIAddress:   d.api.address(),
		Hotplug:      d.hotplug.Running(),
	}
	if cfg, err := d.LoadConfig(ctx); err == nil {
		st.Preflight = preflight.Failed(preflight.RunAll(ctx, d.cfg, cfg.Destination))
	}
	return st
}
