package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"screenrec/internal/config"
	"screenrec/internal/daemon"
	"screenrec/internal/deps"
	"screenrec/internal/ipc"
	"screenrec/internal/logging"
	"screenrec/internal/preflight"
	"screenrec/internal/settings"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Foreground keeps log output on stdout in addition to the log file.
	Foreground bool
	// DaemonOptions are forwarded to daemon.New.
	DaemonOptions []daemon.Option
}

// Run starts the screenrec daemon and blocks until a signal arrives or a
// client requests shutdown.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := filepath.Join(cfg.Paths.LogDir, daemon.LogFileName)
	outputs := []string{logPath}
	if opts.Foreground {
		outputs = append([]string{"stdout"}, outputs...)
	}
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(signalCtx, logger, cfg)
	pidPath := cfg.PIDPath()

	store, err := settings.Open(cfg.SettingsPath())
	if err != nil {
		logger.Error("open settings store", logging.Error(err))
		return err
	}
	defer store.Close()

	d, err := daemon.New(cfg, store, logger, opts.DaemonOptions...)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	// Start takes the instance lock, so it runs before anything touches the
	// pid file or the socket of a daemon that may already be running.
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	defer d.Stop()

	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Paths.SocketPath, d, logger, ipc.WithShutdown(cancel))
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("screenrec daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", cfg.Paths.SocketPath),
		logging.String("api", d.APIAddress()),
		logging.Int("pid", os.Getpid()),
	)

	<-signalCtx.Done()
	logger.Info("screenrec daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := preflight.ProbeSystemDeps(ctx, cfg)
	attrs := []any{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("display", cfg.Capture.Display),
	}
	for _, status := range statuses {
		name := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(name+"_available", status.Available),
			logging.String(name+"_binary", status.Path))
		if status.Version != "" {
			attrs = append(attrs, logging.String(name+"_version", status.Version))
		}
	}
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		attrs = append(attrs, logging.Any("missing_required", missing))
	}
	if gaps := deps.MissingFeatures(statuses); len(gaps) > 0 {
		attrs = append(attrs, logging.Any("missing_features", gaps))
	}
	logger.Info("dependency snapshot", attrs...)
}
