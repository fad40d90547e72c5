package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"screenrec/internal/config"
	"screenrec/internal/daemon"
	"screenrec/internal/daemonctl"
	"screenrec/internal/ipc"
	"screenrec/internal/logging"
	"screenrec/internal/settings"
)

type commandContext struct {
	socketFlag   *string
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// daemonOpts are applied to in-process daemons (offline commands and
	// foreground recording) and to `daemon run`.
	daemonOpts []daemon.Option
}

type contextOption func(*commandContext)

func withDaemonOptions(opts ...daemon.Option) contextOption {
	return func(c *commandContext) { c.daemonOpts = append(c.daemonOpts, opts...) }
}

func newCommandContext(socketFlag, configFlag, logLevelFlag *string, opts ...contextOption) *commandContext {
	c := &commandContext{
		socketFlag:   socketFlag,
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil {
		if socket := strings.TrimSpace(*c.socketFlag); socket != "" {
			return socket
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.Paths.SocketPath
	}
	return ""
}

func (c *commandContext) resolvedLogLevel(cfg *config.Config) string {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			return level
		}
	}
	if cfg != nil {
		return cfg.Logging.Level
	}
	return "info"
}

// cliLogger logs to stderr. Offline commands default to warnings only so
// their stdout stays clean.
func (c *commandContext) cliLogger(defaultLevel string) *slog.Logger {
	cfg := c.configValue()
	level := defaultLevel
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		level = *c.logLevelFlag
	}
	format := ""
	if cfg != nil {
		format = cfg.Logging.Format
	}
	logger, err := logging.New(logging.Options{Level: level, Format: format, OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `screenrec daemon start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

// openLocal builds an in-process daemon. The HTTP API and hot-plug watcher
// stay off; notifications only fire for foreground recordings. Close on the
// returned daemon also closes the settings store.
func (c *commandContext) openLocal(foreground bool) (*daemon.Daemon, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	local := *cfg
	local.API.Enabled = false
	local.Hotplug.Enabled = false
	if !foreground {
		local.Notifications.Enabled = false
	}

	store, err := settings.Open(local.SettingsPath())
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	level := "warn"
	if foreground {
		level = c.resolvedLogLevel(cfg)
	}
	d, err := daemon.New(&local, store, c.cliLogger(level), c.daemonOpts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return d, nil
}

// withBackend runs fn against the daemon when one is listening and against
// an in-process daemon otherwise.
func (c *commandContext) withBackend(fn func(backend) error) error {
	client, err := ipc.Dial(c.socketPath())
	if err == nil {
		defer client.Close()
		return fn(remoteBackend{client: client})
	}
	if !daemonctl.IsDaemonUnavailable(err) {
		return wrapDialError(err, c.socketPath())
	}
	local, err := c.openLocal(false)
	if err != nil {
		return err
	}
	defer local.Close()
	return fn(localBackend{daemon: local})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
