package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Tools names the external binaries screenrec drives.
type Tools struct {
	FFmpeg   string `toml:"ffmpeg"`
	XRandR   string `toml:"xrandr"`
	XDPYInfo string `toml:"xdpyinfo"`
}

// Capture contains encoder invocation settings that are not per-recording choices.
type Capture struct {
	Display          string `toml:"display"`
	InputFormat      string `toml:"input_format"`
	Preset           string `toml:"preset"`
	AudioInputFormat string `toml:"audio_input_format"`
	AudioDevice      string `toml:"audio_device"`
	AudioCodec       string `toml:"audio_codec"`
	Container        string `toml:"container"`
	// StopTimeout bounds how long a graceful stop waits for the encoder to
	// finalize its output before the process is killed. Seconds.
	StopTimeout int `toml:"stop_timeout"`
}

// Remux contains post-recording remux settings.
type Remux struct {
	TargetContainer string `toml:"target_container"`
}

// API contains the daemon HTTP control API settings.
type API struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Notifications contains desktop notification settings.
type Notifications struct {
	Enabled bool   `toml:"enabled"`
	AppName string `toml:"app_name"`
}

// Hotplug controls monitor hot-plug detection in the daemon.
type Hotplug struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for screenrec.
//
// Configuration sections by subsystem:
//   - Paths: state directory (settings database, lock), logs, IPC socket
//   - Tools: ffmpeg and the display enumeration utilities
//   - Capture: x11grab/pulse input selection and encoder preset
//   - Remux: target container for the post-recording remux
//   - API: daemon HTTP control surface
//   - Notifications: desktop notifications over D-Bus
//   - Hotplug: udev-driven monitor catalog refresh
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Capture       Capture       `toml:"capture"`
	Remux         Remux         `toml:"remux"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Hotplug       Hotplug       `toml:"hotplug"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("screenrec.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SettingsPath returns the location of the settings database.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Paths.StateDir, "settings.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "screenrecd.lock")
}

// PIDPath returns the file the running daemon writes its process id to.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "screenrecd.pid")
}

// CaptureExtension returns the capture container as a file extension (".mkv").
func (c *Config) CaptureExtension() string {
	return "." + strings.TrimPrefix(c.Capture.Container, ".")
}

// RemuxExtension returns the remux target container as a file extension (".mp4").
func (c *Config) RemuxExtension() string {
	return "." + strings.TrimPrefix(c.Remux.TargetContainer, ".")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
