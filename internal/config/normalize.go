package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeCapture()
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.StateDir, defaultSocketName)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = trimOr(c.Tools.FFmpeg, defaultFFmpeg)
	c.Tools.XRandR = trimOr(c.Tools.XRandR, defaultXRandR)
	c.Tools.XDPYInfo = trimOr(c.Tools.XDPYInfo, defaultXDPYInfo)
}

func (c *Config) normalizeCapture() {
	c.Capture.Display = strings.TrimSpace(c.Capture.Display)
	if c.Capture.Display == "" {
		if value, ok := os.LookupEnv("DISPLAY"); ok && strings.TrimSpace(value) != "" {
			c.Capture.Display = screenDisplay(strings.TrimSpace(value))
		} else {
			c.Capture.Display = defaultDisplay
		}
	}
	c.Capture.InputFormat = trimOr(c.Capture.InputFormat, defaultInputFormat)
	c.Capture.Preset = trimOr(c.Capture.Preset, defaultPreset)
	c.Capture.AudioInputFormat = trimOr(c.Capture.AudioInputFormat, defaultAudioInputFormat)
	c.Capture.AudioDevice = trimOr(c.Capture.AudioDevice, defaultAudioDevice)
	c.Capture.AudioCodec = trimOr(c.Capture.AudioCodec, defaultAudioCodec)
	c.Capture.Container = strings.ToLower(strings.TrimPrefix(trimOr(c.Capture.Container, defaultContainer), "."))
	if c.Capture.StopTimeout <= 0 {
		c.Capture.StopTimeout = defaultStopTimeout
	}
	c.Remux.TargetContainer = strings.ToLower(strings.TrimPrefix(trimOr(c.Remux.TargetContainer, defaultRemuxContainer), "."))
	c.Notifications.AppName = trimOr(c.Notifications.AppName, defaultAppName)
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// screenDisplay turns an X display name such as ":1" into a screen-qualified
// one (":1.0") as x11grab expects.
func screenDisplay(display string) string {
	colon := strings.LastIndex(display, ":")
	if colon < 0 {
		return display
	}
	if strings.Contains(display[colon:], ".") {
		return display
	}
	return display + ".0"
}

func trimOr(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
