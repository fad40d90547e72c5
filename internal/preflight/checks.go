package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"screenrec/internal/config"
	"screenrec/internal/deps"
	"screenrec/internal/session"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// x11SocketDir holds the local X server sockets.
var x11SocketDir = "/tmp/.X11-unix"

// CheckDisplay verifies that the configured X display names a local server
// with a listening socket. Remote displays (host:N) are reported without
// probing.
func CheckDisplay(display string) Result {
	const name = "X display"
	display = strings.TrimSpace(display)
	if display == "" {
		return Result{Name: name, Detail: "no display configured (set DISPLAY or capture.display)"}
	}
	host, rest, ok := strings.Cut(display, ":")
	if !ok {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing ':')", display)}
	}
	number, _, _ := strings.Cut(rest, ".")
	n, err := strconv.Atoi(number)
	if err != nil || n < 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: invalid display number)", display)}
	}
	if host != "" && host != "unix" {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (remote, not probed)", display)}
	}
	socket := filepath.Join(x11SocketDir, "X"+strconv.Itoa(n))
	if _, err := os.Stat(socket); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no X server socket at %s)", display, socket)}
	}
	return Result{Name: name, Passed: true, Detail: display}
}

// CheckSessionBus reports whether a D-Bus session bus address is available
// for desktop notifications.
func CheckSessionBus() Result {
	const name = "Session bus"
	if addr := strings.TrimSpace(os.Getenv("DBUS_SESSION_BUS_ADDRESS")); addr != "" {
		return Result{Name: name, Passed: true, Detail: "address set"}
	}
	if runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtimeDir != "" {
		if _, err := os.Stat(filepath.Join(runtimeDir, "bus")); err == nil {
			return Result{Name: name, Passed: true, Detail: "user bus socket present"}
		}
	}
	return Result{Name: name, Detail: "no session bus found; notifications will be skipped"}
}

// CheckSystemDeps resolves the external programs for the given config on
// PATH. Both the daemon status and the offline status snapshot use it.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(systemRequirements(cfg))
}

// ProbeSystemDeps also runs the tools to read their versions and confirm
// the ffmpeg build has the capture device, audio input and encoders.
func ProbeSystemDeps(ctx context.Context, cfg *config.Config, opts ...deps.Option) []deps.Status {
	opts = append([]deps.Option{deps.WithProbes()}, opts...)
	return deps.NewChecker(opts...).Check(ctx, systemRequirements(cfg))
}

func systemRequirements(cfg *config.Config) []deps.Requirement {
	devices := []string{"-hide_banner", "-devices"}
	encoders := []string{"-hide_banner", "-encoders"}
	ffmpegFeatures := []deps.Feature{
		{Args: devices, Token: cfg.Capture.InputFormat},
		{Args: devices, Token: cfg.Capture.AudioInputFormat},
	}
	for _, codec := range session.Codecs {
		ffmpegFeatures = append(ffmpegFeatures, deps.Feature{Args: encoders, Token: codec.Encoder()})
	}
	return []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "Required for capture and remux",
			VersionArgs: []string{"-hide_banner", "-version"},
			Features:    ffmpegFeatures,
		},
		{
			Name:        "xrandr",
			Command:     cfg.Tools.XRandR,
			Description: "Lists monitors; falls back to xdpyinfo",
			Optional:    true,
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "xdpyinfo",
			Command:     cfg.Tools.XDPYInfo,
			Description: "Lists Xinerama heads when xrandr is unavailable",
			Optional:    true,
			VersionArgs: []string{"-version"},
		},
	}
}
