package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screenrec/internal/api"
	"screenrec/internal/daemonctl"
	"screenrec/internal/ipc"
	"screenrec/internal/recorder"
	"screenrec/internal/session"
)

const (
	daemonStartTimeout = 10 * time.Second
	recordPollInterval = 500 * time.Millisecond
)

// sessionFlags are the per-recording overrides shared by start and record.
type sessionFlags struct {
	monitor     int
	resolution  string
	frameRate   int
	codec       string
	quality     int
	audio       bool
	remux       bool
	destination string
}

var sessionFlagKeys = map[string]string{
	"monitor":     session.KeyMonitor,
	"resolution":  session.KeyResolution,
	"framerate":   session.KeyFrameRate,
	"codec":       session.KeyCodec,
	"quality":     session.KeyQuality,
	"audio":       session.KeyAudio,
	"remux":       session.KeyRemux,
	"destination": session.KeyDestination,
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVarP(&f.monitor, "monitor", "m", 0, "Monitor index from `screenrec monitors`")
	flags.StringVarP(&f.resolution, "resolution", "r", "", "Frame size (1920x1080, 1280x720, 640x480)")
	flags.IntVar(&f.frameRate, "framerate", 0, "Frames per second (30, 60, 24)")
	flags.StringVar(&f.codec, "codec", "", "Video codec (h264 or h265)")
	flags.IntVarP(&f.quality, "quality", "q", 0, "Constant rate factor, 0-51 (lower is better)")
	flags.BoolVar(&f.audio, "audio", true, "Capture audio")
	flags.BoolVar(&f.remux, "remux", false, "Remux to the target container after stopping")
	flags.StringVarP(&f.destination, "destination", "d", "", "Directory captures are written to")
}

func (f *sessionFlags) value(name string) string {
	switch name {
	case "monitor":
		return strconv.Itoa(f.monitor)
	case "resolution":
		return f.resolution
	case "framerate":
		return strconv.Itoa(f.frameRate)
	case "codec":
		return f.codec
	case "quality":
		return strconv.Itoa(f.quality)
	case "audio":
		return strconv.FormatBool(f.audio)
	case "remux":
		return strconv.FormatBool(f.remux)
	default:
		return f.destination
	}
}

// apply overlays the flags the user set on base. It reports false when no
// flag was set, so callers can let the daemon use the saved config.
func (f *sessionFlags) apply(cmd *cobra.Command, base api.SessionConfig) (api.SessionConfig, bool, error) {
	cfg, err := base.ToSessionConfig()
	if err != nil {
		return base, false, err
	}
	changed := false
	for name, key := range sessionFlagKeys {
		if !cmd.Flags().Changed(name) {
			continue
		}
		if err := cfg.Set(key, f.value(name)); err != nil {
			return base, false, fmt.Errorf("--%s: %w", name, err)
		}
		changed = true
	}
	return api.FromSessionConfig(cfg), changed, nil
}

func newRecordingCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStartCommand(ctx),
		newStopCommand(ctx),
		newRecordCommand(ctx),
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start recording in the background (launches the daemon if needed)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			started, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx), daemonStartTimeout)
			if err != nil {
				return err
			}
			if started.Launched && !jsonOutput {
				fmt.Fprintln(stdout, "Daemon not running, launched it")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				override, err := remoteOverride(cmd, client, &flags)
				if err != nil {
					return err
				}
				resp, err := client.StartRecording(override)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				printStarted(stdout, resp.Session, resp.Message)
				fmt.Fprintln(stdout, "Run `screenrec stop` to finish the recording")
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func remoteOverride(cmd *cobra.Command, client *ipc.Client, flags *sessionFlags) (*api.SessionConfig, error) {
	base, err := client.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg, changed, err := flags.apply(cmd, *base)
	if err != nil || !changed {
		return nil, err
	}
	return &cfg, nil
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ipc.Dial(ctx.socketPath())
			if err != nil {
				if daemonctl.IsDaemonUnavailable(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "No recording in progress (daemon not running)")
					return nil
				}
				return wrapDialError(err, ctx.socketPath())
			}
			defer client.Close()
			res, err := client.StopRecording()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, res)
			}
			printStopResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), *res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// recordingTarget is what the foreground record loop drives: the daemon
// over IPC or an in-process daemon.
type recordingTarget interface {
	start(ctx context.Context, override *api.SessionConfig) (api.Session, string, error)
	recording(ctx context.Context) (bool, string)
	stop(ctx context.Context) (api.StopResult, error)
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record in the foreground until Ctrl+C or --duration elapses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			waitCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if duration > 0 {
				var stopTimer context.CancelFunc
				waitCtx, stopTimer = context.WithTimeout(waitCtx, duration)
				defer stopTimer()
			}

			client, err := ipc.Dial(ctx.socketPath())
			if err == nil {
				defer client.Close()
				return runRecording(waitCtx, cmd, remoteTarget{client: client}, &flags, func() (api.SessionConfig, error) {
					cfg, err := client.LoadConfig()
					if err != nil {
						return api.SessionConfig{}, err
					}
					return *cfg, nil
				})
			}
			if !daemonctl.IsDaemonUnavailable(err) {
				return wrapDialError(err, ctx.socketPath())
			}

			local, err := ctx.openLocal(true)
			if err != nil {
				return err
			}
			defer local.Close()
			if err := local.Start(cmd.Context()); err != nil {
				return err
			}
			target := localTarget{backend: localBackend{daemon: local}}
			return runRecording(waitCtx, cmd, target, &flags, func() (api.SessionConfig, error) {
				return target.backend.LoadConfig(cmd.Context())
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop automatically after this long (e.g. 30s, 5m)")
	return cmd
}

func runRecording(waitCtx context.Context, cmd *cobra.Command, target recordingTarget, flags *sessionFlags, load func() (api.SessionConfig, error)) error {
	stdout := cmd.OutOrStdout()
	base, err := load()
	if err != nil {
		return err
	}
	cfg, changed, err := flags.apply(cmd, base)
	if err != nil {
		return err
	}
	var override *api.SessionConfig
	if changed {
		override = &cfg
	}

	sess, message, err := target.start(cmd.Context(), override)
	if err != nil {
		return err
	}
	printStarted(stdout, sess, message)
	fmt.Fprintln(stdout, "Press Ctrl+C to stop")

	ticker := time.NewTicker(recordPollInterval)
	defer ticker.Stop()
	ended := ""
wait:
	for {
		select {
		case <-waitCtx.Done():
			break wait
		case <-ticker.C:
			if active, reason := target.recording(cmd.Context()); !active {
				ended = reason
				break wait
			}
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	res, err := target.stop(stopCtx)
	if err != nil {
		return err
	}
	if ended != "" {
		return fmt.Errorf("recording ended unexpectedly: %s", ended)
	}
	printStopResult(stdout, cmd.ErrOrStderr(), res)
	return nil
}

type remoteTarget struct {
	client *ipc.Client
}

func (t remoteTarget) start(_ context.Context, override *api.SessionConfig) (api.Session, string, error) {
	resp, err := t.client.StartRecording(override)
	if err != nil {
		return api.Session{}, "", err
	}
	return resp.Session, resp.Message, nil
}

func (t remoteTarget) recording(context.Context) (bool, string) {
	status, err := t.client.Status()
	if err != nil {
		return false, err.Error()
	}
	return recorderActive(status.Recorder)
}

func (t remoteTarget) stop(context.Context) (api.StopResult, error) {
	res, err := t.client.StopRecording()
	if err != nil {
		return api.StopResult{}, err
	}
	return *res, nil
}

type localTarget struct {
	backend localBackend
}

func (t localTarget) start(ctx context.Context, override *api.SessionConfig) (api.Session, string, error) {
	var cfg *session.Config
	if override != nil {
		converted, err := override.ToSessionConfig()
		if err != nil {
			return api.Session{}, "", err
		}
		cfg = &converted
	}
	sess, err := t.backend.daemon.StartRecording(ctx, cfg)
	if err != nil {
		return api.Session{}, "", err
	}
	return *api.FromSession(sess), t.backend.daemon.RecorderStatus().Message, nil
}

func (t localTarget) recording(context.Context) (bool, string) {
	return recorderActive(api.FromRecorderStatus(t.backend.daemon.RecorderStatus()))
}

func (t localTarget) stop(ctx context.Context) (api.StopResult, error) {
	res, err := t.backend.daemon.StopRecording(ctx)
	if err != nil {
		return api.StopResult{}, err
	}
	return api.FromStopResult(res), nil
}

func recorderActive(status api.RecorderStatus) (bool, string) {
	if status.State == string(recorder.StateRecording) {
		return true, ""
	}
	reason := status.LastError
	if reason == "" {
		reason = status.Message
	}
	return false, reason
}

func printStarted(out io.Writer, sess api.Session, message string) {
	if message != "" {
		fmt.Fprintln(out, message)
	}
	fmt.Fprintf(out, "Session: %s\n", sess.ID)
	fmt.Fprintf(out, "Monitor: %d %s (%s)\n", sess.Monitor.Index, sess.Monitor.Name, sess.Monitor.Geometry)
	fmt.Fprintf(out, "Output:  %s\n", sess.OutputPath)
}

func printStopResult(out, errOut io.Writer, res api.StopResult) {
	if !res.Stopped {
		fmt.Fprintln(out, "No recording in progress")
		return
	}
	fmt.Fprintln(out, recorder.MessageStopped)
	if res.Session != nil {
		fmt.Fprintf(out, "Saved:   %s (%s)\n", res.Session.OutputPath, (time.Duration(res.DurationMS) * time.Millisecond).Round(time.Second))
	}
	if res.Forced {
		fmt.Fprintln(errOut, "warning: encoder did not exit in time and was killed; the file may be truncated")
	}
	switch {
	case res.RemuxOutput != "":
		fmt.Fprintf(out, "Remuxed: %s\n", res.RemuxOutput)
	case res.RemuxError != "":
		fmt.Fprintf(errOut, "warning: remux failed: %s\n", res.RemuxError)
	}
}
