package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"screenrec/internal/daemonctl"
	"screenrec/internal/ipc"
	"screenrec/internal/recorder"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recorder, daemon, and dependency status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statusCfg := *cfg
			statusCfg.Paths.SocketPath = ctx.socketPath()
			status, err := daemonctl.BuildStatusSnapshot(cmd.Context(), &statusCfg)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			writeSection(stdout, "Recorder", colorize, recorderLines(status, colorize))
			writeSection(stdout, "Daemon", colorize, daemonLines(status, colorize))
			writeSection(stdout, "Dependencies", colorize, dependencyLines(status.Dependencies, colorize))
			writeSection(stdout, "Checks", colorize, checkLines(status.Checks, colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func recorderLines(status *ipc.StatusResponse, colorize bool) []string {
	rec := status.Recorder
	kind := statusInfo
	switch rec.State {
	case string(recorder.StateRecording):
		kind = statusOK
	case string(recorder.StateIdle):
		if rec.LastError != "" {
			kind = statusWarn
		}
	}
	lines := []string{renderStatusLine("State", kind, stateLabel(rec.State), colorize)}
	if rec.Message != "" {
		lines = append(lines, renderStatusLine("Message", statusInfo, rec.Message, colorize))
	}
	if rec.Session != nil {
		mon := rec.Session.Monitor
		lines = append(lines,
			renderStatusLine("Monitor", statusInfo, fmt.Sprintf("%d %s (%s)", mon.Index, mon.Name, mon.Geometry), colorize),
			renderStatusLine("Output", statusInfo, rec.Session.OutputPath, colorize),
			renderStatusLine("Since", statusInfo, rec.Session.StartedAt, colorize),
		)
	}
	if rec.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, rec.LastError, colorize))
	}
	if rec.LastRemux != "" {
		lines = append(lines, renderStatusLine("Last remux", statusInfo, rec.LastRemux, colorize))
	}
	return lines
}

func daemonLines(status *ipc.StatusResponse, colorize bool) []string {
	var lines []string
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running (run `screenrec daemon start`)", colorize))
	}
	lines = append(lines,
		renderStatusLine("Display", statusInfo, status.Display, colorize),
		renderStatusLine("Monitors", statusInfo, numbers.Sprintf("%d", status.Monitors), colorize),
	)
	if status.APIAddress != "" {
		lines = append(lines, renderStatusLine("HTTP API", statusOK, "http://"+status.APIAddress, colorize))
	}
	if status.Running {
		kind := statusInfo
		if status.Hotplug {
			kind = statusOK
		}
		lines = append(lines, renderStatusLine("Hot-plug", kind, yesNo(status.Hotplug), colorize))
	}
	lines = append(lines, renderStatusLine("Settings", statusInfo, status.SettingsPath, colorize))
	if status.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, status.LogPath, colorize))
	}
	return lines
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	var missing []string
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			switch {
			case dep.Path != "" && dep.Version != "":
				message = fmt.Sprintf("Ready (%s, %s)", dep.Path, dep.Version)
			case dep.Path != "":
				message = fmt.Sprintf("Ready (%s)", dep.Path)
			}
			if len(dep.MissingFeatures) > 0 {
				lines = append(lines, renderStatusLine(dep.Name, statusWarn,
					message+"; missing "+strings.Join(dep.MissingFeatures, ", "), colorize))
				continue
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		if !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusError, strings.Join(missing, ", ")+" (recording is unavailable)", colorize))
	}
	return lines
}

func checkLines(checks []ipc.CheckResult, colorize bool) []string {
	if len(checks) == 0 {
		return []string{renderStatusLine("Preflight", statusOK, "All checks passed", colorize)}
	}
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return lines
}
