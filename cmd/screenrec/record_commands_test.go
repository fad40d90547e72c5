package main

import (
	"strings"
	"testing"
	"time"

	"screenrec/internal/recorder"
)

func TestRecordForegroundWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, errOut, err := runCLI(t, env, "record", "--duration", "300ms", "--monitor", "1", "--destination", env.dest, "--audio=false")
	if err != nil {
		t.Fatalf("record: %v (stderr: %s)", err, errOut)
	}
	requireContains(t, out, "HDMI-1")
	requireContains(t, out, "Output:  "+env.dest)
	requireContains(t, out, recorder.MessageStopped)

	cmds := env.launcher.Commands()
	if len(cmds) != 1 {
		t.Fatalf("expected one encoder launch, got %d", len(cmds))
	}
	args := strings.Join(cmds[0].Args, " ")
	if !strings.Contains(args, ":0.0+1920,0") {
		t.Fatalf("expected second monitor offset in %q", args)
	}
	if strings.Contains(args, "pulse") {
		t.Fatalf("expected no audio input with --audio=false, got %q", args)
	}

	out, _, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "HDMI-1")
	requireContains(t, out, "Completed")
}

func TestRecordRejectsBadFlag(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "record", "--duration", "100ms", "--framerate", "25")
	if err == nil || !strings.Contains(err.Error(), "--framerate") {
		t.Fatalf("expected framerate error, got %v", err)
	}
	if len(env.launcher.Commands()) != 0 {
		t.Fatal("encoder launched despite invalid flag")
	}
}

func TestStartStatusStopThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	d := env.startDaemon(t)

	out, _, err := runCLI(t, env, "start", "--destination", env.dest)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Session:")
	requireContains(t, out, "screenrec stop")
	if d.RecorderStatus().State != recorder.StateRecording {
		t.Fatalf("expected daemon recording, got %+v", d.RecorderStatus())
	}

	_, _, err = runCLI(t, env, "start")
	if err == nil {
		t.Fatal("expected second start to fail while recording")
	}

	out, _, err = runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Recording")
	requireContains(t, out, "Running (pid")

	out, _, err = runCLI(t, env, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, recorder.MessageStopped)
	waitFor(t, time.Second, func() bool { return d.RecorderStatus().State == recorder.StateIdle })

	out, _, err = runCLI(t, env, "stop")
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	requireContains(t, out, "No recording in progress")
}

func TestStopWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "daemon not running")
}
