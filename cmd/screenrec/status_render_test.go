package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"screenrec/internal/api"
)

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("State", statusOK, "Idle", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "State:", "[OK] Idle")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}

	colored := renderStatusLine("State", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:                       "0 B",
		1023:                    "1,023 B",
		1536:                    "1.5 KiB",
		5 * 1024 * 1024:         "5.0 MiB",
		3 << 40:                 "3.0 TiB",
		2048 * (int64(1) << 40): "2,048.0 TiB",
	}
	for size, want := range cases {
		if got := formatBytes(size); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", size, got, want)
		}
	}
}

func TestStateLabel(t *testing.T) {
	if got := stateLabel("recording"); got != "Recording" {
		t.Fatalf("stateLabel(recording) = %q", got)
	}
	if got := stateLabel(" not_found "); got != "Not Found" {
		t.Fatalf("stateLabel(not_found) = %q", got)
	}
}

func TestRecordingLength(t *testing.T) {
	rec := api.Recording{StartedAt: "2026-01-02T10:00:00.000Z", StoppedAt: "2026-01-02T10:01:30.000Z"}
	if got := recordingLength(rec); got != "1m30s" {
		t.Fatalf("recordingLength = %q", got)
	}
	rec.StoppedAt = ""
	if got := recordingLength(rec); got != "-" {
		t.Fatalf("expected - for open recording, got %q", got)
	}
}

func TestDependencyLinesMissingRequired(t *testing.T) {
	deps := []api.DependencyStatus{
		{Name: "ffmpeg", Command: "ffmpeg", Available: true},
		{Name: "xrandr", Command: "xrandr", Available: false, Detail: "not found in PATH"},
	}
	lines := dependencyLines(deps, false)
	joined := strings.Join(lines, "\n")
	requireContains(t, joined, "xrandr")
	requireContains(t, joined, "[ERROR]")
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}
