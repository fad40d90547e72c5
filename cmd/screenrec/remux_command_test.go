package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"screenrec/internal/failure"
	"screenrec/internal/testsupport"
)

func TestRemuxWithoutDestination(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "remux")
	if failure.KindOf(err) != failure.KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRemuxNewestCapture(t *testing.T) {
	env := setupCLITestEnv(t)
	now := time.Now()
	testsupport.WriteCapture(t, filepath.Join(env.dest, "older.mkv"), 16, now.Add(-time.Hour))
	testsupport.WriteCapture(t, filepath.Join(env.dest, "newer.mkv"), 16, now)

	out, _, err := runCLI(t, env, "remux", env.dest)
	if err != nil {
		t.Fatalf("remux: %v", err)
	}
	requireContains(t, out, "Remuxed to "+filepath.Join(env.dest, "newer.mp4"))

	calls := env.remux.Calls()
	if len(calls) != 1 || !strings.Contains(strings.Join(calls[0], " "), "newer.mkv") {
		t.Fatalf("unexpected remux calls: %v", calls)
	}
}

func TestRemuxEmptyDirectory(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "remux", t.TempDir())
	if failure.KindOf(err) != failure.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No recordings yet")
}
