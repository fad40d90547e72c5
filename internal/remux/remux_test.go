package remux_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"screenrec/internal/failure"
	"screenrec/internal/ffmpeg"
	"screenrec/internal/remux"
)

type stubRunner struct {
	err   error
	calls [][]string
}

func (s *stubRunner) Run(_ context.Context, binary string, args []string) error {
	s.calls = append(s.calls, append([]string{binary}, args...))
	return s.err
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// fixedTimes maps base names to creation times.
func fixedTimes(times map[string]time.Time) remux.CreationTimeFunc {
	return func(path string, _ os.FileInfo) time.Time {
		return times[filepath.Base(path)]
	}
}

func TestRemuxPicksNewestCapture(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.mkv")
	touch(t, dir, "b.mkv")
	touch(t, dir, "c.txt")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	runner := &stubRunner{}
	m := remux.New("ffmpeg",
		remux.WithRunner(runner),
		remux.WithCreationTime(fixedTimes(map[string]time.Time{
			"a.mkv": base,
			"b.mkv": base.Add(time.Second),
			"c.txt": base.Add(time.Hour),
		})),
	)

	out, err := m.Remux(context.Background(), dir)
	if err != nil {
		t.Fatalf("Remux returned error: %v", err)
	}
	if out != filepath.Join(dir, "b.mp4") {
		t.Fatalf("output = %q, want b.mp4", out)
	}
	want := append([]string{"ffmpeg"}, ffmpeg.RemuxArgs(filepath.Join(dir, "b.mkv"), filepath.Join(dir, "b.mp4"))...)
	if len(runner.calls) != 1 || !reflect.DeepEqual(runner.calls[0], want) {
		t.Fatalf("unexpected calls %v", runner.calls)
	}
}

func TestNewestBreaksTiesByName(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "REC_20260101_120000.mkv")
	touch(t, dir, "REC_20260101_120001.mkv")
	same := time.Unix(1000, 0)
	m := remux.New("", remux.WithCreationTime(func(string, os.FileInfo) time.Time { return same }))

	got, err := m.Newest(dir)
	if err != nil {
		t.Fatalf("Newest returned error: %v", err)
	}
	if filepath.Base(got) != "REC_20260101_120001.mkv" {
		t.Fatalf("expected lexically greatest name, got %s", got)
	}
}

func TestRemuxEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "folder.mkv"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	runner := &stubRunner{}
	_, err := remux.New("ffmpeg", remux.WithRunner(runner)).Remux(context.Background(), dir)
	if !errors.Is(err, remux.ErrNoSourceFile) {
		t.Fatalf("expected ErrNoSourceFile, got %v", err)
	}
	if failure.KindOf(err) != failure.KindNotFound {
		t.Fatalf("unexpected kind %q", failure.KindOf(err))
	}
	if len(runner.calls) != 0 {
		t.Fatal("runner must not be invoked without a source")
	}

	if _, err := remux.New("").Remux(context.Background(), filepath.Join(dir, "missing")); !errors.Is(err, remux.ErrNoSourceFile) {
		t.Fatalf("expected ErrNoSourceFile for missing dir, got %v", err)
	}
}

func TestRemuxRequiresDestination(t *testing.T) {
	_, err := remux.New("ffmpeg").Remux(context.Background(), " ")
	if !errors.Is(err, remux.ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
}

func TestRemuxFailureIsTyped(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "only.mkv")
	cause := &ffmpeg.RunError{Binary: "ffmpeg", Err: errors.New("exit status 1"), Stderr: "Invalid data"}
	m := remux.New("ffmpeg", remux.WithRunner(&stubRunner{err: cause}))

	_, err := m.Remux(context.Background(), dir)
	if !errors.Is(err, remux.ErrRemuxFailed) {
		t.Fatalf("expected ErrRemuxFailed, got %v", err)
	}
	var remuxErr *remux.Error
	if !errors.As(err, &remuxErr) || remuxErr.Input != filepath.Join(dir, "only.mkv") {
		t.Fatalf("expected *remux.Error with input, got %#v", err)
	}
	var runErr *ffmpeg.RunError
	if !errors.As(err, &runErr) || runErr.Stderr != "Invalid data" {
		t.Fatalf("expected underlying RunError, got %v", err)
	}
	if failure.KindOf(err) != failure.KindExternal {
		t.Fatalf("unexpected kind %q", failure.KindOf(err))
	}
}

func TestWithExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "clip.MKV")
	touch(t, dir, "clip.webm")
	m := remux.New("ffmpeg", remux.WithRunner(&stubRunner{}), remux.WithExtensions("webm", ".MOV"))

	out, err := m.Remux(context.Background(), dir)
	if err != nil {
		t.Fatalf("Remux returned error: %v", err)
	}
	if out != filepath.Join(dir, "clip.mov") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestDefaultCreationTimeOrdersRealFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "first.mkv")
	time.Sleep(20 * time.Millisecond)
	touch(t, dir, "second.mkv")

	got, err := remux.New("").Newest(dir)
	if err != nil {
		t.Fatalf("Newest returned error: %v", err)
	}
	if filepath.Base(got) != "second.mkv" {
		t.Fatalf("expected second.mkv, got %s", got)
	}
}
