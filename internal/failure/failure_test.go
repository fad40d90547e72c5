package failure_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"screenrec/internal/failure"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := failure.Wrap(failure.ErrExternalTool, "remux", "ffmpeg", "failed", base)
	if !errors.Is(err, failure.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	for _, fragment := range []string{"remux", "ffmpeg", "failed"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err.Error())
		}
	}
}

func TestKindOf(t *testing.T) {
	conflict := failure.New(failure.KindConflict, "busy")
	cases := []struct {
		err  error
		want failure.Kind
	}{
		{nil, ""},
		{errors.New("plain"), failure.KindInternal},
		{fmt.Errorf("outer: %w", conflict), failure.KindConflict},
		{failure.Wrap(failure.ErrNotFound, "", "", "missing", nil), failure.KindNotFound},
		{failure.Wrap(nil, "x", "", "", nil), failure.KindInternal},
	}
	for _, tc := range cases {
		if got := failure.KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
