// Package failure classifies errors so control surfaces can map them to
// exit codes, RPC messages, and HTTP statuses.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a stable error classification.
type Kind string

const (
	KindSpawnFailed   Kind = "spawn_failed"
	KindNotFound      Kind = "not_found"
	KindConfiguration Kind = "configuration"
	KindConflict      Kind = "conflict"
	KindExternal      Kind = "external"
	KindInternal      Kind = "internal"
)

// Classifier allows errors to declare their classification.
type Classifier interface {
	ErrorKind() string
}

type marker struct {
	kind Kind
	msg  string
}

func (m *marker) Error() string     { return m.msg }
func (m *marker) ErrorKind() string { return string(m.kind) }

// New returns a sentinel error carrying kind.
func New(kind Kind, msg string) error {
	return &marker{kind: kind, msg: msg}
}

var (
	ErrConfiguration = New(KindConfiguration, "configuration error")
	ErrNotFound      = New(KindNotFound, "not found")
	ErrExternalTool  = New(KindExternal, "external tool error")
)

// KindOf reports the classification of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var classifier Classifier
	if errors.As(err, &classifier) {
		return Kind(classifier.ErrorKind())
	}
	return KindInternal
}

// Wrap builds an error message that includes component context while tagging
// it with marker for later classification.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = New(KindInternal, "internal error")
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{component, operation, message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
