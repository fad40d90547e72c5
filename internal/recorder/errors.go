package recorder

import (
	"fmt"

	"screenrec/internal/failure"
)

var (
	// ErrAlreadyRecording rejects a start while a session is active or launching.
	ErrAlreadyRecording = failure.New(failure.KindConflict, "a recording is already in progress")
	// ErrSpawnFailed marks encoder launch failures.
	ErrSpawnFailed = failure.New(failure.KindSpawnFailed, "failed to start recording")
)

// SpawnError reports that the encoder process could not be launched.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start recording: %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() []error { return []error{ErrSpawnFailed, e.Err} }

func (e *SpawnError) ErrorKind() string { return string(failure.KindSpawnFailed) }
