package ipc

import (
	"errors"
	"net/rpc"
	"strings"

	"screenrec/internal/failure"
)

// RemoteError is a daemon-side failure returned over RPC. It keeps the
// failure kind so callers can classify it with failure.KindOf.
type RemoteError struct {
	Kind    failure.Kind
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) ErrorKind() string { return string(e.Kind) }

const kindSeparator = "|"

// encodeError flattens err into the string net/rpc transmits.
func encodeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(string(failure.KindOf(err)) + kindSeparator + err.Error())
}

// decodeError restores a RemoteError from an rpc.ServerError. Other errors
// (transport failures) pass through unchanged.
func decodeError(err error) error {
	var serverErr rpc.ServerError
	if !errors.As(err, &serverErr) {
		return err
	}
	kind, msg, ok := strings.Cut(string(serverErr), kindSeparator)
	if !ok {
		return &RemoteError{Kind: failure.KindInternal, Message: string(serverErr)}
	}
	return &RemoteError{Kind: failure.Kind(kind), Message: msg}
}
