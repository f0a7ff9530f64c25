package collection

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteUnavailable is returned when the remote call failed, timed out,
	// returned a non-success status, or returned data that would break the
	// collection's identifier invariants.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrNotFound is returned by Update when no local entity has the given id.
	ErrNotFound = errors.New("entity not found")
)

// RemoteError wraps the cause of an ErrRemoteUnavailable failure.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrRemoteUnavailable, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemoteUnavailable }

func remoteErr(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}
