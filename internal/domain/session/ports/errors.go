// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package ports

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded rejects a start that would exceed the configured
	// concurrent-session limit. No record is created.
	ErrCapacityExceeded = errors.New("session capacity exceeded")

	// ErrSessionNotFound signals an operation on an absent session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotConnected signals a user-facing operation that requires an open
	// connection (e.g. sending a message) on a pending session.
	ErrNotConnected = errors.New("session not connected")

	// ErrInvalidSessionID rejects externally supplied ids that fail
	// validation before any record is created.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrManagerClosed signals an operation after shutdown began.
	ErrManagerClosed = errors.New("session manager is shutting down")
)

// TransportOpError wraps a best-effort transport failure. Cleanup paths log
// and swallow these; user-facing operations surface them to the caller.
type TransportOpError struct {
	Op  string
	Err error
}

func (e *TransportOpError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportOpError) Unwrap() error { return e.Err }
