// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ports defines the capability interfaces the session domain consumes.
// The messaging transport, credential persistence, code rendering and event
// fan-out are all external collaborators behind these ports.
package ports

import "context"

// Credentials is the opaque, externally persisted material required to resume
// a session without re-authenticating. The domain never inspects it.
type Credentials []byte

// SaveFunc persists updated credential material for the session it was
// issued for.
type SaveFunc func(ctx context.Context, creds Credentials) error

// EventSink receives transport events for one connection. Implementations
// must tolerate calls from the transport's own goroutines.
type EventSink interface {
	// OnCredentials fires when the transport reports updated key/identity
	// material. The material is forwarded verbatim to persistence.
	OnCredentials(creds Credentials)
	// OnQR fires when a scannable credential becomes available.
	OnQR(payload string)
	// OnOpened fires on successful connection open.
	OnOpened(accountID string)
	// OnClosed fires when the connection ends, with the transport failure
	// code and optional free-text reason.
	OnClosed(code int, reason string)
}

// ConnectParams carries everything the transport needs for one connection.
type ConnectParams struct {
	SessionID   string
	Credentials Credentials
	Sink        EventSink
}

// Transport establishes connections. One Connect call yields at most one
// live Handle; the domain tears a handle down before requesting a new one
// for the same session.
type Transport interface {
	Connect(ctx context.Context, params ConnectParams) (Handle, error)
}

// Handle is one live transport connection.
type Handle interface {
	// RequestPairingCode asks the server for a pairing code, keyed by a
	// digits-only phone number.
	RequestPairingCode(ctx context.Context, phoneDigits string) (string, error)
	// SendMessage delivers content to target and returns the message id.
	SendMessage(ctx context.Context, target, content string) (string, error)
	// SendPresence publishes a presence state, optionally scoped to target.
	SendPresence(ctx context.Context, state, target string) error
	// Logout asks the server to invalidate this connection's credential.
	Logout(ctx context.Context) error
	// End closes the connection without invalidating credentials.
	End() error
	// AccountID returns the resolved external account identity, or empty
	// before the connection opened.
	AccountID() string
}
