// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"time"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
)

// EventKind is a domain event in the session lifecycle.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvQRReceived
	EvPairingCodeIssued
	EvOpened
	EvClosed
	EvPendingExpired
	EvKillRequested
)

// Event carries the metadata for a transition.
type Event struct {
	Kind EventKind

	// EvQRReceived / EvPairingCodeIssued
	Payload string

	// EvOpened
	AccountID string

	// EvClosed
	Code int
	Text string

	// EvKillRequested
	Reason model.ReasonCode
}

// EffectKind enumerates the side effects a transition can demand.
type EffectKind int

const (
	FxNotify EffectKind = iota + 1
	FxPurgeCredentials
	FxScheduleRetry   // backoff restart, consumes the reconnect budget
	FxScheduleRestart // single server-requested restart, budget-free
	FxDestroy
)

// Effect is one ordered side effect produced by Apply. Effects are executed
// by the caller in slice order; the transition logic itself stays testable
// without real I/O.
type Effect struct {
	Kind   EffectKind
	Delay  time.Duration
	Reason model.ReasonCode
	Notice *Notice
}

// Notice is the payload for an FxNotify effect. The manager translates it
// into bus events (rendering QR payloads on the way out).
type Notice struct {
	Type        string // "qr" | "pairing_code" | "connected" | "closed" | "killed" | "reconnecting"
	Class       Class
	Code        int
	Reason      string
	QRPayload   string
	PairingCode string
	AccountID   string
	Attempt     int
}

// Outcome is the result of applying one event.
type Outcome struct {
	Effects []Effect

	// Ignored is set when the event was dropped without touching the record
	// (stale status, re-entrant close, unknown classification).
	Ignored       bool
	IgnoredReason string
}

func (o *Outcome) add(fx Effect) {
	o.Effects = append(o.Effects, fx)
}
