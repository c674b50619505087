// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "time"

// Event type discriminators carried on the notification bus.
const (
	EventQR          = "qr"
	EventPairingCode = "pairing_code"
	EventConnected   = "connected"
	EventClosed      = "closed"
	EventKilled      = "killed"
	EventReconnect   = "reconnecting"
	EventError       = "error"
	EventSessions    = "sessions" // global snapshot broadcast
)

// TopicGlobal is the broadcast topic carrying fleet snapshots.
const TopicGlobal = "sessions"

// TopicSession returns the per-session event topic for id.
func TopicSession(id string) string {
	return "session:" + id
}

// Event is the typed payload published on the notification bus and delivered
// to API subscribers.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	At        time.Time `json:"at"`

	// credential-ready payloads
	QR          string `json:"qr,omitempty"` // render-ready (data URI), not the raw payload
	PairingCode string `json:"pairingCode,omitempty"`

	// connected
	AccountID string `json:"accountId,omitempty"`

	// closed / killed / reconnecting / error
	Reason  string `json:"reason,omitempty"`
	Class   string `json:"class,omitempty"`
	Code    int    `json:"code,omitempty"`
	Attempt int    `json:"attempt,omitempty"`
	Message string `json:"message,omitempty"`

	// global snapshot broadcast
	Sessions []Snapshot `json:"sessions,omitempty"`
}
