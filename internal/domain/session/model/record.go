// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package model holds the session domain entities. It is dependency-free by
// design; all mutation happens in the manager through lifecycle transitions.
package model

import (
	"strings"
	"time"
)

// SessionRecord is the state of one logical session. It is exclusively owned
// by the lifecycle manager; registry consumers only ever see Snapshot copies.
type SessionRecord struct {
	ID     string
	Status Status

	// Phone is set when the pairing-code flow was requested. Immutable for
	// the record's life.
	Phone string

	// QRPayload and PairingCode are mutually exclusive and only present
	// while the session is pending.
	QRPayload   string
	PairingCode string

	// CreatedAt marks the start of the current pending cycle, not the first
	// ever attempt. It is reset whenever a fresh pending cycle begins.
	CreatedAt   time.Time
	ConnectedAt time.Time // zero until the first successful open of this cycle

	// AccountID is the transport-resolved account identity, set on open.
	AccountID string

	// ReconnectAttempts counts transient failures within one outage episode.
	// Reset to zero on successful connect.
	ReconnectAttempts int

	// Episode is the outage episode token. Non-zero while a scheduled
	// restart is pending; a close event observed during an active episode is
	// ignored so a single outage never double-schedules.
	Episode uint64

	// EpisodeSeq is the monotonic source for episode tokens. It never
	// resets, so a stale restart timer can always be told apart from the
	// episode currently in flight.
	EpisodeSeq uint64

	// Generation identifies the current transport handle. Events and timers
	// carry the generation they were armed under; a mismatch means the
	// handle was replaced and the event is stale.
	Generation uint64
}

// PendingAge returns how long the record has been in its current pending
// cycle. Zero for connected records.
func (r *SessionRecord) PendingAge(now time.Time) time.Duration {
	if !r.Status.IsPending() {
		return 0
	}
	return now.Sub(r.CreatedAt)
}

// Snapshot is the read-only JSON view of a record, used by the status API and
// the global broadcast.
type Snapshot struct {
	ID                string     `json:"id"`
	Status            Status     `json:"status"`
	Connected         bool       `json:"connected"`
	HasQR             bool       `json:"hasQR"`
	HasPairingCode    bool       `json:"hasPairingCode"`
	Phone             string     `json:"phone,omitempty"`
	AccountID         string     `json:"accountId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	ConnectedAt       *time.Time `json:"connectedAt,omitempty"`
	ReconnectAttempts int        `json:"reconnectAttempts"`
}

// SnapshotOf projects a record into its public view.
func SnapshotOf(r *SessionRecord) Snapshot {
	s := Snapshot{
		ID:                r.ID,
		Status:            r.Status,
		Connected:         r.Status == StatusConnected,
		HasQR:             r.QRPayload != "",
		HasPairingCode:    r.PairingCode != "",
		Phone:             r.Phone,
		AccountID:         r.AccountID,
		CreatedAt:         r.CreatedAt,
		ReconnectAttempts: r.ReconnectAttempts,
	}
	if !r.ConnectedAt.IsZero() {
		t := r.ConnectedAt
		s.ConnectedAt = &t
	}
	return s
}

// NormalizePhone strips everything but digits from a phone number, the form
// the transport expects for pairing-code requests.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// IsSafeSessionID reports whether id is acceptable as an externally supplied
// session identifier: non-empty, bounded, and free of path or wire
// metacharacters.
func IsSafeSessionID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return !strings.HasPrefix(id, ".")
}
