// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// Status is the client-visible lifecycle state of a session.
// It is intentionally coarse-grained: closing a session either destroys the
// record or re-enters a pending state, so there is no separate closed status.
type Status string

const (
	StatusPendingQR      Status = "pending_qr"
	StatusPendingPairing Status = "pending_pairing"
	StatusConnected      Status = "connected"
)

// IsPending reports whether the session is still waiting for its
// authentication handshake to complete.
func (s Status) IsPending() bool {
	return s == StatusPendingQR || s == StatusPendingPairing
}

// ReasonCode is a compact, typed destruction/notification signal.
// Keep these stable: metrics + client UX depend on them.
type ReasonCode string

const (
	RNone                ReasonCode = "R_NONE"
	RLoggedOut           ReasonCode = "R_LOGGED_OUT"
	RForbidden           ReasonCode = "R_FORBIDDEN"
	RMultideviceMismatch ReasonCode = "R_MULTIDEVICE_MISMATCH"
	RReplaced            ReasonCode = "R_REPLACED"
	RTerminal            ReasonCode = "R_TERMINAL"
	RMaxReconnect        ReasonCode = "R_MAX_RECONNECT"
	RPendingExpired      ReasonCode = "R_PENDING_EXPIRED"
	RKilled              ReasonCode = "R_KILLED"
	RLogout              ReasonCode = "R_LOGOUT"
	RForcedRestart       ReasonCode = "R_FORCED_RESTART"
)

// HumanReason maps a ReasonCode to the free-text reason reported to observers.
func HumanReason(r ReasonCode) string {
	switch r {
	case RLoggedOut:
		return "logged out"
	case RForbidden:
		return "account forbidden"
	case RMultideviceMismatch:
		return "multidevice identity mismatch"
	case RReplaced:
		return "connection replaced by another device"
	case RTerminal:
		return "terminal disconnect"
	case RMaxReconnect:
		return "max reconnect attempts reached"
	case RPendingExpired:
		return "pending expired"
	case RLogout:
		return "logout requested"
	case RForcedRestart:
		return "forced restart"
	default:
		return string(r)
	}
}
