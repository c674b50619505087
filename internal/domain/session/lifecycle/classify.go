// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package lifecycle contains the pure session state machine: the disconnect
// classifier and the event dispatch that turns (record, event) into a new
// record state plus a list of side effects. Nothing in this package performs
// I/O; effects are executed by the manager.
package lifecycle

import "github.com/arlanhendrawinata/wagate/internal/domain/session/model"

// Class is the disconnect taxonomy.
type Class string

const (
	ClassTerminal        Class = "terminal"
	ClassTransient       Class = "transient"
	ClassRestartRequired Class = "restart-required"
	ClassUnknown         Class = "unknown"
)

// Transport close status codes. These follow the WhatsApp Web numeric codes
// surfaced by the transport when a connection ends.
const (
	CodeLoggedOut           = 401
	CodeForbidden           = 403
	CodeConnectionLost      = 408 // also timed-out; the transport reuses the code
	CodeMultideviceMismatch = 411
	CodeConnectionClosed    = 428
	CodeConnectionReplaced  = 440
	CodeBadSession          = 500
	CodeServiceUnavailable  = 503
	CodeRestartRequired     = 515
)

// Classify maps a transport failure code to the disconnect taxonomy. It is
// pure and never touches the registry. Unclassified codes map to unknown,
// which deliberately triggers no automatic retry.
func Classify(code int) Class {
	switch code {
	case CodeLoggedOut, CodeBadSession, CodeForbidden, CodeMultideviceMismatch, CodeConnectionReplaced:
		return ClassTerminal
	case CodeConnectionLost, CodeConnectionClosed, CodeServiceUnavailable:
		return ClassTransient
	case CodeRestartRequired:
		return ClassRestartRequired
	default:
		return ClassUnknown
	}
}

// TerminalReason maps a terminal close code to its reason code. Callers must
// only pass codes classified as terminal; anything else yields RTerminal.
func TerminalReason(code int) model.ReasonCode {
	switch code {
	case CodeLoggedOut:
		return model.RLoggedOut
	case CodeForbidden:
		return model.RForbidden
	case CodeMultideviceMismatch:
		return model.RMultideviceMismatch
	case CodeConnectionReplaced:
		return model.RReplaced
	default:
		return model.RTerminal
	}
}
