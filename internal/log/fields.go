// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldAccountID     = "account_id"
	FieldPhone         = "phone"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldReason    = "reason"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldClass    = "disconnect_class"
	FieldCode     = "status_code"
	FieldAttempt  = "attempt"

	// Store fields
	FieldBackend = "backend"
	FieldKey     = "key"
)
