// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the daemon.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Session attributes
	SessionIDKey      = "session.id"
	SessionStatusKey  = "session.status"
	SessionAttemptKey = "session.reconnect_attempt"

	// Disconnect attributes
	DisconnectClassKey = "disconnect.class"
	DisconnectCodeKey  = "disconnect.code"

	// Store attributes
	StoreBackendKey = "store.backend"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes creates session-scoped span attributes.
func SessionAttributes(id, status string, attempt int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if id != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, id))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(SessionStatusKey, status))
	}
	if attempt > 0 {
		attrs = append(attrs, attribute.Int(SessionAttemptKey, attempt))
	}
	return attrs
}

// DisconnectAttributes creates span attributes for a classified close.
func DisconnectAttributes(class string, code int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DisconnectClassKey, class),
		attribute.Int(DisconnectCodeKey, code),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
