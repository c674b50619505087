// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	"github.com/arlanhendrawinata/wagate/internal/log"
)

// errorBody is the JSON error envelope every non-2xx response carries.
type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := errorBody{
		Error:     code,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithComponentFromContext(r.Context(), "api").Error().Err(err).Msg("failed to encode error response")
	}
}

// writeDomainError maps domain errors onto HTTP statuses. Transport failures
// surface as 502 so callers can tell upstream trouble from gateway trouble.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var opErr *ports.TransportOpError
	switch {
	case errors.Is(err, ports.ErrInvalidSessionID):
		writeError(w, r, http.StatusBadRequest, "invalid_session_id", err.Error())
	case errors.Is(err, ports.ErrSessionNotFound):
		writeError(w, r, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, ports.ErrCapacityExceeded):
		writeError(w, r, http.StatusTooManyRequests, "capacity_exceeded", err.Error())
	case errors.Is(err, ports.ErrNotConnected):
		writeError(w, r, http.StatusConflict, "not_connected", err.Error())
	case errors.Is(err, ports.ErrManagerClosed):
		writeError(w, r, http.StatusServiceUnavailable, "shutting_down", err.Error())
	case errors.As(err, &opErr):
		writeError(w, r, http.StatusBadGateway, "transport_failed", err.Error())
	default:
		log.WithComponentFromContext(r.Context(), "api").Error().Err(err).Msg("internal error")
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithComponentFromContext(r.Context(), "api").Error().Err(err).Msg("failed to encode response")
	}
}
