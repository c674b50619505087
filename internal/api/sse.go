// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
)

const sseHeartbeat = 15 * time.Second

// handleSessionEvents streams one session's events over SSE. A subscriber
// arriving after the QR or pairing code was issued receives it immediately as
// a replay, so late observers can still complete authentication.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !model.IsSafeSessionID(id) {
		writeDomainError(w, r, ports.ErrInvalidSessionID)
		return
	}

	sub, replay, err := s.mgr.SubscribeSession(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	defer sub.Close() //nolint:errcheck

	s.streamSSE(w, r, sub, replay)
}

// handleGlobalEvents streams the fleet broadcast over SSE, starting with the
// current snapshot.
func (s *Server) handleGlobalEvents(w http.ResponseWriter, r *http.Request) {
	sub, initial, err := s.mgr.SubscribeGlobal(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	defer sub.Close() //nolint:errcheck

	s.streamSSE(w, r, sub, []model.Event{initial})
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, sub ports.Subscription, replay []model.Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for _, ev := range replay {
		if !writeSSEEvent(w, ev) {
			return
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case raw, open := <-sub.C():
			if !open {
				return
			}
			ev, ok := raw.(model.Event)
			if !ok {
				continue
			}
			if !writeSSEEvent(w, ev) {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, ev model.Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		return true // skip the event, keep the stream
	}
	if _, err := w.Write([]byte("event: " + ev.Type + "\ndata: " + string(payload) + "\n\n")); err != nil {
		return false
	}
	return true
}
