// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
)

const maxBodyBytes = 64 << 10

type startRequest struct {
	Phone string `json:"phone,omitempty"`
	Force bool   `json:"force,omitempty"`
}

type sendMessageRequest struct {
	Target  string `json:"target"`
	Content string `json:"content"`
}

type sendPresenceRequest struct {
	State  string `json:"state"`
	Target string `json:"target,omitempty"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty body means all-default fields
		}
		return err
	}
	return nil
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req startRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	snap, err := s.mgr.Start(r.Context(), id, req.Phone, req.Force)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handleRefreshSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := s.mgr.Refresh(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handleKillSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reason := model.RKilled
	if q := strings.TrimSpace(r.URL.Query().Get("reason")); q != "" {
		reason = model.ReasonCode(q)
	}
	if err := s.mgr.Kill(r.Context(), id, reason); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogoutSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.mgr.Logout(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req sendMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Target == "" || req.Content == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_body", "target and content are required")
		return
	}

	msgID, err := s.mgr.SendMessage(r.Context(), id, req.Target, req.Content)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"messageId": msgID})
}

func (s *Server) handleSendPresence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req sendPresenceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.State == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_body", "state is required")
		return
	}

	if err := s.mgr.SendPresence(r.Context(), id, req.State, req.Target); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := s.mgr.Snapshot(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"sessions": s.mgr.Snapshots(),
	})
}
