// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the HTTP operating surface of the gateway: session
// lifecycle operations, message sending, snapshot queries, SSE event streams,
// and the health/metrics endpoints.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	apimw "github.com/arlanhendrawinata/wagate/internal/api/middleware"
	"github.com/arlanhendrawinata/wagate/internal/config"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/manager"
	"github.com/arlanhendrawinata/wagate/internal/health"
	"github.com/arlanhendrawinata/wagate/internal/log"
)

// Server wires the session manager to the HTTP surface.
type Server struct {
	mgr    *manager.Manager
	health *health.Manager
	cfg    config.AppConfig
	logger zerolog.Logger
}

// NewServer creates the API server.
func NewServer(cfg config.AppConfig, mgr *manager.Manager, hm *health.Manager) *Server {
	return &Server{
		mgr:    mgr,
		health: hm,
		cfg:    cfg,
		logger: log.WithComponent("api"),
	}
}

// Router builds the chi router with the canonical middleware stack and all
// routes.
func (s *Server) Router() http.Handler {
	r := apimw.NewRouter(apimw.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.API.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.tracingService(),
		EnableLogging:         true,
		RateLimitRPM:          s.cfg.API.RateLimitRPM,
	})

	// Unauthenticated operational endpoints.
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuth(s.cfg.APIToken))

		r.Get("/sessions", s.handleListSessions)
		r.Get("/events", s.handleGlobalEvents)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleKillSession)
			r.Get("/events", s.handleSessionEvents)
			r.With(apimw.StartRateLimit()).Post("/start", s.handleStartSession)
			r.With(apimw.StartRateLimit()).Post("/refresh", s.handleRefreshSession)
			r.Post("/logout", s.handleLogoutSession)
			r.Post("/messages", s.handleSendMessage)
			r.Post("/presence", s.handleSendPresence)
		})
	})

	return r
}

func (s *Server) tracingService() string {
	if !s.cfg.Telemetry.Enabled {
		return ""
	}
	return s.cfg.LogService
}
