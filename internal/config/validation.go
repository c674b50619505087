// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"strings"
)

var validBackends = map[string]bool{
	"memory": true,
	"badger": true,
	"redis":  true,
}

// Validate checks the resolved configuration for invariant violations.
// It returns the first violation found.
func Validate(cfg AppConfig) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if !validBackends[cfg.Store.Backend] {
		return fmt.Errorf("unknown store backend %q (supported: memory, badger, redis)", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "badger" && strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("store path must be set for the badger backend")
	}
	if cfg.Store.Backend == "redis" && strings.TrimSpace(cfg.Store.RedisAddr) == "" {
		return fmt.Errorf("redis_addr must be set for the redis backend")
	}

	s := cfg.Session
	if s.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be > 0, got %d", s.MaxSessions)
	}
	if s.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("max_reconnect_attempts must be > 0, got %d", s.MaxReconnectAttempts)
	}
	for name, d := range map[string]int64{
		"reconnect_base":        int64(s.ReconnectBase),
		"reconnect_unavailable": int64(s.ReconnectUnavailable),
		"reconnect_cap":         int64(s.ReconnectCap),
		"restart_delay":         int64(s.RestartDelay),
		"pairing_grace":         int64(s.PairingGrace),
		"pending_expiry":        int64(s.PendingExpiry),
		"sweep_interval":        int64(s.SweepInterval),
		"restore_interval":      int64(s.RestoreInterval),
	} {
		if d <= 0 {
			return fmt.Errorf("session.%s must be > 0", name)
		}
	}
	if s.ReconnectCap < s.ReconnectBase {
		return fmt.Errorf("reconnect_cap (%v) must be >= reconnect_base (%v)", s.ReconnectCap, s.ReconnectBase)
	}

	if cfg.API.RateLimitRPM <= 0 {
		return fmt.Errorf("rate_limit_rpm must be > 0, got %d", cfg.API.RateLimitRPM)
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.ExporterType {
		case "grpc", "http":
		default:
			return fmt.Errorf("unsupported telemetry exporter: %s (supported: grpc, http)", cfg.Telemetry.ExporterType)
		}
		if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
			return fmt.Errorf("telemetry endpoint must be set when telemetry is enabled")
		}
	}
	return nil
}
