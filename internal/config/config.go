// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads and validates the daemon configuration with the
// precedence ENV > file > defaults.
package config

import "time"

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version string

	ListenAddr string
	APIToken   string
	DataDir    string

	LogLevel   string
	LogService string

	Store     StoreConfig
	Session   SessionConfig
	API       APIConfig
	Telemetry TelemetryConfig
}

// StoreConfig selects the credential store backend.
type StoreConfig struct {
	Backend       string // "badger" (default), "redis", "memory"
	Path          string // badger directory, derived from DataDir when empty
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NotifyRedisAddr enables mirroring session events to Redis pub/sub
	// channels when non-empty. Defaults to RedisAddr for the redis backend.
	NotifyRedisAddr string
}

// SessionConfig holds the lifecycle policy knobs.
type SessionConfig struct {
	MaxSessions          int
	MaxReconnectAttempts int

	ReconnectBase        time.Duration // per-attempt backoff base for ordinary transient closes
	ReconnectUnavailable time.Duration // backoff base when the service is unavailable
	ReconnectCap         time.Duration
	RestartDelay         time.Duration // fixed delay for server-requested restarts

	PairingGrace  time.Duration // handshake settle time before requesting a pairing code
	PendingExpiry time.Duration // max age of an unauthenticated session
	SweepInterval time.Duration

	RestoreInterval time.Duration // pacing between restored session launches
}

// APIConfig holds HTTP surface settings.
type APIConfig struct {
	RateLimitRPM   int
	TrustedProxies string
	AllowedOrigins []string
}

// TelemetryConfig holds OTLP tracing settings.
type TelemetryConfig struct {
	Enabled      bool
	ExporterType string // "grpc" or "http"
	Endpoint     string
	Environment  string
	SamplingRate float64
}

// FileConfig mirrors the YAML file layout. All fields are pointers so the
// merge step can distinguish "absent" from zero values.
type FileConfig struct {
	ListenAddr *string `yaml:"listen_addr"`
	APIToken   *string `yaml:"api_token"`
	DataDir    *string `yaml:"data_dir"`
	LogLevel   *string `yaml:"log_level"`

	Store *struct {
		Backend         *string `yaml:"backend"`
		Path            *string `yaml:"path"`
		RedisAddr       *string `yaml:"redis_addr"`
		RedisPassword   *string `yaml:"redis_password"`
		RedisDB         *int    `yaml:"redis_db"`
		NotifyRedisAddr *string `yaml:"notify_redis_addr"`
	} `yaml:"store"`

	Session *struct {
		MaxSessions          *int           `yaml:"max_sessions"`
		MaxReconnectAttempts *int           `yaml:"max_reconnect_attempts"`
		ReconnectBase        *time.Duration `yaml:"reconnect_base"`
		ReconnectUnavailable *time.Duration `yaml:"reconnect_unavailable"`
		ReconnectCap         *time.Duration `yaml:"reconnect_cap"`
		RestartDelay         *time.Duration `yaml:"restart_delay"`
		PairingGrace         *time.Duration `yaml:"pairing_grace"`
		PendingExpiry        *time.Duration `yaml:"pending_expiry"`
		SweepInterval        *time.Duration `yaml:"sweep_interval"`
		RestoreInterval      *time.Duration `yaml:"restore_interval"`
	} `yaml:"session"`

	API *struct {
		RateLimitRPM   *int     `yaml:"rate_limit_rpm"`
		TrustedProxies *string  `yaml:"trusted_proxies"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"api"`

	Telemetry *struct {
		Enabled      *bool    `yaml:"enabled"`
		ExporterType *string  `yaml:"exporter_type"`
		Endpoint     *string  `yaml:"endpoint"`
		Environment  *string  `yaml:"environment"`
		SamplingRate *float64 `yaml:"sampling_rate"`
	} `yaml:"telemetry"`
}

// Defaults returns the built-in configuration baseline.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr: ":8080",
		DataDir:    "/var/lib/wagate",
		LogLevel:   "info",
		LogService: "wagate",
		Store: StoreConfig{
			Backend:   "badger",
			RedisAddr: "localhost:6379",
		},
		Session: SessionConfig{
			MaxSessions:          50,
			MaxReconnectAttempts: 5,
			ReconnectBase:        5 * time.Second,
			ReconnectUnavailable: 15 * time.Second,
			ReconnectCap:         60 * time.Second,
			RestartDelay:         2 * time.Second,
			PairingGrace:         3 * time.Second,
			PendingExpiry:        2 * time.Minute,
			SweepInterval:        30 * time.Second,
			RestoreInterval:      500 * time.Millisecond,
		},
		API: APIConfig{
			RateLimitRPM: 600,
		},
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			Environment:  "production",
			SamplingRate: 0.1,
		},
	}
}
