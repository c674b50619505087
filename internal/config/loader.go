// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the effective configuration. Order: defaults, then file
// overrides (strict YAML), then environment overrides, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	mergeEnvConfig(&cfg)

	// DataDir must be absolute to prevent path surprises at runtime.
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(cfg.DataDir, "credentials")
	}
	if cfg.Store.Backend == "redis" && cfg.Store.NotifyRedisAddr == "" {
		cfg.Store.NotifyRedisAddr = cfg.Store.RedisAddr
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile loads configuration from a YAML file with strict parsing.
// Unknown fields cause an error to prevent silent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if err != nil {
		return nil, err
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) {
	if f == nil {
		return
	}
	setString(&cfg.ListenAddr, f.ListenAddr)
	setString(&cfg.APIToken, f.APIToken)
	setString(&cfg.DataDir, f.DataDir)
	setString(&cfg.LogLevel, f.LogLevel)

	if s := f.Store; s != nil {
		setString(&cfg.Store.Backend, s.Backend)
		setString(&cfg.Store.Path, s.Path)
		setString(&cfg.Store.RedisAddr, s.RedisAddr)
		setString(&cfg.Store.RedisPassword, s.RedisPassword)
		setInt(&cfg.Store.RedisDB, s.RedisDB)
		setString(&cfg.Store.NotifyRedisAddr, s.NotifyRedisAddr)
	}
	if s := f.Session; s != nil {
		setInt(&cfg.Session.MaxSessions, s.MaxSessions)
		setInt(&cfg.Session.MaxReconnectAttempts, s.MaxReconnectAttempts)
		setDur(&cfg.Session.ReconnectBase, s.ReconnectBase)
		setDur(&cfg.Session.ReconnectUnavailable, s.ReconnectUnavailable)
		setDur(&cfg.Session.ReconnectCap, s.ReconnectCap)
		setDur(&cfg.Session.RestartDelay, s.RestartDelay)
		setDur(&cfg.Session.PairingGrace, s.PairingGrace)
		setDur(&cfg.Session.PendingExpiry, s.PendingExpiry)
		setDur(&cfg.Session.SweepInterval, s.SweepInterval)
		setDur(&cfg.Session.RestoreInterval, s.RestoreInterval)
	}
	if a := f.API; a != nil {
		setInt(&cfg.API.RateLimitRPM, a.RateLimitRPM)
		setString(&cfg.API.TrustedProxies, a.TrustedProxies)
		if len(a.AllowedOrigins) > 0 {
			cfg.API.AllowedOrigins = a.AllowedOrigins
		}
	}
	if t := f.Telemetry; t != nil {
		if t.Enabled != nil {
			cfg.Telemetry.Enabled = *t.Enabled
		}
		setString(&cfg.Telemetry.ExporterType, t.ExporterType)
		setString(&cfg.Telemetry.Endpoint, t.Endpoint)
		setString(&cfg.Telemetry.Environment, t.Environment)
		if t.SamplingRate != nil {
			cfg.Telemetry.SamplingRate = *t.SamplingRate
		}
	}
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.ListenAddr = ParseString("WAGATE_LISTEN", cfg.ListenAddr)
	cfg.APIToken = ParseString("WAGATE_API_TOKEN", cfg.APIToken)
	cfg.DataDir = ParseString("WAGATE_DATA", cfg.DataDir)
	cfg.LogLevel = ParseString("WAGATE_LOG_LEVEL", cfg.LogLevel)

	cfg.Store.Backend = ParseString("WAGATE_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = ParseString("WAGATE_STORE_PATH", cfg.Store.Path)
	cfg.Store.RedisAddr = ParseString("WAGATE_REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = ParseString("WAGATE_REDIS_PASSWORD", cfg.Store.RedisPassword)
	cfg.Store.RedisDB = ParseInt("WAGATE_REDIS_DB", cfg.Store.RedisDB)
	cfg.Store.NotifyRedisAddr = ParseString("WAGATE_NOTIFY_REDIS_ADDR", cfg.Store.NotifyRedisAddr)

	cfg.Session.MaxSessions = ParseInt("WAGATE_MAX_SESSIONS", cfg.Session.MaxSessions)
	cfg.Session.MaxReconnectAttempts = ParseInt("WAGATE_MAX_RECONNECT_ATTEMPTS", cfg.Session.MaxReconnectAttempts)
	cfg.Session.ReconnectBase = ParseDuration("WAGATE_RECONNECT_BASE", cfg.Session.ReconnectBase)
	cfg.Session.ReconnectUnavailable = ParseDuration("WAGATE_RECONNECT_UNAVAILABLE", cfg.Session.ReconnectUnavailable)
	cfg.Session.ReconnectCap = ParseDuration("WAGATE_RECONNECT_CAP", cfg.Session.ReconnectCap)
	cfg.Session.RestartDelay = ParseDuration("WAGATE_RESTART_DELAY", cfg.Session.RestartDelay)
	cfg.Session.PairingGrace = ParseDuration("WAGATE_PAIRING_GRACE", cfg.Session.PairingGrace)
	cfg.Session.PendingExpiry = ParseDuration("WAGATE_PENDING_EXPIRY", cfg.Session.PendingExpiry)
	cfg.Session.SweepInterval = ParseDuration("WAGATE_SWEEP_INTERVAL", cfg.Session.SweepInterval)
	cfg.Session.RestoreInterval = ParseDuration("WAGATE_RESTORE_INTERVAL", cfg.Session.RestoreInterval)

	cfg.API.RateLimitRPM = ParseInt("WAGATE_RATE_LIMIT_RPM", cfg.API.RateLimitRPM)
	cfg.API.TrustedProxies = ParseString("WAGATE_TRUSTED_PROXIES", cfg.API.TrustedProxies)

	cfg.Telemetry.Enabled = ParseBool("WAGATE_OTLP_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = ParseString("WAGATE_OTLP_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = ParseString("WAGATE_OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = ParseString("WAGATE_OTLP_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = ParseFloat("WAGATE_OTLP_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDur(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}
