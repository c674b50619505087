// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutOverridesMatchesDefaults(t *testing.T) {
	cfg, err := NewLoader("", "test").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "test"
	want.Store.Path = filepath.Join(want.DataDir, "credentials")
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("loaded config diverges from defaults (-want +got):\n%s", diff)
	}
}

func TestLoadDefaults(t *testing.T) {
	loader := NewLoader("", "test")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, 50, cfg.Session.MaxSessions)
	assert.Equal(t, 5, cfg.Session.MaxReconnectAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Session.PendingExpiry)
	assert.Equal(t, "test", cfg.Version)
	// store path derived from data dir
	assert.Equal(t, filepath.Join(cfg.DataDir, "credentials"), cfg.Store.Path)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
listen_addr: ":9090"
store:
  backend: memory
session:
  max_sessions: 10
  pending_expiry: 90s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 10, cfg.Session.MaxSessions)
	assert.Equal(t, 90*time.Second, cfg.Session.PendingExpiry)
	// untouched defaults survive
	assert.Equal(t, 5, cfg.Session.MaxReconnectAttempts)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9090\"\n"), 0600))

	t.Setenv("WAGATE_LISTEN", ":7070")
	t.Setenv("WAGATE_MAX_SESSIONS", "7")

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, 7, cfg.Session.MaxSessions)
}

func TestLoadRejectsUnknownYAMLFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_adr: \":9090\"\n"), 0600))

	_, err := NewLoader(path, "test").Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *AppConfig) {},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *AppConfig) { c.Store.Backend = "bolt" },
			wantErr: "unknown store backend",
		},
		{
			name:    "zero capacity",
			mutate:  func(c *AppConfig) { c.Session.MaxSessions = 0 },
			wantErr: "max_sessions",
		},
		{
			name:    "cap below base",
			mutate:  func(c *AppConfig) { c.Session.ReconnectCap = time.Second },
			wantErr: "reconnect_cap",
		},
		{
			name: "telemetry enabled without endpoint",
			mutate: func(c *AppConfig) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantErr: "telemetry endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Store.Path = "/tmp/creds"
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Setenv("WAGATE_TEST_DUR", "45s")
	assert.Equal(t, 45*time.Second, ParseDuration("WAGATE_TEST_DUR", time.Second))

	t.Setenv("WAGATE_TEST_DUR", "nonsense")
	assert.Equal(t, time.Second, ParseDuration("WAGATE_TEST_DUR", time.Second))

	assert.Equal(t, time.Minute, ParseDuration("WAGATE_TEST_DUR_ABSENT", time.Minute))
}

func TestParseBool(t *testing.T) {
	t.Setenv("WAGATE_TEST_BOOL", "yes")
	assert.True(t, ParseBool("WAGATE_TEST_BOOL", false))

	t.Setenv("WAGATE_TEST_BOOL", "0")
	assert.False(t, ParseBool("WAGATE_TEST_BOOL", true))

	t.Setenv("WAGATE_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("WAGATE_TEST_BOOL", true))
}
