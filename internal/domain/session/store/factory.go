// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store provides credential persistence backends. All backends treat
// credential material as opaque blobs namespaced by session id.
package store

import (
	"fmt"

	"github.com/arlanhendrawinata/wagate/internal/config"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
)

// Open creates a CredentialStore based on the backend configuration.
func Open(cfg config.StoreConfig) (ports.CredentialStore, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadgerStore(cfg.Path)
	case "redis":
		return OpenRedisStore(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
