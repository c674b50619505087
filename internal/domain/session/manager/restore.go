// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	"github.com/arlanhendrawinata/wagate/internal/log"
)

// Restore re-launches every session with persisted credential material,
// paced so a process restart never produces a thundering herd of transport
// handshakes. Per-id failures are logged and skipped; the method only errors
// when the store enumeration itself fails or the context ends.
func (m *Manager) Restore(ctx context.Context, pace time.Duration) (int, error) {
	ids, err := m.store.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list persisted sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	limiter := rate.NewLimiter(rate.Every(pace), 1)
	logger := m.logger.With().Str(log.FieldComponent, "restore").Logger()
	logger.Info().Int("persisted", len(ids)).Msg("restoring sessions")

	restored := 0
	for _, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			return restored, err
		}
		m.mu.RLock()
		_, exists := m.registry[id]
		m.mu.RUnlock()
		if exists {
			continue
		}
		if _, err := m.Start(ctx, id, "", false); err != nil {
			if errors.Is(err, ports.ErrCapacityExceeded) {
				logger.Warn().Int("restored", restored).Msg("restore stopped at capacity")
				return restored, nil
			}
			logger.Warn().
				Str(log.FieldSessionID, id).
				Err(err).
				Msg("session restore failed, skipping")
			continue
		}
		restored++
	}

	logger.Info().Int("restored", restored).Msg("session restore complete")
	return restored, nil
}
