// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package manager

import (
	"context"
	"time"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/lifecycle"
	"github.com/arlanhendrawinata/wagate/internal/log"
	"github.com/arlanhendrawinata/wagate/internal/metrics"
)

// Sweeper reaps sessions stuck in a pending state past the expiry threshold.
// Connected sessions are never touched regardless of age.
type Sweeper struct {
	Manager  *Manager
	Interval time.Duration
	Expiry   time.Duration
}

// Run starts the sweeper loop. It periodically calls SweepOnce on a ticker.
func (s *Sweeper) Run(ctx context.Context) {
	if s.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	log.L().Info().
		Dur("interval", s.Interval).
		Dur("expiry", s.Expiry).
		Msg("pending-expiry sweeper started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx, time.Now())
		}
	}
}

// SweepOnce performs exactly one sweep pass and returns the number of reaped
// sessions. It is deterministic and suitable for unit testing.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) int {
	m := s.Manager

	m.mu.RLock()
	sessions := make([]*session, 0, len(m.registry))
	for _, sess := range m.registry {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	reaped := 0
	for _, sess := range sessions {
		sess.mu.Lock()
		expired := sess.rec.Status.IsPending() && sess.rec.PendingAge(now) > s.Expiry
		if !expired {
			sess.mu.Unlock()
			continue
		}
		id := sess.rec.ID
		out, err := lifecycle.Apply(&sess.rec, lifecycle.Event{Kind: lifecycle.EvPendingExpired}, m.pol, now)
		if err != nil {
			sess.mu.Unlock()
			log.L().Warn().Err(err).Str(log.FieldSessionID, id).Msg("expiry transition failed")
			continue
		}
		dead := m.executeLocked(ctx, sess, id, out)
		sess.mu.Unlock()

		m.closeHandle(id, dead, false)
		reaped++
	}

	if reaped > 0 {
		metrics.RecordPendingExpired(reaped)
		log.L().Info().Int("count", reaped).Msg("sweep removed expired pending sessions")
		m.broadcastGlobal(ctx)
	}
	return reaped
}
