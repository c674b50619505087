// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package manager

import (
	"context"
	"time"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/lifecycle"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	"github.com/arlanhendrawinata/wagate/internal/log"
	"github.com/arlanhendrawinata/wagate/internal/metrics"
)

// sink receives transport events for one connection generation. Every event
// is checked against the session's current generation before it may act, so
// callbacks from a replaced handle are inert.
type sink struct {
	m    *Manager
	sess *session
	id   string
	gen  uint64
}

func (s *sink) OnCredentials(creds ports.Credentials) {
	// Fire-and-forget persistence: failures are logged, never retried here.
	s.sess.mu.Lock()
	save := s.sess.save
	stale := s.sess.rec.Generation != s.gen
	s.sess.mu.Unlock()
	if stale || save == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := save(ctx, creds); err != nil {
			s.m.logger.Error().
				Str(log.FieldSessionID, s.id).
				Err(err).
				Msg("credential save failed")
		}
	}()
}

func (s *sink) OnQR(payload string) {
	s.m.applyEvent(s.sess, s.id, s.gen, lifecycle.Event{Kind: lifecycle.EvQRReceived, Payload: payload})
}

func (s *sink) OnOpened(accountID string) {
	s.m.applyEvent(s.sess, s.id, s.gen, lifecycle.Event{Kind: lifecycle.EvOpened, AccountID: accountID})
}

func (s *sink) OnClosed(code int, reason string) {
	class := lifecycle.Classify(code)
	metrics.RecordDisconnect(string(class))
	s.m.logger.Info().
		Str(log.FieldSessionID, s.id).
		Str(log.FieldClass, string(class)).
		Int(log.FieldCode, code).
		Str(log.FieldReason, reason).
		Msg("connection closed")
	s.m.applyEvent(s.sess, s.id, s.gen, lifecycle.Event{Kind: lifecycle.EvClosed, Code: code, Text: reason})
}

// applyEvent runs one lifecycle transition under the session lock and
// executes its effects. gen 0 skips the staleness check (manager-internal
// callers that already hold a fresh reference).
func (m *Manager) applyEvent(sess *session, id string, gen uint64, ev lifecycle.Event) {
	sess.mu.Lock()
	if gen != 0 && sess.rec.Generation != gen {
		sess.mu.Unlock()
		m.logger.Debug().
			Str(log.FieldSessionID, id).
			Uint64("generation", gen).
			Msg("dropping event from stale transport handle")
		return
	}

	ctx := context.Background()
	out, err := lifecycle.Apply(&sess.rec, ev, m.pol, m.now())
	if err != nil {
		sess.mu.Unlock()
		m.logger.Error().Str(log.FieldSessionID, id).Err(err).Msg("lifecycle transition failed")
		return
	}
	if out.Ignored {
		sess.mu.Unlock()
		m.logger.Debug().
			Str(log.FieldSessionID, id).
			Str(log.FieldReason, out.IgnoredReason).
			Msg("lifecycle event ignored")
		return
	}
	deadHandle := m.executeLocked(ctx, sess, id, out)
	sess.mu.Unlock()

	m.closeHandle(id, deadHandle, false)
	m.broadcastGlobal(ctx)
}

// executeLocked runs an outcome's effects in order. Caller holds sess.mu.
// When the outcome destroys the record, the detached transport handle is
// returned so the caller can close it outside the lock (a synchronous close
// callback from the transport must not re-enter the session lock).
func (m *Manager) executeLocked(ctx context.Context, sess *session, id string, out lifecycle.Outcome) ports.Handle {
	var dead ports.Handle
	for _, fx := range out.Effects {
		switch fx.Kind {
		case lifecycle.FxNotify:
			m.publishSession(ctx, id, m.noticeToEvent(id, fx.Notice))

		case lifecycle.FxPurgeCredentials:
			if err := m.store.PurgeAll(ctx, id); err != nil {
				m.logger.Error().
					Str(log.FieldSessionID, id).
					Err(err).
					Msg("credential purge failed")
			}

		case lifecycle.FxScheduleRetry:
			metrics.RecordReconnectScheduled(string(lifecycle.ClassTransient))
			m.scheduleRestartLocked(sess, id, fx.Delay)
			m.logger.Info().
				Str(log.FieldSessionID, id).
				Int(log.FieldAttempt, sess.rec.ReconnectAttempts).
				Dur("delay", fx.Delay).
				Msg("reconnect scheduled")

		case lifecycle.FxScheduleRestart:
			metrics.RecordReconnectScheduled(string(lifecycle.ClassRestartRequired))
			m.scheduleRestartLocked(sess, id, fx.Delay)
			m.logger.Info().
				Str(log.FieldSessionID, id).
				Dur("delay", fx.Delay).
				Msg("server-requested restart scheduled")

		case lifecycle.FxDestroy:
			sess.cancelTimersLocked()
			dead = sess.handle
			sess.handle = nil
			sess.rec.Generation = m.genSeq.Add(1)
			m.removeIfCurrent(id, sess)
			metrics.RecordSessionEnd(string(fx.Reason))
			m.logger.Info().
				Str(log.FieldSessionID, id).
				Str(log.FieldReason, string(fx.Reason)).
				Msg("session destroyed")
		}
	}
	return dead
}

// closeHandle ends a detached transport handle, optionally revoking its
// credential first. Transport errors are swallowed: cleanup always completes.
func (m *Manager) closeHandle(id string, handle ports.Handle, revoke bool) {
	if handle == nil {
		return
	}
	if revoke {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := handle.Logout(ctx); err != nil {
			m.logger.Debug().
				Str(log.FieldSessionID, id).
				Err(err).
				Msg("transport logout failed during destroy")
		}
		cancel()
	}
	if err := handle.End(); err != nil {
		m.logger.Debug().
			Str(log.FieldSessionID, id).
			Err(err).
			Msg("transport end failed during destroy")
	}
}

// scheduleRestartLocked arms the single retry timer for the current outage
// episode. Caller holds sess.mu; the lifecycle transition has already stamped
// the episode token.
func (m *Manager) scheduleRestartLocked(sess *session, id string, delay time.Duration) {
	episode := sess.rec.Episode
	if sess.retryTimer != nil {
		sess.retryTimer.Stop()
	}
	sess.retryTimer = time.AfterFunc(delay, func() {
		m.fireRestart(sess, id, episode)
	})
}

// fireRestart is the retry timer callback. It re-checks that the record still
// exists, is the same instance, and is still in the episode the timer was
// armed for; anything else means the timer is stale and must not resurrect a
// destroyed or replaced session.
func (m *Manager) fireRestart(sess *session, id string, episode uint64) {
	m.mu.RLock()
	cur := m.registry[id]
	m.mu.RUnlock()
	if cur != sess {
		return
	}

	sess.mu.Lock()
	if sess.rec.Episode != episode {
		sess.mu.Unlock()
		return
	}
	sess.rec.Episode = 0
	carry := &carryover{
		attempts:   sess.rec.ReconnectAttempts,
		episodeSeq: sess.rec.EpisodeSeq,
		accountID:  sess.rec.AccountID,
	}
	phone := sess.rec.Phone
	sess.mu.Unlock()

	if _, err := m.start(context.Background(), id, phone, true, carry); err != nil {
		m.logger.Error().
			Str(log.FieldSessionID, id).
			Int(log.FieldAttempt, carry.attempts).
			Err(err).
			Msg("scheduled restart failed")
	}
}

// armPairingTimer schedules the pairing-code request after the handshake
// grace delay. Caller holds sess.mu.
func (m *Manager) armPairingTimer(sess *session, id string, gen uint64, phoneDigits string) {
	sess.pairingTimer = time.AfterFunc(m.cfg.PairingGrace, func() {
		m.requestPairingCode(sess, id, gen, phoneDigits)
	})
}

// requestPairingCode asks the transport for a pairing code and stores it on
// the record. A request failure notifies an error event without changing
// state.
func (m *Manager) requestPairingCode(sess *session, id string, gen uint64, phoneDigits string) {
	sess.mu.Lock()
	if sess.rec.Generation != gen || sess.handle == nil {
		sess.mu.Unlock()
		return
	}
	handle := sess.handle
	sess.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	code, err := handle.RequestPairingCode(ctx, phoneDigits)
	if err != nil {
		m.logger.Error().
			Str(log.FieldSessionID, id).
			Str(log.FieldPhone, phoneDigits).
			Err(err).
			Msg("pairing code request failed")
		m.publishSession(ctx, id, model.Event{
			Type:      model.EventError,
			SessionID: id,
			At:        m.now(),
			Message:   "pairing code request failed",
		})
		return
	}

	m.applyEvent(sess, id, gen, lifecycle.Event{Kind: lifecycle.EvPairingCodeIssued, Payload: code})
}
