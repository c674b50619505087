// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package manager hosts the lifecycle supervisor: the registry of live
// sessions and the only code path allowed to mutate a session record. All
// transitions funnel through here, serialized per session id; different
// sessions never contend.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/arlanhendrawinata/wagate/internal/config"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/lifecycle"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	"github.com/arlanhendrawinata/wagate/internal/log"
	"github.com/arlanhendrawinata/wagate/internal/metrics"
)

// session pairs one record with its transport handle and owned timers. The
// mutex serializes every transition for this id.
type session struct {
	mu sync.Mutex

	rec    model.SessionRecord
	handle ports.Handle
	save   ports.SaveFunc

	pairingTimer *time.Timer
	retryTimer   *time.Timer
}

// Manager owns the registry and drives the state machine for every session.
type Manager struct {
	cfg       config.SessionConfig
	pol       lifecycle.Policy
	store     ports.CredentialStore
	transport ports.Transport
	bus       ports.Bus
	renderer  ports.Renderer
	logger    zerolog.Logger

	mu       sync.RWMutex
	registry map[string]*session

	genSeq atomic.Uint64
	closed atomic.Bool

	now func() time.Time
}

// New wires a Manager from its collaborators.
func New(cfg config.SessionConfig, store ports.CredentialStore, transport ports.Transport, bus ports.Bus, renderer ports.Renderer) *Manager {
	return &Manager{
		cfg:       cfg,
		pol:       policyFrom(cfg),
		store:     store,
		transport: transport,
		bus:       bus,
		renderer:  renderer,
		logger:    log.WithComponent("session-manager"),
		registry:  make(map[string]*session),
		now:       time.Now,
	}
}

func policyFrom(cfg config.SessionConfig) lifecycle.Policy {
	return lifecycle.Policy{
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		ReconnectBase:        cfg.ReconnectBase,
		ReconnectUnavailable: cfg.ReconnectUnavailable,
		ReconnectCap:         cfg.ReconnectCap,
		RestartDelay:         cfg.RestartDelay,
	}
}

// carryover preserves outage bookkeeping across an internally scheduled
// restart. External force starts pass nil and begin with a clean slate.
type carryover struct {
	attempts   int
	episodeSeq uint64
	accountID  string
}

// Start creates or restarts the session for id. With the session already
// connected and force unset it is a no-op returning the current snapshot.
// force tears the existing session down synchronously and begins a fresh
// pending cycle with the reconnect budget reset.
func (m *Manager) Start(ctx context.Context, id, phone string, force bool) (model.Snapshot, error) {
	if !model.IsSafeSessionID(id) {
		return model.Snapshot{}, ports.ErrInvalidSessionID
	}
	return m.start(ctx, id, phone, force, nil)
}

func (m *Manager) start(ctx context.Context, id, phone string, force bool, carry *carryover) (model.Snapshot, error) {
	if m.closed.Load() {
		return model.Snapshot{}, ports.ErrManagerClosed
	}

	m.mu.Lock()
	existing, ok := m.registry[id]
	if ok && force {
		delete(m.registry, id)
	}
	if !ok && carry == nil && len(m.registry) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		metrics.RecordCapacityRejection()
		metrics.RecordSessionStart("rejected")
		return model.Snapshot{}, ports.ErrCapacityExceeded
	}
	m.mu.Unlock()

	if ok && !force {
		// Idempotent start: the record is returned untouched whether it is
		// connected or still pending its handshake.
		metrics.RecordSessionStart("noop")
		return m.snapshotLocked(existing), nil
	}
	if ok {
		if phone == "" {
			existing.mu.Lock()
			phone = existing.rec.Phone
			existing.mu.Unlock()
		}
		// Synchronous teardown before the replacement connects: at most one
		// live transport handle per id.
		m.teardown(existing, false)
	}

	creds, save, err := m.store.Load(ctx, id)
	if err != nil {
		metrics.RecordSessionStart("error")
		if ok {
			// The forced predecessor is already gone from the registry;
			// observers need the shrunken snapshot.
			m.broadcastGlobal(ctx)
		}
		return model.Snapshot{}, fmt.Errorf("load credentials for %s: %w", id, err)
	}

	phone = model.NormalizePhone(phone)
	now := m.now()
	gen := m.genSeq.Add(1)

	sess := &session{
		rec: model.SessionRecord{
			ID:         id,
			Status:     model.StatusPendingQR,
			Phone:      phone,
			CreatedAt:  now,
			Generation: gen,
		},
		save: save,
	}
	if phone != "" {
		sess.rec.Status = model.StatusPendingPairing
	}
	if carry != nil {
		sess.rec.ReconnectAttempts = carry.attempts
		sess.rec.EpisodeSeq = carry.episodeSeq
		sess.rec.AccountID = carry.accountID
	}

	m.mu.Lock()
	if cur, clash := m.registry[id]; clash && cur != existing {
		// A concurrent start won the race for this id.
		m.mu.Unlock()
		metrics.RecordSessionStart("noop")
		cur.mu.Lock()
		snap := model.SnapshotOf(&cur.rec)
		cur.mu.Unlock()
		return snap, nil
	}
	m.registry[id] = sess
	m.mu.Unlock()

	handle, err := m.transport.Connect(ctx, ports.ConnectParams{
		SessionID:   id,
		Credentials: creds,
		Sink:        &sink{m: m, sess: sess, id: id, gen: gen},
	})
	if err != nil {
		m.removeIfCurrent(id, sess)
		m.broadcastGlobal(ctx)
		metrics.RecordSessionStart("error")
		return model.Snapshot{}, fmt.Errorf("connect %s: %w", id, err)
	}

	sess.mu.Lock()
	sess.handle = handle
	// A pairing code is only useful while no credential material exists; a
	// restored registration reconnects on its own.
	if phone != "" && len(creds) == 0 {
		m.armPairingTimer(sess, id, gen, phone)
	}
	snap := model.SnapshotOf(&sess.rec)
	sess.mu.Unlock()

	result := "created"
	if force {
		result = "forced"
	}
	metrics.RecordSessionStart(result)
	m.logger.Info().
		Str(log.FieldSessionID, id).
		Str(log.FieldEvent, "start").
		Bool("force", force).
		Str("status", string(snap.Status)).
		Msg("session started")

	m.broadcastGlobal(ctx)
	return snap, nil
}

// Kill destroys the session unconditionally: closes and revokes the
// transport, purges persisted credentials, cancels timers, removes the
// record. Completes even when the transport is already dead.
func (m *Manager) Kill(ctx context.Context, id string, reason model.ReasonCode) error {
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	out, err := lifecycle.Apply(&sess.rec, lifecycle.Event{Kind: lifecycle.EvKillRequested, Reason: reason}, m.pol, m.now())
	if err != nil {
		sess.mu.Unlock()
		return err
	}
	dead := m.executeLocked(ctx, sess, id, out)
	sess.mu.Unlock()

	m.closeHandle(id, dead, true)
	m.broadcastGlobal(ctx)
	return nil
}

// Logout asks the transport to invalidate its own credential and removes the
// record immediately instead of waiting for the resulting close event. The
// direct purge is the safety net behind the transport-side invalidation.
func (m *Manager) Logout(ctx context.Context, id string) error {
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	handle := sess.handle
	sess.mu.Unlock()
	if handle != nil {
		if err := handle.Logout(ctx); err != nil {
			m.logger.Warn().
				Str(log.FieldSessionID, id).
				Err(&ports.TransportOpError{Op: "logout", Err: err}).
				Msg("transport logout failed, proceeding with teardown")
		}
	}

	sess.mu.Lock()
	if m.current(id) != sess {
		// The transport-side invalidation already triggered the terminal
		// close path and the record is gone.
		sess.mu.Unlock()
		return nil
	}
	out, err := lifecycle.Apply(&sess.rec, lifecycle.Event{Kind: lifecycle.EvKillRequested, Reason: model.RLogout}, m.pol, m.now())
	if err != nil {
		sess.mu.Unlock()
		return err
	}
	dead := m.executeLocked(ctx, sess, id, out)
	sess.mu.Unlock()

	m.closeHandle(id, dead, false)
	m.broadcastGlobal(ctx)
	return nil
}

func (m *Manager) current(id string) *session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry[id]
}

// Refresh force-restarts the session, preserving its phone pairing mode but
// resetting the reconnect budget.
func (m *Manager) Refresh(ctx context.Context, id string) (model.Snapshot, error) {
	if _, err := m.lookup(id); err != nil {
		return model.Snapshot{}, err
	}
	return m.start(ctx, id, "", true, nil)
}

// SendMessage delivers content through the session's live connection. The
// session state is never altered by a send failure.
func (m *Manager) SendMessage(ctx context.Context, id, target, content string) (string, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	handle := sess.handle
	connected := sess.rec.Status == model.StatusConnected
	sess.mu.Unlock()

	if !connected || handle == nil {
		metrics.RecordMessageSend("not_connected")
		return "", ports.ErrNotConnected
	}

	msgID, err := handle.SendMessage(ctx, target, content)
	if err != nil {
		metrics.RecordMessageSend("error")
		return "", &ports.TransportOpError{Op: "send message", Err: err}
	}
	metrics.RecordMessageSend("ok")
	return msgID, nil
}

// SendPresence publishes a presence state through the session's connection.
func (m *Manager) SendPresence(ctx context.Context, id, state, target string) error {
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	handle := sess.handle
	connected := sess.rec.Status == model.StatusConnected
	sess.mu.Unlock()

	if !connected || handle == nil {
		return ports.ErrNotConnected
	}
	if err := handle.SendPresence(ctx, state, target); err != nil {
		return &ports.TransportOpError{Op: "send presence", Err: err}
	}
	return nil
}

// Snapshot returns the public view of one session.
func (m *Manager) Snapshot(id string) (model.Snapshot, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return model.Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return model.SnapshotOf(&sess.rec), nil
}

// Snapshots returns the public view of every live session, ordered by id.
func (m *Manager) Snapshots() []model.Snapshot {
	m.mu.RLock()
	sessions := make([]*session, 0, len(m.registry))
	for _, s := range m.registry {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	snaps := make([]model.Snapshot, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		snaps = append(snaps, model.SnapshotOf(&s.rec))
		s.mu.Unlock()
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.registry)
}

// Close tears down every live session without purging credentials, so a
// subsequent process start can restore them. Further operations fail with
// ErrManagerClosed.
func (m *Manager) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}

	m.mu.Lock()
	sessions := make([]*session, 0, len(m.registry))
	for id, s := range m.registry {
		sessions = append(sessions, s)
		delete(m.registry, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		m.teardown(s, false)
	}
	m.logger.Info().Int("sessions", len(sessions)).Msg("session manager closed")
}

func (m *Manager) lookup(id string) (*session, error) {
	if m.closed.Load() {
		return nil, ports.ErrManagerClosed
	}
	m.mu.RLock()
	sess, ok := m.registry[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *Manager) snapshotLocked(sess *session) model.Snapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return model.SnapshotOf(&sess.rec)
}

// removeIfCurrent drops id from the registry only when it still maps to sess,
// so a concurrent replacement is never evicted by a stale cleanup.
func (m *Manager) removeIfCurrent(id string, sess *session) {
	m.mu.Lock()
	if cur, ok := m.registry[id]; ok && cur == sess {
		delete(m.registry, id)
	}
	m.mu.Unlock()
}

// teardown cancels timers and closes the transport handle, swallowing
// transport errors. With revoke set it asks the server to invalidate the
// credential first.
func (m *Manager) teardown(sess *session, revoke bool) {
	sess.mu.Lock()
	sess.cancelTimersLocked()
	handle := sess.handle
	sess.handle = nil
	// Bump the generation so in-flight transport events and timers armed
	// against the old handle become stale.
	sess.rec.Generation = m.genSeq.Add(1)
	id := sess.rec.ID
	sess.mu.Unlock()

	if handle == nil {
		return
	}
	if revoke {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := handle.Logout(ctx); err != nil {
			m.logger.Debug().
				Str(log.FieldSessionID, id).
				Err(err).
				Msg("transport logout during teardown failed")
		}
		cancel()
	}
	if err := handle.End(); err != nil {
		m.logger.Debug().
			Str(log.FieldSessionID, id).
			Err(err).
			Msg("transport end during teardown failed")
	}
}

func (s *session) cancelTimersLocked() {
	if s.pairingTimer != nil {
		s.pairingTimer.Stop()
		s.pairingTimer = nil
	}
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}
