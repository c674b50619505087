// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package manager

import (
	"context"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/lifecycle"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	"github.com/arlanhendrawinata/wagate/internal/log"
)

// noticeToEvent translates a lifecycle notice into the bus payload, rendering
// the raw QR payload into its displayable form on the way out.
func (m *Manager) noticeToEvent(id string, n *lifecycle.Notice) model.Event {
	ev := model.Event{
		Type:      n.Type,
		SessionID: id,
		At:        m.now(),
		AccountID: n.AccountID,
		Reason:    n.Reason,
		Class:     string(n.Class),
		Code:      n.Code,
		Attempt:   n.Attempt,
	}
	if n.QRPayload != "" {
		rendered, err := m.renderer.ToDisplayable(n.QRPayload)
		if err != nil {
			m.logger.Warn().
				Str(log.FieldSessionID, id).
				Err(err).
				Msg("qr render failed")
		} else {
			ev.QR = rendered
		}
	}
	ev.PairingCode = n.PairingCode
	return ev
}

func (m *Manager) publishSession(ctx context.Context, id string, ev model.Event) {
	if err := m.bus.Publish(ctx, model.TopicSession(id), ev); err != nil {
		m.logger.Warn().
			Str(log.FieldSessionID, id).
			Err(err).
			Msg("session event publish failed")
	}
}

// broadcastGlobal sends the fleet snapshot after every state-affecting
// mutation. Best-effort: delivery never blocks transitions.
func (m *Manager) broadcastGlobal(ctx context.Context) {
	ev := model.Event{
		Type:     model.EventSessions,
		At:       m.now(),
		Sessions: m.Snapshots(),
	}
	if err := m.bus.Publish(ctx, model.TopicGlobal, ev); err != nil {
		m.logger.Warn().Err(err).Msg("global broadcast failed")
	}
	m.reconcileGauges(ev.Sessions)
}

// SubscribeSession attaches an observer to one session's event stream. The
// returned replay events carry the session's currently pending credential
// artifact, so a late subscriber never misses the data needed to finish
// authentication.
func (m *Manager) SubscribeSession(ctx context.Context, id string) (ports.Subscription, []model.Event, error) {
	sub, err := m.bus.Subscribe(ctx, model.TopicSession(id))
	if err != nil {
		return nil, nil, err
	}

	var replay []model.Event
	m.mu.RLock()
	sess := m.registry[id]
	m.mu.RUnlock()
	if sess != nil {
		sess.mu.Lock()
		switch {
		case sess.rec.QRPayload != "":
			replay = append(replay, m.noticeToEvent(id, &lifecycle.Notice{
				Type:      model.EventQR,
				QRPayload: sess.rec.QRPayload,
			}))
		case sess.rec.PairingCode != "":
			replay = append(replay, m.noticeToEvent(id, &lifecycle.Notice{
				Type:        model.EventPairingCode,
				PairingCode: sess.rec.PairingCode,
			}))
		case sess.rec.Status == model.StatusConnected:
			replay = append(replay, m.noticeToEvent(id, &lifecycle.Notice{
				Type:      model.EventConnected,
				AccountID: sess.rec.AccountID,
			}))
		}
		sess.mu.Unlock()
	}
	return sub, replay, nil
}

// SubscribeGlobal attaches an observer to the fleet broadcast. The current
// snapshot is returned alongside so the observer starts from a known state.
func (m *Manager) SubscribeGlobal(ctx context.Context) (ports.Subscription, model.Event, error) {
	sub, err := m.bus.Subscribe(ctx, model.TopicGlobal)
	if err != nil {
		return nil, model.Event{}, err
	}
	initial := model.Event{
		Type:     model.EventSessions,
		At:       m.now(),
		Sessions: m.Snapshots(),
	}
	return sub, initial, nil
}
