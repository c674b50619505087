// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"fmt"
	"time"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
)

// Policy holds the retry/backoff knobs the state machine needs. All values
// must be positive; Default() matches the shipped configuration.
type Policy struct {
	MaxReconnectAttempts int
	ReconnectBase        time.Duration
	ReconnectUnavailable time.Duration
	ReconnectCap         time.Duration
	RestartDelay         time.Duration
}

// Default returns the production policy.
func Default() Policy {
	return Policy{
		MaxReconnectAttempts: 5,
		ReconnectBase:        5 * time.Second,
		ReconnectUnavailable: 15 * time.Second,
		ReconnectCap:         60 * time.Second,
		RestartDelay:         2 * time.Second,
	}
}

// RetryDelay computes the backoff for a transient close: attempts times the
// base interval, capped. Service-unavailable closes pace with a larger base.
func (p Policy) RetryDelay(attempt, code int) time.Duration {
	base := p.ReconnectBase
	if code == CodeServiceUnavailable {
		base = p.ReconnectUnavailable
	}
	d := time.Duration(attempt) * base
	if d > p.ReconnectCap {
		d = p.ReconnectCap
	}
	return d
}

// Apply is the single transition entry point. It mutates rec according to the
// event and returns the ordered side effects the caller must execute. It is
// pure apart from the record mutation: no I/O, no clocks beyond now.
func Apply(rec *model.SessionRecord, ev Event, pol Policy, now time.Time) (Outcome, error) {
	switch ev.Kind {
	case EvQRReceived:
		return applyQR(rec, ev), nil
	case EvPairingCodeIssued:
		return applyPairingCode(rec, ev), nil
	case EvOpened:
		return applyOpened(rec, ev, now), nil
	case EvClosed:
		return applyClosed(rec, ev, pol), nil
	case EvPendingExpired:
		return applyDestroy(rec, model.RPendingExpired), nil
	case EvKillRequested:
		reason := ev.Reason
		if reason == "" {
			reason = model.RKilled
		}
		return applyDestroy(rec, reason), nil
	default:
		return Outcome{}, fmt.Errorf("unhandled lifecycle event kind %d", ev.Kind)
	}
}

func applyQR(rec *model.SessionRecord, ev Event) Outcome {
	if rec.Status != model.StatusPendingQR {
		return ignored("qr event outside pending_qr")
	}
	rec.QRPayload = ev.Payload
	rec.PairingCode = ""
	var out Outcome
	out.add(Effect{Kind: FxNotify, Notice: &Notice{Type: "qr", QRPayload: ev.Payload}})
	return out
}

func applyPairingCode(rec *model.SessionRecord, ev Event) Outcome {
	if rec.Status != model.StatusPendingPairing {
		return ignored("pairing code outside pending_pairing")
	}
	rec.PairingCode = ev.Payload
	rec.QRPayload = ""
	var out Outcome
	out.add(Effect{Kind: FxNotify, Notice: &Notice{Type: "pairing_code", PairingCode: ev.Payload}})
	return out
}

func applyOpened(rec *model.SessionRecord, ev Event, now time.Time) Outcome {
	rec.Status = model.StatusConnected
	rec.ConnectedAt = now
	rec.CreatedAt = now
	rec.QRPayload = ""
	rec.PairingCode = ""
	rec.ReconnectAttempts = 0
	rec.Episode = 0
	rec.AccountID = ev.AccountID

	var out Outcome
	out.add(Effect{Kind: FxNotify, Notice: &Notice{Type: "connected", AccountID: ev.AccountID}})
	return out
}

func applyClosed(rec *model.SessionRecord, ev Event, pol Policy) Outcome {
	// Re-entrancy guard: a close arriving while a scheduled restart is
	// pending must not double-schedule.
	if rec.Episode != 0 {
		return ignored("restart already scheduled for this outage")
	}

	class := Classify(ev.Code)
	switch class {
	case ClassTerminal:
		reason := TerminalReason(ev.Code)
		var out Outcome
		out.add(Effect{Kind: FxNotify, Notice: &Notice{
			Type:   "closed",
			Class:  class,
			Code:   ev.Code,
			Reason: model.HumanReason(reason),
		}})
		out.add(Effect{Kind: FxPurgeCredentials})
		out.add(Effect{Kind: FxDestroy, Reason: reason})
		return out

	case ClassTransient:
		rec.ReconnectAttempts++
		if rec.ReconnectAttempts > pol.MaxReconnectAttempts {
			var out Outcome
			out.add(Effect{Kind: FxNotify, Notice: &Notice{
				Type:   "closed",
				Class:  class,
				Code:   ev.Code,
				Reason: model.HumanReason(model.RMaxReconnect),
			}})
			out.add(Effect{Kind: FxPurgeCredentials})
			out.add(Effect{Kind: FxDestroy, Reason: model.RMaxReconnect})
			return out
		}
		rec.EpisodeSeq++
		rec.Episode = rec.EpisodeSeq
		var out Outcome
		out.add(Effect{Kind: FxNotify, Notice: &Notice{
			Type:    "reconnecting",
			Class:   class,
			Code:    ev.Code,
			Attempt: rec.ReconnectAttempts,
		}})
		out.add(Effect{Kind: FxScheduleRetry, Delay: pol.RetryDelay(rec.ReconnectAttempts, ev.Code)})
		return out

	case ClassRestartRequired:
		rec.EpisodeSeq++
		rec.Episode = rec.EpisodeSeq
		var out Outcome
		out.add(Effect{Kind: FxNotify, Notice: &Notice{
			Type:  "reconnecting",
			Class: class,
			Code:  ev.Code,
		}})
		out.add(Effect{Kind: FxScheduleRestart, Delay: pol.RestartDelay})
		return out

	default:
		// Unknown codes take no automatic action: the record keeps its
		// pre-close status until an explicit delete or refresh intervenes.
		return ignored("unclassified close code")
	}
}

func applyDestroy(rec *model.SessionRecord, reason model.ReasonCode) Outcome {
	var out Outcome
	out.add(Effect{Kind: FxNotify, Notice: &Notice{
		Type:   "killed",
		Reason: model.HumanReason(reason),
	}})
	out.add(Effect{Kind: FxPurgeCredentials})
	out.add(Effect{Kind: FxDestroy, Reason: reason})
	return out
}

func ignored(why string) Outcome {
	return Outcome{Ignored: true, IgnoredReason: why}
}
