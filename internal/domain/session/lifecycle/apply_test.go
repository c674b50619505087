// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
)

func pendingRecord(status model.Status) *model.SessionRecord {
	return &model.SessionRecord{
		ID:        "bot1",
		Status:    status,
		CreatedAt: time.Now(),
	}
}

func kinds(out Outcome) []EffectKind {
	ks := make([]EffectKind, 0, len(out.Effects))
	for _, fx := range out.Effects {
		ks = append(ks, fx.Kind)
	}
	return ks
}

func TestApplyQRStoresPayload(t *testing.T) {
	rec := pendingRecord(model.StatusPendingQR)
	out, err := Apply(rec, Event{Kind: EvQRReceived, Payload: "qr-blob"}, Default(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "qr-blob", rec.QRPayload)
	assert.Empty(t, rec.PairingCode)
	require.Len(t, out.Effects, 1)
	assert.Equal(t, FxNotify, out.Effects[0].Kind)
	assert.Equal(t, "qr", out.Effects[0].Notice.Type)
}

func TestApplyQRIgnoredOutsidePendingQR(t *testing.T) {
	for _, status := range []model.Status{model.StatusPendingPairing, model.StatusConnected} {
		rec := pendingRecord(status)
		out, err := Apply(rec, Event{Kind: EvQRReceived, Payload: "qr"}, Default(), time.Now())
		require.NoError(t, err)
		assert.True(t, out.Ignored, string(status))
		assert.Empty(t, rec.QRPayload)
	}
}

func TestApplyPairingCode(t *testing.T) {
	rec := pendingRecord(model.StatusPendingPairing)
	out, err := Apply(rec, Event{Kind: EvPairingCodeIssued, Payload: "ABCD-EFGH"}, Default(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "ABCD-EFGH", rec.PairingCode)
	require.Len(t, out.Effects, 1)
	assert.Equal(t, "pairing_code", out.Effects[0].Notice.Type)
}

func TestApplyOpenedResetsBookkeeping(t *testing.T) {
	rec := pendingRecord(model.StatusPendingQR)
	rec.QRPayload = "qr"
	rec.ReconnectAttempts = 3
	rec.Episode = 7
	created := rec.CreatedAt

	now := time.Now().Add(time.Minute)
	out, err := Apply(rec, Event{Kind: EvOpened, AccountID: "1555@acc"}, Default(), now)
	require.NoError(t, err)

	assert.Equal(t, model.StatusConnected, rec.Status)
	assert.Equal(t, now, rec.ConnectedAt)
	assert.Equal(t, now, rec.CreatedAt)
	assert.NotEqual(t, created, rec.CreatedAt)
	assert.Empty(t, rec.QRPayload)
	assert.Empty(t, rec.PairingCode)
	assert.Zero(t, rec.ReconnectAttempts)
	assert.Zero(t, rec.Episode)
	assert.Equal(t, "1555@acc", rec.AccountID)
	require.Len(t, out.Effects, 1)
	assert.Equal(t, "connected", out.Effects[0].Notice.Type)
}

func TestApplyClosedTerminal(t *testing.T) {
	rec := pendingRecord(model.StatusConnected)
	out, err := Apply(rec, Event{Kind: EvClosed, Code: CodeLoggedOut}, Default(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, []EffectKind{FxNotify, FxPurgeCredentials, FxDestroy}, kinds(out))
	assert.Equal(t, model.RLoggedOut, out.Effects[2].Reason)
}

func TestApplyClosedTransientSchedulesRetry(t *testing.T) {
	pol := Default()
	rec := pendingRecord(model.StatusConnected)

	out, err := Apply(rec, Event{Kind: EvClosed, Code: CodeConnectionLost}, pol, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, rec.ReconnectAttempts)
	assert.NotZero(t, rec.Episode)
	assert.Equal(t, []EffectKind{FxNotify, FxScheduleRetry}, kinds(out))
	assert.Equal(t, 1*pol.ReconnectBase, out.Effects[1].Delay)
}

func TestApplyClosedTransientBackoffGrowsAndCaps(t *testing.T) {
	pol := Default()
	rec := pendingRecord(model.StatusConnected)

	for attempt := 1; attempt <= 5; attempt++ {
		rec.Episode = 0 // simulate the scheduled restart having fired
		out, err := Apply(rec, Event{Kind: EvClosed, Code: CodeConnectionLost}, pol, time.Now())
		require.NoError(t, err)
		require.Len(t, out.Effects, 2)
		assert.Equal(t, rec.ReconnectAttempts, attempt)

		want := time.Duration(attempt) * pol.ReconnectBase
		if want > pol.ReconnectCap {
			want = pol.ReconnectCap
		}
		assert.Equal(t, want, out.Effects[1].Delay, "attempt %d", attempt)
	}
}

func TestApplyClosedServiceUnavailableUsesLargerBase(t *testing.T) {
	pol := Default()
	rec := pendingRecord(model.StatusConnected)

	out, err := Apply(rec, Event{Kind: EvClosed, Code: CodeServiceUnavailable}, pol, time.Now())
	require.NoError(t, err)
	require.Len(t, out.Effects, 2)
	assert.Equal(t, pol.ReconnectUnavailable, out.Effects[1].Delay)
}

func TestApplyClosedExceedsMaxAttempts(t *testing.T) {
	pol := Default()
	rec := pendingRecord(model.StatusConnected)
	rec.ReconnectAttempts = pol.MaxReconnectAttempts

	out, err := Apply(rec, Event{Kind: EvClosed, Code: CodeConnectionLost}, pol, time.Now())
	require.NoError(t, err)

	assert.Equal(t, []EffectKind{FxNotify, FxPurgeCredentials, FxDestroy}, kinds(out))
	assert.Equal(t, model.RMaxReconnect, out.Effects[2].Reason)
	assert.Equal(t, "max reconnect attempts reached", out.Effects[0].Notice.Reason)
}

func TestApplyClosedReentrancyGuard(t *testing.T) {
	rec := pendingRecord(model.StatusConnected)
	rec.EpisodeSeq = 1
	rec.Episode = 1

	out, err := Apply(rec, Event{Kind: EvClosed, Code: CodeConnectionLost}, Default(), time.Now())
	require.NoError(t, err)
	assert.True(t, out.Ignored)
	assert.Equal(t, 0, rec.ReconnectAttempts)
}

func TestApplyClosedRestartRequired(t *testing.T) {
	pol := Default()
	rec := pendingRecord(model.StatusConnected)
	rec.ReconnectAttempts = 2

	out, err := Apply(rec, Event{Kind: EvClosed, Code: CodeRestartRequired}, pol, time.Now())
	require.NoError(t, err)

	// restart-required does not consume the reconnect budget
	assert.Equal(t, 2, rec.ReconnectAttempts)
	assert.NotZero(t, rec.Episode)
	assert.Equal(t, []EffectKind{FxNotify, FxScheduleRestart}, kinds(out))
	assert.Equal(t, pol.RestartDelay, out.Effects[1].Delay)
}

func TestApplyClosedUnknownIsInert(t *testing.T) {
	rec := pendingRecord(model.StatusConnected)
	before := *rec

	out, err := Apply(rec, Event{Kind: EvClosed, Code: 999}, Default(), time.Now())
	require.NoError(t, err)
	assert.True(t, out.Ignored)
	assert.Equal(t, before, *rec)
}

func TestApplyPendingExpired(t *testing.T) {
	rec := pendingRecord(model.StatusPendingQR)
	out, err := Apply(rec, Event{Kind: EvPendingExpired}, Default(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, []EffectKind{FxNotify, FxPurgeCredentials, FxDestroy}, kinds(out))
	assert.Equal(t, model.RPendingExpired, out.Effects[2].Reason)
	assert.Equal(t, "pending expired", out.Effects[0].Notice.Reason)
}

func TestApplyKillRequested(t *testing.T) {
	rec := pendingRecord(model.StatusConnected)
	out, err := Apply(rec, Event{Kind: EvKillRequested, Reason: model.RLogout}, Default(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, []EffectKind{FxNotify, FxPurgeCredentials, FxDestroy}, kinds(out))
	assert.Equal(t, model.RLogout, out.Effects[2].Reason)
}

func TestEpisodeTokensAreUnique(t *testing.T) {
	pol := Default()
	rec := pendingRecord(model.StatusConnected)
	seen := map[uint64]bool{}

	for i := 0; i < 4; i++ {
		rec.Episode = 0
		_, err := Apply(rec, Event{Kind: EvClosed, Code: CodeRestartRequired}, pol, time.Now())
		require.NoError(t, err)
		assert.False(t, seen[rec.Episode], "token %d reused", rec.Episode)
		seen[rec.Episode] = true
	}
}
