// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotOf(t *testing.T) {
	now := time.Now()
	rec := &SessionRecord{
		ID:        "bot1",
		Status:    StatusPendingQR,
		QRPayload: "qr-blob",
		CreatedAt: now,
	}

	snap := SnapshotOf(rec)
	assert.Equal(t, "bot1", snap.ID)
	assert.True(t, snap.HasQR)
	assert.False(t, snap.HasPairingCode)
	assert.False(t, snap.Connected)
	assert.Nil(t, snap.ConnectedAt)

	rec.Status = StatusConnected
	rec.QRPayload = ""
	rec.ConnectedAt = now
	snap = SnapshotOf(rec)
	assert.True(t, snap.Connected)
	assert.False(t, snap.HasQR)
	if assert.NotNil(t, snap.ConnectedAt) {
		assert.Equal(t, now, *snap.ConnectedAt)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+1 555-0100", "15550100"},
		{"(49) 170 1234567", "491701234567"},
		{"15550100", "15550100"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), tt.in)
	}
}

func TestIsSafeSessionID(t *testing.T) {
	assert.True(t, IsSafeSessionID("bot1"))
	assert.True(t, IsSafeSessionID("tenant-7_a.b"))
	assert.False(t, IsSafeSessionID(""))
	assert.False(t, IsSafeSessionID(".hidden"))
	assert.False(t, IsSafeSessionID("a/b"))
	assert.False(t, IsSafeSessionID("a b"))
	assert.False(t, IsSafeSessionID(string(make([]byte, 200))))
}

func TestStatusIsPending(t *testing.T) {
	assert.True(t, StatusPendingQR.IsPending())
	assert.True(t, StatusPendingPairing.IsPending())
	assert.False(t, StatusConnected.IsPending())
}
