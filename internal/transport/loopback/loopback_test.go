// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package loopback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
)

type recordingSink struct {
	mu      sync.Mutex
	qrs     []string
	opened  []string
	credits int
}

func (s *recordingSink) OnCredentials(ports.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits++
}

func (s *recordingSink) OnQR(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qrs = append(s.qrs, payload)
}

func (s *recordingSink) OnOpened(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, accountID)
}

func (s *recordingSink) OnClosed(int, string) {}

func TestEmitsQRAfterDelay(t *testing.T) {
	tr := New(Options{QRDelay: 5 * time.Millisecond})
	sink := &recordingSink{}

	h, err := tr.Connect(context.Background(), ports.ConnectParams{SessionID: "dev1", Sink: sink})
	require.NoError(t, err)
	defer h.End() //nolint:errcheck

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.qrs) == 1
	}, time.Second, 5*time.Millisecond)
	require.Contains(t, sink.qrs[0], "loopback:")
}

func TestAutoOpenDeliversCredentialsThenOpen(t *testing.T) {
	tr := New(Options{QRDelay: time.Millisecond, AutoOpenAfter: 5 * time.Millisecond})
	sink := &recordingSink{}

	h, err := tr.Connect(context.Background(), ports.ConnectParams{SessionID: "dev2", Sink: sink})
	require.NoError(t, err)
	defer h.End() //nolint:errcheck

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.opened) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, "dev2@loopback", sink.opened[0])
	require.Equal(t, 1, sink.credits)
	require.Equal(t, "dev2@loopback", h.AccountID())

	id, err := h.SendMessage(context.Background(), "peer@loopback", "hi")
	require.NoError(t, err)
	require.NotEmpty(t, id)
}

func TestEndStopsEmission(t *testing.T) {
	tr := New(Options{QRDelay: 20 * time.Millisecond, AutoOpenAfter: 20 * time.Millisecond})
	sink := &recordingSink{}

	h, err := tr.Connect(context.Background(), ports.ConnectParams{SessionID: "dev3", Sink: sink})
	require.NoError(t, err)
	require.NoError(t, h.End())
	require.NoError(t, h.End())

	time.Sleep(60 * time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Empty(t, sink.qrs)
	require.Empty(t, sink.opened)
}

func TestSendBeforeOpenFails(t *testing.T) {
	tr := New(Options{QRDelay: time.Millisecond})
	sink := &recordingSink{}

	h, err := tr.Connect(context.Background(), ports.ConnectParams{SessionID: "dev4", Sink: sink})
	require.NoError(t, err)
	defer h.End() //nolint:errcheck

	_, err = h.SendMessage(context.Background(), "peer", "hi")
	require.Error(t, err)
	require.Error(t, h.SendPresence(context.Background(), "available", ""))

	code, err := h.RequestPairingCode(context.Background(), "15550100")
	require.NoError(t, err)
	require.Len(t, code, 8)
}
