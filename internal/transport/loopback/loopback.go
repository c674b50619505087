// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package loopback is a development transport. It speaks no wire protocol:
// connections emit a synthetic QR shortly after Connect and, when configured,
// open themselves after a delay so the HTTP surface can be exercised without
// a live account.
package loopback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	walog "github.com/arlanhendrawinata/wagate/internal/log"
)

// Options tunes the simulated connection flow.
type Options struct {
	// QRDelay is how long after Connect the synthetic QR is emitted.
	QRDelay time.Duration
	// AutoOpenAfter, when positive, opens the connection that long after
	// Connect, simulating a scanned QR. Zero leaves sessions pending.
	AutoOpenAfter time.Duration
}

// Transport implements ports.Transport with simulated connections.
type Transport struct {
	opts Options
}

// New creates a loopback transport. Zero-value options emit a QR after 100ms
// and never auto-open.
func New(opts Options) *Transport {
	if opts.QRDelay <= 0 {
		opts.QRDelay = 100 * time.Millisecond
	}
	return &Transport{opts: opts}
}

// Connect starts a simulated connection and returns its handle.
func (t *Transport) Connect(_ context.Context, params ports.ConnectParams) (ports.Handle, error) {
	h := &handle{
		sessionID: params.SessionID,
		sink:      params.Sink,
		done:      make(chan struct{}),
	}

	go h.run(t.opts)
	return h, nil
}

type handle struct {
	sessionID string
	sink      ports.EventSink

	mu     sync.Mutex
	opened bool
	closed bool
	done   chan struct{}
}

func (h *handle) run(opts Options) {
	logger := walog.WithComponent("loopback").With().
		Str(walog.FieldSessionID, h.sessionID).Logger()

	select {
	case <-h.done:
		return
	case <-time.After(opts.QRDelay):
	}
	payload := "loopback:" + uuid.NewString()
	logger.Debug().Str(walog.FieldEvent, "loopback.qr").Msg("emitting synthetic qr")
	h.sink.OnQR(payload)

	if opts.AutoOpenAfter <= 0 {
		return
	}
	select {
	case <-h.done:
		return
	case <-time.After(opts.AutoOpenAfter):
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.opened = true
	h.mu.Unlock()

	account := h.sessionID + "@loopback"
	logger.Info().Str(walog.FieldEvent, "loopback.open").Msg("simulated open")
	h.sink.OnCredentials(ports.Credentials("loopback-creds:" + h.sessionID))
	h.sink.OnOpened(account)
}

func (h *handle) RequestPairingCode(_ context.Context, phoneDigits string) (string, error) {
	if phoneDigits == "" {
		return "", fmt.Errorf("loopback: empty phone")
	}
	code := uuid.NewString()[:8]
	return code, nil
}

func (h *handle) SendMessage(_ context.Context, target, content string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened || h.closed {
		return "", fmt.Errorf("loopback: connection not open")
	}
	if target == "" || content == "" {
		return "", fmt.Errorf("loopback: target and content required")
	}
	return uuid.NewString(), nil
}

func (h *handle) SendPresence(_ context.Context, state, _ string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened || h.closed {
		return fmt.Errorf("loopback: connection not open")
	}
	if state == "" {
		return fmt.Errorf("loopback: empty presence state")
	}
	return nil
}

func (h *handle) Logout(context.Context) error { return nil }

func (h *handle) End() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	close(h.done)
	return nil
}

func (h *handle) AccountID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return ""
	}
	return h.sessionID + "@loopback"
}
