// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arlanhendrawinata/wagate/internal/bus"
	"github.com/arlanhendrawinata/wagate/internal/config"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/manager"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	"github.com/arlanhendrawinata/wagate/internal/health"
)

type stubHandle struct {
	mu      sync.Mutex
	sendErr error
}

func (h *stubHandle) RequestPairingCode(_ context.Context, digits string) (string, error) {
	return "PAIR-" + digits, nil
}

func (h *stubHandle) SendMessage(_ context.Context, target, _ string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sendErr != nil {
		return "", h.sendErr
	}
	return "msg-" + target, nil
}

func (h *stubHandle) SendPresence(context.Context, string, string) error { return nil }
func (h *stubHandle) Logout(context.Context) error                       { return nil }
func (h *stubHandle) End() error                                         { return nil }
func (h *stubHandle) AccountID() string                                  { return "acct" }

type stubTransport struct {
	mu      sync.Mutex
	sinks   map[string]ports.EventSink
	handles map[string]*stubHandle
}

func newStubTransport() *stubTransport {
	return &stubTransport{
		sinks:   make(map[string]ports.EventSink),
		handles: make(map[string]*stubHandle),
	}
}

func (t *stubTransport) Connect(_ context.Context, params ports.ConnectParams) (ports.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := &stubHandle{}
	t.sinks[params.SessionID] = params.Sink
	t.handles[params.SessionID] = h
	return h, nil
}

func (t *stubTransport) sink(id string) ports.EventSink {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sinks[id]
}

type stubStore struct{}

func (stubStore) Load(context.Context, string) (ports.Credentials, ports.SaveFunc, error) {
	return nil, func(context.Context, ports.Credentials) error { return nil }, nil
}
func (stubStore) PurgeAll(context.Context, string) error  { return nil }
func (stubStore) ListIDs(context.Context) ([]string, error) { return nil, nil }
func (stubStore) Close() error                            { return nil }

type stubRenderer struct{}

func (stubRenderer) ToDisplayable(p string) (string, error) { return "data:image/png;base64," + p, nil }

type apiFixture struct {
	srv *httptest.Server
	mgr *manager.Manager
	tr  *stubTransport
}

func newAPIFixture(t *testing.T, mutate func(*config.AppConfig)) *apiFixture {
	t.Helper()
	cfg := config.Defaults()
	cfg.Version = "test"
	if mutate != nil {
		mutate(&cfg)
	}

	tr := newStubTransport()
	mgr := manager.New(cfg.Session, stubStore{}, tr, bus.NewMemoryBus(), stubRenderer{})
	t.Cleanup(mgr.Close)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewSessionsChecker(mgr.Count, cfg.Session.MaxSessions))

	srv := httptest.NewServer(NewServer(cfg, mgr, hm).Router())
	t.Cleanup(srv.Close)

	return &apiFixture{srv: srv, mgr: mgr, tr: tr}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rdr)
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeSnapshot(t *testing.T, resp *http.Response) model.Snapshot {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	var snap model.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestStartSessionEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/api/sessions/bot1/start", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, resp)
	require.Equal(t, "bot1", snap.ID)
	require.Equal(t, model.StatusPendingQR, snap.Status)
}

func TestStartWithPhoneEntersPairing(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/api/sessions/bot2/start", `{"phone":"+1 555-0100"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, resp)
	require.Equal(t, model.StatusPendingPairing, snap.Status)
	require.Equal(t, "15550100", snap.Phone)
}

func TestStartInvalidIDRejected(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/api/sessions/..bad/start", "")
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCapacityExceededReturns429(t *testing.T) {
	f := newAPIFixture(t, func(c *config.AppConfig) { c.Session.MaxSessions = 1 })

	resp := f.do(t, http.MethodPost, "/api/sessions/bot1/start", "")
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/sessions/bot2/start", "")
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "capacity_exceeded", body.Error)
}

func TestGetAndListSessions(t *testing.T) {
	f := newAPIFixture(t, nil)

	resp := f.do(t, http.MethodGet, "/api/sessions/nope", "")
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	f.do(t, http.MethodPost, "/api/sessions/bot1/start", "").Body.Close() //nolint:errcheck
	f.tr.sink("bot1").OnOpened("bot1@acct")

	resp = f.do(t, http.MethodGet, "/api/sessions/bot1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, resp)
	require.True(t, snap.Connected)

	resp = f.do(t, http.MethodGet, "/api/sessions", "")
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Sessions []model.Snapshot `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Sessions, 1)
}

func TestKillSessionEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	f.do(t, http.MethodPost, "/api/sessions/bot1/start", "").Body.Close() //nolint:errcheck

	resp := f.do(t, http.MethodDelete, "/api/sessions/bot1", "")
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/sessions/bot1", "")
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogoutEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	f.do(t, http.MethodPost, "/api/sessions/bot1/start", "").Body.Close() //nolint:errcheck
	f.tr.sink("bot1").OnOpened("bot1@acct")

	resp := f.do(t, http.MethodPost, "/api/sessions/bot1/logout", "")
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/sessions/bot1", "")
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSendMessageEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	f.do(t, http.MethodPost, "/api/sessions/bot1/start", "").Body.Close() //nolint:errcheck

	// Pending sessions cannot send.
	resp := f.do(t, http.MethodPost, "/api/sessions/bot1/messages", `{"target":"628111@s.whatsapp.net","content":"hi"}`)
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	f.tr.sink("bot1").OnOpened("bot1@acct")
	resp = f.do(t, http.MethodPost, "/api/sessions/bot1/messages", `{"target":"628111@s.whatsapp.net","content":"hi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, "msg-628111@s.whatsapp.net", body["messageId"])

	// Missing fields are a 400.
	resp = f.do(t, http.MethodPost, "/api/sessions/bot1/messages", `{"target":""}`)
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Transport trouble is a 502, and state is untouched.
	f.tr.mu.Lock()
	f.tr.handles["bot1"].sendErr = fmt.Errorf("stream closed")
	f.tr.mu.Unlock()
	resp = f.do(t, http.MethodPost, "/api/sessions/bot1/messages", `{"target":"x@s.whatsapp.net","content":"hi"}`)
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	snap, err := f.mgr.Snapshot("bot1")
	require.NoError(t, err)
	require.Equal(t, model.StatusConnected, snap.Status)
}

func TestBearerAuth(t *testing.T) {
	f := newAPIFixture(t, func(c *config.AppConfig) { c.APIToken = "secret-token" })

	resp := f.do(t, http.MethodGet, "/api/sessions", "")
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = f.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = f.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Health endpoints stay public.
	resp = f.do(t, http.MethodGet, "/healthz", "")
	resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOperationalEndpoints(t *testing.T) {
	f := newAPIFixture(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp := f.do(t, http.MethodGet, path, "")
		resp.Body.Close() //nolint:errcheck
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestSessionEventsSSEReplaysQR(t *testing.T) {
	f := newAPIFixture(t, nil)

	f.do(t, http.MethodPost, "/api/sessions/bot1/start", "").Body.Close() //nolint:errcheck
	f.tr.sink("bot1").OnQR("raw-payload")

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/api/sessions/bot1/events", nil)
	require.NoError(t, err)

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])
	require.Contains(t, body, "event: qr")
	require.Contains(t, body, "data:image/png;base64,raw-payload")
}

func TestGlobalEventsSSEStartsWithSnapshot(t *testing.T) {
	f := newAPIFixture(t, nil)

	f.do(t, http.MethodPost, "/api/sessions/bot1/start", "").Body.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/api/events", nil)
	require.NoError(t, err)

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])
	require.Contains(t, body, "event: sessions")
	require.Contains(t, body, `"bot1"`)
}
