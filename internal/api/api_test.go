package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palmguard/internal/control"
	"palmguard/internal/monitor"
	"palmguard/internal/protocol"
	"palmguard/internal/selector"
)

type fakeController struct {
	mu       sync.Mutex
	state    control.State
	running  bool
	kind     control.Kind
	allowed  []control.Kind
	toggleFn func() error
	subs     []func(protocol.Message)
}

func (f *fakeController) State() control.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeController) Stats() selector.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return selector.Stats{Strategy: f.kind, State: f.state, Monitoring: f.running}
}

func (f *fakeController) Handle() selector.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return selector.Handle{Kind: f.kind}
}

func (f *fakeController) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeController) ToggleNow(ctx context.Context) error {
	if f.toggleFn != nil {
		return f.toggleFn()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == control.StateEnabled {
		f.state = control.StateDisabled
	} else {
		f.state = control.StateEnabled
	}
	return nil
}

func (f *fakeController) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return monitor.ErrAlreadyRunning
	}
	f.running = true
	return nil
}

func (f *fakeController) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return monitor.ErrNotRunning
	}
	f.running = false
	return nil
}

func (f *fakeController) Reprobe(ctx context.Context, allowed []control.Kind) (control.Kind, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowed = allowed
	if len(allowed) > 0 {
		f.kind = allowed[0]
	}
	return f.kind, nil
}

func (f *fakeController) Subscribe(fn func(protocol.Message)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return func() {}
}

func newFake() *fakeController {
	return &fakeController{state: control.StateEnabled, kind: control.KindPersistentSetting}
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAPI_Health(t *testing.T) {
	h := NewServer(newFake(), "secret", nil).Handler()
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestAPI_Auth(t *testing.T) {
	h := NewServer(newFake(), "secret", nil).Handler()

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/status", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/status", "wrong").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/status", "secret").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/status?token=secret", "").Code)
}

func TestAPI_Origin(t *testing.T) {
	fake := newFake()
	h := NewServer(fake, "", nil).Handler()

	send := func(origin string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/toggle", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, send("http://evil.example"))
	assert.Equal(t, http.StatusForbidden, send("null"))
	assert.Equal(t, http.StatusForbidden, send("http://127.0.0.1.evil.example"))
	assert.Equal(t, control.StateEnabled, fake.State(), "rejected requests do not toggle")

	assert.Equal(t, http.StatusOK, send("http://localhost:18090"))
	assert.Equal(t, http.StatusOK, send("http://127.0.0.1:18090"))
	assert.Equal(t, http.StatusOK, send("http://[::1]:18090"))
	assert.Equal(t, http.StatusOK, send(""))
}

func TestAPI_StatusAndToggle(t *testing.T) {
	fake := newFake()
	h := NewServer(fake, "", nil).Handler()

	body := decodeStatus(t, do(t, h, http.MethodGet, "/api/status", ""))
	assert.Equal(t, "enabled", body["state"])
	assert.Equal(t, false, body["monitoring"])

	rec := do(t, h, http.MethodPost, "/api/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disabled", decodeStatus(t, rec)["state"])

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/toggle", "").Code)
}

func TestAPI_ToggleError(t *testing.T) {
	fake := newFake()
	fake.toggleFn = func() error { return control.ErrAmbiguousDevice }
	h := NewServer(fake, "", nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/toggle", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestAPI_Monitor(t *testing.T) {
	h := NewServer(newFake(), "", nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/monitor/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeStatus(t, rec)["monitoring"])

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/monitor/start", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/monitor/stop", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/monitor/stop", "").Code)
}

func TestAPI_Reprobe(t *testing.T) {
	fake := newFake()
	h := NewServer(fake, "", nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/reprobe?strategy=key-simulation,device-enumeration", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []control.Kind{control.KindKeySimulation, control.KindDeviceEnumeration}, fake.allowed)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/reprobe?strategy=bogus", "").Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/reprobe", "").Code)
	assert.Nil(t, fake.allowed)
}

func TestAPI_Metrics(t *testing.T) {
	h := NewServer(newFake(), "", nil).Handler()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAPI_WebSocket(t *testing.T) {
	fake := newFake()
	s := NewServer(fake, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.wsMgr.start(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello protocol.Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, protocol.TypeHello, hello.Type)

	// registration happens after the hello is queued
	require.Eventually(t, func() bool {
		s.wsMgr.clientsMu.Lock()
		defer s.wsMgr.clientsMu.Unlock()
		return len(s.wsMgr.clients) == 1
	}, time.Second, 5*time.Millisecond)

	s.wsMgr.Broadcast(protocol.New(protocol.TypeState, protocol.StatePayload{From: "enabled", To: "disabled"}))
	var msg protocol.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, protocol.TypeState, msg.Type)
	payload, ok := msg.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "disabled", payload["to"])
}
