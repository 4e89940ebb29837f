package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-media/internal/cloudsync"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-media/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-media/internal/media"
)

// nopSync accepts state reports and discards them.
type nopSync struct{}

func (nopSync) ReportState(context.Context, *media.Descriptor, media.State) {}

// fakeHistory is an in-memory HistoryStore.
type fakeHistory struct {
	mu      sync.Mutex
	entries map[string][]cloudsync.JournalEntry
	err     error
}

func (f *fakeHistory) History(_ context.Context, deviceID string, limit int) ([]cloudsync.JournalEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	entries := f.entries[deviceID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeHistory) Forget(_ context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, deviceID)
	return nil
}

// fakeCheck is a HealthChecker returning err.
type fakeCheck struct{ err error }

func (f fakeCheck) HealthCheck(context.Context) error { return f.err }

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test", "")
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{Path: "/api/v1/ws", MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
}

// testServer creates a Server with a real media registry holding a TV
// with a resolvable HLS stream and a speaker without streams.
func testServer(t *testing.T) (*Server, *media.Registry, *fakeHistory) {
	t.Helper()

	history := &fakeHistory{entries: map[string][]cloudsync.JournalEntry{}}
	registry := media.NewRegistry(media.RegistryOptions{
		CloudSync: nopSync{},
		OnRemove:  history.Forget,
	})
	t.Cleanup(registry.Close)

	if _, err := registry.Register(media.DeviceConfig{
		ID:        "tv-lounge",
		Name:      "Lounge TV",
		Type:      media.TypeTV,
		AuthToken: "secret-token",
		Streams:   media.StaticStreams{"hls": "http://nvr.local/tv-lounge.m3u8"},
	}); err != nil {
		t.Fatalf("Register(tv-lounge): %v", err)
	}
	if _, err := registry.Register(media.DeviceConfig{
		ID:   "speaker-kitchen",
		Name: "Kitchen Speaker",
		Type: media.TypeSpeaker,
	}); err != nil {
		t.Fatalf("Register(speaker-kitchen): %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS:          testWSConfig(),
		Logger:      testLogger(),
		Registry:    registry,
		Journal:     history,
		AgentUserID: "agent-42",
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, registry, history
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
	}
	return resp
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Registry: media.NewRegistry(media.RegistryOptions{})}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without registry should fail")
	}
}

func TestNew_UsesInjectedHub(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	srv, err := New(Deps{Logger: testLogger(), Registry: media.NewRegistry(media.RegistryOptions{}), Hub: hub})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if srv.Hub() != hub {
		t.Error("Hub() should return the injected hub")
	}
}

func TestHealthCheck_NotStarted(t *testing.T) {
	srv, _, _ := testServer(t)
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start() should fail")
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start() error = %v", err)
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.checks = map[string]HealthChecker{"database": fakeCheck{}, "mqtt": fakeCheck{}}

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if resp["devices"] != float64(2) {
		t.Errorf("devices = %v, want 2", resp["devices"])
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestHealth_Degraded(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.checks = map[string]HealthChecker{
		"database": fakeCheck{},
		"influxdb": fakeCheck{err: errors.New("connection refused")},
	}

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	resp := decodeBody(t, w)
	components, _ := resp["components"].(map[string]any)
	influx, _ := components["influxdb"].(map[string]any)
	if influx["status"] != "error" || influx["error"] != "connection refused" {
		t.Errorf("influxdb component = %v", influx)
	}
	db, _ := components["database"].(map[string]any)
	if db["status"] != "ok" {
		t.Errorf("database component = %v", db)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if id := w.Header().Get("X-Request-ID"); len(id) != 36 {
		t.Errorf("X-Request-ID = %q, want a UUID", id)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-id-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-id-123" {
		t.Errorf("X-Request-ID = %q, want client-id-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

func TestNotFound(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Device Endpoint Tests ─────────────────────────────────────────

func TestListDevices(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["count"] != float64(2) {
		t.Fatalf("count = %v, want 2", resp["count"])
	}
	devices, _ := resp["devices"].([]any)
	first, _ := devices[0].(map[string]any)
	if first["id"] != "speaker-kitchen" {
		t.Errorf("first device = %v, want speaker-kitchen (ordered by id)", first["id"])
	}
	if _, ok := first["state"].(map[string]any); !ok {
		t.Errorf("device entry has no state: %v", first)
	}
}

func TestListDevices_FilterByType(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices?type=tv", "")
	resp := decodeBody(t, w)
	if resp["count"] != float64(1) {
		t.Fatalf("count = %v, want 1", resp["count"])
	}

	w = doRequest(t, srv, http.MethodGet, "/api/v1/devices?type=toaster", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetDevice(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices/tv-lounge", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["type"] != "action.devices.types.TV" {
		t.Errorf("type = %v", resp["type"])
	}
	name, _ := resp["name"].(map[string]any)
	if name["name"] != "Lounge TV" {
		t.Errorf("name = %v", resp["name"])
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if decodeBody(t, w)["code"] != ErrCodeNotFound {
		t.Errorf("error code mismatch: %s", w.Body.String())
	}
}

func TestGetDeviceState(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices/tv-lounge/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	state, _ := resp["state"].(map[string]any)
	if state["online"] != true {
		t.Errorf("state.online = %v, want true", state["online"])
	}
}

func TestDeleteDevice(t *testing.T) {
	srv, registry, history := testServer(t)
	history.entries["tv-lounge"] = []cloudsync.JournalEntry{{ID: 1, DeviceID: "tv-lounge"}}

	w := doRequest(t, srv, http.MethodDelete, "/api/v1/devices/tv-lounge", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if _, err := registry.Get("tv-lounge"); !errors.Is(err, media.ErrDeviceNotFound) {
		t.Errorf("device still registered: %v", err)
	}
	if _, ok := history.entries["tv-lounge"]; ok {
		t.Error("history should be forgotten on delete")
	}

	w = doRequest(t, srv, http.MethodDelete, "/api/v1/devices/tv-lounge", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Metrics ───────────────────────────────────────────────────────

type fakeStats struct{ stats cloudsync.Stats }

func (f fakeStats) Stats() cloudsync.Stats { return f.stats }

func TestMetrics(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.reporter = fakeStats{stats: cloudsync.Stats{Queued: 3, Delivered: 2}}

	w := doRequest(t, srv, http.MethodGet, "/api/v1/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var m SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Devices.Total != 2 || m.Devices.Online != 2 {
		t.Errorf("devices = %+v", m.Devices)
	}
	if m.Devices.ByType["action.devices.types.TV"] != 1 {
		t.Errorf("by_type = %v", m.Devices.ByType)
	}
	if m.CloudSync == nil || m.CloudSync.Queued != 3 {
		t.Errorf("cloud_sync = %+v", m.CloudSync)
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func newTestClient(hub *Hub, channels ...string) *WSClient {
	subs := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		subs[ch] = struct{}{}
	}
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: subs,
	}
	hub.Register(client)
	return client
}

func receive(t *testing.T, client *WSClient) WSMessage {
	t.Helper()
	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return wsMsg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast message")
		return WSMessage{}
	}
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	client := newTestClient(hub, ChannelMediaState)

	hub.Broadcast(ChannelMediaState, map[string]any{"device_id": "tv-lounge", "on": true})

	if got := receive(t, client); got.EventType != ChannelMediaState {
		t.Errorf("event_type = %q, want %q", got.EventType, ChannelMediaState)
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	client := newTestClient(hub, ChannelMediaStatus)

	hub.Broadcast(ChannelMediaState, map[string]any{"device_id": "tv-lounge"})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_PushRelaysReports(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	client := newTestClient(hub, ChannelMediaState)

	var sink cloudsync.Sink = hub
	if sink.Name() != "websocket" {
		t.Errorf("Name() = %q", sink.Name())
	}

	err := sink.Push(context.Background(), cloudsync.Report{
		DeviceID:   "tv-lounge",
		DeviceType: "action.devices.types.TV",
		State:      media.State{"on": true},
	})
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	payload, _ := receive(t, client).Payload.(map[string]any)
	if payload["device_id"] != "tv-lounge" {
		t.Errorf("payload = %v", payload)
	}
}

func TestHub_SetStatusRelaysStatus(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	client := newTestClient(hub, ChannelMediaStatus)

	var indicator media.StatusIndicator = hub
	indicator.SetStatus("tv-lounge", media.StatusOn)

	payload, _ := receive(t, client).Payload.(map[string]any)
	status, _ := payload["status"].(map[string]any)
	if payload["device_id"] != "tv-lounge" || status["text"] != "ON" {
		t.Errorf("payload = %v", payload)
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := newTestClient(hub)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

func TestWebSocket_SubscribeAndReceive(t *testing.T) {
	srv, _, _ := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.hub.Run(ctx)

	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	sub := `{"type":"subscribe","id":"1","payload":{"channels":["media.status"]}}`
	if err := ws.WriteMessage(websocket.TextMessage, []byte(sub)); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack WSMessage
	if err := ws.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != WSTypeResponse || ack.ID != "1" {
		t.Fatalf("ack = %+v", ack)
	}

	srv.hub.SetStatus("tv-lounge", media.StatusOff)

	var event WSMessage
	if err := ws.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != ChannelMediaStatus {
		t.Errorf("event = %+v", event)
	}
}

func TestLoggingMiddleware_PreservesHijacker(t *testing.T) {
	srv, _, _ := testServer(t)

	var hijacked bool
	handler := srv.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		conn, _, err := http.NewResponseController(w).Hijack()
		if err != nil {
			t.Errorf("Hijack() error = %v", err)
			return
		}
		hijacked = true
		_, _ = conn.Write([]byte("HTTP/1.1 204 No Content\r\nConnection: close\r\n\r\n"))
		conn.Close()
	}))

	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	if !hijacked {
		t.Error("handler behind loggingMiddleware could not hijack the connection")
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestWebSocket_UnknownMessageType(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	client := newTestClient(hub)

	client.handleMessage([]byte(`{"type":"bogus","id":"7"}`))
	if got := receive(t, client); got.Type != WSTypeError || got.ID != "7" {
		t.Errorf("reply = %+v", got)
	}

	client.handleMessage([]byte(`{"type":"ping","id":"8"}`))
	if got := receive(t, client); got.Type != WSTypePong {
		t.Errorf("reply = %+v", got)
	}
}
