package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/hvpsu/internal/audit"
	"github.com/nerrad567/hvpsu/internal/auth"
	"github.com/nerrad567/hvpsu/internal/driver/simulated"
	"github.com/nerrad567/hvpsu/internal/infrastructure/config"
	"github.com/nerrad567/hvpsu/internal/infrastructure/database"
	"github.com/nerrad567/hvpsu/internal/infrastructure/logging"
	"github.com/nerrad567/hvpsu/internal/metrics"
	"github.com/nerrad567/hvpsu/internal/psu"
	"github.com/nerrad567/hvpsu/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

var (
	hzLimits  = psu.DeviceLimits{MaxVoltage: 30000, MaxCurrent: 2, MaxInputVoltage: 10}
	fugLimits = psu.DeviceLimits{MaxVoltage: 50000, MaxCurrent: 0.5, MaxInputVoltage: 10, HasRelay: true}
)

type testEnv struct {
	srv     *Server
	router  http.Handler
	factory *simulated.Factory
	manager *psu.Manager
}

// testServer creates a Server over a simulated factory with an in-memory
// audit database. absent identities fail to connect.
func testServer(t *testing.T, secret string, absent ...string) *testEnv {
	t.Helper()

	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(context.Background(), migrations.FS, migrations.Dir); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	repo := audit.NewSQLiteRepository(db.DB)

	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error", Format: "text"}, "test")

	factory := simulated.NewFactory(absent...)
	manager, err := psu.NewManager([]psu.DeviceConfig{
		{Identity: "heinzinger", Limits: hzLimits},
		{Identity: "fug", Limits: fugLimits},
	}, factory, psu.WithObserver(audit.NewRecorder(repo, log).Observe))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(manager))

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:        config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Security:  config.SecurityConfig{JWT: config.JWTConfig{Secret: secret}},
		Service:   config.ServiceConfig{ID: "lab-3", Name: "Lab 3 HV"},
		Logger:    log,
		Manager:   manager,
		AuditRepo: repo,
		Gatherer:  reg,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return &testEnv{srv: srv, router: srv.buildRouter(), factory: factory, manager: manager}
}

// do sends a request through the router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

func mintToken(t *testing.T, subject string, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(subject, role, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

// ─── System Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := testServer(t, "")
	w := env.do(t, http.MethodGet, "/health", "", "")

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("health body = %v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := testServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("X-Request-ID = %q, want abc123", got)
	}
}

func TestInfo(t *testing.T) {
	env := testServer(t, "")
	w := env.do(t, http.MethodGet, "/", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	info := decode[InfoResponse](t, w)
	if info.Service != "lab-3" || info.Version != "test" {
		t.Errorf("info = %+v", info)
	}
	if info.PSUs["fug"] != fugLimits || info.PSUs["heinzinger"] != hzLimits {
		t.Errorf("PSUs = %+v", info.PSUs)
	}
	if len(info.Endpoints) == 0 {
		t.Error("Endpoints empty")
	}
}

func TestStatusNeverConnects(t *testing.T) {
	env := testServer(t, "")
	w := env.do(t, http.MethodGet, "/status", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	status := decode[psu.Status](t, w)
	if status.Service != "lab-3" || len(status.PSUs) != 2 {
		t.Fatalf("status = %+v", status)
	}
	for id, entry := range status.PSUs {
		if entry.Connected {
			t.Errorf("%s connected by /status", id)
		}
	}
	if n := env.factory.Opens("fug"); n != 0 {
		t.Errorf("Opens(fug) = %d, want 0", n)
	}
}

// ─── PSU Endpoint Tests ────────────────────────────────────────────

func TestSetVoltageAndRead(t *testing.T) {
	env := testServer(t, "")

	w := env.do(t, http.MethodPost, "/fug/set_voltage", `{"value":25000}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("set_voltage status = %d, body %s", w.Code, w.Body)
	}
	if resp := decode[map[string]bool](t, w); !resp["ok"] {
		t.Errorf("set_voltage ok = false")
	}

	w = env.do(t, http.MethodPost, "/fug/set_current", `{"value":0.25}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("set_current status = %d, body %s", w.Code, w.Body)
	}

	w = env.do(t, http.MethodGet, "/fug/read", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("read status = %d", w.Code)
	}
	got := decode[ReadResponse](t, w)
	if want := (ReadResponse{Voltage: 25000, Current: 0.25}); got != want {
		t.Errorf("read = %+v, want %+v", got, want)
	}
}

func TestPSUErrors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown identity", http.MethodPost, "/gamma/set_voltage", `{"value":1}`, http.StatusNotFound, psu.CodeUnknownIdentity},
		{"unknown identity read", http.MethodGet, "/gamma/read", "", http.StatusNotFound, psu.CodeUnknownIdentity},
		{"voltage above max", http.MethodPost, "/heinzinger/set_voltage", `{"value":35000}`, http.StatusBadRequest, psu.CodeOutOfRange},
		{"negative current", http.MethodPost, "/fug/set_current", `{"value":-0.1}`, http.StatusBadRequest, psu.CodeOutOfRange},
		{"relay unsupported", http.MethodPost, "/heinzinger/relay", `{"state":true}`, http.StatusBadRequest, psu.CodeRelayUnsupported},
		{"invalid JSON", http.MethodPost, "/fug/set_voltage", `{`, http.StatusBadRequest, ErrCodeBadRequest},
		{"missing value", http.MethodPost, "/fug/set_voltage", `{}`, http.StatusBadRequest, ErrCodeBadRequest},
		{"missing state", http.MethodPost, "/fug/relay", `{}`, http.StatusBadRequest, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t, "")
			w := env.do(t, tt.method, tt.path, tt.body, "")
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body)
			}
			e := decode[Error](t, w)
			if e.Code != tt.wantCode || e.Status != tt.wantStatus {
				t.Errorf("error = %+v, want code %q", e, tt.wantCode)
			}
		})
	}
}

func TestRelayUnsupportedMessage(t *testing.T) {
	env := testServer(t, "")
	w := env.do(t, http.MethodPost, "/heinzinger/relay", `{"state":false}`, "")
	e := decode[Error](t, w)
	if !strings.Contains(e.Message, "manually") {
		t.Errorf("message = %q, want manual operation hint", e.Message)
	}
	if n := env.factory.Opens("heinzinger"); n != 0 {
		t.Errorf("relay command opened hardware %d times", n)
	}
}

func TestRelay(t *testing.T) {
	env := testServer(t, "")

	w := env.do(t, http.MethodGet, "/fug/relay", "", "")
	if got := decode[RelayResponse](t, w); got.On || got.State != psu.RelayOff {
		t.Errorf("initial relay = %+v", got)
	}

	w = env.do(t, http.MethodPost, "/fug/relay", `{"state":true}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("relay status = %d, body %s", w.Code, w.Body)
	}
	if got := decode[RelayResponse](t, w); !got.On {
		t.Errorf("relay on = false")
	}

	w = env.do(t, http.MethodGet, "/fug/relay", "", "")
	if got := decode[RelayResponse](t, w); !got.On || got.State != psu.RelayOn {
		t.Errorf("cached relay = %+v", got)
	}

	w = env.do(t, http.MethodGet, "/fug/read", "", "")
	if got := decode[ReadResponse](t, w); !got.On {
		t.Errorf("read on = false after switching on")
	}

	w = env.do(t, http.MethodGet, "/heinzinger/relay", "", "")
	if got := decode[RelayResponse](t, w); got.On || got.State != psu.RelayUnsupported {
		t.Errorf("heinzinger relay = %+v", got)
	}
}

func TestConnectHardwareUnavailable(t *testing.T) {
	env := testServer(t, "", "heinzinger")

	w := env.do(t, http.MethodPost, "/heinzinger/connect", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if e := decode[Error](t, w); e.Code != psu.CodeHardwareUnavailable {
		t.Errorf("code = %q", e.Code)
	}

	w = env.do(t, http.MethodPost, "/fug/connect", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("fug connect status = %d", w.Code)
	}
}

func TestDriverErrorIsCommandRejected(t *testing.T) {
	env := testServer(t, "")
	if w := env.do(t, http.MethodPost, "/fug/connect", "", ""); w.Code != http.StatusOK {
		t.Fatalf("connect status = %d", w.Code)
	}
	env.factory.SetFault("fug", io.ErrUnexpectedEOF)

	w := env.do(t, http.MethodGet, "/fug/read", "", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if e := decode[Error](t, w); e.Code != psu.CodeCommandRejected {
		t.Errorf("code = %q", e.Code)
	}
}

func TestTeardownParksDevices(t *testing.T) {
	env := testServer(t, "")
	env.do(t, http.MethodPost, "/fug/set_voltage", `{"value":1000}`, "")

	w := env.do(t, http.MethodPost, "/teardown", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("teardown status = %d", w.Code)
	}
	if resp := decode[map[string]any](t, w); resp["ok"] != true {
		t.Errorf("teardown body = %v", resp)
	}

	w = env.do(t, http.MethodPost, "/fug/set_voltage", `{"value":1000}`, "")
	if w.Code != http.StatusConflict {
		t.Errorf("set_voltage after teardown = %d, want 409", w.Code)
	}

	status := decode[psu.Status](t, env.do(t, http.MethodGet, "/status", "", ""))
	if len(status.PSUs) != 2 || status.PSUs["fug"].Connected {
		t.Errorf("status after teardown = %+v", status.PSUs)
	}

	// An explicit connect brings the device back.
	if w := env.do(t, http.MethodPost, "/fug/connect", "", ""); w.Code != http.StatusOK {
		t.Errorf("reconnect status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/fug/set_voltage", `{"value":1000}`, ""); w.Code != http.StatusOK {
		t.Errorf("set_voltage after reconnect = %d", w.Code)
	}
}

// ─── Audit, Metrics and Auth Tests ─────────────────────────────────

func TestAuditTrail(t *testing.T) {
	env := testServer(t, "")
	env.do(t, http.MethodPost, "/fug/set_voltage", `{"value":1000}`, "")
	env.do(t, http.MethodPost, "/heinzinger/set_voltage", `{"value":99999}`, "")

	w := env.do(t, http.MethodGet, "/audit?identity=fug", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("audit status = %d", w.Code)
	}
	page := decode[audit.ListResult](t, w)
	if page.Total == 0 {
		t.Fatal("no audit entries for fug")
	}
	for _, l := range page.Logs {
		if l.EntityID != "fug" || l.Source != audit.SourceAPI {
			t.Errorf("entry = %+v", l)
		}
	}

	page = decode[audit.ListResult](t, env.do(t, http.MethodGet, "/audit?rejected=true", "", ""))
	if page.Total != 1 || page.Logs[0].EntityID != "heinzinger" || page.Logs[0].Error == "" {
		t.Errorf("rejected page = %+v", page)
	}

	if w := env.do(t, http.MethodGet, "/audit?rejected=maybe", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad rejected flag status = %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := testServer(t, "")
	env.do(t, http.MethodPost, "/fug/set_voltage", `{"value":1000}`, "")

	w := env.do(t, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`hvpsu_connected{identity="fug"} 1`,
		`hvpsu_connected{identity="heinzinger"} 0`,
		`hvpsu_voltage_volts{identity="fug"} 1000`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestAuth(t *testing.T) {
	env := testServer(t, testSecret)
	viewer := mintToken(t, "dash", auth.RoleViewer)
	operator := mintToken(t, "alice", auth.RoleOperator)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{"health is open", http.MethodGet, "/health", "", "", http.StatusOK},
		{"metrics is open", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"status needs token", http.MethodGet, "/status", "", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/status", "", "garbage", http.StatusUnauthorized},
		{"viewer reads status", http.MethodGet, "/status", "", viewer, http.StatusOK},
		{"viewer reads audit", http.MethodGet, "/audit", "", viewer, http.StatusOK},
		{"viewer cannot connect", http.MethodPost, "/fug/connect", "", viewer, http.StatusForbidden},
		{"viewer cannot teardown", http.MethodPost, "/teardown", "", viewer, http.StatusForbidden},
		{"operator connects", http.MethodPost, "/fug/connect", "", operator, http.StatusOK},
		{"operator sets voltage", http.MethodPost, "/fug/set_voltage", `{"value":10}`, operator, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body, tt.token)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body)
			}
		})
	}

	page := decode[audit.ListResult](t, env.do(t, http.MethodGet, "/audit?action=set_voltage", "", viewer))
	if page.Total != 1 || page.Logs[0].UserID != "alice" {
		t.Errorf("audit = %+v, want one entry by alice", page)
	}
}

func TestMalformedAuthorizationHeader(t *testing.T) {
	env := testServer(t, testSecret)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("WWW-Authenticate header missing")
	}
}

// ─── WebSocket Tests ───────────────────────────────────────────────

func TestWebSocketBroadcast(t *testing.T) {
	env := testServer(t, testSecret)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("dial without token succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dial without token: resp = %v, err = %v", resp, err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+mintToken(t, "dash", auth.RoleViewer), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	sub := WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{"psu.status"}}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Test deadline

	var resp WSMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("reading subscribe response: %v", err)
	}
	if resp.Type != WSTypeResponse || resp.ID != "1" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	env.srv.Hub().Broadcast("psu.status", map[string]string{"service": "lab-3"})

	var ev WSMessage
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if ev.Type != WSTypeEvent || ev.EventType != "psu.status" {
		t.Errorf("event = %+v", ev)
	}
}

func TestWebSocketReplaysLastEvent(t *testing.T) {
	env := testServer(t, "")
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	env.srv.Hub().Broadcast("psu.status", map[string]string{"service": "lab-3"})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Test deadline

	bad := WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{"device.state"}}}
	if err := conn.WriteJSON(bad); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var resp WSMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("reading error frame: %v", err)
	}
	if resp.Type != WSTypeError || resp.ID != "1" {
		t.Fatalf("unknown channel response = %+v", resp)
	}

	sub := WSMessage{Type: WSTypeSubscribe, ID: "2", Payload: WSSubscribePayload{Channels: []string{"psu.status"}}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("reading subscribe response: %v", err)
	}
	if resp.Type != WSTypeResponse || resp.ID != "2" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	var ev WSMessage
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("reading replayed event: %v", err)
	}
	payload, ok := ev.Payload.(map[string]any)
	if ev.Type != WSTypeEvent || ev.EventType != "psu.status" || !ok || payload["service"] != "lab-3" {
		t.Errorf("replayed event = %+v", ev)
	}

	if n := env.srv.Hub().SessionCount(); n != 1 {
		t.Errorf("SessionCount() = %d, want 1", n)
	}
}

// ─── Constructor Tests ─────────────────────────────────────────────

func TestNewRequiresDeps(t *testing.T) {
	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error"}, "test")
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without manager should fail")
	}
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestNewAppliesWebSocketDefaults(t *testing.T) {
	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error"}, "test")
	m, err := psu.NewManager([]psu.DeviceConfig{{Identity: "fug", Limits: fugLimits}}, simulated.NewFactory())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	srv, err := New(Deps{Logger: log, Manager: m})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if srv.wsCfg.PingInterval != defaultWSPingInterval || srv.wsCfg.PongTimeout != defaultWSPongTimeout {
		t.Errorf("wsCfg = %+v", srv.wsCfg)
	}
	if srv.status == nil {
		t.Error("status aggregator not defaulted")
	}
}

func TestAuditUnavailableWithoutRepo(t *testing.T) {
	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error"}, "test")
	m, err := psu.NewManager([]psu.DeviceConfig{{Identity: "fug", Limits: fugLimits}}, simulated.NewFactory())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	srv, err := New(Deps{Logger: log, Manager: m})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	w = httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("metrics without gatherer = %d, want 404", w.Code)
	}
}
