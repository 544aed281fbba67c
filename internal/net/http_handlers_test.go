package net

import (
	"bytes"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"samsim/server/internal/hub"
	"samsim/server/internal/proto"
	"samsim/server/internal/state"
	"samsim/server/internal/telemetry"
)

type fakeSender struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (s *fakeSender) Send(command any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	data, err := json.Marshal(command)
	if err != nil {
		return err
	}
	s.payloads = append(s.payloads, data)
	return nil
}

func (s *fakeSender) sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.payloads...)
}

func newTestHandler(sender CommandSender) (nethttp.Handler, *state.Store) {
	store := state.NewStore()
	h := hub.NewHub(store, hub.Config{})
	handler := NewHTTPHandler(h, store, sender, HTTPHandlerConfig{
		BroadcastInterval: 100 * time.Millisecond,
		Counters:          &telemetry.Counters{},
	})
	return handler, store
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestHandler(&fakeSender{})

	req := httptest.NewRequest(nethttp.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != nethttp.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if resp.Body.String() != "ok" {
		t.Fatalf("expected body ok, got %q", resp.Body.String())
	}
}

func TestStatusEndpointReturnsSummary(t *testing.T) {
	handler, store := newTestHandler(&fakeSender{})

	store.ApplyStatus(state.StatusUpdate{
		MissionTime: 120.5,
		Sites: map[string]state.SiteUpdate{
			"sam2": {},
			"sam1": {},
		},
	})

	req := httptest.NewRequest(nethttp.MethodGet, "/api/status", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != nethttp.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var payload struct {
		DCSConnected bool     `json:"dcsConnected"`
		MissionTime  float64  `json:"missionTime"`
		Paused       bool     `json:"paused"`
		Sites        []string `json:"sites"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode status payload: %v", err)
	}
	if !payload.DCSConnected {
		t.Fatalf("expected dcsConnected true")
	}
	if payload.MissionTime != 120.5 {
		t.Fatalf("expected missionTime 120.5, got %v", payload.MissionTime)
	}
	if len(payload.Sites) != 2 || payload.Sites[0] != "sam1" || payload.Sites[1] != "sam2" {
		t.Fatalf("expected sorted site ids, got %v", payload.Sites)
	}
}

func TestStatusEndpointRejectsWrongMethod(t *testing.T) {
	handler, _ := newTestHandler(&fakeSender{})

	req := httptest.NewRequest(nethttp.MethodPost, "/api/status", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != nethttp.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", resp.Code)
	}
}

func TestCommandEndpointForwards(t *testing.T) {
	sender := &fakeSender{}
	handler, _ := newTestHandler(sender)

	body := []byte(`{"cmd":"set_radar","siteId":"sam1"}`)
	req := httptest.NewRequest(nethttp.MethodPost, "/api/command", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != nethttp.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if !result.Success || result.Error != "" {
		t.Fatalf("expected success, got %+v", result)
	}

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one forwarded command, got %d", len(sent))
	}
	if !bytes.Equal(sent[0], body) {
		t.Fatalf("expected verbatim forward, got %s", sent[0])
	}
}

func TestCommandEndpointReportsFailures(t *testing.T) {
	handler, _ := newTestHandler(&fakeSender{err: errors.New("socket closed")})

	req := httptest.NewRequest(nethttp.MethodPost, "/api/command", bytes.NewBufferString(`{"cmd":"x"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != nethttp.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure result")
	}
	if result.Error == "" {
		t.Fatalf("expected error message in result")
	}
}

func TestCommandEndpointRejectsInvalidJSON(t *testing.T) {
	sender := &fakeSender{}
	handler, _ := newTestHandler(sender)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/command", bytes.NewBufferString(`{"cmd":`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure for invalid JSON")
	}
	if len(sender.sent()) != 0 {
		t.Fatalf("expected nothing forwarded")
	}
}

func TestCommandEndpointRejectsWrongMethod(t *testing.T) {
	handler, _ := newTestHandler(&fakeSender{})

	req := httptest.NewRequest(nethttp.MethodGet, "/api/command", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != nethttp.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", resp.Code)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	handler, _ := newTestHandler(&fakeSender{})

	req := httptest.NewRequest(nethttp.MethodGet, "/diagnostics", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != nethttp.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics payload: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", payload["status"])
	}
	if _, ok := payload["telemetry"].(map[string]any); !ok {
		t.Fatalf("expected telemetry counters object, got %T", payload["telemetry"])
	}
	if payload["broadcastMillis"] != 100.0 {
		t.Fatalf("expected broadcastMillis 100, got %v", payload["broadcastMillis"])
	}
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read websocket message: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("failed to decode websocket message: %v", err)
	}
	return payload
}

func TestWebSocketGetStateReturnsSnapshot(t *testing.T) {
	handler, store := newTestHandler(&fakeSender{})
	store.ApplyStatus(state.StatusUpdate{
		MissionTime: 42,
		Sites: map[string]state.SiteUpdate{
			"sam1": {SystemState: 2},
		},
	})

	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "get_state"}); err != nil {
		t.Fatalf("failed to request state: %v", err)
	}

	payload := readMessage(t, conn)
	if payload["type"] != proto.TypeState {
		t.Fatalf("expected type %q, got %v", proto.TypeState, payload["type"])
	}
	if payload["missionTime"] != 42.0 {
		t.Fatalf("expected missionTime 42, got %v", payload["missionTime"])
	}
	sites, ok := payload["sites"].(map[string]any)
	if !ok {
		t.Fatalf("expected sites object, got %T", payload["sites"])
	}
	if _, ok := sites["sam1"]; !ok {
		t.Fatalf("expected sam1 in snapshot, got %v", sites)
	}
}

func TestWebSocketCommandIsAcked(t *testing.T) {
	sender := &fakeSender{}
	handler, _ := newTestHandler(sender)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	msg := map[string]any{
		"type":    "command",
		"command": map[string]any{"cmd": "set_radar", "siteId": "sam1"},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send command: %v", err)
	}

	payload := readMessage(t, conn)
	if payload["type"] != proto.TypeAck {
		t.Fatalf("expected ack, got %v", payload["type"])
	}
	if payload["command"] != "set_radar" {
		t.Fatalf("expected ack for set_radar, got %v", payload["command"])
	}

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one forwarded command, got %d", len(sent))
	}
	var forwarded map[string]any
	if err := json.Unmarshal(sent[0], &forwarded); err != nil {
		t.Fatalf("failed to decode forwarded command: %v", err)
	}
	if forwarded["cmd"] != "set_radar" {
		t.Fatalf("expected forwarded cmd set_radar, got %v", forwarded["cmd"])
	}
}

func TestWebSocketInitSiteForwardsAndPreCreates(t *testing.T) {
	sender := &fakeSender{}
	handler, store := newTestHandler(sender)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	msg := map[string]any{"type": "init_site", "siteId": "sam1", "groupName": "SAM Alpha"}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send init_site: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sender.sent()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one forwarded init_site, got %d", len(sent))
	}
	var forwarded map[string]any
	if err := json.Unmarshal(sent[0], &forwarded); err != nil {
		t.Fatalf("failed to decode forwarded command: %v", err)
	}
	if forwarded["cmd"] != "init_site" || forwarded["siteId"] != "sam1" {
		t.Fatalf("unexpected forwarded command: %v", forwarded)
	}
	params, ok := forwarded["params"].(map[string]any)
	if !ok || params["groupName"] != "SAM Alpha" {
		t.Fatalf("expected params.groupName, got %v", forwarded["params"])
	}

	site, ok := store.Snapshot().Sites["sam1"]
	if !ok {
		t.Fatalf("expected site pre-created locally")
	}
	if site.AntennaEl != state.DefaultAntennaEl || site.MissilesReady != state.DefaultMissilesReady {
		t.Fatalf("expected default site fields, got %+v", site)
	}
}

func TestWebSocketIgnoresMalformedMessages(t *testing.T) {
	sender := &fakeSender{}
	handler, _ := newTestHandler(sender)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`)); err != nil {
		t.Fatalf("failed to send malformed message: %v", err)
	}

	// The session must survive; a follow-up request still works.
	if err := conn.WriteJSON(map[string]string{"type": "get_state"}); err != nil {
		t.Fatalf("failed to request state: %v", err)
	}
	payload := readMessage(t, conn)
	if payload["type"] != proto.TypeState {
		t.Fatalf("expected state reply after malformed message, got %v", payload["type"])
	}
	if len(sender.sent()) != 0 {
		t.Fatalf("expected nothing forwarded")
	}
}
