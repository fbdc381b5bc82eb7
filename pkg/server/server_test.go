package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weblisk-dev/weblisk/pkg/protocol"
	"github.com/weblisk-dev/weblisk/pkg/session"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	config := DefaultConfig()
	config.Logger = testLogger()
	// httptest clients carry no Origin header worth checking.
	config.CheckOrigin = func(r *http.Request) bool { return true }
	config.Connection.HeartbeatInterval = time.Hour

	srv := New(config, nil)
	srv.SetRouteFallback(func(ctx context.Context, event string, payload any, conn *Connection) (any, error) {
		switch event {
		case "echo":
			return payload, nil
		case "whoami":
			return map[string]string{
				"connectionId": conn.ID,
				"sessionId":    conn.SessionID,
			}, nil
		}
		return nil, ErrHandlerNotFound
	})

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return srv, ts
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	return msg
}

func readGreeting(t *testing.T, conn *websocket.Conn) *protocol.ConnectionEstablished {
	t.Helper()
	var greeting protocol.ConnectionEstablished
	if err := json.Unmarshal(readFrame(t, conn), &greeting); err != nil {
		t.Fatalf("unmarshal greeting: %v", err)
	}
	if greeting.Type != protocol.TypeConnectionEstablished {
		t.Fatalf("first frame type = %q, want %q", greeting.Type, protocol.TypeConnectionEstablished)
	}
	return &greeting
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == session.DefaultCookieName {
			return c
		}
	}
	return nil
}

func TestHandshakeIssuesSessionCookie(t *testing.T) {
	srv, ts := newTestServer(t)

	conn, resp := dialWS(t, wsURL(t, ts.URL, "/ws"), nil)

	cookie := sessionCookie(t, resp)
	if cookie == nil {
		t.Fatal("upgrade response should set the session cookie for a cookieless client")
	}
	if !srv.Sessions().IsValid(cookie.Value) {
		t.Errorf("issued cookie %q is not a valid session token", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if cookie.Path != "/" {
		t.Errorf("cookie Path = %q, want /", cookie.Path)
	}

	greeting := readGreeting(t, conn)
	if greeting.SessionID != cookie.Value {
		t.Errorf("greeting sessionId = %q, cookie = %q; they must match", greeting.SessionID, cookie.Value)
	}
	if greeting.ConnectionID == "" {
		t.Error("greeting connectionId should be set")
	}
	if greeting.Timestamp == "" {
		t.Error("greeting timestamp should be set")
	}
	if _, err := time.Parse(protocol.TimestampFormat, greeting.Timestamp); err != nil {
		t.Errorf("greeting timestamp %q does not parse: %v", greeting.Timestamp, err)
	}
}

func TestHandshakeReusesValidCookie(t *testing.T) {
	srv, ts := newTestServer(t)

	existing := srv.Sessions().Issue()
	header := http.Header{}
	header.Set("Cookie", session.DefaultCookieName+"="+existing)

	conn, resp := dialWS(t, wsURL(t, ts.URL, "/ws"), header)

	if c := sessionCookie(t, resp); c != nil {
		t.Errorf("upgrade response re-set the cookie %q for a client that already had one", c.Value)
	}

	greeting := readGreeting(t, conn)
	if greeting.SessionID != existing {
		t.Errorf("greeting sessionId = %q, want the presented token %q", greeting.SessionID, existing)
	}
}

func TestHandshakeReplacesInvalidCookie(t *testing.T) {
	srv, ts := newTestServer(t)

	header := http.Header{}
	header.Set("Cookie", session.DefaultCookieName+"=not-a-real-token")

	conn, resp := dialWS(t, wsURL(t, ts.URL, "/ws"), header)

	cookie := sessionCookie(t, resp)
	if cookie == nil {
		t.Fatal("an invalid cookie should be silently replaced with a fresh one")
	}
	if cookie.Value == "not-a-real-token" {
		t.Error("replacement cookie must not echo the invalid token")
	}
	if !srv.Sessions().IsValid(cookie.Value) {
		t.Errorf("replacement cookie %q is not a valid token", cookie.Value)
	}

	greeting := readGreeting(t, conn)
	if greeting.SessionID != cookie.Value {
		t.Errorf("greeting sessionId = %q, want the reissued token %q", greeting.SessionID, cookie.Value)
	}
}

func TestConnectionRegisteredThenUnregistered(t *testing.T) {
	srv, ts := newTestServer(t)

	conn, _ := dialWS(t, wsURL(t, ts.URL, "/ws"), nil)
	greeting := readGreeting(t, conn)

	if !waitFor(t, time.Second, func() bool { return srv.Registry().Len() == 1 }) {
		t.Fatalf("registry has %d connections after handshake, want 1", srv.Registry().Len())
	}
	if _, ok := srv.Registry().Get(greeting.ConnectionID); !ok {
		t.Error("greeting connectionId should be registered")
	}

	conn.Close()

	if !waitFor(t, 2*time.Second, func() bool { return srv.Registry().Len() == 0 }) {
		t.Errorf("registry has %d connections after close, want 0", srv.Registry().Len())
	}
}

func TestEventRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)

	conn, _ := dialWS(t, wsURL(t, ts.URL, "/ws"), nil)
	readGreeting(t, conn)

	frame := `{"type":"server-event","component":"route","event":"echo","payload":{"n":7}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write event: %v", err)
	}

	res := decodeResult(t, readFrame(t, conn))
	if !res.Success {
		t.Fatalf("Success = false, error = %q", res.Error)
	}
	if res.Event != "echo" {
		t.Errorf("Event = %q, want echo", res.Event)
	}
	m, ok := res.Result.(map[string]any)
	if !ok || m["n"] != float64(7) {
		t.Errorf("Result = %v, want the echoed payload", res.Result)
	}
}

func TestMalformedFrameKeepsConnectionAlive(t *testing.T) {
	_, ts := newTestServer(t)

	conn, _ := dialWS(t, wsURL(t, ts.URL, "/ws"), nil)
	readGreeting(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{{{`)); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	res := decodeResult(t, readFrame(t, conn))
	if res.Success {
		t.Error("garbage frame should produce a failure result")
	}
	if res.Event != "" {
		t.Errorf("Event = %q for garbage frame, want empty", res.Event)
	}

	// The connection survives and keeps dispatching.
	frame := `{"type":"server-event","component":"route","event":"echo","payload":"still here"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write after garbage: %v", err)
	}
	res = decodeResult(t, readFrame(t, conn))
	if !res.Success || res.Result != "still here" {
		t.Errorf("echo after garbage = %+v, want success", res)
	}
}

func TestSessionFanout(t *testing.T) {
	srv, ts := newTestServer(t)
	url := wsURL(t, ts.URL, "/ws")

	// First client establishes the session; two more join it; one is a
	// stranger with its own session.
	c1, resp := dialWS(t, url, nil)
	g1 := readGreeting(t, c1)

	cookie := sessionCookie(t, resp)
	if cookie == nil {
		t.Fatal("first dial should receive a session cookie")
	}
	shared := http.Header{}
	shared.Set("Cookie", session.DefaultCookieName+"="+cookie.Value)

	c2, _ := dialWS(t, url, shared)
	g2 := readGreeting(t, c2)

	c3, _ := dialWS(t, url, nil)
	g3 := readGreeting(t, c3)

	if g1.SessionID != g2.SessionID {
		t.Fatalf("c1 and c2 sessions differ: %q vs %q", g1.SessionID, g2.SessionID)
	}
	if g3.SessionID == g1.SessionID {
		t.Fatal("c3 should have its own session")
	}
	if g1.ConnectionID == g2.ConnectionID {
		t.Fatal("every connection must get its own connection ID")
	}

	if got := len(srv.Registry().ForSession(g1.SessionID)); got != 2 {
		t.Errorf("ForSession(shared) = %d connections, want 2", got)
	}

	// Session-scoped push reaches both tabs, not the stranger.
	sent := srv.SendToSession(g1.SessionID, map[string]string{"note": "for-s1"})
	if sent != 2 {
		t.Errorf("SendToSession = %d, want 2", sent)
	}
	for _, c := range []*websocket.Conn{c1, c2} {
		var note map[string]string
		if err := json.Unmarshal(readFrame(t, c), &note); err != nil {
			t.Fatalf("unmarshal pushed frame: %v", err)
		}
		if note["note"] != "for-s1" {
			t.Errorf("pushed frame = %v", note)
		}
	}

	// Broadcast reaches all three.
	if sent := srv.BroadcastAll(map[string]string{"note": "everyone"}); sent != 3 {
		t.Errorf("BroadcastAll = %d, want 3", sent)
	}
	for _, c := range []*websocket.Conn{c1, c2, c3} {
		readFrame(t, c)
	}

	// Stats reflect the topology.
	stats := srv.Stats()
	if stats.TotalEverCreated != 3 {
		t.Errorf("TotalEverCreated = %d, want 3", stats.TotalEverCreated)
	}
	if stats.CurrentlyActive != 3 {
		t.Errorf("CurrentlyActive = %d, want 3", stats.CurrentlyActive)
	}
	if stats.BySession[g1.SessionID] != 2 {
		t.Errorf("BySession[shared] = %d, want 2", stats.BySession[g1.SessionID])
	}

	// One tab closes; the session keeps its other connection.
	c2.Close()
	if !waitFor(t, 2*time.Second, func() bool {
		return len(srv.Registry().ForSession(g1.SessionID)) == 1
	}) {
		t.Errorf("ForSession(shared) = %d after c2 close, want 1",
			len(srv.Registry().ForSession(g1.SessionID)))
	}

	if got := srv.Stats().TotalEverCreated; got != 3 {
		t.Errorf("TotalEverCreated = %d after a close, must stay 3", got)
	}
}

func TestSendToSpecificConnection(t *testing.T) {
	srv, ts := newTestServer(t)
	url := wsURL(t, ts.URL, "/ws")

	c1, _ := dialWS(t, url, nil)
	g1 := readGreeting(t, c1)
	c2, _ := dialWS(t, url, nil)
	readGreeting(t, c2)

	if !srv.SendTo(g1.ConnectionID, map[string]string{"to": "c1"}) {
		t.Fatal("SendTo for a live connection should return true")
	}

	var got map[string]string
	if err := json.Unmarshal(readFrame(t, c1), &got); err != nil {
		t.Fatalf("unmarshal targeted frame: %v", err)
	}
	if got["to"] != "c1" {
		t.Errorf("targeted frame = %v", got)
	}

	if srv.SendTo("no-such-connection", "x") {
		t.Error("SendTo for unknown connection should return false")
	}
}

func TestShutdownClosesConnections(t *testing.T) {
	srv, ts := newTestServer(t)

	conn, _ := dialWS(t, wsURL(t, ts.URL, "/ws"), nil)
	readGreeting(t, conn)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("client read should fail after server shutdown")
	}

	// New handshakes are refused.
	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatalf("GET after shutdown: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("handshake after shutdown = %d, want 503", resp.StatusCode)
	}
}

func TestServeHTTPUnknownPath(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", resp.StatusCode)
	}
}

func TestSameOriginCheck(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin", "", "example.com", true},
		{"matching", "https://example.com", "example.com", true},
		{"matching with port", "http://example.com:8080", "example.com:8080", true},
		{"cross origin", "https://evil.test", "example.com", false},
		{"port mismatch", "http://example.com:9999", "example.com:8080", false},
		{"garbage origin", "::::", "example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := SameOriginCheck(r); got != tt.want {
				t.Errorf("SameOriginCheck = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCrossOriginUpgradeRejected(t *testing.T) {
	config := DefaultConfig()
	config.Logger = testLogger()

	srv := New(config, nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	header := http.Header{}
	header.Set("Origin", "https://evil.test")

	_, _, err := websocket.DefaultDialer.Dial(wsURL(t, ts.URL, "/ws"), header)
	if err == nil {
		t.Fatal("cross-origin upgrade should be rejected")
	}
}

func TestCustomEndpoint(t *testing.T) {
	config := DefaultConfig().WithEndpoint("/live")
	config.Logger = testLogger()
	config.CheckOrigin = func(r *http.Request) bool { return true }

	srv := New(config, nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	conn, _ := dialWS(t, wsURL(t, ts.URL, "/live"), nil)
	greeting := readGreeting(t, conn)
	if greeting.ConnectionID == "" {
		t.Error("handshake on custom endpoint should complete")
	}
}
