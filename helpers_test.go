package weblisk

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weblisk-dev/weblisk/pkg/protocol"
	"github.com/weblisk-dev/weblisk/pkg/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testApp builds an App with quiet logging and test-friendly timeouts.
func testApp(t *testing.T, mutate func(*Config)) *App {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Logger = testLogger()
	cfg.Connection.HeartbeatInterval = time.Hour
	if mutate != nil {
		mutate(&cfg)
	}

	app := New(cfg)
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app
}

func serveApp(t *testing.T, app *App) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(app)
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(t *testing.T, baseURL, path string) string {
	t.Helper()
	if !strings.HasPrefix(baseURL, "http") {
		t.Fatalf("unexpected base URL: %q", baseURL)
	}
	return "ws" + strings.TrimPrefix(baseURL, "http") + path
}

func dialWS(t *testing.T, url string, header http.Header) (*websocket.Conn, *http.Response) {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial(%q) failed: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, resp
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

func decodeResult(t *testing.T, frame []byte) *protocol.EventResult {
	t.Helper()
	var res protocol.EventResult
	if err := json.Unmarshal(frame, &res); err != nil {
		t.Fatalf("unmarshal event-result %q: %v", frame, err)
	}
	if res.Type != protocol.TypeEventResult {
		t.Fatalf("frame type = %q, want %q", res.Type, protocol.TypeEventResult)
	}
	return &res
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

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
