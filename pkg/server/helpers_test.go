package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weblisk-dev/weblisk/pkg/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeTransport is an in-memory transport for tests that never touch a
// real socket. Writes are recorded; reads are fed through a channel.
type fakeTransport struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool

	reads chan []byte

	writeErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{reads: make(chan []byte, 16)}
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	msg, ok := <-f.reads
	if !ok {
		return 0, nil, errors.New("fake transport: reads closed")
	}
	return websocket.TextMessage, msg, nil
}

func (f *fakeTransport) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.closed {
		return errors.New("fake transport: closed")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeTransport) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (f *fakeTransport) SetReadLimit(limit int64)          {}
func (f *fakeTransport) SetReadDeadline(t time.Time) error { return nil }
func (f *fakeTransport) SetWriteDeadline(t time.Time) error {
	return nil
}

func (f *fakeTransport) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 65000}
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// push feeds a frame to ReadMessage.
func (f *fakeTransport) push(msg string) {
	f.reads <- []byte(msg)
}

// endReads makes the next ReadMessage return an error.
func (f *fakeTransport) endReads() {
	close(f.reads)
}

func (f *fakeTransport) sentFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeTransport) lastFrame() []byte {
	frames := f.sentFrames()
	if len(frames) == 0 {
		return nil
	}
	return frames[len(frames)-1]
}

func (f *fakeTransport) failWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// newTestConnection builds an open connection over a fake transport.
func newTestConnection(id, sessionID string) (*Connection, *fakeTransport) {
	ft := newFakeTransport()
	conn := newConnection(id, sessionID, ft, DefaultConnectionConfig(), nil, testLogger())
	conn.markOpen()
	return conn, ft
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
