package server

import (
	"encoding/json"
	"testing"
)

type testNotice struct {
	Kind string `json:"kind"`
	Body string `json:"body"`
}

func broadcastEnv(t *testing.T) (*Registry, *Broadcaster) {
	t.Helper()
	r := NewRegistry(testLogger())
	return r, NewBroadcaster(r, testLogger())
}

func TestSendToWritesFrame(t *testing.T) {
	r, b := broadcastEnv(t)
	conn, ft := newTestConnection("c1", "s1")
	r.Register(conn)

	if !b.SendTo("c1", testNotice{Kind: "ping", Body: "hello"}) {
		t.Fatal("SendTo returned false for an open connection")
	}

	frames := ft.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	var got testNotice
	if err := json.Unmarshal(frames[0], &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if got.Kind != "ping" || got.Body != "hello" {
		t.Errorf("frame = %+v, want {ping hello}", got)
	}
}

func TestSendToUnknownConnection(t *testing.T) {
	_, b := broadcastEnv(t)

	if b.SendTo("ghost", testNotice{}) {
		t.Error("SendTo for unknown connection should return false")
	}
}

func TestSendToClosedConnection(t *testing.T) {
	r, b := broadcastEnv(t)
	conn, _ := newTestConnection("c1", "s1")
	r.Register(conn)
	conn.Close()

	if b.SendTo("c1", testNotice{}) {
		t.Error("SendTo for closed connection should return false")
	}
}

func TestSendToSessionCountsOpenConnections(t *testing.T) {
	r, b := broadcastEnv(t)

	c1, ft1 := newTestConnection("c1", "s1")
	c2, ft2 := newTestConnection("c2", "s1")
	c3, _ := newTestConnection("c3", "s1")
	outsider, ftOut := newTestConnection("c4", "s2")
	r.Register(c1)
	r.Register(c2)
	r.Register(c3)
	r.Register(outsider)
	c3.Close()

	sent := b.SendToSession("s1", testNotice{Kind: "news"})
	if sent != 2 {
		t.Errorf("SendToSession = %d, want 2 (closed connection skipped)", sent)
	}
	if len(ft1.sentFrames()) != 1 || len(ft2.sentFrames()) != 1 {
		t.Error("both open s1 connections should receive the frame")
	}
	if len(ftOut.sentFrames()) != 0 {
		t.Error("s2 connection should not receive an s1 session send")
	}
}

func TestSendToSessionUnknownSession(t *testing.T) {
	_, b := broadcastEnv(t)

	if got := b.SendToSession("nope", testNotice{}); got != 0 {
		t.Errorf("SendToSession for unknown session = %d, want 0", got)
	}
}

func TestBroadcastAllReachesEveryOpenConnection(t *testing.T) {
	r, b := broadcastEnv(t)

	var fts []*fakeTransport
	for _, id := range []string{"c1", "c2", "c3"} {
		conn, ft := newTestConnection(id, "s-"+id)
		r.Register(conn)
		fts = append(fts, ft)
	}

	sent := b.BroadcastAll(testNotice{Kind: "all"})
	if sent != 3 {
		t.Fatalf("BroadcastAll = %d, want 3", sent)
	}
	for i, ft := range fts {
		if len(ft.sentFrames()) != 1 {
			t.Errorf("connection %d received %d frames, want 1", i, len(ft.sentFrames()))
		}
	}
}

func TestBroadcastAllSkipsClosedSilently(t *testing.T) {
	r, b := broadcastEnv(t)

	open, ftOpen := newTestConnection("c1", "s1")
	closed, ftClosed := newTestConnection("c2", "s2")
	r.Register(open)
	r.Register(closed)
	closed.Close()

	sent := b.BroadcastAll(testNotice{Kind: "all"})
	if sent != 1 {
		t.Errorf("BroadcastAll = %d, want 1", sent)
	}
	if len(ftOpen.sentFrames()) != 1 {
		t.Error("open connection should receive the broadcast")
	}
	if len(ftClosed.sentFrames()) != 0 {
		t.Error("closed connection should be skipped")
	}
}

func TestBroadcastAllExcludeSession(t *testing.T) {
	r, b := broadcastEnv(t)

	c1, ft1 := newTestConnection("c1", "s1")
	c2, ft2 := newTestConnection("c2", "s1")
	c3, ft3 := newTestConnection("c3", "s2")
	r.Register(c1)
	r.Register(c2)
	r.Register(c3)

	sent := b.BroadcastAll(testNotice{Kind: "partial"}, ExcludeSession("s1"))
	if sent != 1 {
		t.Errorf("BroadcastAll = %d, want 1", sent)
	}
	if len(ft1.sentFrames()) != 0 || len(ft2.sentFrames()) != 0 {
		t.Error("excluded session connections should receive nothing")
	}
	if len(ft3.sentFrames()) != 1 {
		t.Error("non-excluded connection should receive the broadcast")
	}
}

func TestBroadcastAllExcludeConnections(t *testing.T) {
	r, b := broadcastEnv(t)

	c1, ft1 := newTestConnection("c1", "s1")
	c2, ft2 := newTestConnection("c2", "s1")
	r.Register(c1)
	r.Register(c2)

	sent := b.BroadcastAll(testNotice{}, ExcludeConnections("c1"))
	if sent != 1 {
		t.Errorf("BroadcastAll = %d, want 1", sent)
	}
	if len(ft1.sentFrames()) != 0 {
		t.Error("excluded connection should receive nothing")
	}
	if len(ft2.sentFrames()) != 1 {
		t.Error("remaining connection should receive the broadcast")
	}
}

func TestBroadcastAllOnlySession(t *testing.T) {
	r, b := broadcastEnv(t)

	c1, ft1 := newTestConnection("c1", "s1")
	c2, ft2 := newTestConnection("c2", "s2")
	r.Register(c1)
	r.Register(c2)

	sent := b.BroadcastAll(testNotice{}, OnlySession("s2"))
	if sent != 1 {
		t.Errorf("BroadcastAll = %d, want 1", sent)
	}
	if len(ft1.sentFrames()) != 0 {
		t.Error("connection outside OnlySession should receive nothing")
	}
	if len(ft2.sentFrames()) != 1 {
		t.Error("OnlySession connection should receive the broadcast")
	}
}

func TestBroadcastAllCombinedFilters(t *testing.T) {
	r, b := broadcastEnv(t)

	c1, _ := newTestConnection("c1", "s1")
	c2, ft2 := newTestConnection("c2", "s1")
	r.Register(c1)
	r.Register(c2)

	sent := b.BroadcastAll(testNotice{}, OnlySession("s1"), ExcludeConnections("c1"))
	if sent != 1 {
		t.Errorf("BroadcastAll = %d, want 1", sent)
	}
	if len(ft2.sentFrames()) != 1 {
		t.Error("c2 should be the sole recipient")
	}
}

func TestBroadcastUnmarshalableValue(t *testing.T) {
	r, b := broadcastEnv(t)

	conn, ft := newTestConnection("c1", "s1")
	r.Register(conn)

	if got := b.BroadcastAll(make(chan int)); got != 0 {
		t.Errorf("BroadcastAll with unmarshalable value = %d, want 0", got)
	}
	if got := b.SendToSession("s1", make(chan int)); got != 0 {
		t.Errorf("SendToSession with unmarshalable value = %d, want 0", got)
	}
	if len(ft.sentFrames()) != 0 {
		t.Error("no frames should be written for unmarshalable values")
	}
}
