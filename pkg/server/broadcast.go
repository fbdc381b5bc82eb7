package server

import (
	"encoding/json"
	"log/slog"
)

// BroadcastOption narrows the recipient set of a broadcast.
type BroadcastOption func(*broadcastFilter)

type broadcastFilter struct {
	onlySession     string
	excludeSessions map[string]struct{}
	excludeConns    map[string]struct{}
}

// OnlySession restricts the broadcast to connections of one session.
func OnlySession(sessionID string) BroadcastOption {
	return func(f *broadcastFilter) {
		f.onlySession = sessionID
	}
}

// ExcludeSession drops every connection of the given session from the
// recipient set. May be applied multiple times.
func ExcludeSession(sessionID string) BroadcastOption {
	return func(f *broadcastFilter) {
		if f.excludeSessions == nil {
			f.excludeSessions = make(map[string]struct{})
		}
		f.excludeSessions[sessionID] = struct{}{}
	}
}

// ExcludeConnections drops the given connection IDs from the recipient set.
func ExcludeConnections(ids ...string) BroadcastOption {
	return func(f *broadcastFilter) {
		if f.excludeConns == nil {
			f.excludeConns = make(map[string]struct{})
		}
		for _, id := range ids {
			f.excludeConns[id] = struct{}{}
		}
	}
}

func (f *broadcastFilter) match(conn *Connection) bool {
	if f.onlySession != "" && conn.SessionID != f.onlySession {
		return false
	}
	if _, skip := f.excludeSessions[conn.SessionID]; skip {
		return false
	}
	if _, skip := f.excludeConns[conn.ID]; skip {
		return false
	}
	return true
}

// Broadcaster pushes server-initiated messages to live connections through
// the registry. Every send is fire-and-forget: connections that are closed
// or mid-teardown are skipped silently, and the counts report deliveries
// attempted against open transports, not client receipt.
type Broadcaster struct {
	registry *Registry
	logger   *slog.Logger
}

// NewBroadcaster returns a broadcaster over the given registry.
func NewBroadcaster(registry *Registry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		registry: registry,
		logger:   logger.With("component", "broadcast"),
	}
}

// SendTo sends v to a single connection. It reports whether the frame was
// written; an unknown ID or a closed connection yields false, never an
// error.
func (b *Broadcaster) SendTo(connectionID string, v any) bool {
	conn, ok := b.registry.Get(connectionID)
	if !ok {
		return false
	}
	return conn.Send(v)
}

// SendToSession sends v to every connection of a session and returns the
// number of successful writes. A session with no connections returns 0.
func (b *Broadcaster) SendToSession(sessionID string, v any) int {
	conns := b.registry.ForSession(sessionID)
	if len(conns) == 0 {
		return 0
	}

	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("broadcast marshal error", "error", err)
		return 0
	}

	sent := 0
	for _, conn := range conns {
		if conn.SendRaw(data) {
			sent++
		}
	}
	return sent
}

// BroadcastAll sends v to every live connection, minus any filtered out by
// the options, and returns the number of successful writes. The payload is
// encoded once and the bytes fanned out.
func (b *Broadcaster) BroadcastAll(v any, opts ...BroadcastOption) int {
	var filter broadcastFilter
	for _, opt := range opts {
		opt(&filter)
	}

	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("broadcast marshal error", "error", err)
		return 0
	}

	sent := 0
	for _, conn := range b.registry.All() {
		if !filter.match(conn) {
			continue
		}
		if conn.SendRaw(data) {
			sent++
		}
	}
	return sent
}
