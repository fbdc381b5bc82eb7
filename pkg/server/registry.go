package server

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Registry tracks every live connection and indexes them by session. It is
// the sole synchronization boundary for connection bookkeeping: both maps
// are guarded by one lock, so a connection is never visible in one view and
// missing from the other.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	sessions    map[string]map[string]*Connection

	totalCreated atomic.Uint64
	peakActive   atomic.Uint64

	logger *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]*Connection),
		logger:      logger.With("component", "registry"),
	}
}

// Register adds a connection under its ID and session. Registering an ID
// that already exists replaces the previous entry and repairs the session
// index, so a double-register cannot leak a stale mapping.
func (r *Registry) Register(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.connections[conn.ID]
	if existed && prev.SessionID != conn.SessionID {
		r.removeFromSessionLocked(prev)
	}

	r.connections[conn.ID] = conn

	byConn, ok := r.sessions[conn.SessionID]
	if !ok {
		byConn = make(map[string]*Connection)
		r.sessions[conn.SessionID] = byConn
	}
	byConn[conn.ID] = conn

	if !existed {
		total := r.totalCreated.Add(1)
		if active := uint64(len(r.connections)); active > r.peakActive.Load() {
			r.peakActive.Store(active)
		}
		r.logger.Debug("connection registered",
			"connection_id", conn.ID,
			"session_id", conn.SessionID,
			"total_created", total,
			"active", len(r.connections))
	}
}

// Unregister removes a connection by ID. Unknown IDs are a no-op, so close
// paths can unregister unconditionally. When a session's last connection
// goes away its index entry is dropped too.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[id]
	if !ok {
		return
	}

	delete(r.connections, id)
	r.removeFromSessionLocked(conn)

	r.logger.Debug("connection unregistered",
		"connection_id", id,
		"session_id", conn.SessionID,
		"active", len(r.connections))
}

// removeFromSessionLocked drops conn from the session index, deleting the
// session bucket when it empties. Caller holds r.mu.
func (r *Registry) removeFromSessionLocked(conn *Connection) {
	byConn, ok := r.sessions[conn.SessionID]
	if !ok {
		return
	}
	delete(byConn, conn.ID)
	if len(byConn) == 0 {
		delete(r.sessions, conn.SessionID)
	}
}

// Get returns the connection with the given ID.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[id]
	return conn, ok
}

// ForSession returns every connection belonging to a session. The result is
// a fresh slice the caller owns; a session with no connections yields an
// empty slice, never nil.
func (r *Registry) ForSession(sessionID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byConn := r.sessions[sessionID]
	conns := make([]*Connection, 0, len(byConn))
	for _, conn := range byConn {
		conns = append(conns, conn)
	}
	return conns
}

// All returns every live connection as a fresh slice.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn)
	}
	return conns
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// ForEach calls fn for each live connection. The iteration runs over a
// snapshot, so fn may register or unregister without deadlocking.
func (r *Registry) ForEach(fn func(conn *Connection)) {
	for _, conn := range r.All() {
		fn(conn)
	}
}

// RegistryStats is a point-in-time summary of registry state.
type RegistryStats struct {
	// TotalEverCreated counts registrations over the registry's lifetime.
	// It never decreases.
	TotalEverCreated uint64

	// CurrentlyActive is the number of live connections right now.
	CurrentlyActive int

	// PeakActive is the highest CurrentlyActive observed.
	PeakActive uint64

	// BySession maps session ID to its live connection count.
	BySession map[string]int
}

// Stats returns a snapshot of registry counters. BySession is a fresh map
// the caller owns.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bySession := make(map[string]int, len(r.sessions))
	for sessionID, byConn := range r.sessions {
		bySession[sessionID] = len(byConn)
	}

	return RegistryStats{
		TotalEverCreated: r.totalCreated.Load(),
		CurrentlyActive:  len(r.connections),
		PeakActive:       r.peakActive.Load(),
		BySession:        bySession,
	}
}

// CloseAll closes every live connection and empties the registry. Closing
// happens outside the lock so connection close paths that call back into
// the registry cannot deadlock.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn)
	}
	r.connections = make(map[string]*Connection)
	r.sessions = make(map[string]map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}

	r.logger.Debug("all connections closed", "count", len(conns))
}
