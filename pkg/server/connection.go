package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// State is the connection lifecycle state.
type State int32

const (
	// StateConnecting is the state between upgrade and registration.
	StateConnecting State = iota

	// StateOpen is the state in which frames flow.
	StateOpen

	// StateClosed is terminal. A closed connection is never reopened;
	// reconnection is a brand-new handshake with a fresh connection ID.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is one live WebSocket transport instance, owned exclusively by
// the server that minted it. Many connections may share one session ID (one
// per browser tab).
type Connection struct {
	// ID uniquely identifies this connection. Never reused, never
	// persisted beyond the process lifetime.
	ID string

	// SessionID is the durable identity this connection belongs to.
	SessionID string

	// CreatedAt is when the handshake completed.
	CreatedAt time.Time

	conn    transport
	config  *ConnectionConfig
	metrics *MetricsCollector
	logger  *slog.Logger

	// mu serializes writes to the transport.
	mu sync.Mutex

	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once

	remoteAddr string

	// data is a per-connection bag for application state.
	data   map[string]any
	dataMu sync.RWMutex

	bytesSent        atomic.Uint64
	bytesReceived    atomic.Uint64
	messagesSent     atomic.Uint64
	messagesReceived atomic.Uint64
}

// newConnection wraps an upgraded transport. The connection starts in
// StateConnecting; the server marks it open once registered. metrics may
// be nil.
func newConnection(id, sessionID string, conn transport, config *ConnectionConfig, metrics *MetricsCollector, logger *slog.Logger) *Connection {
	c := &Connection{
		ID:        id,
		SessionID: sessionID,
		CreatedAt: time.Now(),
		conn:      conn,
		config:    config,
		metrics:   metrics,
		done:      make(chan struct{}),
		data:      make(map[string]any),
		logger: logger.With(
			"connection_id", id,
			"session_id", sessionID,
		),
	}
	if conn != nil {
		if addr := conn.RemoteAddr(); addr != nil {
			c.remoteAddr = addr.String()
		}
	}
	c.state.Store(int32(StateConnecting))
	return c
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// markOpen transitions Connecting → Open. The transition is one-way and
// never revisited.
func (c *Connection) markOpen() {
	c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// IsOpen reports whether frames may currently be sent.
func (c *Connection) IsOpen() bool {
	return c.State() == StateOpen
}

// Done is closed when the connection reaches StateClosed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// RemoteAddr returns the transport's remote address.
func (c *Connection) RemoteAddr() string {
	return c.remoteAddr
}

// Send marshals v to a JSON text frame and writes it. It reports whether the
// frame was written: sending on a connection that is not open is a silent
// no-op returning false, never an error.
func (c *Connection) Send(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("message marshal error", "error", err)
		return false
	}
	return c.SendRaw(data)
}

// SendRaw writes a pre-encoded JSON text frame. Broadcast paths encode once
// and fan the bytes out through here.
func (c *Connection) SendRaw(data []byte) bool {
	if !c.IsOpen() || c.conn == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// State may have flipped while waiting on the lock.
	if !c.IsOpen() {
		return false
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Error("write error", "error", err)
		c.closeLocked()
		return false
	}

	c.bytesSent.Add(uint64(len(data)))
	c.messagesSent.Add(1)
	if c.metrics != nil {
		c.metrics.RecordMessageSent()
	}
	return true
}

// Close transitions the connection to StateClosed and closes the underlying
// transport. Safe to call multiple times from any goroutine.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

// closeLocked performs the close under c.mu.
func (c *Connection) closeLocked() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)

		if c.conn == nil {
			return
		}

		// Best-effort close frame so well-behaved clients see a clean
		// shutdown; the transport is torn down regardless.
		deadline := time.Now().Add(c.config.WriteTimeout)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

		c.conn.Close()
		c.logger.Debug("connection closed")
	})
}

// ReadLoop reads frames and hands each one to onFrame in arrival order,
// which keeps per-connection dispatch ordering. Binary frames take the same
// path; they fail JSON parsing downstream and are answered like any other
// malformed frame.
//
// ReadLoop blocks until the connection closes or a read fails; the
// connection is closed on every exit path. onTransportError is invoked for
// unexpected close codes and read errors so the owner can count them.
func (c *Connection) ReadLoop(onFrame func(raw []byte), onTransportError func(err error)) {
	defer c.Close()

	if c.conn == nil {
		return
	}
	c.conn.SetReadLimit(c.config.MaxMessageSize)

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
				if onTransportError != nil {
					onTransportError(err)
				}
			}
			return
		}

		c.bytesReceived.Add(uint64(len(msg)))
		c.messagesReceived.Add(1)

		onFrame(msg)
	}
}

// HeartbeatLoop sends ping frames until the connection closes. A failed
// ping closes the connection; the read loop then unblocks and the owner
// unregisters it.
func (c *Connection) HeartbeatLoop() {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsOpen() || c.conn == nil {
		return ErrConnectionClosed
	}

	deadline := time.Now().Add(c.config.WriteTimeout)
	return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

// Set stores a value in the connection's data bag.
func (c *Connection) Set(key string, value any) {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	c.data[key] = value
}

// Get retrieves a value from the connection's data bag.
func (c *Connection) Get(key string) (any, bool) {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Delete removes a value from the connection's data bag.
func (c *Connection) Delete(key string) {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	delete(c.data, key)
}

// ConnectionStats is a point-in-time snapshot of transport counters.
type ConnectionStats struct {
	BytesSent        uint64
	BytesReceived    uint64
	MessagesSent     uint64
	MessagesReceived uint64
}

// Stats returns the connection's transport counters.
func (c *Connection) Stats() ConnectionStats {
	return ConnectionStats{
		BytesSent:        c.bytesSent.Load(),
		BytesReceived:    c.bytesReceived.Load(),
		MessagesSent:     c.messagesSent.Load(),
		MessagesReceived: c.messagesReceived.Load(),
	}
}
