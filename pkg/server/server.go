package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weblisk-dev/weblisk/pkg/protocol"
	"github.com/weblisk-dev/weblisk/pkg/sanitize"
	"github.com/weblisk-dev/weblisk/pkg/session"
)

// Server owns the WebSocket upgrade endpoint and the live connection set.
// It resolves session identity during the handshake, registers connections,
// feeds inbound frames to the dispatcher, and exposes the push API.
type Server struct {
	config *Config

	sessions  *session.Provider
	registry  *Registry
	broadcast *Broadcaster
	metrics   *MetricsCollector

	// Dispatch collaborators. Wired through setters before serving;
	// not safe to change once connections are being accepted.
	components    ComponentSource
	routeFallback RouteHandlerFunc
	middleware    []Middleware
	sanitizer     *sanitize.Sanitizer
	dispatcher    *Dispatcher

	upgrader websocket.Upgrader

	// baseCtx is the parent of every dispatch context; canceled on
	// shutdown so in-flight handlers see the server going away.
	baseCtx   context.Context
	cancelCtx context.CancelFunc

	closed atomic.Bool

	logger *slog.Logger
}

// New creates a Server. A nil config gets defaults; a nil provider gets a
// default session provider sharing the server's logger.
func New(config *Config, sessions *session.Provider) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.Clone()
		if config.Endpoint == "" {
			config.Endpoint = DefaultEndpoint
		}
		if config.ReadBufferSize <= 0 {
			config.ReadBufferSize = 4096
		}
		if config.WriteBufferSize <= 0 {
			config.WriteBufferSize = 4096
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = SameOriginCheck
		}
		if config.Connection == nil {
			config.Connection = DefaultConnectionConfig()
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	if sessions == nil {
		sessions = session.NewProvider(&session.Config{Logger: logger})
	}

	ctx, cancel := context.WithCancel(context.Background())

	registry := NewRegistry(logger)
	s := &Server{
		config:    config,
		sessions:  sessions,
		registry:  registry,
		broadcast: NewBroadcaster(registry, logger),
		metrics:   NewMetricsCollector(),
		sanitizer: sanitize.New(nil),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    config.ReadBufferSize,
			WriteBufferSize:   config.WriteBufferSize,
			CheckOrigin:       config.CheckOrigin,
			EnableCompression: config.Connection.EnableCompression,
		},
		baseCtx:   ctx,
		cancelCtx: cancel,
		logger:    logger,
	}
	s.rebuildDispatcher()

	return s
}

// rebuildDispatcher rewires the dispatcher after a collaborator changes.
func (s *Server) rebuildDispatcher() {
	s.dispatcher = NewDispatcher(&DispatcherConfig{
		Components:    s.components,
		RouteFallback: s.routeFallback,
		Sanitizer:     s.sanitizer,
		Timeout:       s.config.HandlerTimeout,
		Middleware:    s.middleware,
		Metrics:       s.metrics,
		Logger:        s.logger,
	})
}

// SetComponents sets the component handler source.
func (s *Server) SetComponents(src ComponentSource) {
	s.components = src
	s.rebuildDispatcher()
}

// SetRouteFallback sets the handler for route-scoped events and component
// events no component claimed.
func (s *Server) SetRouteFallback(fn RouteHandlerFunc) {
	s.routeFallback = fn
	s.rebuildDispatcher()
}

// Use appends dispatch middleware. First added runs outermost.
func (s *Server) Use(mw Middleware) {
	s.middleware = append(s.middleware, mw)
	s.rebuildDispatcher()
}

// SetSanitizer replaces the payload sanitizer.
func (s *Server) SetSanitizer(sz *sanitize.Sanitizer) {
	if sz == nil {
		sz = sanitize.New(nil)
	}
	s.sanitizer = sz
	s.rebuildDispatcher()
}

// Endpoint returns the upgrade path.
func (s *Server) Endpoint() string {
	return s.config.Endpoint
}

// Sessions returns the session identity provider.
func (s *Server) Sessions() *session.Provider {
	return s.sessions
}

// Registry returns the connection registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// ServeHTTP routes the upgrade endpoint and the client script; anything
// else is a 404. Applications that mount the server on their own mux can
// call HandleWebSocket and ServeClientScript directly instead.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case s.config.Endpoint:
		s.HandleWebSocket(w, r)
	case ClientScriptPath:
		s.ServeClientScript(w, r)
	default:
		http.NotFound(w, r)
	}
}

// HandleWebSocket performs the WebSocket handshake and runs the connection
// until it closes. Session identity is resolved before the upgrade so a
// fresh session cookie rides the 101 response; the connection always gets a
// brand-new connection ID. The connection is unregistered on every exit
// path.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	sessionID, isNew := s.sessions.ResolveOrIssue(r)

	var respHeader http.Header
	if isNew {
		respHeader = http.Header{}
		respHeader.Add("Set-Cookie", s.sessions.Cookie(r, sessionID).String())
	}

	ws, err := s.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.logger.Error("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	conn := newConnection(uuid.NewString(), sessionID, ws, s.config.Connection, s.metrics, s.logger)
	conn.markOpen()
	s.registry.Register(conn)

	defer func() {
		s.registry.Unregister(conn.ID)
		conn.Close()
	}()

	if !conn.Send(protocol.NewConnectionEstablished(sessionID, conn.ID)) {
		// Client vanished between upgrade and greeting.
		return
	}

	s.logger.Info("connection established",
		"connection_id", conn.ID,
		"session_id", sessionID,
		"remote", conn.RemoteAddr())

	go conn.HeartbeatLoop()

	conn.ReadLoop(
		func(raw []byte) {
			s.dispatcher.Dispatch(s.baseCtx, conn, raw)
		},
		func(err error) {
			s.metrics.RecordTransportError()
		},
	)
}

// SendTo sends v to one connection. It reports whether the frame was
// written.
func (s *Server) SendTo(connectionID string, v any) bool {
	return s.broadcast.SendTo(connectionID, v)
}

// SendToSession sends v to every connection of a session and returns the
// number of successful writes.
func (s *Server) SendToSession(sessionID string, v any) int {
	s.metrics.RecordBroadcast()
	return s.broadcast.SendToSession(sessionID, v)
}

// BroadcastAll sends v to every live connection, subject to the filter
// options, and returns the number of successful writes.
func (s *Server) BroadcastAll(v any, opts ...BroadcastOption) int {
	s.metrics.RecordBroadcast()
	return s.broadcast.BroadcastAll(v, opts...)
}

// Stats returns a snapshot of the registry.
func (s *Server) Stats() RegistryStats {
	return s.registry.Stats()
}

// Metrics returns aggregated server metrics.
func (s *Server) Metrics() *ServerMetrics {
	m := s.metrics.Snapshot()

	stats := s.registry.Stats()
	m.ActiveConnections = int64(stats.CurrentlyActive)
	m.TotalConnections = int64(stats.TotalEverCreated)
	m.PeakConnections = int64(stats.PeakActive)
	m.ActiveSessions = int64(len(stats.BySession))

	return m
}

// Shutdown stops accepting handshakes, cancels in-flight dispatches, and
// closes every live connection. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.logger.Info("server shutting down",
		"active_connections", s.registry.Len())

	s.cancelCtx()
	s.registry.CloseAll()

	return ctx.Err()
}
