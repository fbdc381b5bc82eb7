// Package server provides the WebSocket runtime for weblisk's server-driven
// messaging.
//
// The server package owns the upgrade endpoint, the live connection set, and
// the dispatch pipeline. It is the integration layer that brings together
// session identity (pkg/session), the wire protocol (pkg/protocol), and
// payload sanitization (pkg/sanitize).
//
// # Architecture
//
// The runtime consists of several key components:
//
//   - Connection: One live WebSocket transport with its own ID, tagged with a session ID
//   - Registry: All live connections indexed by connection ID and by session, behind one lock
//   - Dispatcher: Parses inbound frames, resolves handlers, answers every frame with a result envelope
//   - Broadcaster: Server-initiated push to one connection, one session, or everyone
//   - Server: HTTP/WebSocket handshake, identity resolution, and graceful shutdown
//
// # Connection Lifecycle
//
// Each accepted handshake:
//  1. Resolves or issues the session cookie before the upgrade
//  2. Upgrades and mints a brand-new connection ID
//  3. Registers the connection, then sends connection-established
//  4. Runs the read loop, dispatching frames in arrival order
//  5. Unregisters and closes on any exit path
//
// A reconnect is a fresh handshake with a fresh connection ID; only the
// session cookie carries identity across connections.
//
// # Dispatch
//
// When a client sends a server-event frame:
//  1. The frame is parsed; malformed frames are answered with a failure
//     result and the connection stays open
//  2. The payload is sanitized
//  3. A component handler is resolved, falling back to the route handler
//  4. The handler runs under the dispatch timeout with panic recovery
//  5. Exactly one event-result envelope goes back on the same connection
//
// Dispatch for a single connection is serial, so results preserve the order
// frames arrived in. Different connections dispatch concurrently.
//
// # Example Usage
//
//	srv := server.New(server.DefaultConfig(), nil)
//
//	srv.SetRouteFallback(func(ctx context.Context, event string, payload any, conn *server.Connection) (any, error) {
//	    switch event {
//	    case "echo":
//	        return payload, nil
//	    }
//	    return nil, server.ErrHandlerNotFound
//	})
//
//	http.ListenAndServe(":8080", srv)
//
// # Thread Safety
//
// The server package is designed for concurrent access:
//   - Connection.mu serializes transport writes
//   - Registry.mu guards both connection maps as one unit
//   - Dispatch runs serially per connection in its read loop
//   - Metrics use atomic counters
package server
