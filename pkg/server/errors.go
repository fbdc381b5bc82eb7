package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for common connection and dispatch error conditions.
var (
	// ErrConnectionClosed is returned when an operation is attempted on a closed connection.
	ErrConnectionClosed = errors.New("server: connection closed")

	// ErrConnectionNotFound is returned when a connection ID does not exist in the registry.
	ErrConnectionNotFound = errors.New("server: connection not found")

	// ErrHandlerNotFound is returned when neither a component handler nor the
	// route fallback resolves an event.
	ErrHandlerNotFound = errors.New("server: handler not found")

	// ErrHandlerTimeout is returned when a handler exceeds the dispatch timeout.
	ErrHandlerTimeout = errors.New("server: handler timeout")

	// ErrServerClosed is returned when a handshake arrives after shutdown began.
	ErrServerClosed = errors.New("server: server closed")

	// ErrInvalidHandshake is returned when the WebSocket handshake fails.
	ErrInvalidHandshake = errors.New("server: invalid handshake")

	// ErrWriteTimeout is returned when a write operation times out.
	ErrWriteTimeout = errors.New("server: write timeout")
)

// ConnectionError wraps an error with connection context for debugging.
type ConnectionError struct {
	ConnectionID string
	SessionID    string
	Op           string // Operation that failed
	Err          error  // Underlying error
}

// Error returns the error message with connection context.
func (e *ConnectionError) Error() string {
	if e.ConnectionID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: connection %s: %s: %v", e.ConnectionID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(connectionID, sessionID, op string, err error) *ConnectionError {
	return &ConnectionError{
		ConnectionID: connectionID,
		SessionID:    sessionID,
		Op:           op,
		Err:          err,
	}
}

// HandlerError wraps a panic that occurred in an event handler.
type HandlerError struct {
	ConnectionID string
	Scope        string // "route" or the component name
	Event        string
	Panic        any
	Stack        []byte
}

// Error returns the error message.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("server: handler panic in %s event %q on connection %s: %v",
		e.Scope, e.Event, e.ConnectionID, e.Panic)
}

// NewHandlerError creates a new HandlerError.
func NewHandlerError(connectionID, scope, event string, panicVal any, stack []byte) *HandlerError {
	return &HandlerError{
		ConnectionID: connectionID,
		Scope:        scope,
		Event:        event,
		Panic:        panicVal,
		Stack:        stack,
	}
}
