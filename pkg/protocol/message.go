package protocol

import (
	"time"
)

// Message type discriminators carried in the "type" field.
const (
	TypeServerEvent           = "server-event"
	TypeConnectionEstablished = "connection-established"
	TypeEventResult           = "event-result"
)

// TimestampFormat is the ISO 8601 layout used in outbound envelopes,
// millisecond precision to match what browsers produce with toISOString().
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Timestamp returns the current time formatted for the wire.
func Timestamp() string {
	return time.Now().UTC().Format(TimestampFormat)
}

// ConnectionEstablished is sent once, immediately after a connection is
// registered, telling the client its identifiers.
type ConnectionEstablished struct {
	Type         string `json:"type"`
	SessionID    string `json:"sessionId"`
	ConnectionID string `json:"connectionId"`
	Timestamp    string `json:"timestamp"`
}

// NewConnectionEstablished builds the post-registration greeting envelope.
func NewConnectionEstablished(sessionID, connectionID string) *ConnectionEstablished {
	return &ConnectionEstablished{
		Type:         TypeConnectionEstablished,
		SessionID:    sessionID,
		ConnectionID: connectionID,
		Timestamp:    Timestamp(),
	}
}

// EventResult answers a server-event frame. Exactly one is sent back on the
// originating connection for every inbound frame, whether the handler
// succeeded, failed, or was never found.
type EventResult struct {
	Type      string `json:"type"`
	Event     string `json:"event"`
	Success   bool   `json:"success"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewEventResult builds a success result for event.
func NewEventResult(event string, result any) *EventResult {
	return &EventResult{
		Type:      TypeEventResult,
		Event:     event,
		Success:   true,
		Result:    result,
		Timestamp: Timestamp(),
	}
}

// NewErrorResult builds a failure result for event. An empty event name is
// legal: parse failures answer with no event attribution.
func NewErrorResult(event, message string) *EventResult {
	return &EventResult{
		Type:      TypeEventResult,
		Event:     event,
		Success:   false,
		Error:     message,
		Timestamp: Timestamp(),
	}
}
