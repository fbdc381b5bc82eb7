package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServerEvent is a parsed inbound "invoke this server-side event" message.
type ServerEvent struct {
	// Target is the handler scope, resolved at parse time.
	Target Target

	// Event is the event name to invoke.
	Event string

	// Payload is the decoded JSON payload, nil when absent.
	Payload any
}

// wireServerEvent is the raw frame shape.
type wireServerEvent struct {
	Type      string `json:"type"`
	Component string `json:"component"`
	Event     string `json:"event"`
	Payload   any    `json:"payload"`
}

// ParseServerEvent decodes a raw text frame into a ServerEvent.
//
// Errors are local to the frame: the caller answers them with a failure
// result and keeps the connection open.
func ParseServerEvent(raw []byte) (*ServerEvent, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, ErrEmptyFrame
	}

	var wire wireServerEvent
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if wire.Type != TypeServerEvent {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, wire.Type)
	}
	if wire.Event == "" {
		return nil, ErrMissingEvent
	}

	return &ServerEvent{
		Target:  resolveTarget(wire.Component),
		Event:   wire.Event,
		Payload: wire.Payload,
	}, nil
}

// MarshalJSON encodes the event in its wire shape. The server only parses
// server-event frames; encoding exists for clients and tests.
func (e *ServerEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireServerEvent{
		Type:      TypeServerEvent,
		Component: e.Target.wireScope(),
		Event:     e.Event,
		Payload:   e.Payload,
	})
}
