package protocol

import "errors"

// Parse errors. All of them are answered on the wire with a failure
// EventResult carrying an empty event name; none of them close the
// connection.
var (
	// ErrEmptyFrame indicates a zero-length or whitespace-only frame.
	ErrEmptyFrame = errors.New("protocol: empty frame")

	// ErrMalformedFrame indicates the frame was not valid JSON.
	ErrMalformedFrame = errors.New("protocol: malformed frame")

	// ErrUnknownType indicates a "type" field naming no inbound message type.
	ErrUnknownType = errors.New("protocol: unknown message type")

	// ErrMissingEvent indicates a server-event frame without an event name.
	ErrMissingEvent = errors.New("protocol: missing event name")
)
