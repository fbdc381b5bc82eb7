// Package protocol defines the JSON wire protocol spoken over weblisk
// WebSocket connections.
//
// All frames are JSON text. The protocol is deliberately small: the browser
// invokes named server events, the server answers each with a result
// envelope, and the server may push arbitrary application messages at any
// time.
//
// # Inbound (browser → server)
//
//	{"type":"server-event","component":"cart","event":"add-item","payload":{"sku":"x1"}}
//	{"type":"server-event","component":"route","event":"refresh","payload":null}
//
// The "component" field selects the handler scope: a component name targets
// that component's handler table, while the literal "route" (or an absent
// field) targets the owning route's event table. The scope is resolved into
// a tagged Target at parse time; nothing downstream re-inspects the raw
// field.
//
// # Outbound (server → browser)
//
// Sent once, immediately after a connection is registered:
//
//	{"type":"connection-established","sessionId":"…","connectionId":"…","timestamp":"2026-01-02T15:04:05.000Z"}
//
// Sent in answer to every server-event frame, success or not:
//
//	{"type":"event-result","event":"add-item","success":true,"result":{…},"timestamp":"…"}
//	{"type":"event-result","event":"add-item","success":false,"error":"…","timestamp":"…"}
//
// Application broadcasts are any JSON object with a "type" field; the
// protocol does not constrain them further.
package protocol
