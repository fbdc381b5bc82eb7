package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseServerEvent(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantTarget  Target
		wantEvent   string
		wantPayload any
	}{
		{
			name:        "component scoped",
			raw:         `{"type":"server-event","component":"cart","event":"add-item","payload":{"sku":"x1"}}`,
			wantTarget:  ComponentTarget("cart"),
			wantEvent:   "add-item",
			wantPayload: map[string]any{"sku": "x1"},
		},
		{
			name:       "route literal",
			raw:        `{"type":"server-event","component":"route","event":"refresh"}`,
			wantTarget: RouteTarget(),
			wantEvent:  "refresh",
		},
		{
			name:       "absent component means route",
			raw:        `{"type":"server-event","event":"refresh"}`,
			wantTarget: RouteTarget(),
			wantEvent:  "refresh",
		},
		{
			name:        "string payload",
			raw:         `{"type":"server-event","component":"chat","event":"say","payload":"hello"}`,
			wantTarget:  ComponentTarget("chat"),
			wantEvent:   "say",
			wantPayload: "hello",
		},
		{
			name:        "array payload",
			raw:         `{"type":"server-event","component":"route","event":"reorder","payload":[3,1,2]}`,
			wantTarget:  RouteTarget(),
			wantEvent:   "reorder",
			wantPayload: []any{float64(3), float64(1), float64(2)},
		},
		{
			name:       "null payload",
			raw:        `{"type":"server-event","component":"route","event":"ping","payload":null}`,
			wantTarget: RouteTarget(),
			wantEvent:  "ping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseServerEvent([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseServerEvent() error = %v", err)
			}
			if msg.Target != tt.wantTarget {
				t.Errorf("Target = %+v, want %+v", msg.Target, tt.wantTarget)
			}
			if msg.Event != tt.wantEvent {
				t.Errorf("Event = %q, want %q", msg.Event, tt.wantEvent)
			}
			if tt.wantPayload == nil {
				if msg.Payload != nil {
					t.Errorf("Payload = %v, want nil", msg.Payload)
				}
				return
			}
			got, _ := json.Marshal(msg.Payload)
			want, _ := json.Marshal(tt.wantPayload)
			if string(got) != string(want) {
				t.Errorf("Payload = %s, want %s", got, want)
			}
		})
	}
}

func TestParseServerEventErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"empty frame", "", ErrEmptyFrame},
		{"whitespace frame", "   \n\t", ErrEmptyFrame},
		{"not json", "hello there", ErrMalformedFrame},
		{"truncated json", `{"type":"server-event","event":`, ErrMalformedFrame},
		{"json scalar", `42`, ErrMalformedFrame},
		{"json array", `[1,2,3]`, ErrMalformedFrame},
		{"wrong type field", `{"type":"event-result","event":"x"}`, ErrUnknownType},
		{"missing type field", `{"event":"x"}`, ErrUnknownType},
		{"missing event", `{"type":"server-event","component":"cart"}`, ErrMissingEvent},
		{"empty event", `{"type":"server-event","component":"cart","event":""}`, ErrMissingEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseServerEvent([]byte(tt.raw))
			if msg != nil {
				t.Errorf("ParseServerEvent() message = %+v, want nil", msg)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseServerEvent() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerEventMarshalRoundTrip(t *testing.T) {
	orig := &ServerEvent{
		Target:  ComponentTarget("sidebar"),
		Event:   "toggle",
		Payload: map[string]any{"open": true},
	}

	raw, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	parsed, err := ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent() error = %v", err)
	}
	if parsed.Target != orig.Target {
		t.Errorf("Target = %+v, want %+v", parsed.Target, orig.Target)
	}
	if parsed.Event != orig.Event {
		t.Errorf("Event = %q, want %q", parsed.Event, orig.Event)
	}
}

func TestServerEventMarshalRouteScope(t *testing.T) {
	raw, err := json.Marshal(&ServerEvent{Target: RouteTarget(), Event: "refresh"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if wire["component"] != "route" {
		t.Errorf(`component = %v, want "route"`, wire["component"])
	}
	if wire["type"] != TypeServerEvent {
		t.Errorf("type = %v, want %q", wire["type"], TypeServerEvent)
	}
}
