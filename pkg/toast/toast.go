package toast

import "github.com/weblisk-dev/weblisk/pkg/server"

// EventName is the frame type pushed for toasts. Client-side code routes
// on it from a message listener.
const EventName = "weblisk:toast"

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Sender pushes one frame to one connection. *server.Connection satisfies
// it; the send reports false when the connection is gone.
type Sender interface {
	Send(v any) bool
}

// SessionSender fans a frame out to every connection of one session.
// Both *weblisk.App and *server.Server satisfy it.
type SessionSender interface {
	SendToSession(sessionID string, v any) int
}

// Broadcaster fans a frame out to every live connection, subject to
// filters. Both *weblisk.App and *server.Server satisfy it.
type Broadcaster interface {
	BroadcastAll(v any, opts ...server.BroadcastOption) int
}

func frame(level Type, message string) map[string]any {
	return map[string]any{
		"type":    EventName,
		"level":   string(level),
		"message": message,
	}
}

// Show displays a toast on one tab.
func Show(s Sender, level Type, message string) bool {
	return s.Send(frame(level, message))
}

// Success shows a success toast.
//
//	toast.Success(conn, "Changes saved!")
func Success(s Sender, message string) bool {
	return Show(s, TypeSuccess, message)
}

// Error shows an error toast.
//
//	toast.Error(conn, "Failed to delete item")
func Error(s Sender, message string) bool {
	return Show(s, TypeError, message)
}

// Warning shows a warning toast.
//
//	toast.Warning(conn, "This action cannot be undone")
func Warning(s Sender, message string) bool {
	return Show(s, TypeWarning, message)
}

// Info shows an info toast.
//
//	toast.Info(conn, "New features available")
func Info(s Sender, message string) bool {
	return Show(s, TypeInfo, message)
}

// WithTitle shows a toast with a title and message.
//
//	toast.WithTitle(conn, toast.TypeSuccess, "Settings", "Your changes have been saved.")
func WithTitle(s Sender, level Type, title, message string) bool {
	f := frame(level, message)
	f["title"] = title
	return s.Send(f)
}

// WithAction shows a toast with an action button. The client echoes
// actionId back as an event name when the button is clicked.
//
//	toast.WithAction(conn, toast.TypeInfo, "Item deleted", "Undo", "undo-delete")
func WithAction(s Sender, level Type, message, actionLabel, actionID string) bool {
	f := frame(level, message)
	f["actionLabel"] = actionLabel
	f["actionId"] = actionID
	return s.Send(f)
}

// ToSession shows a toast on every tab of one session. It returns the
// number of connections reached.
func ToSession(s SessionSender, sessionID string, level Type, message string) int {
	return s.SendToSession(sessionID, frame(level, message))
}

// Broadcast shows a toast on every live connection. Filters narrow the
// audience:
//
//	toast.Broadcast(app, toast.TypeWarning, "Maintenance in 5 minutes",
//		weblisk.ExcludeSession(adminSession))
func Broadcast(b Broadcaster, level Type, message string, opts ...server.BroadcastOption) int {
	return b.BroadcastAll(frame(level, message), opts...)
}

// Custom pushes arbitrary toast data to one tab. The frame type is forced
// so clients can always route it.
func Custom(s Sender, data map[string]any) bool {
	f := make(map[string]any, len(data)+1)
	for k, v := range data {
		f[k] = v
	}
	f["type"] = EventName
	return s.Send(f)
}
