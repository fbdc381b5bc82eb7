// Package weblisk is a server-driven web framework. Applications register
// routes (server-rendered pages with event tables) and components (named,
// reusable fragments with their own event tables); the browser loads a
// rendered page plus an embedded runtime, opens a WebSocket back to the
// server, and exchanges typed JSON envelopes.
//
// This is the recommended import for applications:
//
//	import "github.com/weblisk-dev/weblisk"
//
//	app := weblisk.New(weblisk.DefaultConfig())
//
//	app.MustRoute(weblisk.NewRoute("/", "Counter", renderCounter).
//		On("increment", func(ctx context.Context, payload any, conn *weblisk.Connection) (any, error) {
//			return counter.Add(1), nil
//		}))
//
//	log.Fatal(app.Run())
//
// Event handlers run server-side. The client invokes them by name over the
// WebSocket; results and pushed messages flow back as JSON frames. One
// browser (one session cookie) may hold many tabs, each with its own
// connection; SendToSession reaches all of them.
package weblisk

import (
	"github.com/weblisk-dev/weblisk/pkg/component"
	"github.com/weblisk-dev/weblisk/pkg/render"
	"github.com/weblisk-dev/weblisk/pkg/router"
	"github.com/weblisk-dev/weblisk/pkg/server"
)

// Route is one page: an exact path, a render function, and its event table.
type Route = router.Route

// NewRoute creates a route with an empty event table.
var NewRoute = router.New

// RenderFunc produces a page or fragment body from render props.
type RenderFunc = router.RenderFunc

// DataFunc computes per-request render props for a route.
type DataFunc = router.DataFunc

// EventFunc handles one route-scoped event.
type EventFunc = router.EventFunc

// Component is a named fragment with its server-side event table.
type Component = component.Component

// NewComponent creates a component with an empty event table.
var NewComponent = component.New

// Connection is one live WebSocket connection. Handlers receive the
// originating connection and may use its ID and SessionID for targeting.
type Connection = server.Connection

// HandlerFunc handles one component-scoped event.
type HandlerFunc = server.HandlerFunc

// InvokeFunc is the invocation shape middleware wraps.
type InvokeFunc = server.InvokeFunc

// Middleware wraps every event handler invocation.
type Middleware = server.Middleware

// Invocation describes the event being dispatched, available to middleware
// via InvocationFromContext.
type Invocation = server.Invocation

// InvocationFromContext returns the current dispatch's invocation details.
var InvocationFromContext = server.InvocationFromContext

// Broadcast filter options for BroadcastAll.
var (
	// OnlySession limits the broadcast to one session's connections.
	OnlySession = server.OnlySession

	// ExcludeSession skips every connection of one session.
	ExcludeSession = server.ExcludeSession

	// ExcludeConnections skips specific connection IDs.
	ExcludeConnections = server.ExcludeConnections
)

// BroadcastOption filters the connection set a broadcast reaches.
type BroadcastOption = server.BroadcastOption

// HTML marks a string as trusted markup that interpolation must not escape.
type HTML = render.HTML

// Interpolate substitutes {{key}} placeholders with HTML-escaped values.
var Interpolate = render.Interpolate

// Sentinel errors applications may compare against.
var (
	// ErrHandlerNotFound reports an event no handler claims.
	ErrHandlerNotFound = server.ErrHandlerNotFound

	// ErrHandlerTimeout reports a handler exceeding the dispatch timeout.
	ErrHandlerTimeout = server.ErrHandlerTimeout

	// ErrConnectionClosed reports a send on a closed connection.
	ErrConnectionClosed = server.ErrConnectionClosed
)

// Version is the framework version.
const Version = "0.3.0"
