// Package router holds the page route model: exact paths, page render
// functions, and the route-scoped event tables behind the dispatcher's
// single route fallback.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/weblisk-dev/weblisk/pkg/server"
)

// Sentinel errors for route registration.
var (
	// ErrInvalidPath is returned when a path is empty or not rooted.
	ErrInvalidPath = errors.New("router: invalid path")

	// ErrDuplicatePath is returned when a path is registered twice.
	ErrDuplicatePath = errors.New("router: duplicate path")

	// ErrDuplicateEvent is returned when two routes claim the same event
	// name. Route events share one namespace because the dispatcher has a
	// single route fallback; namespace the event names per page instead.
	ErrDuplicateEvent = errors.New("router: duplicate event")
)

// RenderFunc produces the page body HTML for a route.
type RenderFunc func(props map[string]any) string

// DataFunc computes per-request props for a route's render.
type DataFunc func(r *http.Request) map[string]any

// EventFunc handles one route-scoped event.
type EventFunc func(ctx context.Context, payload any, conn *server.Connection) (any, error)

// Route is one page: an exact path, its render, and its event table.
type Route struct {
	// Path is the exact URL path, starting with "/".
	Path string

	// Title is the page title.
	Title string

	// Render produces the page body. May be nil for routes that exist only
	// for their events.
	Render RenderFunc

	// Data computes per-request render props. May be nil.
	Data DataFunc

	// Events maps event name to handler. These are the events reachable
	// through the wire scope "route".
	Events map[string]EventFunc

	// Components names the components this page embeds. The page handler
	// pre-renders each and hands the HTML to Render via the
	// "components" prop.
	Components []string

	// StyleSheets lists external stylesheet hrefs emitted in the document
	// head, in order.
	StyleSheets []string
}

// New creates a route with an empty event table.
func New(path, title string, render RenderFunc) *Route {
	return &Route{
		Path:   path,
		Title:  title,
		Render: render,
		Events: make(map[string]EventFunc),
	}
}

// On registers a route event handler and returns the route for chaining.
func (rt *Route) On(event string, handler EventFunc) *Route {
	if rt.Events == nil {
		rt.Events = make(map[string]EventFunc)
	}
	rt.Events[event] = handler
	return rt
}

// WithData sets the route's data provider and returns it for chaining.
func (rt *Route) WithData(data DataFunc) *Route {
	rt.Data = data
	return rt
}

// Uses declares the components the page embeds.
func (rt *Route) Uses(components ...string) *Route {
	rt.Components = append(rt.Components, components...)
	return rt
}

// Styles appends stylesheet hrefs to the page's document head.
func (rt *Route) Styles(hrefs ...string) *Route {
	rt.StyleSheets = append(rt.StyleSheets, hrefs...)
	return rt
}

type eventEntry struct {
	fn   EventFunc
	path string
}

// Router registers routes and serves the merged route-event table to the
// dispatcher's fallback. Registration happens at startup; lookups happen
// per request and per route-scoped frame.
type Router struct {
	mu     sync.RWMutex
	routes map[string]*Route
	events map[string]eventEntry
	logger *slog.Logger
}

// NewRouter returns an empty router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		routes: make(map[string]*Route),
		events: make(map[string]eventEntry),
		logger: logger.With("component", "router"),
	}
}

// Register adds a route. Paths are exact and unique; event names join one
// shared namespace and must not collide across routes. On error nothing is
// registered.
func (r *Router) Register(rt *Route) error {
	if rt == nil || rt.Path == "" || rt.Path[0] != '/' {
		return fmt.Errorf("%w: %q", ErrInvalidPath, routePath(rt))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[rt.Path]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePath, rt.Path)
	}
	for event := range rt.Events {
		if prev, exists := r.events[event]; exists {
			return fmt.Errorf("%w: %q claimed by both %q and %q",
				ErrDuplicateEvent, event, prev.path, rt.Path)
		}
	}

	r.routes[rt.Path] = rt
	for event, fn := range rt.Events {
		r.events[event] = eventEntry{fn: fn, path: rt.Path}
	}

	r.logger.Debug("route registered",
		"path", rt.Path,
		"events", len(rt.Events),
		"components", len(rt.Components))
	return nil
}

// MustRegister registers a route and panics on error.
func (r *Router) MustRegister(rt *Route) {
	if err := r.Register(rt); err != nil {
		panic(err)
	}
}

// Lookup returns the route registered at the exact path.
func (r *Router) Lookup(path string) (*Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[path]
	return rt, ok
}

// Paths returns all registered paths, sorted.
func (r *Router) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.routes))
	for path := range r.routes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of registered routes.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Fallback returns the dispatcher's route fallback: it resolves route
// events from the merged table. Unknown events report ErrHandlerNotFound,
// which the dispatcher turns into a failure result.
func (r *Router) Fallback() server.RouteHandlerFunc {
	return func(ctx context.Context, event string, payload any, conn *server.Connection) (any, error) {
		r.mu.RLock()
		entry, ok := r.events[event]
		r.mu.RUnlock()

		if !ok {
			return nil, fmt.Errorf("%w: %q", server.ErrHandlerNotFound, event)
		}
		return entry.fn(ctx, payload, conn)
	}
}

func routePath(rt *Route) string {
	if rt == nil {
		return "<nil>"
	}
	return rt.Path
}
