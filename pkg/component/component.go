// Package component defines named, server-rendered page fragments and the
// registry the dispatcher consults for component-scoped events.
//
// A component couples an HTML render function with an event table. Inbound
// frames addressed to a component name invoke its table; everything else
// falls through to the owning route.
package component

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/weblisk-dev/weblisk/pkg/server"
)

// Sentinel errors for component registration.
var (
	// ErrEmptyName is returned when a component has no name.
	ErrEmptyName = errors.New("component: empty name")

	// ErrDuplicateName is returned when a name is registered twice.
	ErrDuplicateName = errors.New("component: duplicate name")
)

// RenderFunc produces the component's HTML fragment. Props carry per-render
// inputs from the owning route; implementations must tolerate nil.
type RenderFunc func(props map[string]any) string

// Component is a named fragment with its server-side event table. The name
// is what server-event frames put in their "component" field.
type Component struct {
	// Name addresses the component on the wire. The literal "route" is
	// reserved for route-scoped events.
	Name string

	// Render produces the fragment's HTML. May be nil for components that
	// only handle events.
	Render RenderFunc

	// Events maps event name to handler.
	Events map[string]server.HandlerFunc
}

// New creates a component with an empty event table.
func New(name string, render RenderFunc) *Component {
	return &Component{
		Name:   name,
		Render: render,
		Events: make(map[string]server.HandlerFunc),
	}
}

// On registers an event handler and returns the component for chaining.
func (c *Component) On(event string, handler server.HandlerFunc) *Component {
	if c.Events == nil {
		c.Events = make(map[string]server.HandlerFunc)
	}
	c.Events[event] = handler
	return c
}

// HTML renders the fragment, or "" when there is nothing to render.
func (c *Component) HTML(props map[string]any) string {
	if c.Render == nil {
		return ""
	}
	return c.Render(props)
}

// Registry holds the components the dispatcher can address. Registration
// happens at startup; lookups happen on every component-scoped frame.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*Component
	logger     *slog.Logger
}

// The dispatcher resolves handlers through this interface.
var _ server.ComponentSource = (*Registry)(nil)

// NewRegistry returns an empty component registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		components: make(map[string]*Component),
		logger:     logger.With("component", "components"),
	}
}

// Register adds a component. Names must be unique and non-empty.
func (r *Registry) Register(c *Component) error {
	if c == nil || c.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[c.Name]; exists {
		return ErrDuplicateName
	}
	r.components[c.Name] = c

	r.logger.Debug("component registered",
		"name", c.Name,
		"events", len(c.Events))
	return nil
}

// MustRegister registers a component and panics on error. For package-level
// wiring where a failure is a programming mistake.
func (r *Registry) MustRegister(c *Component) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Get returns the named component.
func (r *Registry) Get(name string) (*Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}

// Names returns all registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// Handler resolves the named component's handler for event. Unknown
// components and unregistered events both report false, which sends the
// dispatcher to the route fallback.
func (r *Registry) Handler(component, event string) (server.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[component]
	if !ok {
		return nil, false
	}
	h, ok := c.Events[event]
	if !ok || h == nil {
		return nil, false
	}
	return h, true
}
