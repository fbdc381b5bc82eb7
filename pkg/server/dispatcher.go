package server

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/weblisk-dev/weblisk/pkg/protocol"
	"github.com/weblisk-dev/weblisk/pkg/sanitize"
)

// HandlerFunc handles a component-scoped event. The returned value is
// serialized into the result envelope; a returned error produces a failure
// envelope instead.
type HandlerFunc func(ctx context.Context, payload any, conn *Connection) (any, error)

// RouteHandlerFunc handles route-scoped events and component events no
// component claimed. It receives the event name because one function covers
// the route's whole event table.
type RouteHandlerFunc func(ctx context.Context, event string, payload any, conn *Connection) (any, error)

// ComponentSource resolves component event handlers. Implemented by
// component.Registry; defined here so the dispatcher depends on the lookup,
// not the registry.
type ComponentSource interface {
	// Handler returns the handler for the named component's event, and
	// whether one exists.
	Handler(component, event string) (HandlerFunc, bool)
}

// InvokeFunc is the invocation shape middleware wraps.
type InvokeFunc func(ctx context.Context, payload any, conn *Connection) (any, error)

// Middleware wraps handler invocations. Middleware runs inside the dispatch
// timeout and panic recovery, so it may block and may panic without taking
// the connection down.
type Middleware func(next InvokeFunc) InvokeFunc

// Invocation describes the event being dispatched. It rides the context so
// middleware can identify the call without extra parameters.
type Invocation struct {
	Target       protocol.Target
	Event        string
	ConnectionID string
	SessionID    string
}

type invocationKey struct{}

// ContextWithInvocation returns a context carrying inv. The dispatcher
// calls this before running middleware; tests exercising middleware in
// isolation can call it directly.
func ContextWithInvocation(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// InvocationFromContext returns the Invocation for the current dispatch.
func InvocationFromContext(ctx context.Context) (*Invocation, bool) {
	inv, ok := ctx.Value(invocationKey{}).(*Invocation)
	return inv, ok
}

// DispatcherConfig wires a dispatcher. Every collaborator arrives here;
// the dispatcher holds no package-level state.
type DispatcherConfig struct {
	// Components resolves component-scoped handlers. May be nil, in which
	// case every component event falls through to the route fallback.
	Components ComponentSource

	// RouteFallback handles route-scoped events and component events with no
	// registered handler. May be nil.
	RouteFallback RouteHandlerFunc

	// Sanitizer cleans payloads before handlers see them. Nil gets the
	// default bounds.
	Sanitizer *sanitize.Sanitizer

	// Timeout bounds each handler invocation. Zero or negative means no
	// timeout.
	Timeout time.Duration

	// Middleware wraps every invocation, first entry outermost.
	Middleware []Middleware

	// Metrics receives dispatch counters. May be nil.
	Metrics *MetricsCollector

	// Logger for dispatch diagnostics.
	Logger *slog.Logger
}

// Dispatcher turns inbound frames into handler invocations and answers
// every frame with exactly one event-result envelope on the originating
// connection. It never closes or unregisters a connection: malformed
// frames, unknown events, handler errors, panics, and timeouts all produce
// a failure envelope and leave the connection open.
//
// Dispatch is called serially from each connection's read loop, so results
// for one connection go out in the order its frames arrived.
type Dispatcher struct {
	components    ComponentSource
	routeFallback RouteHandlerFunc
	sanitizer     *sanitize.Sanitizer
	timeout       time.Duration
	middleware    []Middleware
	metrics       *MetricsCollector
	logger        *slog.Logger
}

// NewDispatcher creates a dispatcher from config. A nil config dispatches
// everything to failure envelopes, which is only useful in tests.
func NewDispatcher(config *DispatcherConfig) *Dispatcher {
	if config == nil {
		config = &DispatcherConfig{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sanitizer := config.Sanitizer
	if sanitizer == nil {
		sanitizer = sanitize.New(nil)
	}
	return &Dispatcher{
		components:    config.Components,
		routeFallback: config.RouteFallback,
		sanitizer:     sanitizer,
		timeout:       config.Timeout,
		middleware:    config.Middleware,
		metrics:       config.Metrics,
		logger:        logger.With("component", "dispatcher"),
	}
}

// Dispatch processes one raw frame from conn. It always completes without
// error; every outcome is reported to the client in-band.
func (d *Dispatcher) Dispatch(ctx context.Context, conn *Connection, raw []byte) {
	if d.metrics != nil {
		d.metrics.RecordMessageReceived()
	}

	event, err := protocol.ParseServerEvent(raw)
	if err != nil {
		// The frame never identified an event, so the failure envelope
		// carries an empty event name.
		d.logger.Warn("unparseable frame",
			"connection_id", conn.ID,
			"error", err)
		if d.metrics != nil {
			d.metrics.RecordProtocolError()
		}
		conn.Send(protocol.NewErrorResult("", err.Error()))
		return
	}

	payload := d.sanitizer.Sanitize(event.Payload)

	fn, scope := d.resolve(event)
	if fn == nil {
		d.logger.Warn("handler not found",
			"connection_id", conn.ID,
			"scope", scope,
			"event", event.Event)
		if d.metrics != nil {
			d.metrics.RecordDispatchFailed()
		}
		conn.Send(protocol.NewErrorResult(event.Event,
			fmt.Sprintf("no handler for event %q", event.Event)))
		return
	}

	ctx = ContextWithInvocation(ctx, &Invocation{
		Target:       event.Target,
		Event:        event.Event,
		ConnectionID: conn.ID,
		SessionID:    conn.SessionID,
	})

	for i := len(d.middleware) - 1; i >= 0; i-- {
		fn = d.middleware[i](fn)
	}

	start := time.Now()
	result, err := d.invoke(ctx, fn, payload, conn, scope, event.Event)
	if d.metrics != nil {
		d.metrics.RecordDispatchLatency(time.Since(start).Microseconds())
	}

	if err != nil {
		if d.metrics != nil {
			d.metrics.RecordDispatchFailed()
		}
		conn.Send(protocol.NewErrorResult(event.Event, errorMessage(err)))
		return
	}

	if d.metrics != nil {
		d.metrics.RecordDispatchSucceeded()
	}
	conn.Send(protocol.NewEventResult(event.Event, result))
}

// resolve picks the handler for an event. Component handlers win over the
// route fallback on purpose: a component that registers an event owns it,
// and the route only sees what no component claimed. Scope is "route" or
// the component name, for logs and panic reports.
func (d *Dispatcher) resolve(event *protocol.ServerEvent) (InvokeFunc, string) {
	if event.Target.Kind == protocol.TargetComponent {
		if d.components != nil {
			if handler, ok := d.components.Handler(event.Target.Component, event.Event); ok {
				return InvokeFunc(handler), event.Target.Component
			}
		}
		// No component claimed it; the route fallback gets a chance.
	}

	if d.routeFallback == nil {
		return nil, protocol.RouteScope
	}
	fallback := d.routeFallback
	name := event.Event
	return func(ctx context.Context, payload any, conn *Connection) (any, error) {
		return fallback(ctx, name, payload, conn)
	}, protocol.RouteScope
}

// invoke runs fn under the dispatch timeout with panic recovery. On
// timeout the invocation keeps running in its goroutine; its late outcome
// is discarded and the connection stays registered.
func (d *Dispatcher) invoke(ctx context.Context, fn InvokeFunc, payload any, conn *Connection, scope, event string) (any, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	type outcome struct {
		result any
		err    error
	}
	// Buffered so a late handler never blocks after the timeout fired.
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				d.logger.Error("handler panic",
					"connection_id", conn.ID,
					"scope", scope,
					"event", event,
					"panic", r,
					"stack", string(stack))
				if d.metrics != nil {
					d.metrics.RecordHandlerPanic()
				}
				done <- outcome{err: NewHandlerError(conn.ID, scope, event, r, stack)}
			}
		}()

		result, err := fn(ctx, payload, conn)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err

	case <-ctx.Done():
		d.logger.Error("handler timeout",
			"connection_id", conn.ID,
			"scope", scope,
			"event", event,
			"timeout", d.timeout)
		if d.metrics != nil {
			d.metrics.RecordHandlerTimeout()
		}
		return nil, fmt.Errorf("%w: event %q exceeded %s", ErrHandlerTimeout, event, d.timeout)
	}
}

// errorMessage maps an invocation error to the client-visible error string.
// Panics are reported generically; the details stay in the server log.
func errorMessage(err error) string {
	if _, ok := err.(*HandlerError); ok {
		return "internal handler error"
	}
	return err.Error()
}
