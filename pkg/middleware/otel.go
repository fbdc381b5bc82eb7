package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/weblisk-dev/weblisk/pkg/protocol"
	"github.com/weblisk-dev/weblisk/pkg/server"
)

// Default tracer name for weblisk applications.
const defaultTracerName = "weblisk"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "weblisk").
	TracerName string

	// IncludeSessionID includes the session ID as a span attribute.
	// Session IDs are opaque identities, not credentials, but can still
	// correlate traffic across traces. Enabled by default.
	IncludeSessionID bool

	// Filter decides which invocations to trace. Return false to skip.
	// A nil filter traces everything.
	Filter func(inv *server.Invocation) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(ctx context.Context, inv *server.Invocation) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithIncludeSessionID enables or disables the session ID attribute.
func WithIncludeSessionID(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeSessionID = include
	}
}

// WithEventFilter sets a filter for which invocations get spans.
func WithEventFilter(filter func(inv *server.Invocation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx context.Context, inv *server.Invocation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:       defaultTracerName,
		IncludeSessionID: true,
	}
}

// OpenTelemetry creates dispatch middleware that opens a span per event.
//
// Spans are named "weblisk.<event>" and carry the target scope, event
// name and connection identity as attributes. Handler errors are
// recorded on the span and set its status. The span context flows into
// the handler's context, so downstream database and HTTP calls inherit
// the trace without extra plumbing.
//
// The tracer comes from the global tracer provider; configure it in
// main() before starting the server:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	    sdktrace.WithResource(resource.NewWithAttributes(
//	        semconv.SchemaURL,
//	        semconv.ServiceName("my-app"),
//	    )),
//	)
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) server.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	config.tracer = otel.Tracer(config.TracerName)

	return func(next server.InvokeFunc) server.InvokeFunc {
		return func(ctx context.Context, payload any, conn *server.Connection) (any, error) {
			inv, ok := server.InvocationFromContext(ctx)
			if !ok {
				return next(ctx, payload, conn)
			}

			if config.Filter != nil && !config.Filter(inv) {
				return next(ctx, payload, conn)
			}

			attrs := []attribute.KeyValue{
				attribute.String("weblisk.event", inv.Event),
				attribute.String("weblisk.scope", inv.Target.Kind.String()),
				attribute.String("weblisk.connection_id", inv.ConnectionID),
			}
			if inv.Target.Kind == protocol.TargetComponent {
				attrs = append(attrs, attribute.String("weblisk.component", inv.Target.Component))
			}
			if config.IncludeSessionID {
				attrs = append(attrs, attribute.String("weblisk.session_id", inv.SessionID))
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(ctx, inv)...)
			}

			spanCtx, span := config.tracer.Start(
				ctx,
				fmt.Sprintf("weblisk.%s", inv.Event),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			result, err := next(spanCtx, payload, conn)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}

			return result, err
		}
	}
}
