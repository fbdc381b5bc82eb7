// Package middleware provides production middleware for weblisk servers.
//
// Two kinds of middleware live here. Dispatch middleware (server.Middleware)
// wraps WebSocket event invocations:
//   - Metrics: Prometheus counters and a duration histogram per event
//   - OpenTelemetry: a span per dispatched event
//
// HTTP middleware (func(http.Handler) http.Handler) wraps the plain HTTP
// surface and composes with chi:
//   - RateLimit: token-bucket limiting per client IP
//   - CORS: cross-origin headers sharing the server's origin policy
//
// The rate limiter guards HTTP requests only. Messages on an established
// WebSocket connection are never rate limited here; the dispatch timeout
// and sanitizer bound per-message work instead.
//
// # Prometheus
//
//	metrics := middleware.NewMetrics(middleware.WithNamespace("myapp"))
//	srv.Use(metrics.Middleware())
//	prometheus.MustRegister(middleware.NewServerCollector(srv))
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// The tracer comes from the global tracer provider; configure it in main
// before starting the server:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	srv.Use(middleware.OpenTelemetry())
//
// Handler code reaches the active span through the invocation context
// with trace.SpanFromContext.
package middleware
