package weblisk

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weblisk-dev/weblisk/pkg/assets"
	"github.com/weblisk-dev/weblisk/pkg/component"
	"github.com/weblisk-dev/weblisk/pkg/middleware"
	"github.com/weblisk-dev/weblisk/pkg/router"
	"github.com/weblisk-dev/weblisk/pkg/server"
	"github.com/weblisk-dev/weblisk/pkg/session"
)

// App wires the framework together: session identity, the WebSocket server,
// the page router, the component registry, static files, and the health and
// metrics endpoints, all behind one http.Handler.
//
// Create an App with weblisk.New:
//
//	app := weblisk.New(weblisk.DefaultConfig())
//	app.MustRoute(weblisk.NewRoute("/", "Home", renderHome).On("greet", greet))
//	log.Fatal(app.Run())
//
// An App can also be mounted on an existing mux via its Handler method.
type App struct {
	config Config
	logger *slog.Logger

	sessions   *session.Provider
	server     *server.Server
	router     *router.Router
	components *component.Registry
	origins    *middleware.OriginPolicy

	promRegistry *prometheus.Registry

	staticFS http.FileSystem
	assets   assets.Resolver

	buildOnce sync.Once
	handler   http.Handler

	httpServer *http.Server
	startedAt  time.Time
}

// New creates an application from cfg. Zero-valued fields take defaults, so
// New(weblisk.Config{}) is a working development setup.
func New(cfg Config) *App {
	cfg.applyDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	origins := middleware.NewOriginPolicy(cfg.Server.AllowedOrigins...)
	sessions := session.NewProvider(buildSessionConfig(cfg, logger))
	srv := server.New(buildServerConfig(cfg, origins, logger), sessions)

	a := &App{
		config:       cfg,
		logger:       logger,
		sessions:     sessions,
		server:       srv,
		router:       router.NewRouter(logger),
		components:   component.NewRegistry(logger),
		origins:      origins,
		promRegistry: prometheus.NewRegistry(),
		startedAt:    time.Now(),
	}

	srv.SetComponents(a.components)
	srv.SetRouteFallback(a.router.Fallback())

	metrics := middleware.NewMetrics(middleware.WithRegistry(a.promRegistry))
	srv.Use(metrics.Middleware())
	a.promRegistry.MustRegister(middleware.NewServerCollector(srv))

	if cfg.Static.Dir != "" {
		a.staticFS = http.Dir(cfg.Static.Dir)
	}

	a.assets = assets.NewPassthroughResolver(cfg.Static.Prefix)
	if cfg.Static.ManifestPath != "" {
		manifest, err := assets.Load(cfg.Static.ManifestPath)
		if err != nil {
			logger.Warn("asset manifest unavailable, serving source names",
				"path", cfg.Static.ManifestPath, "error", err)
		} else {
			a.assets = assets.NewResolver(manifest, cfg.Static.Prefix)
		}
	}

	return a
}

// Route registers a page route. Its event table joins the shared route-event
// namespace consulted when frames address the "route" scope.
func (a *App) Route(rt *router.Route) error {
	return a.router.Register(rt)
}

// MustRoute registers a page route and panics on error.
func (a *App) MustRoute(rt *router.Route) {
	a.router.MustRegister(rt)
}

// Component registers a named component. Frames addressing its name invoke
// its event table before the route fallback is considered.
func (a *App) Component(c *component.Component) error {
	return a.components.Register(c)
}

// MustComponent registers a component and panics on error.
func (a *App) MustComponent(c *component.Component) {
	a.components.MustRegister(c)
}

// Use appends dispatch middleware around every event handler invocation.
// First added runs outermost.
func (a *App) Use(mw server.Middleware) {
	a.server.Use(mw)
}

// SendTo sends v to one connection. It reports whether the frame was written.
func (a *App) SendTo(connectionID string, v any) bool {
	return a.server.SendTo(connectionID, v)
}

// SendToSession sends v to every connection of a session, covering all of
// that browser's tabs. It returns the number of successful writes.
func (a *App) SendToSession(sessionID string, v any) int {
	return a.server.SendToSession(sessionID, v)
}

// BroadcastAll sends v to every live connection, subject to the filter
// options. It returns the number of successful writes.
func (a *App) BroadcastAll(v any, opts ...server.BroadcastOption) int {
	return a.server.BroadcastAll(v, opts...)
}

// Handler returns the application's http.Handler. The routing table is
// assembled on first use; register routes and components before serving.
func (a *App) Handler() http.Handler {
	a.buildOnce.Do(a.buildHandler)
	return a.handler
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Handler().ServeHTTP(w, r)
}

func (a *App) buildHandler() {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	if a.config.RateLimit.Enabled {
		r.Use(middleware.RateLimit(
			middleware.WithRate(a.config.RateLimit.Rate),
			middleware.WithBurst(a.config.RateLimit.Burst),
			middleware.WithTrustForwardedFor(len(a.config.Server.TrustedProxies) > 0),
		))
	}
	r.Use(a.origins.CORS())

	r.Handle(a.config.Server.Endpoint, http.HandlerFunc(a.server.HandleWebSocket))
	r.Handle(server.ClientScriptPath, http.HandlerFunc(a.server.ServeClientScript))
	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{}))

	// Pages and static files resolve at request time so registration order
	// does not matter.
	r.NotFound(a.serveFallback)

	a.handler = r
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a listener
// error, then shuts down gracefully.
func (a *App) Run() error {
	a.httpServer = &http.Server{
		Addr:              a.config.Address(),
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			"address", a.config.Address(),
			"endpoint", a.config.Server.Endpoint,
			"routes", a.router.Len(),
			"components", a.components.Len())
		errCh <- a.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		a.logger.Info("shutting down...")
		return a.Shutdown(context.Background())
	}
}

// Shutdown closes every live connection, stops the HTTP listener, and waits
// for in-flight requests up to the configured shutdown timeout.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.Server.ShutdownTimeout)
	defer cancel()

	// Connections first: open WebSockets would otherwise hold the HTTP
	// shutdown until the timeout.
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("connection shutdown error", "error", err)
	}

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	a.logger.Info("server shutdown complete")
	return nil
}

// Server returns the underlying WebSocket server for advanced use.
func (a *App) Server() *server.Server {
	return a.server
}

// Router returns the page router.
func (a *App) Router() *router.Router {
	return a.router
}

// Components returns the component registry.
func (a *App) Components() *component.Registry {
	return a.components
}

// Sessions returns the session identity provider.
func (a *App) Sessions() *session.Provider {
	return a.sessions
}

// Assets returns the asset resolver. It resolves through the configured
// manifest when one is present and passes names through otherwise.
func (a *App) Assets() assets.Resolver {
	return a.assets
}

// Config returns the app configuration.
func (a *App) Config() Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
