package weblisk

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/weblisk-dev/weblisk/internal/config"
	"github.com/weblisk-dev/weblisk/pkg/middleware"
	"github.com/weblisk-dev/weblisk/pkg/server"
	"github.com/weblisk-dev/weblisk/pkg/session"
)

// Config is the application configuration. The zero value is not usable;
// start from DefaultConfig or ConfigFromFile and override what you need.
type Config struct {
	// Server configures the HTTP listener and the WebSocket endpoint.
	Server ServerConfig

	// Session configures the identity cookie.
	Session SessionConfig

	// Connection configures per-connection transport behavior.
	Connection ConnectionConfig

	// Static configures static file serving. An empty Dir disables it.
	Static StaticConfig

	// Client configures the embedded browser runtime.
	Client ClientConfig

	// RateLimit configures HTTP request rate limiting. It never applies to
	// messages on established WebSocket connections.
	RateLimit RateLimitConfig

	// DevMode disables client script caching and relaxes static caching so
	// edits show up on reload. Never enable in production.
	DevMode bool

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// ServerConfig configures the HTTP listener and WebSocket upgrade.
type ServerConfig struct {
	// Host is the listen host. Default: "localhost".
	Host string

	// Port is the listen port. Default: 8080.
	Port int

	// Endpoint is the WebSocket upgrade path. Default: "/ws".
	Endpoint string

	// AllowedOrigins lists origins accepted for WebSocket upgrades and
	// granted CORS headers on HTTP routes. Empty means same-origin only.
	AllowedOrigins []string

	// TrustedProxies lists reverse proxy IPs or CIDR blocks whose
	// X-Forwarded-* headers are believed for secure-cookie and client-IP
	// decisions. Empty means headers are ignored.
	TrustedProxies []string

	// HandlerTimeout bounds a single event handler invocation.
	// Default: 30 seconds.
	HandlerTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown. Default: 10 seconds.
	ShutdownTimeout time.Duration
}

// SessionConfig configures the session identity cookie.
type SessionConfig struct {
	// CookieName is the session cookie name. Default: "weblisk-session-id".
	CookieName string

	// CookieMaxAge is the cookie lifetime. Default: 7 days.
	CookieMaxAge time.Duration

	// SameSite is the cookie SameSite policy. Default: Lax.
	SameSite http.SameSite

	// CookieDomain optionally scopes the cookie to a domain.
	CookieDomain string
}

// ConnectionConfig configures per-connection transport behavior.
type ConnectionConfig struct {
	// ReadTimeout is the maximum time to wait for a frame.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between ping frames.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming frame.
	// Default: 64KB.
	MaxMessageSize int64

	// EnableCompression enables WebSocket permessage-deflate.
	// Default: true.
	EnableCompression bool
}

// StaticConfig configures static file serving.
type StaticConfig struct {
	// Dir is the directory containing static files. Empty disables static
	// serving.
	Dir string

	// Prefix is the URL path prefix for static files. A file at
	// public/app.css with Prefix "/static/" is served at /static/app.css.
	// Default: "/static/".
	Prefix string

	// CacheControl selects the caching strategy. Default: CacheControlNone.
	CacheControl CacheControlStrategy

	// Headers are custom headers added to every static file response.
	Headers map[string]string

	// ManifestPath points at a manifest.json mapping source asset names to
	// fingerprinted names, as written by asset build pipelines. When set,
	// render props carry an assets.Resolver that resolves through it.
	ManifestPath string
}

// ClientConfig configures the embedded browser runtime's boot parameters.
type ClientConfig struct {
	// ReconnectInterval is the fixed delay between reconnect attempts.
	// Default: 3 seconds.
	ReconnectInterval time.Duration

	// MaxReconnectAttempts caps reconnect attempts. 0 retries forever.
	MaxReconnectAttempts int

	// Debug enables client-side console logging.
	Debug bool
}

// RateLimitConfig configures HTTP request rate limiting.
type RateLimitConfig struct {
	// Enabled turns the limiter on.
	Enabled bool

	// Rate is the sustained requests per second per client. Default: 10.
	Rate float64

	// Burst is the bucket capacity per client. Default: 20.
	Burst int64
}

// CacheControlStrategy selects static file caching behavior.
type CacheControlStrategy int

const (
	// CacheControlNone adds no caching headers. Use in development.
	CacheControlNone CacheControlStrategy = iota

	// CacheControlProduction caches fingerprinted files (app.a1b2c3d4.css)
	// as immutable for a year and everything else briefly with
	// revalidation.
	CacheControlProduction
)

// DefaultConfig returns a Config with the framework defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			Endpoint:        server.DefaultEndpoint,
			HandlerTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			CookieName:   session.DefaultCookieName,
			CookieMaxAge: session.DefaultMaxAge,
			SameSite:     http.SameSiteLaxMode,
		},
		Connection: ConnectionConfig{
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      10 * time.Second,
			HeartbeatInterval: 30 * time.Second,
			MaxMessageSize:    64 * 1024,
			EnableCompression: true,
		},
		Static: StaticConfig{
			Prefix:       "/static/",
			CacheControl: CacheControlNone,
		},
		Client: ClientConfig{
			ReconnectInterval:    3 * time.Second,
			MaxReconnectAttempts: 0,
		},
		RateLimit: RateLimitConfig{
			Rate:  10,
			Burst: 20,
		},
	}
}

// ConfigFromFile loads weblisk.json at path, applies WEBLISK_* environment
// overrides, validates, and maps the result onto a Config. The static
// directory is resolved relative to the file's directory.
func ConfigFromFile(path string) (Config, error) {
	fc, err := config.LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := fc.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := fc.Validate(); err != nil {
		return Config{}, err
	}
	return configFromFileConfig(fc), nil
}

// configFromFileConfig maps the file schema onto the runtime Config.
func configFromFileConfig(fc *config.Config) Config {
	cfg := DefaultConfig()

	cfg.Server.Host = fc.Server.Host
	cfg.Server.Port = fc.Server.Port
	cfg.Server.Endpoint = fc.Server.Endpoint
	cfg.Server.AllowedOrigins = append([]string(nil), fc.Server.AllowedOrigins...)
	cfg.Server.TrustedProxies = append([]string(nil), fc.Server.TrustedProxies...)
	cfg.Server.HandlerTimeout = fc.HandlerTimeout()
	cfg.DevMode = fc.Server.DevMode

	cfg.Session.CookieMaxAge = fc.CookieMaxAge()
	cfg.Session.SameSite = sameSiteFromString(fc.Session.SameSite)

	cfg.Connection.ReadTimeout = fc.ReadTimeout()
	cfg.Connection.WriteTimeout = fc.WriteTimeout()
	cfg.Connection.HeartbeatInterval = fc.HeartbeatInterval()
	if fc.Connection.MaxMessageSize > 0 {
		cfg.Connection.MaxMessageSize = fc.Connection.MaxMessageSize
	}

	if fc.Static.Dir != "" {
		cfg.Static.Dir = fc.StaticPath()
	}
	if fc.Static.Prefix != "" {
		cfg.Static.Prefix = fc.Static.Prefix
	}
	cfg.Static.ManifestPath = fc.ManifestPath()
	if !fc.Server.DevMode {
		cfg.Static.CacheControl = CacheControlProduction
	}

	cfg.Client.ReconnectInterval = fc.ReconnectInterval()
	cfg.Client.MaxReconnectAttempts = fc.Client.MaxReconnectAttempts
	cfg.Client.Debug = fc.Client.Debug

	cfg.RateLimit.Enabled = fc.RateLimit.Enabled
	if fc.RateLimit.Rate > 0 {
		cfg.RateLimit.Rate = fc.RateLimit.Rate
	}
	if fc.RateLimit.Burst > 0 {
		cfg.RateLimit.Burst = fc.RateLimit.Burst
	}

	cfg.Logger = newLogger(fc.Log.Level, fc.Log.Format)

	return cfg
}

// newLogger builds a slog.Logger from the file schema's log settings.
func newLogger(level, format string) *slog.Logger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lv}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func sameSiteFromString(s string) http.SameSite {
	switch s {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// applyDefaults fills zero-valued fields so a hand-built Config behaves
// like DefaultConfig for everything it does not mention.
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.Endpoint == "" {
		c.Server.Endpoint = def.Server.Endpoint
	}
	if c.Server.HandlerTimeout == 0 {
		c.Server.HandlerTimeout = def.Server.HandlerTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}

	if c.Session.CookieName == "" {
		c.Session.CookieName = def.Session.CookieName
	}
	if c.Session.CookieMaxAge == 0 {
		c.Session.CookieMaxAge = def.Session.CookieMaxAge
	}
	if c.Session.SameSite == 0 {
		c.Session.SameSite = def.Session.SameSite
	}

	if c.Connection.ReadTimeout == 0 {
		c.Connection.ReadTimeout = def.Connection.ReadTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = def.Connection.WriteTimeout
	}
	if c.Connection.HeartbeatInterval == 0 {
		c.Connection.HeartbeatInterval = def.Connection.HeartbeatInterval
	}
	if c.Connection.MaxMessageSize == 0 {
		c.Connection.MaxMessageSize = def.Connection.MaxMessageSize
	}

	if c.Static.Prefix == "" {
		c.Static.Prefix = def.Static.Prefix
	}

	if c.Client.ReconnectInterval == 0 {
		c.Client.ReconnectInterval = def.Client.ReconnectInterval
	}
	if c.Client.MaxReconnectAttempts < 0 {
		c.Client.MaxReconnectAttempts = 0
	}

	if c.RateLimit.Rate == 0 {
		c.RateLimit.Rate = def.RateLimit.Rate
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
}

// Address returns the host:port listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// buildServerConfig maps the public Config onto the WebSocket server's
// configuration. The origin policy doubles as the upgrade check.
func buildServerConfig(cfg Config, origins *middleware.OriginPolicy, logger *slog.Logger) *server.Config {
	return &server.Config{
		Endpoint:       cfg.Server.Endpoint,
		CheckOrigin:    origins.CheckOrigin,
		HandlerTimeout: cfg.Server.HandlerTimeout,
		DevMode:        cfg.DevMode,
		Logger:         logger,
		Connection: &server.ConnectionConfig{
			ReadTimeout:       cfg.Connection.ReadTimeout,
			WriteTimeout:      cfg.Connection.WriteTimeout,
			HeartbeatInterval: cfg.Connection.HeartbeatInterval,
			MaxMessageSize:    cfg.Connection.MaxMessageSize,
			EnableCompression: cfg.Connection.EnableCompression,
		},
	}
}

// buildSessionConfig maps the public Config onto the identity provider's
// configuration.
func buildSessionConfig(cfg Config, logger *slog.Logger) *session.Config {
	return &session.Config{
		CookieName:     cfg.Session.CookieName,
		MaxAge:         cfg.Session.CookieMaxAge,
		SameSite:       cfg.Session.SameSite,
		CookieDomain:   cfg.Session.CookieDomain,
		TrustedProxies: append([]string(nil), cfg.Server.TrustedProxies...),
		Logger:         logger,
	}
}
