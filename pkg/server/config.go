package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultEndpoint is the WebSocket upgrade path.
const DefaultEndpoint = "/ws"

// ConnectionConfig holds per-connection transport settings.
type ConnectionConfig struct {
	// ReadTimeout is the maximum time to wait for a frame from the client.
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

	// EnableCompression enables WebSocket compression.
	// Default: true.
	EnableCompression bool
}

// DefaultConnectionConfig returns a ConnectionConfig with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024, // 64KB
		EnableCompression: true,
	}
}

// Clone returns a copy of the ConnectionConfig.
func (c *ConnectionConfig) Clone() *ConnectionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Config holds configuration for the WebSocket server.
type Config struct {
	// Endpoint is the upgrade path.
	// Default: "/ws".
	Endpoint string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// Connection is the per-connection transport configuration.
	// Default: DefaultConnectionConfig().
	Connection *ConnectionConfig

	// HandlerTimeout bounds a single handler invocation. On expiry the
	// client receives a failure result; the connection stays registered.
	// Default: 30 seconds.
	HandlerTimeout time.Duration

	// DevMode disables client script caching so edits show up on reload.
	DevMode bool

	// Logger for server events. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
// SECURITY: CheckOrigin enforces same-origin by default to prevent
// cross-site WebSocket hijacking.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:        DefaultEndpoint,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     SameOriginCheck,
		Connection:      DefaultConnectionConfig(),
		HandlerTimeout:  30 * time.Second,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Connection != nil {
		clone.Connection = c.Connection.Clone()
	}
	return &clone
}

// WithEndpoint sets the upgrade path and returns the config for chaining.
func (c *Config) WithEndpoint(path string) *Config {
	c.Endpoint = path
	return c
}

// WithCheckOrigin sets the origin check and returns the config for chaining.
func (c *Config) WithCheckOrigin(check func(r *http.Request) bool) *Config {
	c.CheckOrigin = check
	return c
}

// WithHandlerTimeout sets the dispatch timeout and returns the config for chaining.
func (c *Config) WithHandlerTimeout(d time.Duration) *Config {
	c.HandlerTimeout = d
	return c
}

// SameOriginCheck validates that the WebSocket request origin matches the host.
// This is the secure default for CheckOrigin.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No Origin header (e.g., same-origin request or curl)
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := r.Host
	if host == "" {
		return false
	}

	// Compare the host portion (includes port if present)
	return originURL.Host == host
}
