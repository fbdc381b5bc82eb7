package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/weblisk-dev/weblisk/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "weblisk.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default bind host.
	DefaultHost = "localhost"

	// DefaultEndpoint is the default WebSocket endpoint path.
	DefaultEndpoint = "/ws"

	// DefaultStaticDir is the default static files directory.
	DefaultStaticDir = "public"

	// DefaultStaticPrefix is the default URL prefix for static files.
	DefaultStaticPrefix = "/static/"
)

// Config represents the complete weblisk.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Server contains bind address and WebSocket settings.
	Server ServerConfig `json:"server,omitempty"`

	// Session contains session cookie settings.
	Session SessionConfig `json:"session,omitempty"`

	// Connection contains per-connection transport settings.
	Connection ConnectionConfig `json:"connection,omitempty"`

	// Dispatch contains event dispatch settings.
	Dispatch DispatchConfig `json:"dispatch,omitempty"`

	// Client contains settings handed to the browser runtime.
	Client ClientConfig `json:"client,omitempty"`

	// Static contains static file serving configuration.
	Static StaticConfig `json:"static,omitempty"`

	// RateLimit contains HTTP rate limiter settings.
	RateLimit RateLimitConfig `json:"rateLimit,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains bind address and WebSocket settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Endpoint is the WebSocket upgrade path.
	Endpoint string `json:"endpoint,omitempty"`

	// AllowedOrigins lists origins accepted for upgrades and CORS.
	// Empty means same-origin only; a single "*" allows everything.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`

	// TrustedProxies lists proxy addresses (IPs or CIDR blocks) whose
	// X-Forwarded-For headers are honored.
	TrustedProxies []string `json:"trustedProxies,omitempty"`

	// DevMode disables client script caching and loosens logging.
	DevMode bool `json:"devMode,omitempty"`
}

// SessionConfig contains session cookie settings.
type SessionConfig struct {
	// CookieMaxAge is the session cookie lifetime (e.g., "168h").
	CookieMaxAge string `json:"cookieMaxAge,omitempty"`

	// SameSite is the cookie SameSite policy: "lax", "strict" or "none".
	SameSite string `json:"sameSite,omitempty"`

	// Secure marks the cookie Secure; requires HTTPS in browsers.
	Secure bool `json:"secure,omitempty"`
}

// ConnectionConfig contains per-connection transport settings.
type ConnectionConfig struct {
	// MaxMessageSize is the largest accepted inbound frame, in bytes.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty"`

	// ReadTimeout is the per-read deadline (e.g., "60s").
	ReadTimeout string `json:"readTimeout,omitempty"`

	// WriteTimeout is the per-write deadline.
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// HeartbeatInterval is the ping cadence.
	HeartbeatInterval string `json:"heartbeatInterval,omitempty"`
}

// DispatchConfig contains event dispatch settings.
type DispatchConfig struct {
	// HandlerTimeout bounds each handler invocation (e.g., "5s").
	HandlerTimeout string `json:"handlerTimeout,omitempty"`
}

// ClientConfig contains settings handed to the browser runtime.
type ClientConfig struct {
	// ReconnectInterval is the fixed delay between reconnect attempts.
	ReconnectInterval string `json:"reconnectInterval,omitempty"`

	// MaxReconnectAttempts caps reconnect attempts. Zero retries forever.
	MaxReconnectAttempts int `json:"maxReconnectAttempts,omitempty"`

	// Debug enables runtime console logging.
	Debug bool `json:"debug,omitempty"`
}

// StaticConfig contains static file serving configuration.
type StaticConfig struct {
	// Dir is the directory containing static files.
	Dir string `json:"dir,omitempty"`

	// Prefix is the URL prefix for static files (default: "/static/").
	Prefix string `json:"prefix,omitempty"`

	// Manifest is the path to an asset manifest.json mapping source names
	// to fingerprinted names. Optional.
	Manifest string `json:"manifest,omitempty"`
}

// RateLimitConfig contains HTTP rate limiter settings.
type RateLimitConfig struct {
	// Enabled turns the limiter on.
	Enabled bool `json:"enabled,omitempty"`

	// Rate is the sustained request rate per client, in requests per second.
	Rate float64 `json:"rate,omitempty"`

	// Burst is the bucket capacity per client.
	Burst int64 `json:"burst,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is the minimum level: "debug", "info", "warn" or "error".
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Version: "0.1.0",
		Server: ServerConfig{
			Host:     DefaultHost,
			Port:     DefaultPort,
			Endpoint: DefaultEndpoint,
		},
		Session: SessionConfig{
			CookieMaxAge: "168h",
			SameSite:     "lax",
		},
		Connection: ConnectionConfig{
			MaxMessageSize:    1 << 20,
			ReadTimeout:       "60s",
			WriteTimeout:      "10s",
			HeartbeatInterval: "30s",
		},
		Dispatch: DispatchConfig{
			HandlerTimeout: "5s",
		},
		Client: ClientConfig{
			ReconnectInterval:    "3s",
			MaxReconnectAttempts: 0,
		},
		Static: StaticConfig{
			Dir:    DefaultStaticDir,
			Prefix: DefaultStaticPrefix,
		},
		RateLimit: RateLimitConfig{
			Rate:  10,
			Burst: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for weblisk.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No weblisk.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'weblisk new' to create a project or create weblisk.json manually")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E102").
			WithDetail("Failed to parse weblisk.json: " + err.Error()).
			WithSuggestion("Check that weblisk.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E101").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E101").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Endpoint == "" {
		c.Server.Endpoint = DefaultEndpoint
	}

	if c.Session.CookieMaxAge == "" {
		c.Session.CookieMaxAge = "168h"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "lax"
	}

	if c.Connection.MaxMessageSize == 0 {
		c.Connection.MaxMessageSize = 1 << 20
	}
	if c.Connection.ReadTimeout == "" {
		c.Connection.ReadTimeout = "60s"
	}
	if c.Connection.WriteTimeout == "" {
		c.Connection.WriteTimeout = "10s"
	}
	if c.Connection.HeartbeatInterval == "" {
		c.Connection.HeartbeatInterval = "30s"
	}

	if c.Dispatch.HandlerTimeout == "" {
		c.Dispatch.HandlerTimeout = "5s"
	}

	if c.Client.ReconnectInterval == "" {
		c.Client.ReconnectInterval = "3s"
	}

	if c.Static.Dir == "" {
		c.Static.Dir = DefaultStaticDir
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = DefaultStaticPrefix
	}

	if c.RateLimit.Rate == 0 {
		c.RateLimit.Rate = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("E103").
			WithDetailf("Port %d is outside 1-65535", c.Server.Port)
	}

	if len(c.Server.Endpoint) == 0 || c.Server.Endpoint[0] != '/' {
		return errors.New("E108").
			WithDetailf("Endpoint %q must start with \"/\"", c.Server.Endpoint)
	}

	if d, err := time.ParseDuration(c.Session.CookieMaxAge); err != nil || d <= 0 {
		return errors.New("E104").
			WithDetailf("cookieMaxAge %q is not a positive duration", c.Session.CookieMaxAge)
	}

	switch c.Session.SameSite {
	case "lax", "strict", "none":
	default:
		return errors.New("E105").
			WithDetailf("sameSite %q is not one of \"lax\", \"strict\", \"none\"", c.Session.SameSite)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("E106").
			WithDetailf("rate %v and burst %d must both be positive", c.RateLimit.Rate, c.RateLimit.Burst)
	}

	if d, err := time.ParseDuration(c.Client.ReconnectInterval); err != nil || d <= 0 {
		return errors.New("E107").
			WithDetailf("reconnectInterval %q is not a positive duration", c.Client.ReconnectInterval)
	}
	if c.Client.MaxReconnectAttempts < 0 {
		return errors.New("E107").
			WithDetailf("maxReconnectAttempts %d must be zero (unbounded) or positive", c.Client.MaxReconnectAttempts)
	}

	for _, proxy := range c.Server.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return errors.New("E109").
				WithDetailf("trustedProxies entry %q is neither an IP nor a CIDR block", proxy)
		}
	}

	return nil
}

// Address returns the host:port string for the listener.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the base URL for the server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// StaticPath returns the absolute path to the static files directory.
func (c *Config) StaticPath() string {
	if filepath.IsAbs(c.Static.Dir) {
		return c.Static.Dir
	}
	return filepath.Join(c.Dir(), c.Static.Dir)
}

// ManifestPath returns the absolute path to the asset manifest, or ""
// when none is configured.
func (c *Config) ManifestPath() string {
	if c.Static.Manifest == "" {
		return ""
	}
	if filepath.IsAbs(c.Static.Manifest) {
		return c.Static.Manifest
	}
	return filepath.Join(c.Dir(), c.Static.Manifest)
}

// CookieMaxAge returns the parsed session cookie lifetime.
func (c *Config) CookieMaxAge() time.Duration {
	return parseDuration(c.Session.CookieMaxAge, 168*time.Hour)
}

// ReadTimeout returns the parsed per-read deadline.
func (c *Config) ReadTimeout() time.Duration {
	return parseDuration(c.Connection.ReadTimeout, 60*time.Second)
}

// WriteTimeout returns the parsed per-write deadline.
func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Connection.WriteTimeout, 10*time.Second)
}

// HeartbeatInterval returns the parsed ping cadence.
func (c *Config) HeartbeatInterval() time.Duration {
	return parseDuration(c.Connection.HeartbeatInterval, 30*time.Second)
}

// HandlerTimeout returns the parsed dispatch timeout.
func (c *Config) HandlerTimeout() time.Duration {
	return parseDuration(c.Dispatch.HandlerTimeout, 5*time.Second)
}

// ReconnectInterval returns the parsed client reconnect delay.
func (c *Config) ReconnectInterval() time.Duration {
	return parseDuration(c.Client.ReconnectInterval, 3*time.Second)
}

// parseDuration parses s, falling back to def when empty or invalid.
// Validate reports invalid durations; accessors never fail.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing weblisk.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No weblisk.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'weblisk new' to create a project")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
