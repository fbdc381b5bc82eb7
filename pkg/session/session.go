// Package session provides the cookie-based session identity used to group
// connections that belong to the same browser across tabs and reloads.
//
// A session identifier is an opaque version-4 UUID carried in a cookie. It
// establishes continuity, not authorization: there is no server-side session
// record, and a token that fails validation is treated exactly like an absent
// one and silently replaced.
package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultCookieName is the cookie that carries the session identifier.
const DefaultCookieName = "weblisk-session-id"

// DefaultMaxAge is how long the session cookie lives.
const DefaultMaxAge = 7 * 24 * time.Hour

// tokenLength is the canonical encoded length of a session token.
const tokenLength = 36

// Config holds session identity settings.
type Config struct {
	// CookieName is the name of the session cookie.
	CookieName string

	// MaxAge is the cookie lifetime. The token itself never expires
	// server-side; expiry is enforced by the browser dropping the cookie.
	MaxAge time.Duration

	// SameSite is the cookie SameSite policy.
	SameSite http.SameSite

	// CookieDomain optionally scopes the cookie to a domain.
	CookieDomain string

	// TrustedProxies lists IPs or CIDR blocks whose Forwarded /
	// X-Forwarded-Proto headers are believed when deciding whether the
	// request is secure. Empty means only direct TLS counts.
	TrustedProxies []string

	// Logger for identity events. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default session identity settings.
func DefaultConfig() *Config {
	return &Config{
		CookieName: DefaultCookieName,
		MaxAge:     DefaultMaxAge,
		SameSite:   http.SameSiteLaxMode,
	}
}

// Provider issues and validates session identifiers.
//
// Provider holds no mutable state beyond its configuration; all methods are
// safe for concurrent use.
type Provider struct {
	config         *Config
	trustedProxies *proxyMatcher
	logger         *slog.Logger
}

// NewProvider creates a session identity provider.
func NewProvider(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CookieName == "" {
		config.CookieName = DefaultCookieName
	}
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultMaxAge
	}
	if config.SameSite == 0 {
		config.SameSite = http.SameSiteLaxMode
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		config:         config,
		trustedProxies: newProxyMatcher(config.TrustedProxies, logger),
		logger:         logger.With("component", "session"),
	}
}

// CookieName returns the configured cookie name.
func (p *Provider) CookieName() string {
	return p.config.CookieName
}

// Issue mints a fresh session identifier.
func (p *Provider) Issue() string {
	// uuid.New panics only if the system entropy source fails, which is
	// not a recoverable situation for identity minting.
	return uuid.New().String()
}

// IsValid reports whether token has the canonical shape of an issued session
// identifier. It is a pure format check: no store is consulted, because no
// server-side session record exists.
func (p *Provider) IsValid(token string) bool {
	if len(token) != tokenLength {
		return false
	}
	id, err := uuid.Parse(token)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.Variant() == uuid.RFC4122
}

// ResolveOrIssue returns the request's session identifier, minting a new one
// when the cookie is absent or malformed. A malformed token is never an
// error; it is replaced silently.
func (p *Provider) ResolveOrIssue(r *http.Request) (id string, isNew bool) {
	if cookie, err := r.Cookie(p.config.CookieName); err == nil {
		if p.IsValid(cookie.Value) {
			return cookie.Value, false
		}
		p.logger.Debug("replacing malformed session token", "cookie", p.config.CookieName)
	}

	id = p.Issue()
	p.logger.Debug("session issued", "session_id", id)
	return id, true
}

// Cookie builds the Set-Cookie value carrying id for the given request.
// Secure is set when the request arrived over HTTPS, either directly or via
// a trusted proxy.
func (p *Provider) Cookie(r *http.Request, id string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     p.config.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(p.config.MaxAge / time.Second),
		HttpOnly: true,
		SameSite: p.config.SameSite,
		Secure:   p.isRequestSecure(r),
	}
	if p.config.CookieDomain != "" {
		cookie.Domain = p.config.CookieDomain
	}
	return cookie
}

// SetCookie writes the session cookie for id onto the response.
func (p *Provider) SetCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, p.Cookie(r, id))
}

// Resolve reads and validates the session cookie without issuing a
// replacement. Returns "" when absent or malformed.
func (p *Provider) Resolve(r *http.Request) string {
	cookie, err := r.Cookie(p.config.CookieName)
	if err != nil || !p.IsValid(cookie.Value) {
		return ""
	}
	return cookie.Value
}
