package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/cors"
)

// OriginPolicy is one origin allowlist serving both halves of the
// cross-origin story: CheckOrigin plugs into the WebSocket upgrade and
// CORS produces matching headers for plain HTTP routes. Keeping them on
// one policy means a page that can fetch an endpoint can also open a
// socket to it, and vice versa.
//
// Origins are full origins like "https://app.example.com". The single
// entry "*" allows everything. Same-origin requests are always allowed.
type OriginPolicy struct {
	origins  []string
	allowAll bool
}

// NewOriginPolicy builds a policy from explicit origins. An empty list
// allows same-origin traffic only.
func NewOriginPolicy(origins ...string) *OriginPolicy {
	p := &OriginPolicy{}
	for _, origin := range origins {
		if origin == "*" {
			p.allowAll = true
			continue
		}
		p.origins = append(p.origins, strings.ToLower(strings.TrimSuffix(origin, "/")))
	}
	return p
}

// CheckOrigin reports whether the request's Origin header is acceptable
// for a WebSocket upgrade. Requests without an Origin header pass, as do
// same-origin requests.
func (p *OriginPolicy) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || p.allowAll {
		return true
	}

	if originURL, err := url.Parse(origin); err == nil && originURL.Host == r.Host {
		return true
	}

	origin = strings.ToLower(origin)
	for _, allowed := range p.origins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// CORS returns HTTP middleware emitting headers that mirror the policy.
//
// With an empty allowlist the middleware is a no-op (same-origin
// requests need no CORS headers). Credentials are allowed for explicit
// origins so the session cookie travels, but never together with "*",
// which browsers reject.
func (p *OriginPolicy) CORS() func(http.Handler) http.Handler {
	if p.allowAll {
		return cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   corsMethods,
			AllowedHeaders:   corsHeaders,
			AllowCredentials: false,
			MaxAge:           corsMaxAge,
		})
	}

	if len(p.origins) == 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   p.origins,
		AllowedMethods:   corsMethods,
		AllowedHeaders:   corsHeaders,
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	})
}

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{"Accept", "Content-Type", "X-Requested-With"}
)

const corsMaxAge = 300
