package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/juju/ratelimit"
)

// RateLimitConfig configures the HTTP rate limiter.
type RateLimitConfig struct {
	// Rate is the sustained request rate per client, in requests per
	// second (default: 10).
	Rate float64

	// Burst is the bucket capacity per client (default: 20).
	Burst int64

	// KeyFunc derives the bucket key from a request. Defaults to the
	// client IP.
	KeyFunc func(r *http.Request) string

	// TrustForwardedFor keys on the first X-Forwarded-For entry when
	// present. Only enable behind a proxy that sets the header.
	TrustForwardedFor bool

	// MaxClients bounds the number of tracked buckets (default: 10000).
	// Idle buckets are evicted when the bound is hit.
	MaxClients int
}

// RateLimitOption configures the HTTP rate limiter.
type RateLimitOption func(*RateLimitConfig)

// WithRate sets the sustained per-client request rate.
func WithRate(perSecond float64) RateLimitOption {
	return func(c *RateLimitConfig) {
		c.Rate = perSecond
	}
}

// WithBurst sets the per-client bucket capacity.
func WithBurst(burst int64) RateLimitOption {
	return func(c *RateLimitConfig) {
		c.Burst = burst
	}
}

// WithKeyFunc sets the bucket key derivation.
func WithKeyFunc(key func(r *http.Request) string) RateLimitOption {
	return func(c *RateLimitConfig) {
		c.KeyFunc = key
	}
}

// WithTrustForwardedFor keys clients on X-Forwarded-For.
func WithTrustForwardedFor(trust bool) RateLimitOption {
	return func(c *RateLimitConfig) {
		c.TrustForwardedFor = trust
	}
}

// WithMaxClients bounds the number of tracked client buckets.
func WithMaxClients(n int) RateLimitOption {
	return func(c *RateLimitConfig) {
		c.MaxClients = n
	}
}

// defaultRateLimitConfig returns the default rate limiter configuration.
func defaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:       10,
		Burst:      20,
		MaxClients: 10000,
	}
}

// RateLimit returns HTTP middleware applying a token bucket per client.
// Requests that find an empty bucket get 429 with a Retry-After hint.
//
// This guards the HTTP surface only: page loads, static files and the
// upgrade handshake. Messages on an established WebSocket connection
// never pass through here.
func RateLimit(opts ...RateLimitOption) func(http.Handler) http.Handler {
	config := defaultRateLimitConfig()
	for _, opt := range opts {
		opt(&config)
	}

	l := &limiter{
		config:  config,
		buckets: make(map[string]*clientBucket),
	}

	retryAfter := strconv.Itoa(retryAfterSeconds(config.Rate))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(l.key(r)) {
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientBucket pairs a token bucket with its last use for eviction.
type clientBucket struct {
	bucket   *ratelimit.Bucket
	lastSeen time.Time
}

// limiter tracks one token bucket per client key.
type limiter struct {
	config RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*clientBucket
}

// key derives the bucket key for a request.
func (l *limiter) key(r *http.Request) string {
	if l.config.KeyFunc != nil {
		return l.config.KeyFunc(r)
	}
	return clientIP(r, l.config.TrustForwardedFor)
}

// allow takes one token from the client's bucket, creating it on first
// sight.
func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	cb, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.config.MaxClients {
			l.evictLocked()
		}
		cb = &clientBucket{
			bucket: ratelimit.NewBucketWithRate(l.config.Rate, l.config.Burst),
		}
		l.buckets[key] = cb
	}
	cb.lastSeen = time.Now()
	l.mu.Unlock()

	// Buckets are safe for concurrent use, so the take happens outside
	// the map lock.
	return cb.bucket.TakeAvailable(1) > 0
}

// evictLocked drops buckets idle long enough to have refilled, which
// makes them indistinguishable from fresh ones. If nothing is idle it
// drops the least recently seen bucket so the map never grows past the
// bound. Caller holds l.mu.
func (l *limiter) evictLocked() {
	refill := time.Duration(0)
	if l.config.Rate > 0 {
		refill = time.Duration(float64(l.config.Burst) / l.config.Rate * float64(time.Second))
	}
	cutoff := time.Now().Add(-refill)

	var oldestKey string
	var oldestSeen time.Time
	evicted := false

	for key, cb := range l.buckets {
		if cb.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			evicted = true
			continue
		}
		if oldestKey == "" || cb.lastSeen.Before(oldestSeen) {
			oldestKey = key
			oldestSeen = cb.lastSeen
		}
	}

	if !evicted && oldestKey != "" {
		delete(l.buckets, oldestKey)
	}
}

// clientIP extracts the client address for bucket keying.
func clientIP(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			// First entry is the originating client.
			if i := strings.IndexByte(fwd, ','); i >= 0 {
				fwd = fwd[:i]
			}
			return strings.TrimSpace(fwd)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// retryAfterSeconds estimates when a drained bucket has a token again.
func retryAfterSeconds(rate float64) int {
	if rate <= 0 {
		return 1
	}
	secs := int(1 / rate)
	if secs < 1 {
		secs = 1
	}
	return secs
}
