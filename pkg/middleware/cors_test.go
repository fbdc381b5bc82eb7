package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOriginPolicyCheckOrigin(t *testing.T) {
	policy := NewOriginPolicy("https://app.example.com", "https://Admin.Example.com/")

	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin header", "", "api.example.com", true},
		{"same origin", "https://api.example.com", "api.example.com", true},
		{"allowed origin", "https://app.example.com", "api.example.com", true},
		{"case insensitive", "HTTPS://APP.EXAMPLE.COM", "api.example.com", true},
		{"trailing slash normalized at construction", "https://admin.example.com", "api.example.com", true},
		{"unlisted origin", "https://evil.example.com", "api.example.com", false},
		{"scheme mismatch", "http://app.example.com", "api.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := policy.CheckOrigin(r); got != tt.want {
				t.Errorf("CheckOrigin(origin=%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestOriginPolicyCheckOriginAllowAll(t *testing.T) {
	policy := NewOriginPolicy("*")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "api.example.com"
	r.Header.Set("Origin", "https://anything.example.net")

	if !policy.CheckOrigin(r) {
		t.Error("wildcard policy rejected an origin")
	}
}

func corsHandler(policy *OriginPolicy, called *bool) http.Handler {
	return policy.CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func TestOriginPolicyCORSAllowedOrigin(t *testing.T) {
	var called bool
	h := corsHandler(NewOriginPolicy("https://app.example.com"), &called)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if !called {
		t.Fatal("inner handler not called for actual request")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q, want the request origin", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}
}

func TestOriginPolicyCORSPreflight(t *testing.T) {
	var called bool
	h := corsHandler(NewOriginPolicy("https://app.example.com"), &called)

	r := httptest.NewRequest(http.MethodOptions, "/", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if called {
		t.Error("preflight must not reach the inner handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q, want the request origin", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != http.MethodPost {
		t.Errorf("Allow-Methods = %q, want POST", got)
	}
}

func TestOriginPolicyCORSDisallowedOrigin(t *testing.T) {
	var called bool
	h := corsHandler(NewOriginPolicy("https://app.example.com"), &called)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if !called {
		t.Fatal("actual requests pass through even when the origin is unlisted")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

func TestOriginPolicyCORSAllowAll(t *testing.T) {
	var called bool
	h := corsHandler(NewOriginPolicy("*"), &called)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://anything.example.net")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials = %q, want unset with wildcard origin", got)
	}
}

func TestOriginPolicyCORSSameOriginOnly(t *testing.T) {
	var called bool
	h := corsHandler(NewOriginPolicy(), &called)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if !called {
		t.Fatal("no-op middleware must call the inner handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty for same-origin-only policy", got)
	}
}
