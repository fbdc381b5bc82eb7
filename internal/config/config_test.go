package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/weblisk-dev/weblisk/internal/errors"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var werr *errors.WebliskError
	if !stderrors.As(err, &werr) {
		t.Fatalf("error %v (%T) is not a WebliskError", err, err)
	}
	return werr.Code
}

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Server.Host != DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %q, want %q", cfg.Server.Endpoint, DefaultEndpoint)
	}
	if cfg.Session.CookieMaxAge != "168h" {
		t.Errorf("CookieMaxAge = %q, want 168h", cfg.Session.CookieMaxAge)
	}
	if cfg.Session.SameSite != "lax" {
		t.Errorf("SameSite = %q, want lax", cfg.Session.SameSite)
	}
	if cfg.Client.MaxReconnectAttempts != 0 {
		t.Errorf("MaxReconnectAttempts = %d, want 0 (retry forever)", cfg.Client.MaxReconnectAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFilePartialConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
  "name": "demo",
  "server": {"port": 9090},
  "log": {"level": "debug"}
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	if cfg.Name != "demo" {
		t.Errorf("Name = %q, want demo", cfg.Name)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	// Unset fields fall back to defaults.
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Server.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %q, want %q", cfg.Server.Endpoint, DefaultEndpoint)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want text", cfg.Log.Format)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
	if cfg.Dir() != filepath.Dir(path) {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), filepath.Dir(path))
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), ConfigFileName))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if code := errorCode(t, err); code != "E100" {
		t.Errorf("code = %s, want E100", code)
	}
}

func TestLoadFileInvalidJSON(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{"name": "demo",`)

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if code := errorCode(t, err); code != "E102" {
		t.Errorf("code = %s, want E102", code)
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"name": "dirload"}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Name != "dirload" {
		t.Errorf("Name = %q, want dirload", cfg.Name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	cfg := New()
	cfg.Name = "saved"
	cfg.Server.Port = 4242
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("saved config missing trailing newline")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if loaded.Name != "saved" || loaded.Server.Port != 4242 {
		t.Errorf("round trip lost fields: name=%q port=%d", loaded.Name, loaded.Server.Port)
	}

	// Save without a prior path fails.
	if err := New().Save(); err == nil {
		t.Error("Save() without path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{
			name:     "port zero",
			mutate:   func(c *Config) { c.Server.Port = 0 },
			wantCode: "E103",
		},
		{
			name:     "port too large",
			mutate:   func(c *Config) { c.Server.Port = 70000 },
			wantCode: "E103",
		},
		{
			name:     "relative endpoint",
			mutate:   func(c *Config) { c.Server.Endpoint = "ws" },
			wantCode: "E108",
		},
		{
			name:     "empty endpoint",
			mutate:   func(c *Config) { c.Server.Endpoint = "" },
			wantCode: "E108",
		},
		{
			name:     "bad cookie age",
			mutate:   func(c *Config) { c.Session.CookieMaxAge = "banana" },
			wantCode: "E104",
		},
		{
			name:     "negative cookie age",
			mutate:   func(c *Config) { c.Session.CookieMaxAge = "-1h" },
			wantCode: "E104",
		},
		{
			name:     "bad same site",
			mutate:   func(c *Config) { c.Session.SameSite = "weird" },
			wantCode: "E105",
		},
		{
			name: "rate limit enabled without rate",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.Rate = 0
			},
			wantCode: "E106",
		},
		{
			name:     "bad reconnect interval",
			mutate:   func(c *Config) { c.Client.ReconnectInterval = "0s" },
			wantCode: "E107",
		},
		{
			name:     "negative reconnect attempts",
			mutate:   func(c *Config) { c.Client.MaxReconnectAttempts = -1 },
			wantCode: "E107",
		},
		{
			name:     "bad trusted proxy",
			mutate:   func(c *Config) { c.Server.TrustedProxies = []string{"not-an-ip"} },
			wantCode: "E109",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if code := errorCode(t, err); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestValidateTrustedProxies(t *testing.T) {
	cfg := New()
	cfg.Server.TrustedProxies = []string{"192.0.2.1", "10.0.0.0/8", "2001:db8::1"}

	if err := cfg.Validate(); err != nil {
		t.Errorf("valid proxies rejected: %v", err)
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := New()

	if got := cfg.CookieMaxAge(); got != 168*time.Hour {
		t.Errorf("CookieMaxAge() = %v, want 168h", got)
	}
	if got := cfg.HandlerTimeout(); got != 5*time.Second {
		t.Errorf("HandlerTimeout() = %v, want 5s", got)
	}
	if got := cfg.ReconnectInterval(); got != 3*time.Second {
		t.Errorf("ReconnectInterval() = %v, want 3s", got)
	}

	cfg.Session.CookieMaxAge = "24h"
	if got := cfg.CookieMaxAge(); got != 24*time.Hour {
		t.Errorf("CookieMaxAge() = %v, want 24h", got)
	}

	// Accessors never fail; junk falls back to the default.
	cfg.Session.CookieMaxAge = "junk"
	if got := cfg.CookieMaxAge(); got != 168*time.Hour {
		t.Errorf("CookieMaxAge() with junk = %v, want 168h", got)
	}
}

func TestAddress(t *testing.T) {
	cfg := New()
	if got := cfg.Address(); got != "localhost:8080" {
		t.Errorf("Address() = %q, want localhost:8080", got)
	}

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 3000
	if got := cfg.Address(); got != "0.0.0.0:3000" {
		t.Errorf("Address() = %q, want 0.0.0.0:3000", got)
	}
	if got := cfg.URL(); got != "http://0.0.0.0:3000" {
		t.Errorf("URL() = %q, want http://0.0.0.0:3000", got)
	}
}

func TestStaticPath(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"static": {"dir": "assets"}}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.StaticPath(), filepath.Join(dir, "assets"); got != want {
		t.Errorf("StaticPath() = %q, want %q", got, want)
	}

	cfg.Static.Dir = "/var/www/static"
	if got := cfg.StaticPath(); got != "/var/www/static" {
		t.Errorf("StaticPath() absolute = %q, want /var/www/static", got)
	}
}

func TestManifestPath(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"static": {"manifest": "public/manifest.json"}}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.ManifestPath(), filepath.Join(dir, "public", "manifest.json"); got != want {
		t.Errorf("ManifestPath() = %q, want %q", got, want)
	}

	cfg.Static.Manifest = "/srv/manifest.json"
	if got := cfg.ManifestPath(); got != "/srv/manifest.json" {
		t.Errorf("ManifestPath() absolute = %q, want /srv/manifest.json", got)
	}

	cfg.Static.Manifest = ""
	if got := cfg.ManifestPath(); got != "" {
		t.Errorf("ManifestPath() unset = %q, want empty", got)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `{"name": "rooted"}`)

	nested := filepath.Join(root, "internal", "deep")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	found, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot() error: %v", err)
	}
	// TempDir may sit behind a symlink, so compare resolved paths.
	wantResolved, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(found)
	if gotResolved != wantResolved {
		t.Errorf("FindProjectRoot() = %q, want %q", found, root)
	}

	if !Exists(root) {
		t.Error("Exists() = false for directory with weblisk.json")
	}

	empty := t.TempDir()
	if Exists(empty) {
		t.Error("Exists() = true for empty directory")
	}
	if _, err := FindProjectRoot(empty); err == nil {
		t.Error("FindProjectRoot() in empty tree should fail")
	} else if code := errorCode(t, err); code != "E100" {
		t.Errorf("code = %s, want E100", code)
	}
}
