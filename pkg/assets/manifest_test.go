package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManifestResolve(t *testing.T) {
	m := NewManifest()
	m.Set("app.css", "app.a1b2c3d4.css")

	tests := []struct {
		source string
		want   string
	}{
		{"app.css", "app.a1b2c3d4.css"},
		{"missing.js", "missing.js"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := m.Resolve(tt.source); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestManifestHas(t *testing.T) {
	m := NewManifest()
	m.Set("app.css", "app.a1b2c3d4.css")

	if !m.Has("app.css") {
		t.Error("Has(app.css) = false, want true")
	}
	if m.Has("missing.js") {
		t.Error("Has(missing.js) = true, want false")
	}
}

func TestManifestLen(t *testing.T) {
	m := NewManifest()
	if m.Len() != 0 {
		t.Errorf("empty manifest Len() = %d, want 0", m.Len())
	}

	m.Set("a.css", "a.1111.css")
	m.Set("b.css", "b.2222.css")
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}

	m.Set("a.css", "a.3333.css")
	if m.Len() != 2 {
		t.Errorf("Len() after update = %d, want 2", m.Len())
	}
}

func TestManifestAll(t *testing.T) {
	m := NewManifest()
	m.Set("app.css", "app.a1b2c3d4.css")

	all := m.All()
	if all["app.css"] != "app.a1b2c3d4.css" {
		t.Errorf("All()[app.css] = %q, want app.a1b2c3d4.css", all["app.css"])
	}

	// Mutating the copy must not touch the manifest.
	all["app.css"] = "tampered"
	if m.Resolve("app.css") != "app.a1b2c3d4.css" {
		t.Error("All() returned a live reference, want a copy")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	content := `{"app.css": "app.a1b2c3d4.css", "logo.svg": "logo.e5f6a7b8.svg"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	if got := m.Resolve("app.css"); got != "app.a1b2c3d4.css" {
		t.Errorf("Resolve(app.css) = %q, want app.a1b2c3d4.css", got)
	}
	if got := m.Resolve("logo.svg"); got != "logo.e5f6a7b8.svg" {
		t.Errorf("Resolve(logo.svg) = %q, want logo.e5f6a7b8.svg", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Load() on missing file: error = nil, want error")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() on invalid JSON: error = nil, want error")
	}
}

func TestResolverWithPrefix(t *testing.T) {
	m := NewManifest()
	m.Set("app.css", "app.a1b2c3d4.css")

	r := NewResolver(m, "/static/")

	if got := r.Asset("app.css"); got != "/static/app.a1b2c3d4.css" {
		t.Errorf("Asset(app.css) = %q, want /static/app.a1b2c3d4.css", got)
	}
	if got := r.Asset("missing.js"); got != "/static/missing.js" {
		t.Errorf("Asset(missing.js) = %q, want /static/missing.js", got)
	}
}

func TestResolverWithoutPrefix(t *testing.T) {
	m := NewManifest()
	m.Set("app.css", "app.a1b2c3d4.css")

	r := NewResolver(m, "")
	if got := r.Asset("app.css"); got != "app.a1b2c3d4.css" {
		t.Errorf("Asset(app.css) = %q, want app.a1b2c3d4.css", got)
	}
}

func TestPassthroughResolver(t *testing.T) {
	r := NewPassthroughResolver("/static/")
	if got := r.Asset("app.css"); got != "/static/app.css" {
		t.Errorf("Asset(app.css) = %q, want /static/app.css", got)
	}
}

func TestPassthroughResolverWithoutPrefix(t *testing.T) {
	r := NewPassthroughResolver("")
	if got := r.Asset("app.css"); got != "app.css" {
		t.Errorf("Asset(app.css) = %q, want app.css", got)
	}
}
