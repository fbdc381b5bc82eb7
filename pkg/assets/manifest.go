// Package assets resolves fingerprinted static asset paths at runtime.
//
// Build pipelines that fingerprint assets write a manifest.json mapping
// source names to hashed names:
//
//	{
//	  "app.css": "app.a1b2c3d4.css",
//	  "logo.svg": "logo.e5f6a7b8.svg"
//	}
//
// Fingerprinted names are what make long-lived immutable caching safe: the
// static file server marks them cacheable for a year in production, so
// pages must reference the hashed name, never the source name. A Resolver
// does that lookup:
//
//	manifest, _ := assets.Load("static/manifest.json")
//	resolver := assets.NewResolver(manifest, "/static/")
//	resolver.Asset("app.css") // "/static/app.a1b2c3d4.css"
//
// Without a manifest, NewPassthroughResolver keeps the same call sites
// working against un-fingerprinted files.
package assets

import (
	"encoding/json"
	"os"
	"sync"
)

// Manifest maps source asset paths to fingerprinted paths. It is safe for
// concurrent use.
type Manifest struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
	}
}

// Load reads a manifest.json file. The file is a flat JSON object:
// {"app.css": "app.a1b2c3d4.css"}.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	return &Manifest{entries: entries}, nil
}

// Resolve returns the fingerprinted path for source, or source unchanged
// when the manifest has no entry for it.
func (m *Manifest) Resolve(source string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resolved, ok := m.entries[source]; ok {
		return resolved
	}
	return source
}

// Has reports whether the manifest contains source.
func (m *Manifest) Has(source string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[source]
	return ok
}

// Set adds or updates an entry.
func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[source] = resolved
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// All returns a copy of every entry.
func (m *Manifest) All() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		result[k] = v
	}
	return result
}
