// Package sanitize cleans decoded JSON values before they reach event
// handlers.
//
// The sanitizer is pure: it never mutates its input, returning fresh maps
// and slices. Strings are stripped of control characters and truncated,
// nesting depth and collection sizes are bounded, and anything beyond the
// bounds is dropped rather than rejected, so handlers always receive a
// value.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

// Defaults sized for UI event payloads, not bulk uploads.
const (
	DefaultMaxStringLen = 64 * 1024
	DefaultMaxDepth     = 32
	DefaultMaxKeys      = 1024
	DefaultMaxElements  = 4096
)

// Config bounds the sanitizer.
type Config struct {
	// MaxStringLen truncates longer strings (in bytes, on a rune boundary).
	MaxStringLen int

	// MaxDepth caps object/array nesting. Values below deeper levels are
	// replaced with nil.
	MaxDepth int

	// MaxKeys caps entries kept per object.
	MaxKeys int

	// MaxElements caps elements kept per array.
	MaxElements int
}

// DefaultConfig returns the default sanitizer bounds.
func DefaultConfig() *Config {
	return &Config{
		MaxStringLen: DefaultMaxStringLen,
		MaxDepth:     DefaultMaxDepth,
		MaxKeys:      DefaultMaxKeys,
		MaxElements:  DefaultMaxElements,
	}
}

// Sanitizer applies Config bounds to decoded JSON values.
type Sanitizer struct {
	config *Config
}

// New creates a sanitizer, filling zero config fields with defaults.
func New(config *Config) *Sanitizer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxStringLen <= 0 {
		config.MaxStringLen = DefaultMaxStringLen
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	if config.MaxKeys <= 0 {
		config.MaxKeys = DefaultMaxKeys
	}
	if config.MaxElements <= 0 {
		config.MaxElements = DefaultMaxElements
	}
	return &Sanitizer{config: config}
}

// Sanitize returns a cleaned copy of v.
func (s *Sanitizer) Sanitize(v any) any {
	return s.walk(v, 0)
}

func (s *Sanitizer) walk(v any, depth int) any {
	if depth >= s.config.MaxDepth {
		return nil
	}

	switch val := v.(type) {
	case string:
		return s.cleanString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		kept := 0
		for k, item := range val {
			if kept >= s.config.MaxKeys {
				break
			}
			out[s.cleanString(k)] = s.walk(item, depth+1)
			kept++
		}
		return out
	case []any:
		n := len(val)
		if n > s.config.MaxElements {
			n = s.config.MaxElements
		}
		out := make([]any, 0, n)
		for _, item := range val[:n] {
			out = append(out, s.walk(item, depth+1))
		}
		return out
	default:
		// Numbers, bools, nil: nothing to clean.
		return v
	}
}

// cleanString strips control characters (keeping \n and \t) and truncates to
// the configured byte budget without splitting a rune.
func (s *Sanitizer) cleanString(in string) string {
	var b strings.Builder
	changed := false

	for _, r := range in {
		if isControl(r) {
			changed = true
			continue
		}
		if b.Len()+utf8.RuneLen(r) > s.config.MaxStringLen {
			changed = true
			break
		}
		b.WriteRune(r)
	}

	if !changed {
		return in
	}
	return b.String()
}

func isControl(r rune) bool {
	if r == '\n' || r == '\t' {
		return false
	}
	return r < 0x20 || r == 0x7f
}

// defaultSanitizer backs the package-level convenience function.
var defaultSanitizer = New(nil)

// Clean sanitizes v with the default bounds.
func Clean(v any) any {
	return defaultSanitizer.Sanitize(v)
}
