package render

import (
	"fmt"
	"strings"
)

// HTML marks a string as pre-rendered markup. Interpolate inserts HTML
// values verbatim instead of escaping them.
type HTML string

// Interpolate replaces {{key}} placeholders in tmpl with the matching
// entry from values. Plain values are HTML-escaped before insertion;
// wrap trusted markup in HTML to pass it through unchanged. Placeholders
// without a matching key are left as written.
func Interpolate(tmpl string, values map[string]any) string {
	if len(values) == 0 || !strings.Contains(tmpl, "{{") {
		return tmpl
	}

	var buf strings.Builder
	buf.Grow(len(tmpl))

	rest := tmpl
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			buf.WriteString(rest)
			break
		}

		end := strings.Index(rest[open:], "}}")
		if end < 0 {
			buf.WriteString(rest)
			break
		}
		end += open

		key := strings.TrimSpace(rest[open+2 : end])
		value, ok := values[key]
		if !ok {
			// Unknown placeholder, emit it untouched so CSS blocks and
			// client-side template syntax survive.
			buf.WriteString(rest[:end+2])
			rest = rest[end+2:]
			continue
		}

		buf.WriteString(rest[:open])
		buf.WriteString(stringify(value))
		rest = rest[end+2:]
	}

	return buf.String()
}

// stringify converts an interpolated value to its output form.
func stringify(v any) string {
	switch t := v.(type) {
	case HTML:
		return string(t)
	case string:
		return EscapeHTML(t)
	case nil:
		return ""
	case fmt.Stringer:
		return EscapeHTML(t.String())
	default:
		return EscapeHTML(fmt.Sprint(t))
	}
}
