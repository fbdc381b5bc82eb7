package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CSS builds a stylesheet incrementally. Rules are emitted in the order
// they are added.
type CSS struct {
	buf strings.Builder
}

// Rule appends a rule for selector. Declarations are given as
// alternating property and value strings; a trailing property without a
// value is dropped.
func (c *CSS) Rule(selector string, decls ...string) *CSS {
	c.buf.WriteString(selector)
	c.buf.WriteString("{")
	for i := 0; i+1 < len(decls); i += 2 {
		if i > 0 {
			c.buf.WriteString(";")
		}
		c.buf.WriteString(decls[i])
		c.buf.WriteString(":")
		c.buf.WriteString(decls[i+1])
	}
	c.buf.WriteString("}")
	return c
}

// Raw appends css verbatim.
func (c *CSS) Raw(css string) *CSS {
	c.buf.WriteString(css)
	return c
}

// String returns the assembled stylesheet.
func (c *CSS) String() string {
	return c.buf.String()
}

// Script builds an inline script incrementally.
type Script struct {
	buf strings.Builder
}

// Global appends an assignment of v, serialized as JSON, to
// window.<name>. Values that cannot be serialized become null.
func (s *Script) Global(name string, v any) *Script {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("null")
	}
	fmt.Fprintf(&s.buf, "window.%s = %s;", name, data)
	return s
}

// Raw appends js verbatim.
func (s *Script) Raw(js string) *Script {
	s.buf.WriteString(js)
	return s
}

// String returns the assembled script body.
func (s *Script) String() string {
	return s.buf.String()
}

// Tag returns the assembled script wrapped in a script element,
// suitable for Page.Scripts.
func (s *Script) Tag() ScriptTag {
	return ScriptTag{Inline: s.buf.String()}
}
