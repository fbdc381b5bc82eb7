// Package render assembles complete HTML documents for server-rendered
// pages and injects the browser runtime bootstrap.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DefaultClientScript is the path the page references for the browser
// runtime. It matches the path served by the server package.
const DefaultClientScript = "/_weblisk/client.js"

// Page describes a complete HTML document. Body carries pre-rendered
// markup; everything else feeds the surrounding document shell.
type Page struct {
	// Body is the pre-rendered HTML for the page content.
	Body string

	// Title is the page title.
	Title string

	// Meta contains additional meta tags for the head.
	Meta []MetaTag

	// Links contains link tags (favicon, preload, etc.).
	Links []LinkTag

	// Scripts contains extra script tags to include.
	Scripts []ScriptTag

	// Styles contains inline CSS blocks.
	Styles []string

	// StyleSheets contains hrefs of external stylesheets.
	StyleSheets []string

	// Lang is the lang attribute for the html element.
	// Defaults to "en" if not specified.
	Lang string

	// Boot configures the browser runtime. When nil no bootstrap is
	// emitted and the client script tag is skipped.
	Boot *BootConfig

	// ClientScript overrides the path of the runtime script tag.
	// Defaults to DefaultClientScript.
	ClientScript string
}

// BootConfig is serialized into the page as window.__WEBLISK_CONFIG__
// and read by the browser runtime on startup.
type BootConfig struct {
	// Endpoint is the websocket path the runtime connects to.
	Endpoint string `json:"endpoint"`

	// ReconnectInterval is the fixed delay between reconnect attempts,
	// in milliseconds.
	ReconnectInterval int `json:"reconnectInterval"`

	// MaxReconnectAttempts caps reconnect attempts. Zero retries
	// forever.
	MaxReconnectAttempts int `json:"maxReconnectAttempts"`

	// Debug enables runtime console logging.
	Debug bool `json:"debug"`
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name      string // name attribute
	Content   string // content attribute
	Property  string // property attribute (for OpenGraph)
	HTTPEquiv string // http-equiv attribute
	Charset   string // charset attribute
}

// LinkTag represents a link element in the document head.
type LinkTag struct {
	Rel         string // rel attribute
	Href        string // href attribute
	Type        string // type attribute
	Sizes       string // sizes attribute
	CrossOrigin string // crossorigin attribute
	Media       string // media attribute
}

// ScriptTag represents a script element.
type ScriptTag struct {
	Src    string // src attribute
	Type   string // type attribute
	Defer  bool   // defer attribute
	Async  bool   // async attribute
	Module bool   // type="module"
	Inline string // inline script content
}

// WriteDocument streams the complete HTML document for page to w.
func WriteDocument(w io.Writer, page Page) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}

	if _, err := w.Write([]byte("<!DOCTYPE html>\n")); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, `<html lang="%s">`+"\n", EscapeAttr(lang)); err != nil {
		return err
	}

	if err := writeHead(w, page); err != nil {
		return err
	}

	if _, err := w.Write([]byte("<body>\n")); err != nil {
		return err
	}

	// Body is trusted pre-rendered markup and goes out verbatim.
	if page.Body != "" {
		if _, err := io.WriteString(w, page.Body); err != nil {
			return err
		}
		if !strings.HasSuffix(page.Body, "\n") {
			if _, err := w.Write([]byte("\n")); err != nil {
				return err
			}
		}
	}

	if err := writeBoot(w, page); err != nil {
		return err
	}

	if _, err := w.Write([]byte("</body>\n</html>\n")); err != nil {
		return err
	}

	return nil
}

// Document renders the complete HTML document for page as a string.
func Document(page Page) string {
	var buf strings.Builder
	// Builder writes cannot fail.
	_ = WriteDocument(&buf, page)
	return buf.String()
}

// writeHead renders the document head section.
func writeHead(w io.Writer, page Page) error {
	if _, err := w.Write([]byte("<head>\n")); err != nil {
		return err
	}

	if _, err := w.Write([]byte(`  <meta charset="utf-8">` + "\n")); err != nil {
		return err
	}

	if _, err := w.Write([]byte(`  <meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")); err != nil {
		return err
	}

	if page.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", EscapeHTML(page.Title)); err != nil {
			return err
		}
	}

	for _, meta := range page.Meta {
		if err := writeMetaTag(w, meta); err != nil {
			return err
		}
	}

	for _, link := range page.Links {
		if err := writeLinkTag(w, link); err != nil {
			return err
		}
	}

	for _, href := range page.StyleSheets {
		if _, err := fmt.Fprintf(w, `  <link rel="stylesheet" href="%s">`+"\n", EscapeAttr(href)); err != nil {
			return err
		}
	}

	for _, style := range page.Styles {
		if _, err := fmt.Fprintf(w, "  <style>%s</style>\n", style); err != nil {
			return err
		}
	}

	// Scripts marked defer or async load from the head.
	for _, script := range page.Scripts {
		if script.Defer || script.Async {
			if err := writeScriptTag(w, script); err != nil {
				return err
			}
		}
	}

	if _, err := w.Write([]byte("</head>\n")); err != nil {
		return err
	}

	return nil
}

// writeBoot emits the runtime bootstrap: the config global followed by
// the client script tag, plus any non-deferred extra scripts.
func writeBoot(w io.Writer, page Page) error {
	for _, script := range page.Scripts {
		if !script.Defer && !script.Async {
			if err := writeScriptTag(w, script); err != nil {
				return err
			}
		}
	}

	if page.Boot == nil {
		return nil
	}

	// json.Marshal escapes <, > and & so the payload cannot terminate
	// the surrounding script element.
	cfg, err := json.Marshal(page.Boot)
	if err != nil {
		return fmt.Errorf("render: marshal boot config: %w", err)
	}

	if _, err := fmt.Fprintf(w, "  <script>window.__WEBLISK_CONFIG__ = %s;</script>\n", cfg); err != nil {
		return err
	}

	src := page.ClientScript
	if src == "" {
		src = DefaultClientScript
	}

	if _, err := fmt.Fprintf(w, `  <script src="%s" data-auto defer></script>`+"\n", EscapeAttr(src)); err != nil {
		return err
	}

	return nil
}

// writeMetaTag renders a meta element.
func writeMetaTag(w io.Writer, meta MetaTag) error {
	if _, err := w.Write([]byte("  <meta")); err != nil {
		return err
	}

	if meta.Charset != "" {
		if _, err := fmt.Fprintf(w, ` charset="%s"`, EscapeAttr(meta.Charset)); err != nil {
			return err
		}
	}

	if meta.Name != "" {
		if _, err := fmt.Fprintf(w, ` name="%s"`, EscapeAttr(meta.Name)); err != nil {
			return err
		}
	}

	if meta.Property != "" {
		if _, err := fmt.Fprintf(w, ` property="%s"`, EscapeAttr(meta.Property)); err != nil {
			return err
		}
	}

	if meta.HTTPEquiv != "" {
		if _, err := fmt.Fprintf(w, ` http-equiv="%s"`, EscapeAttr(meta.HTTPEquiv)); err != nil {
			return err
		}
	}

	if meta.Content != "" {
		if _, err := fmt.Fprintf(w, ` content="%s"`, EscapeAttr(meta.Content)); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte(">\n")); err != nil {
		return err
	}

	return nil
}

// writeLinkTag renders a link element.
func writeLinkTag(w io.Writer, link LinkTag) error {
	if _, err := w.Write([]byte("  <link")); err != nil {
		return err
	}

	if link.Rel != "" {
		if _, err := fmt.Fprintf(w, ` rel="%s"`, EscapeAttr(link.Rel)); err != nil {
			return err
		}
	}

	if link.Href != "" {
		if _, err := fmt.Fprintf(w, ` href="%s"`, EscapeAttr(link.Href)); err != nil {
			return err
		}
	}

	if link.Type != "" {
		if _, err := fmt.Fprintf(w, ` type="%s"`, EscapeAttr(link.Type)); err != nil {
			return err
		}
	}

	if link.Sizes != "" {
		if _, err := fmt.Fprintf(w, ` sizes="%s"`, EscapeAttr(link.Sizes)); err != nil {
			return err
		}
	}

	if link.CrossOrigin != "" {
		if _, err := fmt.Fprintf(w, ` crossorigin="%s"`, EscapeAttr(link.CrossOrigin)); err != nil {
			return err
		}
	}

	if link.Media != "" {
		if _, err := fmt.Fprintf(w, ` media="%s"`, EscapeAttr(link.Media)); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte(">\n")); err != nil {
		return err
	}

	return nil
}

// writeScriptTag renders a script element.
func writeScriptTag(w io.Writer, script ScriptTag) error {
	if _, err := w.Write([]byte("  <script")); err != nil {
		return err
	}

	if script.Src != "" {
		if _, err := fmt.Fprintf(w, ` src="%s"`, EscapeAttr(script.Src)); err != nil {
			return err
		}
	}

	if script.Module {
		if _, err := w.Write([]byte(` type="module"`)); err != nil {
			return err
		}
	} else if script.Type != "" {
		if _, err := fmt.Fprintf(w, ` type="%s"`, EscapeAttr(script.Type)); err != nil {
			return err
		}
	}

	if script.Defer {
		if _, err := w.Write([]byte(" defer")); err != nil {
			return err
		}
	}

	if script.Async {
		if _, err := w.Write([]byte(" async")); err != nil {
			return err
		}
	}

	if script.Inline != "" {
		if _, err := fmt.Fprintf(w, ">%s</script>\n", script.Inline); err != nil {
			return err
		}
		return nil
	}

	if _, err := w.Write([]byte("></script>\n")); err != nil {
		return err
	}

	return nil
}
