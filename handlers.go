package weblisk

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/weblisk-dev/weblisk/pkg/render"
	"github.com/weblisk-dev/weblisk/pkg/router"
)

// serveFallback handles everything the fixed endpoints did not claim:
// static files when configured, then exact-path page routes.
func (a *App) serveFallback(w http.ResponseWriter, r *http.Request) {
	if a.staticFS != nil {
		if rel, ok := a.staticRelPath(r.URL.Path); ok && a.staticFileExists(rel) {
			a.serveStatic(w, r, rel)
			return
		}
	}
	a.servePage(w, r)
}

// servePage renders a registered route. The session cookie is resolved or
// issued before the body is written so the browser presents the same
// identity on the WebSocket handshake that follows.
func (a *App) servePage(w http.ResponseWriter, r *http.Request) {
	rt, ok := a.router.Lookup(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID, isNew := a.sessions.ResolveOrIssue(r)
	if isNew {
		a.sessions.SetCookie(w, r, sessionID)
	}

	html, err := a.renderRoute(rt, r)
	if err != nil {
		a.logger.Error("page render failed", "path", rt.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

// renderRoute assembles the full document for a route: per-request props,
// pre-rendered component fragments, the page body, and the boot config the
// client runtime reads on load.
func (a *App) renderRoute(rt *router.Route, r *http.Request) ([]byte, error) {
	props := map[string]any{}
	if rt.Data != nil {
		if p := rt.Data(r); p != nil {
			props = p
		}
	}
	props["assets"] = a.assets

	if len(rt.Components) > 0 {
		fragments := make(map[string]render.HTML, len(rt.Components))
		for _, name := range rt.Components {
			c, ok := a.components.Get(name)
			if !ok {
				a.logger.Warn("page references unregistered component",
					"path", rt.Path, "name", name)
				continue
			}
			fragments[name] = render.HTML(c.HTML(props))
		}
		props["components"] = fragments
	}

	var body string
	if rt.Render != nil {
		body = rt.Render(props)
	}

	var buf bytes.Buffer
	err := render.WriteDocument(&buf, render.Page{
		Title:       rt.Title,
		Body:        body,
		StyleSheets: rt.StyleSheets,
		Boot:        a.bootConfig(),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// bootConfig is what the rendered page hands to the browser runtime.
func (a *App) bootConfig() *render.BootConfig {
	return &render.BootConfig{
		Endpoint:             a.config.Server.Endpoint,
		ReconnectInterval:    int(a.config.Client.ReconnectInterval / time.Millisecond),
		MaxReconnectAttempts: a.config.Client.MaxReconnectAttempts,
		Debug:                a.config.Client.Debug,
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Connections int    `json:"connections"`
	Sessions    int    `json:"sessions"`
}

// handleHealth reports liveness and the current connection census.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := a.server.Stats()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:      "ok",
		Uptime:      time.Since(a.startedAt).Round(time.Second).String(),
		Connections: stats.CurrentlyActive,
		Sessions:    len(stats.BySession),
	})
}
