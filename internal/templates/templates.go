// Package templates holds the project scaffolds behind "weblisk new".
//
// A template is a named map of relative paths to file contents. Contents are
// text/template sources rendered with the project's Config, so scaffolds can
// reference the project name and module path.
package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/weblisk-dev/weblisk/internal/errors"
)

// Config carries the values scaffold files interpolate.
type Config struct {
	// ProjectName is the project's directory name.
	ProjectName string

	// ModulePath is the Go module path written into go.mod.
	ModulePath string

	// Description is a short project description.
	Description string
}

// Template is one project scaffold.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files maps relative paths to template sources.
	Files map[string]string
}

var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"chat":    chatTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("E502").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: " + strings.Join(List(), ", "))
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create renders the template into dir. Parent directories are created as
// needed; existing files are overwritten.
func (t *Template) Create(dir string, cfg Config) error {
	for relPath, content := range t.Files {
		tmpl, err := template.New(relPath).Parse(content)
		if err != nil {
			return errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}

		fullPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			return err
		}
	}
	return nil
}

// minimalTemplate is one page with one event handler.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "A single page with one server-side event",
		Files: map[string]string{
			"go.mod": `module {{.ModulePath}}

go 1.23

require github.com/weblisk-dev/weblisk v0.3.0
`,
			"weblisk.json": `{
  "name": "{{.ProjectName}}",
  "server": {
    "host": "localhost",
    "port": 8080,
    "devMode": true
  },
  "static": {
    "dir": "static"
  }
}
`,
			"main.go": `package main

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/weblisk-dev/weblisk"
)

var visits atomic.Int64

func main() {
	cfg, err := weblisk.ConfigFromFile("weblisk.json")
	if err != nil {
		log.Fatal(err)
	}

	app := weblisk.New(cfg)

	app.MustRoute(weblisk.NewRoute("/", "{{.ProjectName}}", renderHome).
		Styles("/static/app.css").
		On("visit", func(ctx context.Context, payload any, conn *weblisk.Connection) (any, error) {
			return map[string]any{"count": visits.Add(1)}, nil
		}))

	log.Fatal(app.Run())
}

func renderHome(props map[string]any) string {
	return fmt.Sprintf(` + "`" + `
<main>
  <h1>%s</h1>
  <p>{{.Description}}</p>
  <button onclick="weblisk.send('visit', null, null, function (res) {
    document.getElementById('count').textContent = res.result.count;
  })">Count a visit</button>
  <p>Visits this run: <span id="count">0</span></p>
</main>` + "`" + `, "{{.ProjectName}}")
}
`,
			"static/app.css": `body {
  font-family: system-ui, sans-serif;
  max-width: 40rem;
  margin: 3rem auto;
  padding: 0 1rem;
}
`,
			".gitignore": `{{.ProjectName}}
*.log
.env
`,
		},
	}
}

// chatTemplate shows components, payloads and session broadcast.
func chatTemplate() *Template {
	return &Template{
		Name:        "chat",
		Description: "A chat room using components and broadcast",
		Files: map[string]string{
			"go.mod": `module {{.ModulePath}}

go 1.23

require github.com/weblisk-dev/weblisk v0.3.0
`,
			"weblisk.json": `{
  "name": "{{.ProjectName}}",
  "server": {
    "host": "localhost",
    "port": 8080,
    "devMode": true
  },
  "static": {
    "dir": "static"
  }
}
`,
			"main.go": `package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/weblisk-dev/weblisk"
)

func main() {
	cfg, err := weblisk.ConfigFromFile("weblisk.json")
	if err != nil {
		log.Fatal(err)
	}

	app := weblisk.New(cfg)

	app.MustComponent(weblisk.NewComponent("composer", renderComposer).
		On("send", func(ctx context.Context, payload any, conn *weblisk.Connection) (any, error) {
			body, _ := payload.(map[string]any)
			text, _ := body["text"].(string)
			text = strings.TrimSpace(text)
			if text == "" {
				return nil, fmt.Errorf("message is empty")
			}

			app.BroadcastAll(map[string]any{
				"type": "chat-message",
				"from": conn.SessionID[:8],
				"text": text,
			})
			return map[string]any{"delivered": true}, nil
		}))

	app.MustRoute(weblisk.NewRoute("/", "{{.ProjectName}}", renderRoom).
		Styles("/static/app.css").
		Uses("composer"))

	log.Fatal(app.Run())
}

func renderRoom(props map[string]any) string {
	frags, _ := props["components"].(map[string]weblisk.HTML)
	return fmt.Sprintf(` + "`" + `
<main>
  <h1>{{.ProjectName}}</h1>
  <ul id="messages"></ul>
  %s
  <script>
    window.addEventListener('load', function () {
      weblisk.on('message', function (msg) {
        if (msg.type !== 'chat-message') return;
        var li = document.createElement('li');
        li.textContent = msg.from + ': ' + msg.text;
        document.getElementById('messages').appendChild(li);
      });
    });
  </script>
</main>` + "`" + `, frags["composer"])
}

func renderComposer(props map[string]any) string {
	return ` + "`" + `
<form onsubmit="event.preventDefault();
    weblisk.send('send', {text: this.text.value}, 'composer');
    this.reset();">
  <input name="text" placeholder="Say something" autocomplete="off">
  <button>Send</button>
</form>` + "`" + `
}
`,
			"static/app.css": `body {
  font-family: system-ui, sans-serif;
  max-width: 40rem;
  margin: 3rem auto;
  padding: 0 1rem;
}

#messages {
  list-style: none;
  padding: 0;
  min-height: 12rem;
}
`,
			".gitignore": `{{.ProjectName}}
*.log
.env
`,
		},
	}
}
