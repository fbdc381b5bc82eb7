package templates

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/weblisk-dev/weblisk/internal/errors"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"minimal", false},
		{"chat", false},
		{"nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Get(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				var werr *errors.WebliskError
				if !stderrors.As(err, &werr) {
					t.Fatalf("error %v (%T) is not a WebliskError", err, err)
				}
				if werr.Code != "E502" {
					t.Errorf("Code = %q, want E502", werr.Code)
				}
				if !strings.Contains(werr.Suggestion, "minimal") {
					t.Errorf("Suggestion %q should list available templates", werr.Suggestion)
				}
			} else {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if tmpl.Name != tt.name {
					t.Errorf("Name = %q, want %q", tmpl.Name, tt.name)
				}
				if len(tmpl.Files) == 0 {
					t.Error("Template has no files")
				}
			}
		})
	}
}

func TestList(t *testing.T) {
	got := List()
	want := []string{"chat", "minimal"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestTemplateCreateMinimal(t *testing.T) {
	tmpDir := t.TempDir()

	tmpl, err := Get("minimal")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	cfg := Config{
		ProjectName: "visits",
		ModulePath:  "example.com/visits",
		Description: "Counts visits",
	}

	if err := tmpl.Create(tmpDir, cfg); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	expectedFiles := []string{
		"main.go",
		"go.mod",
		"weblisk.json",
		"static/app.css",
		".gitignore",
	}
	for _, file := range expectedFiles {
		if _, err := os.Stat(filepath.Join(tmpDir, file)); os.IsNotExist(err) {
			t.Errorf("File %q not created", file)
		}
	}

	mainGo, _ := os.ReadFile(filepath.Join(tmpDir, "main.go"))
	mainStr := string(mainGo)
	if !strings.Contains(mainStr, "visits") {
		t.Error("Project name not substituted in main.go")
	}
	if !strings.Contains(mainStr, "Counts visits") {
		t.Error("Description not substituted in main.go")
	}
	if !strings.Contains(mainStr, "weblisk.send('visit', null, null,") {
		t.Error("main.go should invoke the client runtime's send")
	}
	if !strings.Contains(mainStr, `Styles("/static/app.css")`) {
		t.Error("main.go should link the scaffolded stylesheet")
	}
	if strings.Contains(mainStr, "{{.") {
		t.Error("Unrendered placeholder left in main.go")
	}

	goMod, _ := os.ReadFile(filepath.Join(tmpDir, "go.mod"))
	if !strings.Contains(string(goMod), "module example.com/visits") {
		t.Error("Module path not substituted in go.mod")
	}
}

func TestTemplateCreateChat(t *testing.T) {
	tmpDir := t.TempDir()

	tmpl, err := Get("chat")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	cfg := Config{
		ProjectName: "lobby",
		ModulePath:  "example.com/lobby",
		Description: "A chat room",
	}

	if err := tmpl.Create(tmpDir, cfg); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	mainGo, _ := os.ReadFile(filepath.Join(tmpDir, "main.go"))
	mainStr := string(mainGo)
	if !strings.Contains(mainStr, `NewComponent("composer"`) {
		t.Error("Composer component not in main.go")
	}
	if !strings.Contains(mainStr, "BroadcastAll") {
		t.Error("Broadcast wiring not in main.go")
	}
	if !strings.Contains(mainStr, `Uses("composer")`) {
		t.Error("Route should embed the composer component")
	}

	cfgJSON, _ := os.ReadFile(filepath.Join(tmpDir, "weblisk.json"))
	if !strings.Contains(string(cfgJSON), `"lobby"`) {
		t.Error("Project name not in weblisk.json")
	}

	// Nested paths must create their parent directories.
	if _, err := os.Stat(filepath.Join(tmpDir, "static", "app.css")); err != nil {
		t.Errorf("static/app.css: %v", err)
	}
}
