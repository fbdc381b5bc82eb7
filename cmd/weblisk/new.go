package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weblisk-dev/weblisk/internal/errors"
	"github.com/weblisk-dev/weblisk/internal/templates"
)

func newCmd() *cobra.Command {
	var (
		template    string
		description string
		skipPrompts bool
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new weblisk project",
		Long: `Create a new weblisk project with the specified name.

Templates:
  minimal   A single page with one server-side event (default)
  chat      A chat room using components and broadcast

Examples:
  weblisk new my-app
  weblisk new my-app --template=chat
  weblisk new my-app -d "Internal dashboard" -y`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(args[0], template, description, skipPrompts)
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "minimal", "Project template (minimal, chat)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	cmd.Flags().BoolVarP(&skipPrompts, "yes", "y", false, "Skip prompts and use defaults")

	return cmd
}

func runNew(name, templateName, description string, skipPrompts bool) error {
	printBanner()
	fmt.Println("  Creating a new weblisk project...")
	fmt.Println()

	if !isValidProjectName(name) {
		return errors.New("E503").
			WithDetail("'" + name + "' is not a valid project name").
			WithSuggestion("Use lowercase letters, numbers, and hyphens")
	}

	projectDir, err := filepath.Abs(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(projectDir); !os.IsNotExist(err) {
		return errors.New("E500").
			WithDetail("Directory '" + name + "' already exists").
			WithSuggestion("Choose a different name or remove the existing directory")
	}

	if !skipPrompts {
		description, err = promptForDescription(description)
		if err != nil {
			return err
		}
	}
	if description == "" {
		description = "A weblisk application"
	}

	tmpl, err := templates.Get(templateName)
	if err != nil {
		return err
	}

	info("Creating project directory...")
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return err
	}

	cfg := templates.Config{
		ProjectName: name,
		ModulePath:  name, // Simple module path for local projects
		Description: description,
	}

	info("Creating project from '%s' template...", templateName)
	if err := tmpl.Create(projectDir, cfg); err != nil {
		os.RemoveAll(projectDir)
		return err
	}

	info("Initializing Go module...")
	if err := initGoMod(projectDir, name); err != nil {
		return err
	}

	info("Installing dependencies...")
	if err := goModTidy(projectDir); err != nil {
		warn("Could not run 'go mod tidy': %v", err)
	}

	fmt.Println()
	success("Created %s/", name)
	fmt.Println()
	fmt.Println("  To get started:")
	fmt.Println()
	fmt.Printf("    cd %s\n", name)
	fmt.Println("    weblisk serve")
	fmt.Println()
	fmt.Println("  Your app will be running at http://localhost:8080")
	fmt.Println()

	return nil
}

func promptForDescription(description string) (string, error) {
	if description != "" {
		return description, nil
	}
	fmt.Printf("? Description: ")
	desc, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(desc), nil
}

func isValidProjectName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == ' ' || r == '/' || r == '\\' {
			return false
		}
		if i == 0 && r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}

// initGoMod runs go mod init unless the scaffold already wrote a go.mod
// with the right module line.
func initGoMod(dir, moduleName string) error {
	goModPath := filepath.Join(dir, "go.mod")
	content, err := os.ReadFile(goModPath)
	if err == nil && strings.Contains(string(content), "module "+moduleName) {
		return nil
	}

	os.Remove(goModPath)

	cmd := exec.Command("go", "mod", "init", moduleName)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func goModTidy(dir string) error {
	cmd := exec.Command("go", "mod", "tidy")
	cmd.Dir = dir
	return cmd.Run()
}
