package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/weblisk-dev/weblisk"
	"github.com/weblisk-dev/weblisk/internal/config"
	"github.com/weblisk-dev/weblisk/internal/errors"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
		port       int
		host       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the project in this directory",
		Long: `Serve the weblisk project in the current directory.

The command walks up from the working directory to the nearest
weblisk.json, serves the project's static files, and mounts a status
page at / with a live connection back to the server.

Examples:
  weblisk serve
  weblisk serve --port=3000
  weblisk serve --config=../weblisk.json --env-file=.env.local`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, envFile, port, host)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to weblisk.json (default: nearest parent)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Dotenv file to load before reading config")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from weblisk.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from weblisk.json)")

	return cmd
}

func runServe(configPath, envFile string, port int, host string) error {
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
	}

	if configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		root, err := config.FindProjectRoot(wd)
		if err != nil {
			return errors.New("E501").
				WithDetail("No weblisk.json found in " + wd + " or any parent directory")
		}
		configPath = filepath.Join(root, config.ConfigFileName)
	}

	fc, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	name := fc.Name
	if name == "" {
		name = filepath.Base(fc.Dir())
	}

	cfg, err := weblisk.ConfigFromFile(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	app := weblisk.New(cfg)

	start := time.Now()
	status := weblisk.NewRoute("/", name, renderStatus(name, cfg)).
		On("ping", func(ctx context.Context, payload any, conn *weblisk.Connection) (any, error) {
			stats := app.Server().Stats()
			return map[string]any{
				"serverTime":  time.Now().UTC().Format(time.RFC3339),
				"uptime":      time.Since(start).Round(time.Second).String(),
				"connections": stats.CurrentlyActive,
				"sessions":    len(stats.BySession),
			}, nil
		})
	if err := app.Route(status); err != nil {
		return err
	}

	printBanner()
	fmt.Printf("  %s\n", name)
	fmt.Println()
	info("Config: %s", configPath)
	if cfg.Static.Dir != "" {
		info("Static: %s at %s", cfg.Static.Dir, cfg.Static.Prefix)
	}
	success("Listening on http://%s", cfg.Address())
	info("Press Ctrl+C to stop")
	fmt.Println()

	return app.Run()
}

// renderStatus is the landing page mounted at /. It shows what the server
// is doing and round-trips a ping event over the socket.
func renderStatus(name string, cfg weblisk.Config) weblisk.RenderFunc {
	staticLine := "disabled"
	if cfg.Static.Dir != "" {
		staticLine = cfg.Static.Dir + " at " + cfg.Static.Prefix
	}

	return func(props map[string]any) string {
		return fmt.Sprintf(`
<main style="font-family: system-ui, sans-serif; max-width: 40rem; margin: 3rem auto; padding: 0 1rem">
  <h1>%s</h1>
  <p>This project is being served by <code>weblisk serve</code>.</p>
  <dl>
    <dt>WebSocket endpoint</dt><dd><code>%s</code></dd>
    <dt>Static files</dt><dd><code>%s</code></dd>
  </dl>
  <button data-weblisk-event="ping">Ping the server</button>
  <pre id="pong"></pre>
  <script>
    window.addEventListener('load', function () {
      weblisk.on('result', function (res) {
        if (res.event !== 'ping') return;
        document.getElementById('pong').textContent = JSON.stringify(res.result, null, 2);
      });
    });
  </script>
</main>`, name, cfg.Server.Endpoint, staticLine)
	}
}
