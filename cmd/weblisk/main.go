package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weblisk-dev/weblisk/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬ ┬┌─┐┌┐ ┬  ┬┌─┐┬┌─
  │││├┤ ├┴┐│  │└─┐├┴┐
  └┴┘└─┘└─┘┴─┘┴└─┘┴ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "weblisk",
		Short: "Server-driven web apps in Go",
		Long: `Weblisk is a server-driven web framework for Go.

Pages render on the server; a small embedded JavaScript client opens a
WebSocket back to the app and invokes named event handlers. Features:

  • Server-rendered routes with server-side event tables
  • Named components embeddable into any route
  • One session cookie per browser, one connection per tab
  • Targeted, session-wide and filtered broadcast messaging
  • Embedded auto-connecting browser runtime`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// printBanner prints the weblisk ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
