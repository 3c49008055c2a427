package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔╦╗╔═╗╔╦╗╦ ╦╔═╗╦═╗
   ║ ║╣  ║ ╠═╣║╣ ╠╦╝
   ╩ ╚═╝ ╩ ╩ ╩╚═╝╩╚═
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "tether",
		Short: "Scope-bound bindings for asynchronous value streams",
		Long: `Tether ties asynchronous value streams to the lifetime of a scope.

A binder holds at most one subscription to a stream, caches the latest
value for any number of readers, swaps sources with strict
unsubscribe-before-resubscribe ordering, and tears down exactly once
when its scope is disposed. Features include:

  • Single-subscription binding with value caching
  • Scope trees that dispose children before parents
  • Prometheus and OpenTelemetry lifecycle instrumentation
  • Ticker, channel, polling, websocket, and S3 sources
  • A demo server streaming one feed to many websocket clients`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(
		demoCmd(),
		benchCmd(),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the Tether ASCII art banner.
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
