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

func main() {
	rootCmd := &cobra.Command{
		Use:   "boardsyncd",
		Short: "Real-time whiteboard room synchronization server",
		Long: `boardsyncd keeps collaborative whiteboard rooms in sync.

Clients connect over WebSocket at /connect/{roomID}, receive a full
snapshot of the room, and exchange document diffs that the server
orders, applies, and fans out to every other participant.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
