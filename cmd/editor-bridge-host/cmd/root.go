// Package cmd provides the CLI commands for editor-bridge-host.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "editor-bridge-host",
	Short: "Editor-side bridge: length-framed JSON-RPC over a loopback TCP listener",
	Long: `editor-bridge-host hosts the editor side of the MCP bridge: a loopback
TCP listener that accepts the front-end's JSON-RPC connections, survives
the host editor's domain-reload cycle by persisting a small session
record, and recovers its port automatically afterward.

Configuration is loaded from mcp-bridge.yaml in the current directory,
$HOME/.mcp-bridge/, or /etc/mcp-bridge/, with MCP_BRIDGE_-prefixed
environment variable overrides.

Commands:
  start    Bind the bridge listener and run until interrupted
  version  Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./mcp-bridge.yaml)")
}
