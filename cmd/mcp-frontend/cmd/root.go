// Package cmd provides the CLI commands for mcp-frontend.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mcp-frontend",
	Short: "MCP-facing front end for the editor bridge",
	Long: `mcp-frontend speaks MCP over stdio to an editor/agent client. It
discovers the editor bridge's loopback port from UNITY_TCP_PORT, dials
it, mirrors its tool catalog, and keeps the connection alive across the
editor's own reconnect and domain-reload cycles.

Configuration is loaded from mcp-bridge.yaml in the current directory,
$HOME/.mcp-bridge/, or /etc/mcp-bridge/, with MCP_BRIDGE_-prefixed
environment variable overrides.

Commands:
  start    Run the front end until stdin closes or a signal arrives
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
