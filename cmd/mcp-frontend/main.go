// Command mcp-frontend runs the MCP-facing front end: it speaks MCP over
// stdio to an editor/agent client, discovers and maintains a connection
// to the editor bridge, and keeps its tool catalog in sync with what the
// bridge reports.
package main

import "github.com/editorbridge/mcp-bridge/cmd/mcp-frontend/cmd"

func main() {
	cmd.Execute()
}
