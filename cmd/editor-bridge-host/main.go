// Command editor-bridge-host runs the editor-side half of the bridge: a
// loopback TCP listener speaking length-framed JSON-RPC, wrapped in a
// coalesced start/stop/reload lifecycle that survives the host editor's
// in-process domain reload.
//
// In a real editor integration this process's responsibilities would be
// embedded directly in the host (Unity, VS Code, …) and driven by its
// own domain-reload hooks; this binary stands in for that host so the
// bridge can be exercised and developed against standalone.
package main

import "github.com/editorbridge/mcp-bridge/cmd/editor-bridge-host/cmd"

func main() {
	cmd.Execute()
}
