// Package bridgeclient is a small, dependency-free Go SDK for speaking
// the editor bridge's length-framed JSON-RPC protocol directly, without
// going through the standalone MCP front-end process.
//
// It is meant for two kinds of caller: a custom LLM-client integration
// written in Go that wants to dial an editor bridge instance the way the
// front end does, and an editor-side tool catalog implementation that
// wants a client-shaped test harness for its own bridge.Server without
// pulling in the whole mcp-bridge module (this package lives in its own
// go.mod specifically so it carries zero dependency on the parent
// module's internal packages).
//
// Quick start:
//
//	client := bridgeclient.NewClient("127.0.0.1:7777")
//	if err := client.Dial(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Call(ctx, "get-tool-details", nil)
package bridgeclient

import "time"

// defaultDialTimeout bounds how long Dial waits for the TCP handshake
// before giving up.
const defaultDialTimeout = 5 * time.Second

// defaultMaxMessage mirrors the bridge server's own frame-size ceiling;
// a response declaring a larger Content-Length is rejected before any
// body byte is read.
const defaultMaxMessage = 1 << 20 // 1 MiB
