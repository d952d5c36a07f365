package cmd

// catalog.go is a stand-in request processor for editor-bridge-host. The
// tool catalog itself is a host-editor responsibility outside this
// module's scope; this implementation exists only so the binary is
// runnable end to end during development, answering the one method a
// freshly connected front end needs before it can do anything else.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/editorbridge/mcp-bridge/internal/bridge"
)

// toolDetails is the minimal shape returned for get-tool-details: enough
// for the front end to expose a single placeholder tool without this
// binary pretending to host a real catalog.
type toolDetails struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// demoProcessor implements bridge.RequestProcessor against a single
// fixed tool, and logs client-identity notifications rather than acting
// on them.
type demoProcessor struct {
	logger *slog.Logger
	server *bridge.Server
}

func newDemoProcessor(logger *slog.Logger) *demoProcessor {
	return &demoProcessor{logger: logger}
}

// bindServer lets start wire the processor to the server it backs, after
// construction order forces a Processor to exist before the Server that
// holds it.
func (p *demoProcessor) bindServer(s *bridge.Server) {
	p.server = s
}

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type clientIdentityParams struct {
	Name string `json:"name"`
}

// Process implements bridge.RequestProcessor.
func (p *demoProcessor) Process(ctx context.Context, endpoint string, requestJSON []byte) ([]byte, error) {
	var req jsonrpcRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return nil, fmt.Errorf("demo processor: decode request: %w", err)
	}

	switch req.Method {
	case "get-tool-details":
		return p.respondToolDetails(req)
	case "client/identify":
		p.handleIdentify(endpoint, req.Params)
		return nil, nil
	default:
		p.logger.Debug("demo processor: unhandled method", "method", req.Method, "endpoint", endpoint)
		if len(req.ID) == 0 {
			return nil, nil
		}
		return encodeResponse(jsonrpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &jsonrpcError{Code: -32601, Message: "method not found: " + req.Method},
		})
	}
}

func (p *demoProcessor) respondToolDetails(req jsonrpcRequest) ([]byte, error) {
	details := []toolDetails{
		{
			Name:        "editor.ping",
			Description: "Round-trips a request through the editor bridge to confirm connectivity.",
		},
	}
	result, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("demo processor: marshal tool details: %w", err)
	}
	return encodeResponse(jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (p *demoProcessor) handleIdentify(endpoint string, params json.RawMessage) {
	var identity clientIdentityParams
	if err := json.Unmarshal(params, &identity); err != nil {
		p.logger.Warn("demo processor: malformed client/identify params", "endpoint", endpoint, "error", err)
		return
	}
	if p.server != nil && identity.Name != "" {
		p.server.UpdateClientName(endpoint, identity.Name)
	}
}

func encodeResponse(resp jsonrpcResponse) ([]byte, error) {
	out, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("demo processor: marshal response: %w", err)
	}
	return out, nil
}
