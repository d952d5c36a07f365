package frontend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/editorbridge/mcp-bridge/pkg/mcp"
)

// JSON-RPC error codes used when answering MCP clients directly.
const (
	errCodeInternal     int64 = -32603
	errCodeInvalidParam int64 = -32602
)

// unsupportedInitWait bounds how long an initialize call from a
// list-changed-unsupported client blocks on editor connection and the
// first tool fetch before giving up and returning an empty catalog.
const unsupportedInitWait = 10 * time.Second

// MCPServer is the FE's MCP-facing surface: it reads newline-delimited
// JSON-RPC requests from an MCP client transport (stdio, typically) and
// answers them either locally or by calling through to the editor over
// the bridge connection.
type MCPServer struct {
	logger *slog.Logger
	bridge *BridgeConn
	tools  *ToolManager
	gate   *InitGate

	out io.Writer
	mu  sync.Mutex // guards writes to out

	pendingMu sync.Mutex
	pending   map[string]context.CancelFunc
}

// NewMCPServer builds a server writing responses to out.
func NewMCPServer(logger *slog.Logger, bridge *BridgeConn, tools *ToolManager, out io.Writer) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPServer{
		logger:  logger,
		bridge:  bridge,
		tools:   tools,
		gate:    NewInitGate(unsupportedInitWait),
		out:     out,
		pending: make(map[string]context.CancelFunc),
	}
}

// Serve reads one JSON-RPC message per line from in until EOF or ctx is
// done, dispatching each to its handler.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := mcp.WrapMessage(append([]byte(nil), line...), mcp.ClientToServer)
		if err != nil {
			s.logger.Warn("frontend: malformed request from MCP client", "error", err)
			continue
		}
		s.handle(ctx, msg)
	}
	return scanner.Err()
}

func (s *MCPServer) handle(ctx context.Context, msg *mcp.Message) {
	method := msg.Method()
	id := msg.RawID()

	if method == "$/cancelRequest" || method == "notifications/cancelled" {
		s.handleCancel(msg)
		return
	}
	if id == nil {
		// Notification from the client with no id: nothing to answer.
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	s.trackPending(string(id), cancel)
	defer s.untrackPending(string(id))

	switch method {
	case "initialize":
		s.handleInitialize(reqCtx, msg)
	case "ping":
		s.writeResult(msg, map[string]any{})
	case "tools/list":
		s.handleToolsList(msg)
	case "tools/call":
		s.handleToolsCall(reqCtx, msg)
	case "resources/list":
		s.writeResult(msg, map[string]any{"resources": []any{}})
	case "prompts/list":
		s.writeResult(msg, map[string]any{"prompts": []any{}})
	default:
		s.writeError(msg, errCodeInvalidParam, fmt.Sprintf("unsupported method: %s", method))
	}
}

func (s *MCPServer) trackPending(id string, cancel context.CancelFunc) {
	if id == "" {
		return
	}
	s.pendingMu.Lock()
	s.pending[id] = cancel
	s.pendingMu.Unlock()
}

func (s *MCPServer) untrackPending(id string) {
	if id == "" {
		return
	}
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

// handleCancel implements $/cancelRequest: the identified in-flight
// request is dropped from the pending table. No cancellation is
// forwarded to the editor bridge — the bridge protocol has no
// cancellation method.
func (s *MCPServer) handleCancel(msg *mcp.Message) {
	params := msg.ParseParams()
	if params == nil {
		return
	}
	// Pending entries are keyed by the request's raw JSON id, so the
	// target id is re-encoded as JSON to match (quotes kept for strings).
	idRaw, err := json.Marshal(params["id"])
	if err != nil {
		return
	}
	targetID := string(idRaw)

	s.pendingMu.Lock()
	cancel, ok := s.pending[targetID]
	delete(s.pending, targetID)
	s.pendingMu.Unlock()

	if ok {
		cancel()
	}
}

type clientInfo struct {
	Name string `json:"name"`
}

type initializeParams struct {
	ClientInfo clientInfo `json:"clientInfo"`
}

func (s *MCPServer) handleInitialize(ctx context.Context, msg *mcp.Message) {
	var params initializeParams
	if raw := msg.Request().Params; raw != nil {
		_ = json.Unmarshal(raw, &params)
	}

	supported := supportsListChanged(params.ClientInfo.Name)

	if supported {
		s.writeResult(msg, baseInitializeResult())
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.tools.RefreshSafe(bg); err != nil {
				s.logger.Warn("frontend: background tool refresh after initialize failed", "error", err)
				return
			}
			s.emitToolsListChanged()
		}()
		return
	}

	lead, res := s.gate.BeginOrWait(ctx)
	if lead {
		waitCtx, cancel := context.WithTimeout(ctx, unsupportedInitWait)
		defer cancel()
		_ = s.tools.RefreshSafe(waitCtx)
		res = initResult{tools: s.tools.Snapshot()}
		s.gate.Complete(res)
	}

	result := baseInitializeResult()
	result["tools"] = toolsToWire(res.tools)
	s.writeResult(msg, result)
}

func baseInitializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": true},
		},
		"serverInfo": map[string]any{
			"name":    "mcp-bridge-frontend",
			"version": "1.0.0",
		},
	}
}

func toolsToWire(tools []Tool) []any {
	out := make([]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, t)
	}
	return out
}

func (s *MCPServer) handleToolsList(msg *mcp.Message) {
	s.writeResult(msg, map[string]any{"tools": toolsToWire(s.tools.Snapshot())})
}

func (s *MCPServer) handleToolsCall(ctx context.Context, msg *mcp.Message) {
	raw := msg.Request().Params
	result, err := s.bridge.Call(ctx, "tools/call", raw)
	if err != nil {
		s.writeError(msg, errCodeInternal, err.Error())
		return
	}
	s.writeRaw(msg, result)
}

// emitToolsListChanged pushes notifications/tools/list_changed to the
// MCP client. Frontend calls it when a refresh changes the tool hash;
// handleInitialize also calls it after every successful background
// refresh for a list-changed-capable client, changed or not.
func (s *MCPServer) emitToolsListChanged() {
	s.writeNotification("notifications/tools/list_changed", nil)
}

func (s *MCPServer) writeResult(msg *mcp.Message, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("frontend: marshal result", "error", err)
		return
	}
	s.writeRaw(msg, raw)
}

func (s *MCPServer) writeRaw(msg *mcp.Message, result json.RawMessage) {
	resp := jsonRPCResult{JSONRPC: "2.0", ID: msg.RawID(), Result: result}
	s.writeEnvelope(resp)
}

func (s *MCPServer) writeError(msg *mcp.Message, code int64, message string) {
	resp := jsonRPCError{
		JSONRPC: "2.0",
		ID:      msg.RawID(),
		Error:   jsonRPCErrorDetail{Code: code, Message: message},
	}
	s.writeEnvelope(resp)
}

func (s *MCPServer) writeNotification(method string, params json.RawMessage) {
	env := rpcEnvelope{JSONRPC: "2.0", Method: method, Params: params}
	s.writeEnvelope(env)
}

func (s *MCPServer) writeEnvelope(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("frontend: marshal response envelope", "error", err)
		return
	}
	raw = append(raw, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(raw); err != nil {
		s.logger.Warn("frontend: write to MCP client failed", "error", err)
	}
}

type jsonRPCError struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      json.RawMessage    `json:"id,omitempty"`
	Error   jsonRPCErrorDetail `json:"error"`
}

type jsonRPCErrorDetail struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

type jsonRPCResult struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result"`
}
