// Package frontend implements the standalone front-end process: an MCP
// server exposed to LLM clients that bridges their requests to the
// editor over the length-framed TCP wire protocol.
package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/editorbridge/mcp-bridge/internal/wire"
)

// ErrNotConnected is returned by BridgeConn methods when no connection to
// the editor is currently established.
var ErrNotConnected = errors.New("frontend: not connected to editor bridge")

// ErrRequestTimeout is returned when a bridge-bound request does not
// receive a response before its context deadline.
var ErrRequestTimeout = errors.New("frontend: request to editor bridge timed out")

// NotifyHandler receives JSON-RPC notifications (no id) pushed by the
// editor, such as notifications/tools/list_changed.
type NotifyHandler func(method string, params json.RawMessage)

// BridgeConn is the FE's JSON-RPC client connection to the editor
// bridge's length-framed TCP endpoint. It owns one socket, dispatches
// responses to the matching pending request by id, and routes
// id-less notifications to a handler.
type BridgeConn struct {
	logger  *slog.Logger
	onNotif NotifyHandler

	mu      sync.Mutex
	conn    net.Conn
	closed  bool
	pending map[string]chan rpcResult

	// writeMu serializes conn.Write calls across Call and Notify so a
	// keepalive ping and a concurrent tool refresh can never interleave
	// their frames on the wire.
	writeMu sync.Mutex
	nextID  int64
}

type rpcResult struct {
	result json.RawMessage
	rpcErr *rpcError
}

type rpcError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message) }

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *string         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// NewBridgeConn constructs an unconnected client. A nil NotifyHandler
// discards incoming notifications.
func NewBridgeConn(logger *slog.Logger, onNotif NotifyHandler) *BridgeConn {
	if logger == nil {
		logger = slog.Default()
	}
	if onNotif == nil {
		onNotif = func(string, json.RawMessage) {}
	}
	return &BridgeConn{
		logger:  logger,
		onNotif: onNotif,
		pending: make(map[string]chan rpcResult),
	}
}

// Dial connects to the editor bridge at addr and starts the read loop.
// Dialing again after a prior Close is supported.
func (b *BridgeConn) Dial(addr string, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("frontend: dial editor bridge %s: %w", addr, err)
	}

	b.mu.Lock()
	b.conn = conn
	b.closed = false
	b.mu.Unlock()

	go b.readLoop(conn)
	return nil
}

// Connected reports whether a socket to the editor bridge is currently
// open.
func (b *BridgeConn) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && !b.closed
}

const readChunk = 64 * 1024

func (b *BridgeConn) readLoop(conn net.Conn) {
	pool := wire.NewPool()
	r := wire.NewReassembler(pool)
	defer r.Close()

	for {
		staging, offset, err := r.Staging(readChunk)
		if err != nil {
			b.logger.Warn("frontend: reassembler staging failed", "error", err)
			b.closeConn(conn)
			return
		}

		n, err := conn.Read(staging.Data[offset : offset+readChunk])
		if n > 0 {
			r.Append(n)
			frames, extractErr := r.Extract()
			for _, frame := range frames {
				b.dispatch(frame)
			}
			if extractErr != nil {
				b.logger.Warn("frontend: malformed frame from editor bridge", "error", extractErr)
				b.closeConn(conn)
				return
			}
		}
		if err != nil {
			b.closeConn(conn)
			return
		}
	}
}

func (b *BridgeConn) dispatch(frame []byte) {
	var env rpcEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		b.logger.Warn("frontend: malformed JSON from editor bridge", "error", err)
		return
	}
	if env.ID == nil {
		b.onNotif(env.Method, env.Params)
		return
	}

	b.mu.Lock()
	ch, ok := b.pending[*env.ID]
	if ok {
		delete(b.pending, *env.ID)
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	ch <- rpcResult{result: env.Result, rpcErr: env.Error}
}

func (b *BridgeConn) closeConn(conn net.Conn) {
	b.mu.Lock()
	if b.conn == conn {
		b.closed = true
	}
	pending := b.pending
	b.pending = make(map[string]chan rpcResult)
	b.mu.Unlock()

	conn.Close()
	for _, ch := range pending {
		close(ch)
	}
}

// Call sends a JSON-RPC request to the editor and blocks until a
// matching response arrives or ctx is done.
func (b *BridgeConn) Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	b.mu.Lock()
	conn := b.conn
	if conn == nil || b.closed {
		b.mu.Unlock()
		return nil, ErrNotConnected
	}
	id := fmt.Sprintf("fe-%d", atomic.AddInt64(&b.nextID, 1))
	ch := make(chan rpcResult, 1)
	b.pending[id] = ch
	b.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	raw, err := json.Marshal(req)
	if err != nil {
		b.removePending(id)
		return nil, fmt.Errorf("frontend: marshal request: %w", err)
	}

	b.writeMu.Lock()
	_, writeErr := conn.Write(wire.Encode(raw))
	b.writeMu.Unlock()
	if writeErr != nil {
		b.removePending(id)
		return nil, fmt.Errorf("frontend: write to editor bridge: %w", writeErr)
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		if res.rpcErr != nil {
			return nil, res.rpcErr
		}
		return res.result, nil
	case <-ctx.Done():
		b.removePending(id)
		return nil, ErrRequestTimeout
	}
}

// Notify sends a JSON-RPC notification (no id, no response expected) to
// the editor.
func (b *BridgeConn) Notify(method string, params json.RawMessage) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	raw, err := json.Marshal(rpcEnvelope{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("frontend: marshal notification: %w", err)
	}
	b.writeMu.Lock()
	_, writeErr := conn.Write(wire.Encode(raw))
	b.writeMu.Unlock()
	if writeErr != nil {
		return fmt.Errorf("frontend: write notification: %w", writeErr)
	}
	return nil
}

func (b *BridgeConn) removePending(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// Close tears down the active connection, if any.
func (b *BridgeConn) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	b.closeConn(conn)
	return nil
}
