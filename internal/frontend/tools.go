package frontend

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Tool mirrors one entry of the editor's tool catalog.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// toolDetailsResponse accepts either bare array or `{Tools: [...]}` shapes,
// since the editor-side responder is free to use either.
type toolDetailsResponse struct {
	Tools []Tool `json:"tools"`
}

func parseToolDetails(raw json.RawMessage) ([]Tool, error) {
	var wrapped toolDetailsResponse
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Tools != nil {
		return wrapped.Tools, nil
	}

	var bare []Tool
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}

	return nil, fmt.Errorf("frontend: get-tool-details response is neither an array nor {Tools: [...]}")
}

// ToolManager owns the FE's snapshot of the editor's tool catalog,
// refreshed over the bridge connection and hashed so callers can detect
// changes without diffing full payloads.
type ToolManager struct {
	bridge    *BridgeConn
	devTools  bool
	onChanged func()

	mu        sync.Mutex
	snapshot  []Tool
	hash      string
	connected bool

	refreshMu sync.Mutex
	inflight  chan struct{}
}

// NewToolManager builds a manager that requests the editor's catalog over
// conn. onChanged is invoked (outside any lock) whenever a refresh
// produces a different tool-name hash than the previous one.
func NewToolManager(conn *BridgeConn, includeDevTools bool, onChanged func()) *ToolManager {
	if onChanged == nil {
		onChanged = func() {}
	}
	return &ToolManager{bridge: conn, devTools: includeDevTools, onChanged: onChanged}
}

// Snapshot returns a copy of the current tool list. Returns an empty
// slice while disconnected.
func (m *ToolManager) Snapshot() []Tool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tool, len(m.snapshot))
	copy(out, m.snapshot)
	return out
}

// RefreshSafe requests a fresh catalog from the editor. Concurrent callers
// coalesce onto a single in-flight request.
func (m *ToolManager) RefreshSafe(ctx context.Context) error {
	m.refreshMu.Lock()
	if m.inflight != nil {
		waitCh := m.inflight
		m.refreshMu.Unlock()
		<-waitCh
		return nil
	}
	done := make(chan struct{})
	m.inflight = done
	m.refreshMu.Unlock()

	defer func() {
		m.refreshMu.Lock()
		m.inflight = nil
		m.refreshMu.Unlock()
		close(done)
	}()

	return m.refresh(ctx)
}

func (m *ToolManager) refresh(ctx context.Context) error {
	params, _ := json.Marshal(map[string]any{"includeDevOnly": m.devTools})
	raw, err := m.bridge.Call(ctx, "get-tool-details", params)
	if err != nil {
		return fmt.Errorf("frontend: refresh tool catalog: %w", err)
	}

	tools, err := parseToolDetails(raw)
	if err != nil {
		return err
	}

	newHash := hashToolNames(tools)

	m.mu.Lock()
	changed := newHash != m.hash
	m.snapshot = tools
	m.hash = newHash
	m.connected = true
	m.mu.Unlock()

	if changed {
		m.onChanged()
	}
	return nil
}

// MarkDisconnected clears the cached catalog; the FE must not report
// tools to clients until the editor reconnects and a refresh succeeds.
func (m *ToolManager) MarkDisconnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = nil
	m.hash = ""
	m.connected = false
}

func hashToolNames(tools []Tool) string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	sort.Strings(names)

	h := md5.New()
	for _, n := range names {
		h.Write([]byte(n))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
