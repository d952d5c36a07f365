package frontend

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/editorbridge/mcp-bridge/internal/bridge"
)

func TestParseToolDetails_AcceptsBareArrayAndWrappedShape(t *testing.T) {
	bare := json.RawMessage(`[{"name":"a"},{"name":"b"}]`)
	tools, err := parseToolDetails(bare)
	if err != nil {
		t.Fatalf("bare array: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("len(tools) = %d, want 2", len(tools))
	}

	wrapped := json.RawMessage(`{"tools":[{"name":"c"}]}`)
	tools, err = parseToolDetails(wrapped)
	if err != nil {
		t.Fatalf("wrapped shape: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "c" {
		t.Fatalf("tools = %+v, want single entry named c", tools)
	}
}

func TestParseToolDetails_RejectsUnrelatedShape(t *testing.T) {
	if _, err := parseToolDetails(json.RawMessage(`42`)); err == nil {
		t.Fatal("expected error for a bare number")
	}
}

func TestHashToolNames_OrderIndependent(t *testing.T) {
	a := hashToolNames([]Tool{{Name: "zeta"}, {Name: "alpha"}})
	b := hashToolNames([]Tool{{Name: "alpha"}, {Name: "zeta"}})
	if a != b {
		t.Errorf("hash depends on input order: %q != %q", a, b)
	}
}

func TestHashToolNames_DiffersOnContentChange(t *testing.T) {
	a := hashToolNames([]Tool{{Name: "alpha"}})
	b := hashToolNames([]Tool{{Name: "alpha"}, {Name: "beta"}})
	if a == b {
		t.Error("expected different hashes for different tool sets")
	}
}

// toolDetailsProcessor answers get-tool-details with a fixed payload and
// counts how many times it was actually invoked, to verify RefreshSafe
// coalesces concurrent callers into one bridge round trip.
type toolDetailsProcessor struct {
	calls int32
}

func (p *toolDetailsProcessor) Process(_ context.Context, _ string, requestJSON []byte) ([]byte, error) {
	atomic.AddInt32(&p.calls, 1)
	time.Sleep(30 * time.Millisecond)

	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	_ = json.Unmarshal(requestJSON, &req)

	result := json.RawMessage(`{"tools":[{"name":"alpha"},{"name":"beta"}]}`)
	resp := struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
	}{JSONRPC: "2.0", ID: req.ID, Result: result}
	return json.Marshal(resp)
}

func startBridgeWithProcessor(t *testing.T, proc bridge.RequestProcessor) (*bridge.Server, *BridgeConn) {
	t.Helper()
	srv := bridge.New(bridge.Options{Processor: proc})
	if err := srv.Start(0); err != nil {
		t.Fatalf("bridge Start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	conn := NewBridgeConn(nil, nil)
	addr := "127.0.0.1:" + strconv.Itoa(srv.Port())
	var dialErr error
	for i := 0; i < 50; i++ {
		if dialErr = conn.Dial(addr, time.Second); dialErr == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if dialErr != nil {
		t.Fatalf("dial bridge: %v", dialErr)
	}
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func TestToolManager_RefreshSafeCoalescesConcurrentCallers(t *testing.T) {
	proc := &toolDetailsProcessor{}
	_, conn := startBridgeWithProcessor(t, proc)

	var changed int32
	tm := NewToolManager(conn, false, func() { atomic.AddInt32(&changed, 1) })

	var wg sync.WaitGroup
	const callers = 8
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if err := tm.RefreshSafe(context.Background()); err != nil {
				t.Errorf("RefreshSafe: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&proc.calls); got != 1 {
		t.Errorf("bridge processor called %d times, want exactly 1 (coalesced)", got)
	}
	if got := atomic.LoadInt32(&changed); got != 1 {
		t.Errorf("onChanged called %d times, want exactly 1", got)
	}
	if got := tm.Snapshot(); len(got) != 2 {
		t.Errorf("snapshot len = %d, want 2", len(got))
	}
}

func TestToolManager_MarkDisconnectedClearsSnapshot(t *testing.T) {
	proc := &toolDetailsProcessor{}
	_, conn := startBridgeWithProcessor(t, proc)

	tm := NewToolManager(conn, false, nil)
	if err := tm.RefreshSafe(context.Background()); err != nil {
		t.Fatalf("RefreshSafe: %v", err)
	}
	if len(tm.Snapshot()) == 0 {
		t.Fatal("expected non-empty snapshot after refresh")
	}

	tm.MarkDisconnected()
	if got := tm.Snapshot(); len(got) != 0 {
		t.Errorf("snapshot after MarkDisconnected = %+v, want empty", got)
	}
}
