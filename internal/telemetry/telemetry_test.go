package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestNew_Disabled_ReturnsUsableNoopProvider(t *testing.T) {
	t.Parallel()

	p, err := New(Options{ServiceName: "editor-bridge-host", Enabled: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Tracer == nil || p.Meter == nil {
		t.Fatal("expected non-nil no-op tracer and meter")
	}

	ctx, span := p.StartBridgeRequest(context.Background(), "tools/call", "127.0.0.1:1234")
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	EndWithError(span, nil)

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown on disabled provider: %v", err)
	}
}

func TestNew_Enabled_BuildsRealProviderAndShutsDownCleanly(t *testing.T) {
	t.Parallel()

	p, err := New(Options{ServiceName: "mcp-frontend", Enabled: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, span := p.StartLifecycleTransition(context.Background(), "starting", "running")
	EndWithError(span, errors.New("boom"))

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
