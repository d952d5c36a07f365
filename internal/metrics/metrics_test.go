package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewBridge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBridge(reg)

	if m.ConnectionsActive == nil {
		t.Error("ConnectionsActive not initialized")
	}
	if m.FramesReceivedTotal == nil {
		t.Error("FramesReceivedTotal not initialized")
	}
	if m.FramingErrorsTotal == nil {
		t.Error("FramingErrorsTotal not initialized")
	}
}

func TestBridgeMetricsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBridge(reg)

	m.ConnectionsActive.Set(3)
	if got := testutil.ToFloat64(m.ConnectionsActive); got != 3 {
		t.Errorf("ConnectionsActive = %v, want 3", got)
	}

	m.FramesReceivedTotal.Add(2)
	if got := testutil.ToFloat64(m.FramesReceivedTotal); got != 2 {
		t.Errorf("FramesReceivedTotal = %v, want 2", got)
	}
}

func TestNewFrontend(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFrontend(reg)

	if m.EditorConnected == nil {
		t.Error("EditorConnected not initialized")
	}
	if m.ToolListChangedTotal == nil {
		t.Error("ToolListChangedTotal not initialized")
	}
}

func TestFrontendMetricsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFrontend(reg)

	m.EditorConnected.Set(1)
	if got := testutil.ToFloat64(m.EditorConnected); got != 1 {
		t.Errorf("EditorConnected = %v, want 1", got)
	}

	m.KeepaliveFailures.Inc()
	m.KeepaliveFailures.Inc()
	if got := testutil.ToFloat64(m.KeepaliveFailures); got != 2 {
		t.Errorf("KeepaliveFailures = %v, want 2", got)
	}
}
