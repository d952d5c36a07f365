// Package metrics holds the Prometheus metrics emitted by the bridge and
// front-end processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bridge holds the metrics recorded by the editor-side bridge server.
type Bridge struct {
	ConnectionsActive   prometheus.Gauge
	FramesReceivedTotal prometheus.Counter
	FramesSentTotal     prometheus.Counter
	BroadcastsTotal     prometheus.Counter
	FramingErrorsTotal  prometheus.Counter
	NormalDisconnects   prometheus.Counter
	AnomalousErrors     prometheus.Counter
}

// NewBridge creates and registers the bridge server's metrics with reg.
func NewBridge(reg prometheus.Registerer) *Bridge {
	return &Bridge{
		ConnectionsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpbridge",
				Subsystem: "bridge",
				Name:      "connections_active",
				Help:      "Number of MCP client connections currently held by the bridge server",
			},
		),
		FramesReceivedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "bridge",
				Name:      "frames_received_total",
				Help:      "Total whole frames extracted from connection byte streams",
			},
		),
		FramesSentTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "bridge",
				Name:      "frames_sent_total",
				Help:      "Total frames written to connections, including broadcasts",
			},
		),
		BroadcastsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "bridge",
				Name:      "broadcasts_total",
				Help:      "Total broadcast() calls issued by the bridge server",
			},
		),
		FramingErrorsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "bridge",
				Name:      "framing_errors_total",
				Help:      "Total connections terminated due to corrupt framing state",
			},
		),
		NormalDisconnects: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "bridge",
				Name:      "normal_disconnects_total",
				Help:      "Total connection closures classified as normal (peer EOF, reset, shutdown)",
			},
		),
		AnomalousErrors: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "bridge",
				Name:      "anomalous_errors_total",
				Help:      "Total accept/read/write errors surfaced to the on_error observer",
			},
		),
	}
}

// Frontend holds the metrics recorded by the MCP-facing front-end process.
type Frontend struct {
	EditorConnected      prometheus.Gauge
	DiscoveryCycles      prometheus.Counter
	ToolRefreshTotal     prometheus.Counter
	ToolListChangedTotal prometheus.Counter
	KeepaliveFailures    prometheus.Counter
	ForceReconnects      prometheus.Counter
}

// NewFrontend creates and registers the front-end's metrics with reg.
func NewFrontend(reg prometheus.Registerer) *Frontend {
	return &Frontend{
		EditorConnected: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpbridge",
				Subsystem: "frontend",
				Name:      "editor_connected",
				Help:      "1 if the front-end currently holds a live connection to the editor bridge, else 0",
			},
		),
		DiscoveryCycles: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "frontend",
				Name:      "discovery_cycles_total",
				Help:      "Total discovery/health-check timer cycles run",
			},
		),
		ToolRefreshTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "frontend",
				Name:      "tool_refresh_total",
				Help:      "Total tool catalog refreshes completed",
			},
		),
		ToolListChangedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "frontend",
				Name:      "tool_list_changed_total",
				Help:      "Total notifications/tools/list_changed notifications emitted to MCP clients",
			},
		),
		KeepaliveFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "frontend",
				Name:      "keepalive_failures_total",
				Help:      "Total consecutive keepalive ping failures observed",
			},
		),
		ForceReconnects: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpbridge",
				Subsystem: "frontend",
				Name:      "force_reconnects_total",
				Help:      "Total forced reconnect attempts triggered by stuck-disconnected detection",
			},
		),
	}
}
