package frontend

import (
	"context"
	"time"

	"github.com/editorbridge/mcp-bridge/internal/push"
)

// pushTimeout bounds the work triggered by a single push notification, so
// a stalled editor-side catalog response can't wedge the dispatch path.
const pushTimeout = 5 * time.Second

// PushHandler adapts Frontend to push.Handler: the editor's out-of-band
// lifecycle events drive the same connectivity and catalog-refresh paths
// as the in-band discovery timer.
type PushHandler struct {
	fe *Frontend
}

// NewPushHandler returns a push.Handler that dispatches onto fe.
func NewPushHandler(fe *Frontend) *PushHandler {
	return &PushHandler{fe: fe}
}

// Dispatch routes one decoded push notification. It is called
// synchronously from the push server's per-connection read loop, so it
// must not block for long; editor-facing work runs with a bounded
// timeout.
func (h *PushHandler) Dispatch(n push.Notification) {
	switch n.Type {
	case push.ConnectionEstablished:
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		h.fe.onEditorConnected(ctx)
	case push.ToolsChanged, push.DomainReloadRecovered:
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := h.fe.tools.RefreshSafe(ctx); err != nil {
			h.fe.logger.Warn("frontend: refresh after push notification failed",
				"type", n.Type, "error", err)
		}
	case push.UserDisconnect, push.UnityShutdown, push.DomainReload:
		h.fe.onEditorDisconnected()
	default:
		h.fe.logger.Warn("frontend: unknown push notification type", "type", n.Type)
	}
}
