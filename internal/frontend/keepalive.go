package frontend

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	keepaliveInterval = 30 * time.Second
	keepaliveTimeout  = 5 * time.Second
	keepaliveMaxFails = 3
)

// Keepalive sends a periodic MCP ping to the editor over the bridge
// connection and stops itself after too many consecutive failures,
// logging once rather than repeatedly.
type Keepalive struct {
	conn   *BridgeConn
	logger *slog.Logger

	// OnMaxFailures, if set, is invoked once when the consecutive
	// failure threshold is reached and the loop is about to stop. It lets
	// a caller record a metrics counter without Keepalive depending on the
	// metrics package directly; Frontend leaves it nil.
	OnMaxFailures func()

	fails int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewKeepalive builds a Keepalive over conn.
func NewKeepalive(conn *BridgeConn, logger *slog.Logger) *Keepalive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Keepalive{conn: conn, logger: logger}
}

// Start begins the ping loop. A second call while already running is a
// no-op.
func (k *Keepalive) Start(ctx context.Context) {
	k.mu.Lock()
	if k.cancel != nil {
		k.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	k.cancel = cancel
	k.done = make(chan struct{})
	k.mu.Unlock()

	atomic.StoreInt32(&k.fails, 0)
	go k.loop(runCtx)
}

// Stop cancels the ping loop and waits for it to exit.
func (k *Keepalive) Stop() {
	k.mu.Lock()
	cancel := k.cancel
	done := k.done
	k.cancel = nil
	k.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (k *Keepalive) loop(ctx context.Context) {
	defer close(k.done)
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !k.ping(ctx) {
				return
			}
		}
	}
}

func (k *Keepalive) ping(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, keepaliveTimeout)
	defer cancel()

	_, err := k.conn.Call(pingCtx, "ping", nil)
	if err == nil {
		atomic.StoreInt32(&k.fails, 0)
		return true
	}

	fails := atomic.AddInt32(&k.fails, 1)
	if fails >= keepaliveMaxFails {
		k.logger.Warn("frontend: keepalive failed repeatedly, stopping", "consecutive_failures", fails, "error", err)
		if k.OnMaxFailures != nil {
			k.OnMaxFailures()
		}
		return false
	}
	return true
}
