package frontend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/editorbridge/mcp-bridge/internal/push"
)

// reconnectStuckThreshold is how long the FE tolerates connected=false
// before treating the editor as stuck and scheduling a forced reconnect.
const reconnectStuckThreshold = 60 * time.Second

// reconnectMaxAttempts bounds forced reconnects per stuck detection.
const reconnectMaxAttempts = 3

// dialTimeout bounds a single connect attempt to the editor bridge.
const dialTimeout = 2 * time.Second

// stuckCheckInterval is how often Run polls CheckStuck for a connection
// that has been disconnected long enough to warrant a forced reconnect.
const stuckCheckInterval = 10 * time.Second

// Options configures a Frontend.
type Options struct {
	Logger          *slog.Logger
	DevMode         bool
	KeepaliveActive bool
	Stdout          *os.File
	Stdin           *os.File

	// HealthAddr, if non-empty, starts a loopback-only HTTP server
	// serving /healthz and /metrics for the lifetime of Run.
	HealthAddr string
	Version    string

	// PushPortFile, if non-empty, receives the push-receive server's
	// OS-assigned port once bound, so the editor-side process (started
	// independently) can discover where to dial its lifecycle events.
	// Defaults to $HOME/.mcp-bridge/push-port.
	PushPortFile string

	// Discovery configures the editor-reachability poll's timing. A
	// zero-value field falls back to Discovery's own default.
	Discovery DiscoveryConfig
}

// Frontend wires together the editor discovery timer, the bridge
// connection, the tool manager, the MCP-facing server, and the keepalive
// loop into the single cooperative task lineage the front-end process
// runs as.
type Frontend struct {
	logger *slog.Logger

	bridge *BridgeConn
	tools  *ToolManager
	keep   *Keepalive
	disc   *Discovery
	srv    *MCPServer
	stdin  *os.File
	health *HealthServer
	push   *push.Server

	healthAddr   string
	version      string
	pushPortFile string

	mu             sync.Mutex
	disconnectedAt time.Time
	reconnectTries int
	shutdownOnce   sync.Once
}

// New builds a Frontend. Editor discovery is configured from
// UNITY_TCP_PORT via Discovery; construction fails if that variable is
// missing or invalid.
func New(opts Options) (*Frontend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	pushPortFile := opts.PushPortFile
	if pushPortFile == "" {
		pushPortFile = defaultPushPortFile()
	}

	bridge := NewBridgeConn(logger, nil)
	fe := &Frontend{
		logger:       logger,
		bridge:       bridge,
		stdin:        opts.Stdin,
		healthAddr:   opts.HealthAddr,
		version:      opts.Version,
		pushPortFile: pushPortFile,
	}

	fe.tools = NewToolManager(bridge, opts.DevMode, fe.onToolsChanged)
	fe.srv = NewMCPServer(logger, bridge, fe.tools, stdout)
	if opts.KeepaliveActive {
		fe.keep = NewKeepalive(bridge, logger)
	}

	disc, err := NewDiscovery(logger, opts.Discovery, fe.onEditorConnected, fe.onEditorDisconnected)
	if err != nil {
		return nil, err
	}
	fe.disc = disc

	fe.push = push.New(push.Options{Logger: logger, Handler: NewPushHandler(fe)})

	return fe, nil
}

func defaultPushPortFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mcp-bridge-push-port")
	}
	return filepath.Join(home, ".mcp-bridge", "push-port")
}

// advertisePushPort binds the push-receive server and writes its
// OS-assigned port to pushPortFile, creating the parent directory if
// needed, so the editor-side push.Client can discover it without a
// fixed, pre-agreed port number.
func (f *Frontend) advertisePushPort() error {
	if err := f.push.Start(); err != nil {
		return fmt.Errorf("frontend: start push server: %w", err)
	}
	if f.pushPortFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.pushPortFile), 0700); err != nil {
		return fmt.Errorf("frontend: create push port file dir: %w", err)
	}
	port := strconv.Itoa(f.push.Port())
	if err := os.WriteFile(f.pushPortFile, []byte(port), 0600); err != nil {
		return fmt.Errorf("frontend: write push port file: %w", err)
	}
	return nil
}

func (f *Frontend) onToolsChanged() {
	f.srv.emitToolsListChanged()
}

func (f *Frontend) onEditorConnected(ctx context.Context) {
	addr := "127.0.0.1:" + portFromEnv()
	if err := f.bridge.Dial(addr, dialTimeout); err != nil {
		f.logger.Warn("frontend: failed to dial editor bridge after discovery", "error", err)
		return
	}

	f.mu.Lock()
	f.disconnectedAt = time.Time{}
	f.reconnectTries = 0
	f.mu.Unlock()

	if f.keep != nil {
		f.keep.Start(ctx)
	}
	if err := f.tools.RefreshSafe(ctx); err != nil {
		f.logger.Warn("frontend: initial tool refresh after connect failed", "error", err)
	}
}

func (f *Frontend) onEditorDisconnected() {
	f.mu.Lock()
	if f.disconnectedAt.IsZero() {
		f.disconnectedAt = time.Now()
	}
	f.mu.Unlock()

	if f.keep != nil {
		f.keep.Stop()
	}
	f.bridge.Close()
	f.tools.MarkDisconnected()
}

// CheckStuck should be invoked periodically (e.g. alongside the discovery
// timer) to detect a connection stuck disconnected for too long and
// schedule a bounded number of forced reconnect attempts.
func (f *Frontend) CheckStuck(ctx context.Context) {
	f.mu.Lock()
	since := f.disconnectedAt
	tries := f.reconnectTries
	f.mu.Unlock()

	if since.IsZero() || time.Since(since) < reconnectStuckThreshold {
		return
	}
	if tries >= reconnectMaxAttempts {
		return
	}

	f.mu.Lock()
	f.reconnectTries++
	f.mu.Unlock()

	f.logger.Warn("frontend: editor connection stuck, forcing reconnect attempt",
		"stuck_for", time.Since(since), "attempt", tries+1)
	f.onEditorConnected(ctx)
}

// watchStuckConnection polls CheckStuck on a fixed interval for the
// lifetime of ctx, the mechanism that actually exercises the
// stuck-disconnect/forced-reconnect behavior CheckStuck implements.
func (f *Frontend) watchStuckConnection(ctx context.Context) {
	ticker := time.NewTicker(stuckCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.CheckStuck(ctx)
		}
	}
}

// Run starts discovery and serves MCP requests from stdin until the
// context is cancelled or the transport closes. Run blocks.
func (f *Frontend) Run(ctx context.Context, stdin *os.File) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.disc.Start(runCtx)
	go f.watchStuckConnection(runCtx)
	defer f.Shutdown()

	if err := f.advertisePushPort(); err != nil {
		f.logger.Warn("frontend: push receive channel disabled", "error", err)
	}

	if f.healthAddr != "" {
		health, err := NewHealthServer(f.healthAddr, NewHealthChecker(f, f.version))
		if err != nil {
			f.logger.Warn("frontend: health server disabled", "error", err)
		} else {
			f.mu.Lock()
			f.health = health
			f.mu.Unlock()
			go func() {
				if err := health.Serve(); err != nil {
					f.logger.Warn("frontend: health server stopped", "error", err)
				}
			}()
		}
	}

	if stdin == nil {
		stdin = f.stdin
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	return f.srv.Serve(runCtx, stdin)
}

// Shutdown performs the idempotent teardown sequence: stop discovery
// (and with it any in-flight reconnect bookkeeping), stop keepalive,
// close the bridge connection. Safe to call more than once and from a
// signal handler.
func (f *Frontend) Shutdown() {
	f.shutdownOnce.Do(func() {
		f.disc.Stop()
		if f.keep != nil {
			f.keep.Stop()
		}
		f.bridge.Close()
		_ = f.push.Stop()

		f.mu.Lock()
		health := f.health
		f.mu.Unlock()
		if health != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = health.Shutdown(ctx)
		}
	})
}

func portFromEnv() string {
	return os.Getenv("UNITY_TCP_PORT")
}
