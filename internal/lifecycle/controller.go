// Package lifecycle owns the editor-side bridge server's start/stop/reload
// lifecycle: coalesced single-flight startup, pre-reload teardown,
// post-reload recovery, and the reconnecting-UI timeout that keeps a user
// from being stranded if recovery fails silently.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/editorbridge/mcp-bridge/internal/bridge"
	"github.com/editorbridge/mcp-bridge/internal/session"
	"github.com/editorbridge/mcp-bridge/internal/telemetry"
)

// ErrReleasePortFailed is raised by BeforeReload when the bridge server
// could not be disposed cleanly; the host must not continue silently,
// since a reload racing with a still-bound listener risks a stuck port.
var ErrReleasePortFailed = errors.New("lifecycle: unable to release port before reload")

// RecordStore is the host-provided key/value store the session record is
// persisted through. internal/session.Store satisfies this.
type RecordStore interface {
	Load() (session.Record, error)
	Save(session.Record) error
	Clear() error
}

// UIHost receives reconnecting/post-reload UI cues. A real editor plugin
// implements this against its own notification surface.
type UIHost interface {
	ShowReconnecting()
	HideReconnecting()
	ShowReloaded()
}

// ConfirmHost mediates the manual-start port-conflict dialog: asking the
// user whether to accept a substitute port, and updating external config
// files once they accept.
type ConfirmHost interface {
	ConfirmPortSubstitute(ctx context.Context, original, substitute int) (bool, error)
	UpdateExternalConfigs(ctx context.Context, newPort int) error
}

// Config holds the lifecycle controller's timing constants. Zero-value
// fields are replaced with spec defaults by New.
type Config struct {
	// StartupProtectionWindow suppresses further starts for this long
	// after a successful bind.
	StartupProtectionWindow time.Duration
	// PortRetryTimeout bounds wait-and-retry on AddressInUse during Start.
	PortRetryTimeout time.Duration
	// PortRetryStep is the polling interval within PortRetryTimeout.
	PortRetryStep time.Duration
	// ReloadRecoveryDelay is the short pause after after_reload before the
	// first recovery attempt.
	ReloadRecoveryDelay time.Duration
	// ReloadRecoveryRetries bounds recovery attempts after after_reload.
	ReloadRecoveryRetries int
	// ReloadRecoveryBackoff is the pause before the second recovery
	// attempt; each later pause is double the one before.
	ReloadRecoveryBackoff time.Duration
	// ReconnectionTimeout is how long the reconnecting-UI flag is allowed
	// to stay set before being force-cleared.
	ReconnectionTimeout time.Duration
	// AutoStartOnReload mirrors the host's auto-start preference, consulted
	// when after_reload is not set but the server was running before a
	// reload.
	AutoStartOnReload bool
}

func (c *Config) applyDefaults() {
	if c.StartupProtectionWindow == 0 {
		c.StartupProtectionWindow = 5 * time.Second
	}
	if c.PortRetryTimeout == 0 {
		c.PortRetryTimeout = 5 * time.Second
	}
	if c.PortRetryStep == 0 {
		c.PortRetryStep = 250 * time.Millisecond
	}
	if c.ReloadRecoveryDelay == 0 {
		c.ReloadRecoveryDelay = 200 * time.Millisecond
	}
	if c.ReloadRecoveryRetries == 0 {
		c.ReloadRecoveryRetries = 3
	}
	if c.ReloadRecoveryBackoff == 0 {
		c.ReloadRecoveryBackoff = time.Second
	}
	if c.ReconnectionTimeout == 0 {
		c.ReconnectionTimeout = 30 * time.Second
	}
}

// Controller wraps a *bridge.Server and a RecordStore to implement the
// reload-surviving start/stop protocol.
type Controller struct {
	server  *bridge.Server
	store   RecordStore
	ui      UIHost
	confirm ConfirmHost
	logger  *slog.Logger
	cfg     Config
	tel     *telemetry.Provider

	startMu            sync.Mutex
	protectionDeadline time.Time

	reconnectMu     sync.Mutex
	reconnectCancel context.CancelFunc
}

// Options configures a new Controller.
type Options struct {
	Server  *bridge.Server
	Store   RecordStore
	UI      UIHost
	Confirm ConfirmHost
	Logger  *slog.Logger
	Config  Config
	// Telemetry traces each lifecycle transition. A nil value falls
	// back to a disabled no-op Provider.
	Telemetry *telemetry.Provider
}

// New creates a Controller.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg := opts.Config
	cfg.applyDefaults()
	tel := opts.Telemetry
	if tel == nil {
		tel, _ = telemetry.New(telemetry.Options{Enabled: false})
	}
	return &Controller{
		server:  opts.Server,
		store:   opts.Store,
		ui:      opts.UI,
		confirm: opts.Confirm,
		logger:  opts.Logger,
		cfg:     cfg,
		tel:     tel,
	}
}

// traceTransition runs fn inside a lifecycle-transition span, recording
// any error fn returns before ending the span.
func (c *Controller) traceTransition(ctx context.Context, from, to string, fn func(context.Context) error) error {
	spanCtx, span := c.tel.StartLifecycleTransition(ctx, from, to)
	err := fn(spanCtx)
	telemetry.EndWithError(span, err)
	return err
}

// Start runs the coalesced, single-flight start protocol of spec §4.5.
// Idempotent: returns nil immediately if the server is already running.
func (c *Controller) Start(ctx context.Context, port int) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	return c.startLocked(ctx, port)
}

// startLocked implements the start protocol body. Callers must hold
// startMu.
func (c *Controller) startLocked(ctx context.Context, port int) error {
	if c.withinProtectionWindow() {
		c.logger.Info("lifecycle: start suppressed, startup protection window active")
		return nil
	}
	if c.server.Running() {
		return nil
	}

	return c.traceTransition(ctx, "stopped", "running", func(ctx context.Context) error {
		if err := c.bindWithRetry(ctx, port); err != nil {
			c.logger.Warn("lifecycle: start failed, clearing session record", "port", port, "error", err)
			if clearErr := c.store.Clear(); clearErr != nil {
				c.logger.Warn("lifecycle: failed to clear session record after start failure", "error", clearErr)
			}
			return err
		}

		c.recordStarted(c.server.Port())
		return nil
	})
}

// recordStarted stamps the session record Running/Port and opens the
// startup protection window after a successful bind. Callers must hold
// startMu.
func (c *Controller) recordStarted(port int) {
	rec, err := c.store.Load()
	if err != nil {
		c.logger.Warn("lifecycle: failed to load session record after start, proceeding with empty", "error", err)
	}
	rec.Running = true
	rec.Port = port
	rec.Reconnecting = false
	rec.ShowReconnectingUI = false
	if err := c.store.Save(rec); err != nil {
		c.logger.Warn("lifecycle: failed to persist session record after start", "error", err)
	}

	c.protectionDeadline = time.Now().Add(c.cfg.StartupProtectionWindow)
	c.logger.Info("lifecycle: bridge started", "port", rec.Port)
}

func (c *Controller) withinProtectionWindow() bool {
	return !c.protectionDeadline.IsZero() && time.Now().Before(c.protectionDeadline)
}

// bindWithRetry attempts to bind port, retrying on AddressInUse for up to
// PortRetryTimeout in PortRetryStep increments. It never changes the port.
func (c *Controller) bindWithRetry(ctx context.Context, port int) error {
	deadline := time.Now().Add(c.cfg.PortRetryTimeout)
	for {
		err := c.server.Start(port)
		if err == nil {
			return nil
		}
		if !errors.Is(err, bridge.ErrAddressInUse) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("lifecycle: port %d still in use after %s: %w", port, c.cfg.PortRetryTimeout, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.PortRetryStep):
		}
	}
}

// Stop disposes the bridge server. Used both for a plain shutdown and as
// the synchronous disposal step of BeforeReload.
func (c *Controller) Stop() error {
	return c.server.Stop()
}

// BeforeReload implements the pre-reload protocol: stamp the session
// record, then synchronously dispose the server so a reload racing with
// live sockets does not risk a stuck port.
func (c *Controller) BeforeReload(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	return c.traceTransition(ctx, "running", "reloading", func(ctx context.Context) error {
		rec, err := c.store.Load()
		if err != nil {
			c.logger.Warn("lifecycle: failed to load session record before reload, proceeding with empty", "error", err)
		}
		port := c.server.Port()
		rec.BeginReload(port)
		if err := c.store.Save(rec); err != nil {
			c.logger.Warn("lifecycle: failed to persist session record before reload", "error", err)
		}

		if err := c.server.Stop(); err != nil {
			return fmt.Errorf("%w: %v", ErrReleasePortFailed, err)
		}
		// The listener is gone, so the window opened by the last start no
		// longer guards a live bind; clearing it lets post-reload recovery
		// rebind instead of being suppressed as a duplicate start.
		c.protectionDeadline = time.Time{}
		return nil
	})
}

// AfterReload implements the post-reload protocol: clear in_reload, arm
// the reconnecting-UI timeout if needed, and schedule recovery if the
// server was running before the reload.
func (c *Controller) AfterReload(ctx context.Context) error {
	return c.traceTransition(ctx, "reloading", "recovered", func(ctx context.Context) error {
		rec, err := c.store.Load()
		if err != nil {
			return fmt.Errorf("lifecycle: load session record after reload: %w", err)
		}

		rec.InReload = false
		if saveErr := c.store.Save(rec); saveErr != nil {
			c.logger.Warn("lifecycle: failed to persist session record after reload", "error", saveErr)
		}

		if rec.ShowReconnectingUI {
			c.armReconnectingUITimeout()
		}

		if !rec.Running {
			return nil
		}
		if c.server.Running() {
			return nil
		}

		if rec.AfterReload {
			go c.recoverAfterDelay(ctx, rec.Port, c.cfg.ReloadRecoveryDelay)
			return nil
		}
		if c.cfg.AutoStartOnReload {
			go c.recoverAfterDelay(ctx, rec.Port, c.cfg.ReloadRecoveryDelay)
			return nil
		}

		c.logger.Info("lifecycle: server was running before reload but auto-start is disabled, clearing session record")
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("lifecycle: failed to clear session record", "error", err)
		}
		return nil
	})
}

func (c *Controller) recoverAfterDelay(ctx context.Context, port int, delay time.Duration) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	backoff := c.cfg.ReloadRecoveryBackoff
	for attempt := 1; attempt <= c.cfg.ReloadRecoveryRetries; attempt++ {
		c.startMu.Lock()
		err := c.startLocked(ctx, port)
		c.startMu.Unlock()
		if err == nil {
			c.markReloadComplete()
			return
		}
		c.logger.Warn("lifecycle: reload recovery attempt failed", "attempt", attempt, "port", port, "error", err)
		if attempt == c.cfg.ReloadRecoveryRetries {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	c.logger.Warn("lifecycle: reload recovery exhausted retries, clearing session record", "port", port)
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("lifecycle: failed to clear session record after exhausted recovery", "error", err)
	}
}

func (c *Controller) markReloadComplete() {
	rec, err := c.store.Load()
	if err != nil {
		c.logger.Warn("lifecycle: failed to load session record on reload completion", "error", err)
		return
	}
	rec.CompleteReload()
	if err := c.store.Save(rec); err != nil {
		c.logger.Warn("lifecycle: failed to persist session record on reload completion", "error", err)
	}
	if c.ui != nil {
		c.ui.HideReconnecting()
		c.ui.ShowReloaded()
	}
}

// armReconnectingUITimeout starts a timer that clears show_reconnecting_ui
// if recovery has not completed within ReconnectionTimeout, so the user is
// not stranded by a silently failed recovery.
func (c *Controller) armReconnectingUITimeout() {
	c.reconnectMu.Lock()
	if c.reconnectCancel != nil {
		c.reconnectCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.reconnectCancel = cancel
	c.reconnectMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectionTimeout):
		}
		rec, err := c.store.Load()
		if err != nil {
			c.logger.Warn("lifecycle: failed to load session record for reconnect timeout", "error", err)
			return
		}
		if !rec.ShowReconnectingUI {
			return
		}
		rec.ShowReconnectingUI = false
		if err := c.store.Save(rec); err != nil {
			c.logger.Warn("lifecycle: failed to clear reconnecting UI flag on timeout", "error", err)
			return
		}
		c.logger.Warn("lifecycle: reconnecting UI timeout expired, clearing flag")
		if c.ui != nil {
			c.ui.HideReconnecting()
		}
	}()
}

// bindAndRecord binds port directly, bypassing the retry-on-conflict loop
// startLocked uses, and on success stamps the session record exactly as
// the coalesced start path does, so a manual start leaves behind the
// same persisted Running/Port state a subsequent reload can recover from.
func (c *Controller) bindAndRecord(port int) error {
	if err := c.server.Start(port); err != nil {
		return err
	}
	c.startMu.Lock()
	c.recordStarted(c.server.Port())
	c.startMu.Unlock()
	return nil
}

// portProbeRange bounds how many candidate ports findAvailablePort tries
// above the requested one before giving up.
const portProbeRange = 20

// findAvailablePort probes sequential ports above start for one that is
// currently free, so a substitute offered to ConfirmPortSubstitute is
// actually bindable rather than a guess that may itself be in use.
func findAvailablePort(start int) (int, error) {
	for candidate := start + 1; candidate <= start+portProbeRange && candidate <= 65535; candidate++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(candidate)))
		if err != nil {
			continue
		}
		ln.Close()
		return candidate, nil
	}
	return 0, fmt.Errorf("lifecycle: no free port found in range %d-%d", start+1, start+portProbeRange)
}

// ManualStart is the UI-initiated start path with a port-conflict dialog.
// It is not coalesced with recovery but still respects the startup
// protection window.
func (c *Controller) ManualStart(ctx context.Context, requestedPort int) error {
	c.startMu.Lock()
	inWindow := c.withinProtectionWindow()
	running := c.server.Running()
	c.startMu.Unlock()

	if inWindow {
		c.logger.Info("lifecycle: manual start suppressed, startup protection window active")
		return nil
	}
	if running {
		return nil
	}

	err := c.bindAndRecord(requestedPort)
	if err == nil {
		return nil
	}
	if !errors.Is(err, bridge.ErrAddressInUse) {
		return err
	}
	if c.confirm == nil {
		return fmt.Errorf("lifecycle: port %d in use and no confirmation host configured: %w", requestedPort, err)
	}

	substitute, probeErr := findAvailablePort(requestedPort)
	if probeErr != nil {
		return probeErr
	}
	accepted, confirmErr := c.confirm.ConfirmPortSubstitute(ctx, requestedPort, substitute)
	if confirmErr != nil {
		return fmt.Errorf("lifecycle: confirm port substitute: %w", confirmErr)
	}
	if !accepted {
		return fmt.Errorf("lifecycle: user declined port substitute for %d", requestedPort)
	}

	if err := c.bindAndRecord(substitute); err != nil {
		return err
	}
	return c.confirm.UpdateExternalConfigs(ctx, substitute)
}
