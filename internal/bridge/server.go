// Package bridge implements the editor-side bridge server: a loopback TCP
// listener that accepts MCP client connections, reassembles length-framed
// JSON-RPC off each one, and dispatches to a caller-supplied request
// processor.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/editorbridge/mcp-bridge/internal/metrics"
	"github.com/editorbridge/mcp-bridge/internal/telemetry"
	"github.com/editorbridge/mcp-bridge/internal/wire"
)

// RequestProcessor handles one decoded JSON-RPC frame from a connection and
// returns the response text to write back, or nil for notifications that
// produce no response. The tool catalog and execution layer implement this;
// the bridge package never depends on them directly.
type RequestProcessor interface {
	Process(ctx context.Context, endpoint string, requestJSON []byte) (responseJSON []byte, err error)
}

// ErrorObserver receives anomalous accept/read/write errors that the
// accept loop or a connection handler could not classify as a normal
// disconnect.
type ErrorObserver func(err error)

// DisconnectObserver is notified once a connection's handler has finished
// tearing it down and removed it from the server's connection map.
type DisconnectObserver func(endpoint string)

// Options configures a Server at construction.
type Options struct {
	Logger             *slog.Logger
	Metrics            *metrics.Bridge
	Processor          RequestProcessor
	OnError            ErrorObserver
	OnClientDisconnect DisconnectObserver
	// ShutdownTimeout bounds how long Stop waits for per-connection
	// handlers to exit before forcing resource release.
	ShutdownTimeout time.Duration
	// Telemetry traces each dispatched request. A nil value falls back
	// to a disabled no-op Provider.
	Telemetry *telemetry.Provider
}

// Server owns the bridge's loopback listener and its connection map.
type Server struct {
	logger    *slog.Logger
	metrics   *metrics.Bridge
	processor RequestProcessor
	onError   ErrorObserver
	onDisconn DisconnectObserver
	shutdownT time.Duration
	tel       *telemetry.Provider

	pool *wire.Pool

	mu       sync.Mutex
	listener net.Listener
	port     int
	conns    map[string]*connection
	cancel   context.CancelFunc
	ctx      context.Context
	wg       sync.WaitGroup
}

// New creates a Server. It does not bind a listener; call Start for that.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	tel := opts.Telemetry
	if tel == nil {
		tel, _ = telemetry.New(telemetry.Options{Enabled: false})
	}
	return &Server{
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		processor: opts.Processor,
		onError:   opts.OnError,
		onDisconn: opts.OnClientDisconnect,
		shutdownT: opts.ShutdownTimeout,
		tel:       tel,
		pool:      wire.NewPool(),
		conns:     make(map[string]*connection),
	}
}

// Start binds 127.0.0.1:port and begins accepting connections. Returns
// ErrAddressInUse if the port is already bound; the caller decides whether
// to retry.
func (s *Server) Start(port int) error {
	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		return fmt.Errorf("bridge: server already started")
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		s.mu.Unlock()
		if isAddressInUse(err) {
			return ErrAddressInUse
		}
		return fmt.Errorf("bridge: listen on port %d: %w", port, err)
	}

	actualPort := ln.Addr().(*net.TCPAddr).Port
	ctx, cancel := context.WithCancel(context.Background())
	s.listener = ln
	s.port = actualPort
	s.ctx = ctx
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("bridge server started", "port", actualPort)

	s.wg.Add(1)
	go s.acceptLoop(ctx, ln)
	return nil
}

// Port returns the currently bound port, or 0 if the server is not running.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Running reports whether the server currently holds an open listener.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if isNormalDisconnect(err) {
				return
			}
			if s.metrics != nil {
				s.metrics.AnomalousErrors.Inc()
			}
			if s.onError != nil {
				s.onError(fmt.Errorf("bridge: accept: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, netConn net.Conn) {
	defer s.wg.Done()

	endpoint := netConn.RemoteAddr().String()
	c := newConnection(endpoint, netConn)

	s.mu.Lock()
	if prior, ok := s.conns[endpoint]; ok {
		_ = prior.close()
	}
	s.conns[endpoint] = c
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ConnectionsActive.Inc()
	}

	reassembler := wire.NewReassembler(s.pool)
	defer func() {
		reassembler.Close()
		s.removeConnection(endpoint, c)
		if s.metrics != nil {
			s.metrics.ConnectionsActive.Dec()
		}
		if s.onDisconn != nil {
			s.onDisconn(endpoint)
		}
	}()

	const readChunk = 64 * 1024
	for {
		if ctx.Err() != nil {
			return
		}

		staging, offset, err := reassembler.Staging(readChunk)
		if err != nil {
			s.logger.Warn("bridge: reassembler staging failed", "conn_id", c.id, "endpoint", endpoint, "error", err)
			return
		}

		n, err := netConn.Read(staging.Data[offset : offset+readChunk])
		if n == 0 && err != nil {
			if !isNormalDisconnect(err) {
				if s.metrics != nil {
					s.metrics.AnomalousErrors.Inc()
				}
				if s.onError != nil {
					s.onError(fmt.Errorf("bridge: read from %s: %w", endpoint, err))
				}
			} else if s.metrics != nil {
				s.metrics.NormalDisconnects.Inc()
			}
			return
		}
		reassembler.Append(n)

		frames, extractErr := reassembler.Extract()
		for _, frame := range frames {
			if s.metrics != nil {
				s.metrics.FramesReceivedTotal.Inc()
			}
			s.dispatchFrame(ctx, c, frame)
		}
		if extractErr != nil {
			s.logger.Warn("bridge: corrupt frame, closing connection", "conn_id", c.id, "endpoint", endpoint, "error", extractErr)
			if s.metrics != nil {
				s.metrics.FramingErrorsTotal.Inc()
			}
			return
		}

		if err != nil {
			if !isNormalDisconnect(err) {
				if s.metrics != nil {
					s.metrics.AnomalousErrors.Inc()
				}
				if s.onError != nil {
					s.onError(fmt.Errorf("bridge: read from %s: %w", endpoint, err))
				}
			} else if s.metrics != nil {
				s.metrics.NormalDisconnects.Inc()
			}
			return
		}
	}
}

func (s *Server) dispatchFrame(ctx context.Context, c *connection, frame []byte) {
	if isBlank(frame) {
		return
	}
	if s.processor == nil {
		return
	}

	spanCtx, span := s.tel.StartBridgeRequest(ctx, peekMethod(frame), c.remoteAddr)

	resp, err := s.processor.Process(spanCtx, c.endpoint, frame)
	if err != nil {
		s.logger.Warn("bridge: request processor error", "endpoint", c.endpoint, "error", err)
		telemetry.EndWithError(span, err)
		return
	}
	if resp == nil {
		telemetry.EndWithError(span, nil)
		return
	}

	if c.isClosed() || ctx.Err() != nil {
		telemetry.EndWithError(span, nil)
		return
	}
	if err := c.write(wire.Encode(resp)); err != nil {
		if !isNormalDisconnect(err) {
			if s.onError != nil {
				s.onError(fmt.Errorf("bridge: write to %s: %w", c.endpoint, err))
			}
		}
		telemetry.EndWithError(span, err)
		return
	}
	if s.metrics != nil {
		s.metrics.FramesSentTotal.Inc()
	}
	telemetry.EndWithError(span, nil)
}

// peekMethod extracts the JSON-RPC "method" field from frame without
// fully decoding it, for span labeling only; an unparsable frame yields
// an empty method rather than failing the request.
func peekMethod(frame []byte) string {
	var probe struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(frame, &probe); err != nil {
		return ""
	}
	return probe.Method
}

func isBlank(frame []byte) bool {
	for _, b := range frame {
		if b != ' ' && b != '\t' && b != '\r' && b != '\n' {
			return false
		}
	}
	return true
}

// removeConnection deletes endpoint's entry only if it is still c — a
// concurrent replacement (the peer reconnected before this handler
// finished) must not be clobbered.
func (s *Server) removeConnection(endpoint string, c *connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.conns[endpoint]; ok && current == c {
		delete(s.conns, endpoint)
	}
}

// Broadcast frames text once and writes it to every connection whose
// stream is still open. Connections that fail the write are removed with
// a warn-level log, not surfaced to the error observer.
func (s *Server) Broadcast(text []byte) {
	framed := wire.Encode(text)
	if framed == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.BroadcastsTotal.Inc()
	}

	s.mu.Lock()
	targets := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if c.isClosed() {
			continue
		}
		if err := c.write(framed); err != nil {
			s.logger.Warn("bridge: broadcast write failed, dropping connection", "endpoint", c.endpoint, "error", err)
			s.removeConnection(c.endpoint, c)
			continue
		}
		if s.metrics != nil {
			s.metrics.FramesSentTotal.Inc()
		}
	}
}

// UpdateClientName replaces endpoint's display name, preserving its
// connected-at timestamp, once the peer has identified itself.
func (s *Server) UpdateClientName(endpoint, name string) bool {
	s.mu.Lock()
	c, ok := s.conns[endpoint]
	s.mu.Unlock()
	if !ok {
		return false
	}
	c.setName(name)
	return true
}

// ConnectedClients returns a snapshot of connected clients ordered by name.
func (s *Server) ConnectedClients() []ClientInfo {
	s.mu.Lock()
	out := make([]ClientInfo, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, ClientInfo{
			ID:          c.id,
			Endpoint:    c.endpoint,
			RemoteAddr:  c.remoteAddr,
			Name:        c.Name(),
			ConnectedAt: c.connectedAt,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stop initiates graceful shutdown: closes the listener, closes every
// connection's write stream, and waits up to ShutdownTimeout for
// per-connection handlers to exit before forcing resource release.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		return nil
	}
	ln := s.listener
	cancel := s.cancel
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.listener = nil
	s.port = 0
	s.mu.Unlock()

	cancel()
	_ = ln.Close()
	for _, c := range conns {
		_ = c.close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.shutdownT):
		s.logger.Warn("bridge: shutdown timeout exceeded, forcing resource release", "timeout", s.shutdownT)
	}

	s.logger.Info("bridge server stopped")
	return nil
}
