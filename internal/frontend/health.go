package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthResponse is the JSON body served from /healthz: an overall
// status plus a per-component checks map.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// HealthChecker reports the front-end's view of its own liveness: is
// the bridge socket open, how many tools are cached, and whether the
// last discovery probe reached the editor ("connected", else "stopped").
type HealthChecker struct {
	fe      *Frontend
	version string
}

// NewHealthChecker builds a HealthChecker bound to fe.
func NewHealthChecker(fe *Frontend, version string) *HealthChecker {
	return &HealthChecker{fe: fe, version: version}
}

// Check computes the current health snapshot. A disconnected editor is
// reported but does not flip overall status to unhealthy -- the FE is
// designed to run standalone while Unity is closed, per the
// discovery/reconnect contract.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)

	if h.fe.bridge.Connected() {
		checks["editor_connection"] = "connected"
	} else {
		checks["editor_connection"] = "disconnected"
	}

	checks["discovery"] = "stopped"
	if h.fe.disc.Connected() {
		checks["discovery"] = "connected"
	}

	checks["tools_cached"] = strconv.Itoa(len(h.fe.tools.Snapshot()))
	checks["goroutines"] = strconv.Itoa(runtime.NumGoroutine())

	return HealthResponse{
		Status:  "healthy",
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an http.Handler serving the JSON health response.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(h.Check())
	})
}

// HealthServer serves /healthz and /metrics on a loopback-only
// listener. It exists because the FE, unlike the editor bridge, has no
// other HTTP surface -- these two endpoints are its entire inbound
// HTTP footprint, intentionally not exposed beyond localhost.
type HealthServer struct {
	srv *http.Server
	ln  net.Listener
}

// NewHealthServer builds a server serving checker's /healthz and, on
// /metrics, the default Prometheus registry via promhttp.Handler. addr
// must be a loopback
// address (e.g. "127.0.0.1:9090"); binding to a non-loopback address
// is rejected.
func NewHealthServer(addr string, checker *HealthChecker) (*HealthServer, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host)
	if host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return nil, errors.New("frontend: health server address must be loopback-only")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", checker.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	return &HealthServer{
		srv: &http.Server{Handler: mux},
		ln:  ln,
	}, nil
}

// Addr returns the bound address, useful when addr was given with
// port 0.
func (s *HealthServer) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks, accepting connections until Shutdown is called.
func (s *HealthServer) Serve() error {
	err := s.srv.Serve(s.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, bounded by ctx.
func (s *HealthServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}


