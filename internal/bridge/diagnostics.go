package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
)

// DiagnosticsServer serves a loopback-only /debug/clients endpoint
// reporting the server's connected-client snapshot as JSON. It exists
// purely for operators; no protocol method exposes this information.
type DiagnosticsServer struct {
	srv *http.Server
	ln  net.Listener
}

// NewDiagnosticsServer binds addr, which must be a loopback address,
// and serves s.ConnectedClients() as JSON on /debug/clients.
func NewDiagnosticsServer(addr string, s *Server) (*DiagnosticsServer, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host)
	if host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return nil, errors.New("bridge: diagnostics server address must be loopback-only")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/clients", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(s.ConnectedClients())
	})

	return &DiagnosticsServer{srv: &http.Server{Handler: mux}, ln: ln}, nil
}

// Addr returns the bound address, useful when addr was given with port 0.
func (d *DiagnosticsServer) Addr() string {
	return d.ln.Addr().String()
}

// Serve blocks, accepting connections until Shutdown is called.
func (d *DiagnosticsServer) Serve() error {
	err := d.srv.Serve(d.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, bounded by ctx.
func (d *DiagnosticsServer) Shutdown(ctx context.Context) error {
	return d.srv.Shutdown(ctx)
}
