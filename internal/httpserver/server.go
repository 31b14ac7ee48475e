// Package httpserver assembles the proxy's HTTP surface: the WebSocket
// upgrade endpoint that starts a proxy session (component E), the
// workspace-mutation endpoint (component D), and the ambient routing,
// CORS, and request-logging scaffolding around them. Grounded on
// bennypowers-cem/serve's Server/middleware.Chain structure, generalized
// from its static-file-server pipeline to this proxy's three routes.
package httpserver

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/nerved-io/lsp-ws-proxy/internal/proxylog"
)

// Config holds everything the HTTP surface needs to construct both
// static routes (/healthz, /files) and per-connection proxy sessions
// (/).
type Config struct {
	// Addr is the listen address, e.g. ":8080" or "127.0.0.1:8080".
	Addr string
	// Commands maps a selectable name to the argv of a wrapped LSP
	// server. A single-command deployment populates only DefaultName.
	Commands map[string][]string
	// DefaultName is the Commands key used when a connection's ?name=
	// query parameter is absent.
	DefaultName string
	Sync        bool
	Remap       bool
	// ProjectRoot is the filesystem directory /files operations are
	// rooted at.
	ProjectRoot string
	// Cwd is ProjectRoot expressed as the file:// URL proxysession and
	// remap use for source:// <-> file:// conversion.
	Cwd     *url.URL
	Timeout time.Duration
	Logger  *proxylog.Logger
}

// Server is the proxy's HTTP listener.
type Server struct {
	cfg  Config
	http *http.Server
}

// New builds a Server from cfg. It does not start listening; call
// ListenAndServe.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg}
	s.http = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.mux(),
	}
	return s
}

// ListenAndServe blocks serving HTTP until the listener fails or
// Shutdown is called, in which case it returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	s.cfg.Logger.Info("listening on %s", s.cfg.Addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops accepting new connections and waits for
// in-flight requests to finish, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
