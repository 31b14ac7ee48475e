package httpserver

import "net/http"

// mux builds the HTTP routing table and wraps it in the middleware chain:
// GET / (WebSocket upgrade), GET /healthz, and POST /files, per the
// spec's HTTP surface.
func (s *Server) mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	mux.HandleFunc("/healthz", Healthz)
	mux.HandleFunc("/files", Files(s.cfg.ProjectRoot, s.cfg.Remap))

	return Chain(mux,
		RequestLogger(s.cfg.Logger), // outermost: log before CORS touches headers
		CORS(),
	)
}
