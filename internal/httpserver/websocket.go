package httpserver

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nerved-io/lsp-ws-proxy/internal/proxysession"
)

// maxWebSocketReadSize bounds incoming client frames, matching
// bennypowers-cem/serve/websocket.go's DoS-hardening read limit.
const maxWebSocketReadSize = 64 * 1024

// upgrader allows any origin: the spec's CORS policy (see cors.go) is
// intentionally open, so the WebSocket handshake doesn't second-guess it
// with its own origin allowlist the way bennypowers-cem's isLocalOrigin
// does for its live-reload socket.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades GET / to a WebSocket and runs one proxy
// session for the lifetime of the connection, picking the child command
// to wrap via the optional ?name= query parameter (see resolveCommand).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command, ok := s.resolveCommand(r.URL.Query().Get("name"))
	if !ok {
		http.Error(w, "unknown command name", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.cfg.Logger.Error("websocket upgrade failed: %s", err)
		return
	}
	conn.SetReadLimit(maxWebSocketReadSize)
	defer conn.Close()

	s.cfg.Logger.Info("connected")

	sessionCfg := proxysession.Config{
		Command: command,
		Sync:    s.cfg.Sync,
		Remap:   s.cfg.Remap,
		Cwd:     s.cfg.Cwd,
		Timeout: s.cfg.Timeout,
	}
	if err := proxysession.Run(conn, sessionCfg, s.cfg.Logger); err != nil {
		s.cfg.Logger.Error("connection error: %s", err)
	}

	s.cfg.Logger.Info("disconnected")
}

// resolveCommand looks up the argv to run for a WebSocket connection.
// An empty name falls back to cfg.DefaultName, letting single-command
// deployments omit ?name= entirely while multi-command deployments use
// it to select among named servers configured on the command line.
func (s *Server) resolveCommand(name string) ([]string, bool) {
	if name == "" {
		name = s.cfg.DefaultName
	}
	command, ok := s.cfg.Commands[name]
	return command, ok
}
