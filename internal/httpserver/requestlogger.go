package httpserver

import (
	"net/http"

	"github.com/nerved-io/lsp-ws-proxy/internal/proxylog"
)

// RequestLogger logs every HTTP request's method and path at Info level
// before handing off to next, the ambient counterpart to the WebSocket
// session's own per-message Debug logging.
func RequestLogger(log *proxylog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}
