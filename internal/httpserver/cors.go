package httpserver

import "net/http"

// CORS allows any origin to reach the proxy's HTTP surface, permits the
// headers and methods the WebSocket upgrade and /files endpoint need, and
// short-circuits preflight OPTIONS requests. The policy is open since the
// proxy has no notion of a trusted origin.
func CORS() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
