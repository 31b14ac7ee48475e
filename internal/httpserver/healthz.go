package httpserver

import "net/http"

// Healthz handles GET /healthz with status 200 and a bare "OK" body, used by
// orchestrators as a liveness probe.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
