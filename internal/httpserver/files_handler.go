package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerved-io/lsp-ws-proxy/internal/fileops"
)

// maxFilesBodyBytes bounds POST /files request bodies, matching the
// original's warp::body::content_length_limit(2 * 1024 * 1024).
const maxFilesBodyBytes = 2 * 1024 * 1024

type filesPayload struct {
	Operations []fileops.Operation `json:"operations"`
}

type filesResponse struct {
	Changes []fileops.FileEvent      `json:"changes"`
	Errors  []fileops.OperationError `json:"errors,omitempty"`
}

// Files handles POST /files: it applies the request's operation batch
// against root in order and reports per-operation failures without
// aborting the batch, per spec component D. remap controls the scheme of
// the returned FileEvent URIs: "source://" when true, absolute "file://"
// when false, matching the proxy's --remap setting (spec §4.D).
func Files(root string, remap bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxFilesBodyBytes)

		var payload filesPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		events, opErrs := fileops.Apply(root, payload.Operations, remap)
		if events == nil {
			events = []fileops.FileEvent{}
		}

		status := http.StatusOK
		if len(opErrs) > 0 {
			status = http.StatusUnprocessableEntity
		}

		writeJSON(w, status, filesResponse{Changes: events, Errors: opErrs})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
