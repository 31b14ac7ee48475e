package httpserver

import "net/http"

// Middleware is the standard middleware function signature: it wraps an
// http.Handler and returns a new http.Handler, letting it pre/post-process
// requests around the wrapped handler's call.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares in reverse order so the first middleware in
// the list ends up as the outermost wrapper (it sees a request first and
// a response last).
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
