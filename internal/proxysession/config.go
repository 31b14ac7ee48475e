package proxysession

import (
	"net/url"
	"time"
)

// Config holds everything one proxy session needs to know about the
// command it wraps and the policies to apply while it runs, mirroring
// original_source/src/api/proxy.rs's per-connection Context.
type Config struct {
	// Command is the child process argv; Command[0] is the executable.
	Command []string
	// Sync mirrors textDocument/didSave document text to disk when true.
	Sync bool
	// Remap rewrites URIs between source:// and file:// when true.
	Remap bool
	// Cwd is the project root used as the basis for Remap's source:// <->
	// file:// conversion. Sync writes go to the path of the file:// URI the
	// message carries and do not consult Cwd.
	Cwd *url.URL
	// Timeout is the inactivity period after which the session closes the
	// connection and tears down the child, reset on every message in
	// either direction.
	Timeout time.Duration
}
