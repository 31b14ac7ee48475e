// Package remap rewrites LSP message URIs between the proxy's
// project-relative "source://" scheme and the child process's absolute
// "file://" scheme, per spec component C. Ported field-for-field from
// original_source/src/lsp/ext/relative_uri.rs: ToFile is applied to
// messages travelling toward the wrapped server, ToSource toward the
// WebSocket client, with the direction for each field baked into the
// dispatch tables in remap.go rather than chosen by the caller.
package remap

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const sourceScheme = "source://"

// ToFile rewrites a "source://<relative>" URI to an absolute "file://"
// URI resolved against cwd. It returns ok=false (no error) for any URI
// that isn't in the source:// scheme, matching the original's
// Option<Url>-returning "leave unchanged" contract.
func ToFile(uri string, cwd *url.URL) (rewritten string, ok bool, err error) {
	if !strings.HasPrefix(uri, sourceScheme) {
		return "", false, nil
	}
	rel := strings.TrimPrefix(uri, sourceScheme)
	resolved, err := cwd.Parse(rel)
	if err != nil {
		return "", false, errors.Wrapf(err, "remap: resolving %q against cwd %q", uri, cwd)
	}
	return resolved.String(), true, nil
}

// ToSource rewrites an absolute "file://" URI rooted under cwd back to a
// "source://<relative>" URI. It returns ok=false for any URI that isn't a
// file:// URI under cwd.
func ToSource(uri string, cwd *url.URL) (rewritten string, ok bool, err error) {
	if !strings.HasPrefix(uri, "file://") {
		return "", false, nil
	}
	cwdStr := cwd.String()
	rel, found := strings.CutPrefix(uri, cwdStr)
	if !found {
		return "", false, nil
	}
	return sourceScheme + rel, true, nil
}

// ProjectRootToCwd converts a filesystem project root path into the cwd
// URL used throughout remap: a "file://" URL with a guaranteed trailing
// slash, mirroring Url::from_directory_path's directory-URL invariant so
// strings.CutPrefix in ToSource lines up on a path boundary rather than a
// partial path-segment match.
func ProjectRootToCwd(absPath string) *url.URL {
	p := absPath
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return &url.URL{Scheme: "file", Path: p}
}
