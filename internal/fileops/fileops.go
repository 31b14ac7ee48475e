// Package fileops implements the transactional workspace-mutation batch
// that backs POST /files, spec component D. It is ported from
// original_source/src/api/files.rs's Operation::perform, generalized from
// the original's single NotRelativePath check to the stricter
// join-then-prefix NotProjectPath check the spec calls out as the
// conforming behavior, and enriched with FileEvent emission and
// empty-parent-directory cleanup, neither of which the original performs.
package fileops

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Op names the kind of a workspace Operation, matching the original's
// serde(tag = "op", rename_all = "camelCase") discriminator.
type Op string

const (
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

// Operation is one entry of a POST /files request batch. Exactly the
// fields relevant to Op are populated; the zero value of the others is
// ignored.
type Operation struct {
	Op       Op     `json:"op"`
	Path     string `json:"path,omitempty"`
	Contents string `json:"contents,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

// EventType is the FileEvent variant, matching the shape of an LSP
// workspace/didChangeWatchedFiles FileEvent.
type EventType string

const (
	Created EventType = "created"
	Changed EventType = "changed"
	Deleted EventType = "deleted"
)

// FileEvent describes one filesystem change resulting from an Operation.
// URI is a project-relative "source://" URI when remap is enabled, or the
// absolute "file://" form of the destination otherwise (spec component
// D), matching the scheme remap.ToFile and remap.ToSource use elsewhere
// in the proxy.
type FileEvent struct {
	URI  string    `json:"uri"`
	Type EventType `json:"type"`
}

// OperationError reports a single failed Operation without aborting the
// rest of the batch.
type OperationError struct {
	Operation Operation `json:"operation"`
	Reason    string    `json:"reason"`
}

// ErrNotProjectPath is returned (wrapped with the offending path) when an
// operation's resolved absolute path would fall outside cwd: an absolute
// input path, or a relative one that traverses above the root via "..".
var ErrNotProjectPath = errors.New("fileops: path is not rooted at the project directory")

// Apply performs every operation in ops against cwd, in order, without
// stopping the batch on a per-operation failure: a failed operation stops
// at its first failing step, contributes an OperationError, and the next
// operation still runs. The returned events
// preserve the order their operations completed in. When remap is true,
// event URIs use the project-relative "source://" scheme; when false,
// they use the absolute "file://" form of the destination path (spec
// §4.D).
func Apply(cwd string, ops []Operation, remap bool) (events []FileEvent, errs []OperationError) {
	for _, op := range ops {
		opEvents, err := perform(cwd, op, remap)
		if err != nil {
			errs = append(errs, OperationError{Operation: op, Reason: err.Error()})
			continue
		}
		events = append(events, opEvents...)
	}
	return events, errs
}

func perform(cwd string, op Operation, remap bool) ([]FileEvent, error) {
	switch op.Op {
	case OpWrite:
		return performWrite(cwd, op.Path, op.Contents, remap)
	case OpRemove:
		return performRemove(cwd, op.Path, remap)
	case OpRename:
		return performRename(cwd, op.From, op.To, remap)
	default:
		return nil, errors.Errorf("fileops: unknown operation %q", op.Op)
	}
}

func performWrite(cwd, path, contents string, remap bool) ([]FileEvent, error) {
	apath, err := resolve(cwd, path)
	if err != nil {
		return nil, err
	}

	existed := fileExists(apath)

	if err := createParentDirs(apath); err != nil {
		return nil, errors.Wrapf(err, "fileops: creating directories for %s", path)
	}
	if err := os.WriteFile(apath, []byte(contents), 0o644); err != nil {
		return nil, errors.Wrapf(err, "fileops: writing %s", path)
	}

	eventType := Created
	if existed {
		eventType = Changed
	}
	return []FileEvent{{URI: eventURI(path, apath, remap), Type: eventType}}, nil
}

func performRemove(cwd, path string, remap bool) ([]FileEvent, error) {
	apath, err := resolve(cwd, path)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(apath); err != nil {
		return nil, errors.Wrapf(err, "fileops: removing %s", path)
	}
	pruneEmptyParents(cwd, filepath.Dir(apath))

	return []FileEvent{{URI: eventURI(path, apath, remap), Type: Deleted}}, nil
}

func performRename(cwd, from, to string, remap bool) ([]FileEvent, error) {
	src, err := resolve(cwd, from)
	if err != nil {
		return nil, err
	}
	dst, err := resolve(cwd, to)
	if err != nil {
		return nil, err
	}

	dstExisted := fileExists(dst)

	if err := createParentDirs(dst); err != nil {
		return nil, errors.Wrapf(err, "fileops: creating directories for %s", to)
	}
	if err := os.Rename(src, dst); err != nil {
		return nil, errors.Wrapf(err, "fileops: renaming %s to %s", from, to)
	}
	pruneEmptyParents(cwd, filepath.Dir(src))

	toType := Created
	if dstExisted {
		toType = Changed
	}
	return []FileEvent{
		{URI: eventURI(from, src, remap), Type: Deleted},
		{URI: eventURI(to, dst, remap), Type: toType},
	}, nil
}

// resolve joins path onto cwd and verifies the result is still rooted at
// cwd, rejecting both absolute input paths and "../" escapes in one
// check: the stricter of the two behaviors the spec documents, and the
// one it calls out as conforming.
func resolve(cwd, path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", errors.Wrapf(ErrNotProjectPath, "path %q", path)
	}

	root := filepath.Clean(cwd)
	joined := filepath.Join(root, path)
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrNotProjectPath, "path %q", path)
	}
	return joined, nil
}

func createParentDirs(apath string) error {
	parent := filepath.Dir(apath)
	return os.MkdirAll(parent, 0o755)
}

func fileExists(apath string) bool {
	_, err := os.Lstat(apath)
	return err == nil
}

// pruneEmptyParents walks upward from dir toward (and excluding removal
// of) cwd, removing each directory that is now empty, stopping at the
// first non-empty directory or at cwd itself. Errors are ignored: a
// concurrent writer racing the cleanup is explicitly permitted to make
// this best-effort step spuriously fail.
func pruneEmptyParents(cwd, dir string) {
	root := filepath.Clean(cwd)
	for {
		dir = filepath.Clean(dir)
		if dir == root || dir == "." || dir == string(filepath.Separator) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// eventURI renders a FileEvent's URI: project-relative "source://<path>"
// when remap is enabled, or the absolute "file://<apath>" form otherwise,
// per spec §4.D ("when remap is true the URI is source://<relative>...
// when false it is the absolute file:// form of the destination").
func eventURI(path, apath string, remap bool) string {
	if remap {
		return "source://" + filepath.ToSlash(path)
	}
	return "file://" + filepath.ToSlash(apath)
}
