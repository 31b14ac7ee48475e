package remap

import (
	"fmt"
	"net/url"

	"github.com/nerved-io/lsp-ws-proxy/internal/lspmsg"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Apply rewrites every URI-bearing field of msg in place, choosing
// to_file or to_source per field according to the dispatch tables below.
// Messages outside the closed vocabulary (KindUnknown) are left untouched,
// matching the original's no-op Message::Unknown arm.
func Apply(msg *lspmsg.Message, cwd *url.URL) error {
	switch msg.Kind {
	case lspmsg.KindNotification:
		return applyNotification(msg, cwd)
	case lspmsg.KindRequest:
		return applyRequest(msg, cwd)
	case lspmsg.KindResponse:
		return applyResponse(msg, cwd)
	default:
		return nil
	}
}

// rewrite reads the string at path, converts it with convert, and writes
// the result back at the same path if the conversion applies. A missing
// field, or a URI the conversion doesn't apply to, is a silent no-op.
func rewrite(raw []byte, path string, cwd *url.URL, convert func(string, *url.URL) (string, bool, error)) ([]byte, error) {
	val := gjson.GetBytes(raw, path)
	if !val.Exists() || val.Type != gjson.String {
		return raw, nil
	}
	rewritten, ok, err := convert(val.String(), cwd)
	if err != nil {
		return raw, errors.Wrapf(err, "remap: %s", path)
	}
	if !ok {
		return raw, nil
	}
	return sjson.SetBytes(raw, path, rewritten)
}

// rewriteEach applies rewrite to path for every index of the array at
// arrayPath, building "<arrayPath>.<i>.<path>" for each element.
func rewriteEach(raw []byte, arrayPath, path string, cwd *url.URL, convert func(string, *url.URL) (string, bool, error)) ([]byte, error) {
	arr := gjson.GetBytes(raw, arrayPath)
	if !arr.IsArray() {
		return raw, nil
	}
	n := len(arr.Array())
	var err error
	for i := 0; i < n; i++ {
		full := fmt.Sprintf("%s.%d.%s", arrayPath, i, path)
		raw, err = rewrite(raw, full, cwd, convert)
		if err != nil {
			return raw, err
		}
	}
	return raw, nil
}

func applyNotification(msg *lspmsg.Message, cwd *url.URL) error {
	raw := msg.Raw
	var err error

	switch msg.Method {
	case "textDocument/didSave", "textDocument/willSave", "textDocument/didClose":
		raw, err = rewrite(raw, "params.textDocument.uri", cwd, ToFile)

	case "workspace/didChangeWorkspaceFolders":
		raw, err = rewriteEach(raw, "params.event.added", "uri", cwd, ToFile)
		if err == nil {
			raw, err = rewriteEach(raw, "params.event.removed", "uri", cwd, ToFile)
		}

	case "workspace/didChangeWatchedFiles":
		raw, err = rewriteEach(raw, "params.changes", "uri", cwd, ToFile)

	case "textDocument/didOpen", "textDocument/didChange":
		raw, err = rewrite(raw, "params.textDocument.uri", cwd, ToFile)

	case "textDocument/publishDiagnostics":
		// to_source: this notification is always server -> client.
		raw, err = rewrite(raw, "params.uri", cwd, ToSource)

	default:
		// workspace/didChangeConfiguration, initialized, exit, logMessage,
		// showMessage, $/progress, $/cancelRequest, telemetry/event: no URI
		// fields to remap.
	}

	if err != nil {
		return err
	}
	msg.Raw = raw
	return nil
}

// textDocumentURIMethods are the request methods whose params carry a
// flat TextDocumentPositionParams-or-similar shape, where the wire-level
// URI always lives at params.textDocument.uri regardless of how the
// corresponding Rust type nests the field.
var textDocumentURIMethods = map[string]bool{
	"textDocument/willSaveWaitUntil": true,
	"textDocument/completion":        true,
	"textDocument/hover":             true,
	"textDocument/signatureHelp":     true,
	"textDocument/declaration":       true,
	"textDocument/definition":        true,
	"textDocument/typeDefinition":    true,
	"textDocument/implementation":    true,
	"textDocument/references":        true,
	"textDocument/documentHighlight": true,
	"textDocument/documentSymbol":    true,
	"textDocument/codeAction":        true,
	"textDocument/codeLens":          true,
	"textDocument/documentLink":      true,
	"textDocument/documentColor":     true,
	"textDocument/colorPresentation": true,
	"textDocument/formatting":        true,
	"textDocument/rangeFormatting":   true,
	"textDocument/onTypeFormatting":  true,
	"textDocument/rename":            true,
	"textDocument/prepareRename":     true,
	"textDocument/foldingRange":      true,
	"textDocument/selectionRange":    true,
}

func applyRequest(msg *lspmsg.Message, cwd *url.URL) error {
	raw := msg.Raw
	var err error

	switch {
	case msg.Method == "initialize":
		raw, err = rewrite(raw, "params.rootUri", cwd, ToFile)
		if err == nil {
			raw, err = rewriteEach(raw, "params.workspaceFolders", "uri", cwd, ToFile)
		}

	case textDocumentURIMethods[msg.Method]:
		raw, err = rewrite(raw, "params.textDocument.uri", cwd, ToFile)

	case msg.Method == "documentLink/resolve":
		raw, err = rewrite(raw, "params.target", cwd, ToFile)

	case msg.Method == "workspace/applyEdit":
		// To Client: the edit targets the client's view, so to_source.
		raw, err = remapWorkspaceEdit(raw, "params.edit", cwd)

	case msg.Method == "workspace/configuration":
		// To Client: scopeUri identifies a client-side workspace folder.
		raw, err = rewriteEach(raw, "params.items", "scopeUri", cwd, ToSource)

	default:
		// workspace/symbol, workspace/executeCommand, completionItem/resolve,
		// codeLens/resolve, shutdown, window/workDoneProgress/cancel,
		// window/showMessageRequest, client/(un)registerCapability,
		// workspace/workspaceFolders, window/workDoneProgress/create:
		// no URI fields to remap.
	}

	if err != nil {
		return err
	}
	msg.Raw = raw
	return nil
}

// resultShape is the ordered structural classification of a response's
// "result" value, mirroring ResponseResult's untagged-enum variant order:
// the first shape whose required fields are all present wins.
type resultShape int

const (
	shapeSymbolInfos resultShape = iota
	shapeLocationLinks
	shapeLocations
	shapeLocation
	shapeWorkspaceFolders
	shapeDocumentLinks
	shapeDocumentLinkResolve
	shapeCodeAction
	shapeWorkspaceEditBoth
	shapeWorkspaceEditChanges
	shapeWorkspaceEditDocChanges
	shapeAny
)

func classifyResult(result gjson.Result) resultShape {
	if result.IsArray() {
		items := result.Array()
		if len(items) == 0 {
			return shapeSymbolInfos // Vec<T> of any T is satisfied vacuously; first variant wins.
		}
		first := items[0]
		switch {
		case first.Get("location").Exists():
			return shapeSymbolInfos
		case first.Get("targetUri").Exists():
			return shapeLocationLinks
		case first.Get("uri").Exists() && first.Get("range").Exists():
			return shapeLocations
		case first.Get("uri").Exists() && first.Get("name").Exists():
			return shapeWorkspaceFolders
		case first.Get("range").Exists() && first.Get("target").Exists():
			return shapeDocumentLinks
		default:
			return shapeCodeAction
		}
	}

	if result.IsObject() {
		switch {
		case result.Get("uri").Exists() && result.Get("range").Exists():
			return shapeLocation
		case result.Get("range").Exists() && result.Get("target").Exists():
			return shapeDocumentLinkResolve
		case result.Get("changes").Exists() && result.Get("documentChanges").Exists():
			return shapeWorkspaceEditBoth
		case result.Get("changes").Exists():
			return shapeWorkspaceEditChanges
		case result.Get("documentChanges").Exists():
			return shapeWorkspaceEditDocChanges
		}
	}

	return shapeAny
}

func applyResponse(msg *lspmsg.Message, cwd *url.URL) error {
	result := gjson.GetBytes(msg.Raw, "result")
	if !result.Exists() {
		// Failure responses carry no typed result to remap.
		return nil
	}

	raw := msg.Raw
	var err error

	switch classifyResult(result) {
	case shapeSymbolInfos:
		raw, err = rewriteEach(raw, "result", "location.uri", cwd, ToSource)

	case shapeLocationLinks:
		raw, err = rewriteEach(raw, "result", "targetUri", cwd, ToSource)

	case shapeLocations:
		raw, err = rewriteEach(raw, "result", "uri", cwd, ToSource)

	case shapeLocation:
		raw, err = rewrite(raw, "result.uri", cwd, ToSource)

	case shapeWorkspaceFolders:
		// To File: this is a response arriving from the client.
		raw, err = rewriteEach(raw, "result", "uri", cwd, ToFile)

	case shapeDocumentLinks:
		raw, err = rewriteEach(raw, "result", "target", cwd, ToSource)

	case shapeDocumentLinkResolve:
		raw, err = rewrite(raw, "result.target", cwd, ToSource)

	case shapeCodeAction:
		raw, err = remapCodeActionResponse(raw, cwd)

	case shapeWorkspaceEditBoth, shapeWorkspaceEditChanges, shapeWorkspaceEditDocChanges:
		raw, err = remapWorkspaceEdit(raw, "result", cwd)

	default:
		// shapeAny: pass through untouched.
	}

	if err != nil {
		return err
	}
	msg.Raw = raw
	return nil
}

// remapCodeActionResponse remaps the optional .edit field of each
// CodeAction-variant element of a CodeActionResponse (Command-variant
// elements have no .edit field and are left untouched).
func remapCodeActionResponse(raw []byte, cwd *url.URL) ([]byte, error) {
	items := gjson.GetBytes(raw, "result")
	var err error
	for i, item := range items.Array() {
		if !item.Get("edit").Exists() {
			continue
		}
		path := fmt.Sprintf("result.%d.edit", i)
		raw, err = remapWorkspaceEdit(raw, path, cwd)
		if err != nil {
			return raw, err
		}
	}
	return raw, nil
}

// remapWorkspaceEdit rewrites a WorkspaceEdit value at path: its
// "changes" map keys (to_source, last-write-wins on collision) and its
// "documentChanges" array (to_source on each entry's URI field(s)).
func remapWorkspaceEdit(raw []byte, path string, cwd *url.URL) ([]byte, error) {
	var err error
	if gjson.GetBytes(raw, path+".changes").Exists() {
		raw, err = remapChangesMap(raw, path+".changes", cwd)
		if err != nil {
			return raw, err
		}
	}
	if gjson.GetBytes(raw, path+".documentChanges").Exists() {
		raw, err = remapDocumentChanges(raw, path+".documentChanges", cwd)
		if err != nil {
			return raw, err
		}
	}
	return raw, nil
}

// remapChangesMap rewrites the keys of a WorkspaceEdit.changes object
// (uri -> TextEdit[]) from file:// to source://. Keys are processed in
// their original document order and written back with sjson.Set, which
// overwrites on a repeated key — the same last-write-wins semantics as
// the original's HashMap drain-and-reinsert.
func remapChangesMap(raw []byte, path string, cwd *url.URL) ([]byte, error) {
	obj := gjson.GetBytes(raw, path)
	if !obj.IsObject() {
		return raw, nil
	}

	type entry struct {
		key   string
		value gjson.Result
	}
	var entries []entry
	obj.ForEach(func(key, value gjson.Result) bool {
		entries = append(entries, entry{key: key.String(), value: value})
		return true
	})

	rebuilt := []byte("{}")
	for _, e := range entries {
		newKey := e.key
		if converted, ok, err := ToSource(e.key, cwd); err != nil {
			return raw, err
		} else if ok {
			newKey = converted
		}
		var err error
		rebuilt, err = sjson.SetRawBytes(rebuilt, escapeKey(newKey), []byte(e.value.Raw))
		if err != nil {
			return raw, errors.Wrap(err, "remap: rebuilding changes map")
		}
	}

	return sjson.SetRawBytes(raw, path, rebuilt)
}

// escapeKey escapes a map key so it can be used as a literal sjson path
// segment, since keys here are URIs that may contain path-special
// characters like '.' and ':'.
func escapeKey(key string) string {
	out := make([]byte, 0, len(key)+2)
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '.' || c == '*' || c == '?' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

// remapDocumentChanges rewrites a DocumentChanges array: plain
// TextDocumentEdit entries (no "kind" tag) get their textDocument.uri
// rewritten; tagged ResourceOperation entries ("create"/"rename"/
// "delete") get their uri / oldUri+newUri rewritten.
func remapDocumentChanges(raw []byte, path string, cwd *url.URL) ([]byte, error) {
	arr := gjson.GetBytes(raw, path)
	if !arr.IsArray() {
		return raw, nil
	}

	var err error
	for i, item := range arr.Array() {
		base := fmt.Sprintf("%s.%d", path, i)
		kind := item.Get("kind").String()
		switch kind {
		case "rename":
			raw, err = rewrite(raw, base+".oldUri", cwd, ToSource)
			if err == nil {
				raw, err = rewrite(raw, base+".newUri", cwd, ToSource)
			}
		case "create", "delete":
			raw, err = rewrite(raw, base+".uri", cwd, ToSource)
		default:
			raw, err = rewrite(raw, base+".textDocument.uri", cwd, ToSource)
		}
		if err != nil {
			return raw, err
		}
	}
	return raw, nil
}
