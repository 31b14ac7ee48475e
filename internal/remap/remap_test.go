package remap

import (
	"net/url"
	"testing"

	"github.com/nerved-io/lsp-ws-proxy/internal/lspmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testCwd() *url.URL {
	return ProjectRootToCwd("/home/user/project")
}

func parse(t *testing.T, raw string) *lspmsg.Message {
	t.Helper()
	msg, err := lspmsg.Parse([]byte(raw))
	require.NoError(t, err)
	return msg
}

func gjsonGet(raw []byte, path string) string {
	return gjson.GetBytes(raw, path).String()
}

func gjsonGetRaw(raw []byte, path string) string {
	return gjson.GetBytes(raw, path).Raw
}

func gjsonExists(raw []byte, path string) bool {
	return gjson.GetBytes(raw, path).Exists()
}

func TestToFileToSourceInvolutive(t *testing.T) {
	cwd := testCwd()

	file, ok, err := ToFile("source://src/main.go", cwd)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "file:///home/user/project/src/main.go", file)

	source, ok, err := ToSource(file, cwd)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "source://src/main.go", source)
}

func TestToFileIgnoresNonSourceScheme(t *testing.T) {
	cwd := testCwd()
	_, ok, err := ToFile("file:///already/absolute.go", cwd)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToSourceIgnoresURIOutsideCwd(t *testing.T) {
	cwd := testCwd()
	_, ok, err := ToSource("file:///somewhere/else/main.go", cwd)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyNotificationDidOpenToFile(t *testing.T) {
	cwd := testCwd()
	msg := parse(t, `{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"textDocument":{"uri":"source://a.ts","languageId":"ts","version":1,"text":"x"}}}`)

	require.NoError(t, Apply(msg, cwd))

	got := gjsonGet(msg.Raw, "params.textDocument.uri")
	assert.Equal(t, "file:///home/user/project/a.ts", got)
	// Untouched sibling fields must survive byte for byte.
	assert.Equal(t, "ts", gjsonGet(msg.Raw, "params.textDocument.languageId"))
}

func TestApplyNotificationPublishDiagnosticsToSource(t *testing.T) {
	cwd := testCwd()
	msg := parse(t, `{"jsonrpc":"2.0","method":"textDocument/publishDiagnostics","params":{"uri":"file:///home/user/project/a.ts","diagnostics":[]}}`)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, "source://a.ts", gjsonGet(msg.Raw, "params.uri"))
}

func TestApplyNotificationWatchedFilesArray(t *testing.T) {
	cwd := testCwd()
	msg := parse(t, `{"jsonrpc":"2.0","method":"workspace/didChangeWatchedFiles","params":{"changes":[{"uri":"source://a.ts","type":1},{"uri":"source://b.ts","type":2}]}}`)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, "file:///home/user/project/a.ts", gjsonGet(msg.Raw, "params.changes.0.uri"))
	assert.Equal(t, "file:///home/user/project/b.ts", gjsonGet(msg.Raw, "params.changes.1.uri"))
}

func TestApplyRequestTextDocumentPositionFlatShape(t *testing.T) {
	cwd := testCwd()
	msg := parse(t, `{"jsonrpc":"2.0","id":5,"method":"textDocument/hover","params":{"textDocument":{"uri":"source://a.ts"},"position":{"line":0,"character":1}}}`)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, "file:///home/user/project/a.ts", gjsonGet(msg.Raw, "params.textDocument.uri"))
}

func TestApplyRequestInitializeRootUriAndFolders(t *testing.T) {
	cwd := testCwd()
	msg := parse(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"rootUri":"source://","workspaceFolders":[{"uri":"source://pkg","name":"pkg"}]}}`)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, "file:///home/user/project/", gjsonGet(msg.Raw, "params.rootUri"))
	assert.Equal(t, "file:///home/user/project/pkg", gjsonGet(msg.Raw, "params.workspaceFolders.0.uri"))
}

func TestApplyRequestWorkspaceConfigurationToSource(t *testing.T) {
	cwd := testCwd()
	msg := parse(t, `{"jsonrpc":"2.0","id":9,"method":"workspace/configuration","params":{"items":[{"scopeUri":"file:///home/user/project/pkg","section":"go"}]}}`)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, "source://pkg", gjsonGet(msg.Raw, "params.items.0.scopeUri"))
}

func TestApplyResponseLocationList(t *testing.T) {
	cwd := testCwd()
	msg := parse(t, `{"jsonrpc":"2.0","id":2,"result":[{"uri":"file:///home/user/project/a.ts","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}}}]}`)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, "source://a.ts", gjsonGet(msg.Raw, "result.0.uri"))
}

func TestApplyResponseSingleLocation(t *testing.T) {
	cwd := testCwd()
	msg := parse(t, `{"jsonrpc":"2.0","id":2,"result":{"uri":"file:///home/user/project/a.ts","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}}}}`)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, "source://a.ts", gjsonGet(msg.Raw, "result.uri"))
}

// TestApplyResponseWorkspaceFoldersUsesToFile covers the one documented
// exception: a workspace/workspaceFolders *response* travels client ->
// server, so unlike every other response it is remapped with ToFile
// rather than ToSource.
func TestApplyResponseWorkspaceFoldersUsesToFile(t *testing.T) {
	cwd := testCwd()
	msg := parse(t, `{"jsonrpc":"2.0","id":3,"result":[{"uri":"source://pkg","name":"pkg"}]}`)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, "file:///home/user/project/pkg", gjsonGet(msg.Raw, "result.0.uri"))
}

func TestApplyResponseFailureIsNoop(t *testing.T) {
	cwd := testCwd()
	raw := `{"jsonrpc":"2.0","id":4,"error":{"code":-32700,"message":"parse error"}}`
	msg := parse(t, raw)

	require.NoError(t, Apply(msg, cwd))

	assert.JSONEq(t, raw, string(msg.Raw))
}

// TestApplyResponseWorkspaceEditChangesMap confirms every key of a
// changes map is rewritten to source:// with the associated TextEdit
// arrays left untouched.
func TestApplyResponseWorkspaceEditChangesMap(t *testing.T) {
	cwd := testCwd()
	raw := `{"jsonrpc":"2.0","id":6,"result":{"changes":{` +
		`"file:///home/user/project/a.ts":[{"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":0}},"newText":"first"}],` +
		`"file:///home/user/project/b.ts":[{"range":{"start":{"line":1,"character":0},"end":{"line":1,"character":0}},"newText":"second"}]` +
		`}}}`
	msg := parse(t, raw)

	require.NoError(t, Apply(msg, cwd))

	assert.True(t, gjsonExists(msg.Raw, "result.changes.source://a\\.ts"))
	assert.Equal(t, "first", gjsonGet(msg.Raw, "result.changes.source://a\\.ts.0.newText"))
	assert.Equal(t, "second", gjsonGet(msg.Raw, "result.changes.source://b\\.ts.0.newText"))
}

// TestRemapChangesMapCollisionLastWriteWins exercises remapChangesMap
// directly against two keys that convert to the identical source:// key
// (simulated here by repeating the same file:// key, which two
// semantically-equivalent-but-textually-distinct absolute URIs would
// also produce): the rebuild walks the map in document order and writes
// each converted key with sjson.SetRawBytes, so the later key's value
// overwrites the earlier one, matching the original's HashMap
// drain-and-reinsert behavior.
func TestRemapChangesMapCollisionLastWriteWins(t *testing.T) {
	cwd := testCwd()
	raw := []byte(`{"changes":{` +
		`"file:///home/user/project/a.ts":[{"newText":"first"}],` +
		`"file:///home/user/project/a.ts":[{"newText":"second"}]` +
		`}}`)

	merged, err := remapChangesMap(raw, "changes", cwd)
	require.NoError(t, err)

	result := gjson.GetBytes(merged, "changes")
	assert.Len(t, result.Map(), 1)
	assert.Equal(t, "second", gjsonGet(merged, "changes.source://a\\.ts.0.newText"))
}

func TestApplyResponseDocumentChangesRename(t *testing.T) {
	cwd := testCwd()
	raw := `{"jsonrpc":"2.0","id":7,"result":{"documentChanges":[` +
		`{"kind":"rename","oldUri":"file:///home/user/project/old.ts","newUri":"file:///home/user/project/new.ts"}` +
		`]}}`
	msg := parse(t, raw)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, "source://old.ts", gjsonGet(msg.Raw, "result.documentChanges.0.oldUri"))
	assert.Equal(t, "source://new.ts", gjsonGet(msg.Raw, "result.documentChanges.0.newUri"))
}

func TestApplyResponseDocumentChangesTextEdit(t *testing.T) {
	cwd := testCwd()
	raw := `{"jsonrpc":"2.0","id":8,"result":{"documentChanges":[` +
		`{"textDocument":{"uri":"file:///home/user/project/a.ts","version":2},"edits":[]}` +
		`]}}`
	msg := parse(t, raw)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, "source://a.ts", gjsonGet(msg.Raw, "result.documentChanges.0.textDocument.uri"))
}

func TestApplyResponseCodeActionOnlyRemapsItemsWithEdit(t *testing.T) {
	cwd := testCwd()
	raw := `{"jsonrpc":"2.0","id":10,"result":[` +
		`{"title":"command only"},` +
		`{"title":"with edit","edit":{"changes":{"file:///home/user/project/a.ts":[]}}}` +
		`]}`
	msg := parse(t, raw)

	require.NoError(t, Apply(msg, cwd))

	assert.False(t, gjsonExists(msg.Raw, "result.0.edit"))
	changes := gjsonGetRaw(msg.Raw, "result.1.edit.changes")
	assert.Contains(t, changes, "source://a.ts")
}

func TestApplyUnknownMessageIsNoop(t *testing.T) {
	cwd := testCwd()
	raw := `{"jsonrpc":"2.0","method":"language/status","params":{"uri":"source://a.ts"}}`
	msg := parse(t, raw)

	require.NoError(t, Apply(msg, cwd))

	assert.Equal(t, raw, string(msg.Raw))
}
