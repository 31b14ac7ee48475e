// Package lspmsg implements the tagged-union LSP message model: every frame
// payload is classified, by a closed vocabulary of method names plus
// structural field presence, into one of Request, Notification, Response, or
// Unknown (component B). Classification and remapping both operate directly
// on the original JSON bytes (via gjson reads and sjson in-place writes)
// rather than through a full struct model, so any message whose shape we
// don't have an opinion about round-trips byte-for-byte.
package lspmsg

// Direction records which side of the connection a known method
// originates from, mostly for documentation and tests; it has no bearing
// on classification itself.
type Direction int

const (
	ToServer Direction = iota
	ToClient
	Bidirectional
)

// requestMethods is the closed vocabulary of "method" values that make a
// message with both "method" and "id" present a Request, grounded on
// original_source/src/lsp/request.rs's enumerated variant list.
var requestMethods = map[string]Direction{
	"initialize":                     ToServer,
	"shutdown":                       ToServer,
	"workspace/symbol":               ToServer,
	"workspace/executeCommand":       ToServer,
	"textDocument/willSaveWaitUntil": ToServer,
	"textDocument/completion":        ToServer,
	"completionItem/resolve":         ToServer,
	"textDocument/hover":             ToServer,
	"textDocument/signatureHelp":     ToServer,
	"textDocument/declaration":       ToServer,
	"textDocument/definition":        ToServer,
	"textDocument/typeDefinition":    ToServer,
	"textDocument/implementation":    ToServer,
	"textDocument/references":        ToServer,
	"textDocument/documentHighlight": ToServer,
	"textDocument/documentSymbol":    ToServer,
	"textDocument/codeAction":        ToServer,
	"textDocument/codeLens":          ToServer,
	"codeLens/resolve":               ToServer,
	"textDocument/documentLink":      ToServer,
	"documentLink/resolve":           ToServer,
	"textDocument/documentColor":     ToServer,
	"textDocument/colorPresentation": ToServer,
	"textDocument/formatting":        ToServer,
	"textDocument/rangeFormatting":   ToServer,
	"textDocument/onTypeFormatting":  ToServer,
	"textDocument/rename":            ToServer,
	"textDocument/prepareRename":     ToServer,
	"textDocument/foldingRange":      ToServer,
	"textDocument/selectionRange":    ToServer,
	"window/workDoneProgress/cancel": ToServer,

	"window/showMessageRequest":     ToClient,
	"client/registerCapability":     ToClient,
	"client/unregisterCapability":   ToClient,
	"workspace/workspaceFolders":    ToClient,
	"workspace/configuration":       ToClient,
	"workspace/applyEdit":           ToClient,
	"window/workDoneProgress/create": ToClient,
}

// notificationMethods is the closed vocabulary for Notification, grounded
// on original_source/src/lsp/notification.rs.
var notificationMethods = map[string]Direction{
	"initialized":                        ToServer,
	"exit":                               ToServer,
	"workspace/didChangeWorkspaceFolders": ToServer,
	"workspace/didChangeConfiguration":    ToServer,
	"workspace/didChangeWatchedFiles":     ToServer,
	"textDocument/didOpen":                ToServer,
	"textDocument/didChange":              ToServer,
	"textDocument/willSave":               ToServer,
	"textDocument/didSave":                ToServer,
	"textDocument/didClose":               ToServer,

	"window/logMessage":                 ToClient,
	"window/showMessage":                ToClient,
	"telemetry/event":                   ToClient,
	"textDocument/publishDiagnostics":   ToClient,

	"$/progress":      Bidirectional,
	"$/cancelRequest":  Bidirectional,
}

// IsKnownRequestMethod reports whether method is in the closed request
// vocabulary.
func IsKnownRequestMethod(method string) bool {
	_, ok := requestMethods[method]
	return ok
}

// IsKnownNotificationMethod reports whether method is in the closed
// notification vocabulary.
func IsKnownNotificationMethod(method string) bool {
	_, ok := notificationMethods[method]
	return ok
}
