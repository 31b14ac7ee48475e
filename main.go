// Command lsp-ws-proxy bridges stdio-based LSP servers to WebSocket
// clients. See `lsp-ws-proxy --help`.
package main

import "github.com/nerved-io/lsp-ws-proxy/cmd"

func main() {
	cmd.Execute()
}
