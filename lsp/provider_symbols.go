package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentDocumentSymbol handles textDocument/documentSymbol requests.
// Outline extraction from an R parse tree is not implemented: the engine's
// scope data is keyed by visibility at a position, not by a document
// outline, and R has no single canonical notion of a top-level declaration
// the way a typed language does.
//
//nolint:nilnil // LSP protocol: nil result means no symbols
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	return nil, nil
}
