package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentFormatting handles textDocument/formatting requests. R has
// no single canonical formatter this server could defer to (unlike gofmt);
// formatting is left to editor-side tooling such as styler or air.
func (s *Server) textDocumentFormatting(_ *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	return nil, nil
}
