package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentHover handles textDocument/hover requests. It reports which
// file the identifier under the cursor resolves from, without attempting
// to render R's own documentation (Rd files are outside this engine's
// scope).
//
//nolint:nilnil // LSP protocol: nil result means "no hover info"
func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	if !isRURI(uri) {
		return nil, nil
	}

	s.logger.Debug("hover request",
		"uri", uri,
		"line", params.Position.Line,
		"character", params.Position.Character,
	)

	text, ok := s.workspace.openDocumentText(uri)
	if !ok {
		return nil, nil
	}
	word, ok := identAt(lineAt(text, int(params.Position.Line)), int(params.Position.Character))
	if !ok {
		return nil, nil
	}

	symbols, _ := s.workspace.ScopeAt(uri, params.Position.Line, params.Position.Character)
	for _, sym := range symbols {
		if sym.Name != word {
			continue
		}
		kind := protocol.MarkupKindPlainText
		return &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  kind,
				Value: word + " (from " + sym.URI + ")",
			},
		}, nil
	}
	return nil, nil
}
