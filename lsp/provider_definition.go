package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentDefinition handles textDocument/definition requests. It
// resolves the identifier under the cursor against the scope visible at
// that position and returns the location(s) it could have come from.
//
//nolint:nilnil // LSP protocol: nil result means "no definition found"
func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	if !isRURI(uri) {
		return nil, nil
	}

	s.logger.Debug("definition request",
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
	enc := s.workspace.PositionEncoding()

	var locations []protocol.Location
	for _, sym := range symbols {
		if sym.Name != word {
			continue
		}
		if loc, ok := s.symbolLocation(sym, enc); ok {
			locations = append(locations, loc)
		}
	}
	if len(locations) == 0 {
		return nil, nil
	}
	return locations, nil
}
