package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentCompletion handles textDocument/completion requests. It
// offers every symbol visible at the cursor, deduplicated by name. R's own
// builtins and loaded-package exports are not enumerated here; completion
// is scoped to names the cross-file engine can actually attribute to a
// source location.
//
//nolint:nilnil // LSP protocol: nil result means no completions
func (s *Server) textDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := params.TextDocument.URI
	if !isRURI(uri) {
		return nil, nil
	}

	s.logger.Debug("completion request",
		"uri", uri,
		"line", params.Position.Line,
		"character", params.Position.Character,
	)

	symbols, _ := s.workspace.ScopeAt(uri, params.Position.Line, params.Position.Character)
	if len(symbols) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(symbols))
	items := make([]protocol.CompletionItem, 0, len(symbols))
	kind := protocol.CompletionItemKindVariable
	for _, sym := range symbols {
		if seen[sym.Name] {
			continue
		}
		seen[sym.Name] = true
		items = append(items, protocol.CompletionItem{
			Label: sym.Name,
			Kind:  &kind,
		})
	}
	return items, nil
}
