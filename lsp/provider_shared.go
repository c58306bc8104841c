package lsp

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jbearak/rlsp/crossfile"
	"github.com/jbearak/rlsp/internal/source"
	"github.com/jbearak/rlsp/location"
)

// identAt returns the R identifier touching column (0-based, UTF-16 code
// units) on the given line of text. R identifiers may contain letters,
// digits, '.' and '_', and may be backtick-quoted; backtick-quoting is not
// unwrapped here since the resolver compares against the bare name either
// way.
func identAt(line string, column int) (string, bool) {
	runes := []rune(line)
	// Convert the UTF-16 column to a rune index; a rune outside the BMP
	// takes two code units.
	idx, units := 0, 0
	for idx < len(runes) && units < column {
		if runes[idx] > 0xFFFF {
			units += 2
		} else {
			units++
		}
		idx++
	}
	column = idx

	isIdentRune := func(r rune) bool {
		return r == '.' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
	}

	start := column
	for start > 0 && isIdentRune(runes[start-1]) {
		start--
	}
	end := column
	for end < len(runes) && isIdentRune(runes[end]) {
		end++
	}
	if start == end {
		return "", false
	}
	return string(runes[start:end]), true
}

// lineAt returns the text's line-th line (0-based), or "" if out of range.
func lineAt(text string, line int) string {
	lines := strings.Split(text, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line], "\r")
}

// sourceIDForURI derives the [location.SourceID] a symbol resolved from uri
// would carry, matching how the crossfile packages key spans: off of the
// file's canonical path.
func sourceIDForURI(uri string) (location.SourceID, bool) {
	path, err := URIToPath(uri)
	if err != nil {
		return location.SourceID{}, false
	}
	cp, err := location.NewCanonicalPath(path)
	if err != nil {
		return location.SourceID{}, false
	}
	return location.SourceIDFromCanonicalPath(cp), true
}

// symbolLocation converts a resolved symbol's span to an LSP Location by
// registering the defining file's content in a throwaway registry, just
// long enough to run the byte-offset-to-UTF-16 conversion.
func (s *Server) symbolLocation(sym crossfile.ResolvedSymbol, enc PositionEncoding) (protocol.Location, bool) {
	if sym.Span.IsZero() || !sym.Span.IsValid() {
		return protocol.Location{}, false
	}
	content, ok := s.workspace.content.Content(sym.URI)
	if !ok {
		return protocol.Location{}, false
	}
	sourceID, ok := sourceIDForURI(sym.URI)
	if !ok {
		return protocol.Location{}, false
	}

	reg := source.NewRegistry()
	if err := reg.Register(sourceID, []byte(content)); err != nil {
		return protocol.Location{}, false
	}
	span := sym.Span
	span.Source = sourceID

	start, end, ok := SpanToLSPRange(reg, span, enc)
	if !ok {
		return protocol.Location{}, false
	}
	return protocol.Location{
		URI: sym.URI,
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(start[0]), Character: protocol.UInteger(start[1])},
			End:   protocol.Position{Line: protocol.UInteger(end[0]), Character: protocol.UInteger(end[1])},
		},
	}, true
}
