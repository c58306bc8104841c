package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jbearak/rlsp/diag"
)

// diagnosticSource identifies this server in published diagnostics.
const diagnosticSource = "rlsp"

// convertIssues converts a batch of diag.Issue into LSP diagnostics, all
// anchored at 0:0: callers attach the result to whichever URI the batch
// logically belongs to (the file being indexed, or the file a query was
// made against).
//
// None of the issues the crossfile packages raise carry a location.Span
// today: RedundantDirective, AmbiguousParent, CircularDependency and the
// rest are raised while walking the graph, not while walking a single
// file's AST, so there is no span to attach upstream. Each is reported at
// 0:0 instead, the same way the teacher's analyzer attached span-less
// I/O-error diagnostics to the entry file rather than dropping them.
func convertIssues(issues []diag.Issue) []protocol.Diagnostic {
	if len(issues) == 0 {
		return nil
	}

	rng := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: 0, Character: 0},
	}

	out := make([]protocol.Diagnostic, 0, len(issues))
	for _, issue := range issues {
		severity := convertSeverity(issue.Severity())
		source := diagnosticSource

		out = append(out, protocol.Diagnostic{
			Range:    rng,
			Severity: severity,
			Code:     &protocol.IntegerOrString{Value: issue.Code().String()},
			Source:   &source,
			Message:  issue.Message(),
		})
	}
	return out
}

// convertSeverity converts a diag.Severity to an LSP protocol severity.
func convertSeverity(severity diag.Severity) *protocol.DiagnosticSeverity {
	var s protocol.DiagnosticSeverity
	switch diag.SeverityToLSP(severity) {
	case diag.LSPSeverityError:
		s = protocol.DiagnosticSeverityError
	case diag.LSPSeverityWarning:
		s = protocol.DiagnosticSeverityWarning
	case diag.LSPSeverityInformation:
		s = protocol.DiagnosticSeverityInformation
	case diag.LSPSeverityHint:
		s = protocol.DiagnosticSeverityHint
	default:
		s = protocol.DiagnosticSeverityError
	}
	return &s
}
