package crossfile

import "github.com/jbearak/rlsp/diag"

// RedundantDirectiveIssues compares directive-derived forward sources
// against AST-detected ones and reports an E_REDUNDANT_DIRECTIVE issue for
// each directive-form entry that adds no information a detected source()/
// sys.source() call didn't already supply: an @lsp-source without an
// explicit line= whose path matches some detected call's path (§7).
//
// A directive with ExplicitLine pins its own call site and is never
// considered redundant here, even if its path also matches a detected call,
// since it may be documenting a second, distinct inclusion of the same file.
//
// The diagnostic is always diag.Info: a redundant directive still merges
// (the resolved path is unaffected), so this is purely informational,
// unlike MissingFile/MissingPackage which mark a genuine resolution failure.
func RedundantDirectiveIssues(directiveSources, detectedSources []ForwardSource) []diag.Issue {
	detectedPaths := make(map[string]bool, len(detectedSources))
	for _, d := range detectedSources {
		detectedPaths[d.Path] = true
	}

	var issues []diag.Issue
	for _, d := range directiveSources {
		if !d.IsDirective || d.ExplicitLine {
			continue
		}
		if detectedPaths[d.Path] {
			issues = append(issues, diag.NewIssue(diag.Info, diag.E_REDUNDANT_DIRECTIVE,
				"@lsp-source directive for "+d.Path+" is already implied by a source() call").Build())
		}
	}
	return issues
}
