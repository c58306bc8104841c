// Package resolver implements scope_at_position: given a cursor, find the
// set of symbols visible there by walking the dependency graph outward from
// the file's effective root and merging each ancestor's and sourced
// sibling's exported interface in source order.
package resolver

import (
	"github.com/jbearak/rlsp/crossfile"
	"github.com/jbearak/rlsp/diag"
	"github.com/jbearak/rlsp/graph"
	"github.com/jbearak/rlsp/location"
)

// ArtifactsLookup resolves a URI to its computed scope artifacts,
// regardless of whether the file is open or only indexed. Callers compose
// this from whichever source is authoritative for a given URI: an open
// buffer's live analysis takes precedence over the workspace index.
type ArtifactsLookup func(uri string) (crossfile.ScopeArtifacts, bool)

// PackageExports maps an exported name to its descriptor for one package.
type PackageExports map[string]crossfile.SymbolDescriptor

// PackageLookup resolves a package name (as named by a library()/require()
// call) to its known exports. Resolution is external: the resolver never
// inspects installed package sources itself.
type PackageLookup func(pkg string) (PackageExports, bool)

// Resolver answers scope_at_position queries over a dependency graph.
//
// The zero value is not usable; construct with [New].
type Resolver struct {
	graph          *graph.Graph
	artifacts      ArtifactsLookup
	packages       PackageLookup
	priorityScore  graph.PriorityScoreFunc
	maxBackward    int
	maxForward     int
	maxChain       int
	missingFileSev diag.Severity
	missingPkgSev  diag.Severity
}

// New constructs a Resolver over g, using artifacts to look up each
// visited file's computed scope and packages to look up library exports.
// priorityScore breaks ties when a URI has more than one candidate parent
// (see [graph.Graph.ResolveParent]).
func New(
	g *graph.Graph,
	artifacts ArtifactsLookup,
	packages PackageLookup,
	priorityScore graph.PriorityScoreFunc,
	cfg crossfile.Config,
) *Resolver {
	missingFileSev := cfg.MissingFileSeverity
	if missingFileSev == 0 {
		missingFileSev = diag.Error
	}
	missingPkgSev := cfg.MissingPackageSeverity
	if missingPkgSev == 0 {
		missingPkgSev = diag.Warning
	}
	return &Resolver{
		graph:          g,
		artifacts:      artifacts,
		packages:       packages,
		priorityScore:  priorityScore,
		maxBackward:    cfg.MaxBackwardDepth,
		maxForward:     cfg.MaxForwardDepth,
		maxChain:       cfg.MaxChainDepth,
		missingFileSev: missingFileSev,
		missingPkgSev:  missingPkgSev,
	}
}

// position is an internal (line, column) pair in the same 0-based,
// UTF-16-column convention as [crossfile.ScopeEvent].
type position struct {
	line, column uint32
}

func (p position) before(other position) bool {
	if p.line != other.line {
		return p.line < other.line
	}
	return p.column < other.column
}

func (p position) atOrBefore(other position) bool {
	return p == other || p.before(other)
}

// ScopeAtPosition returns the symbols visible at (line, column) in uri,
// together with any diagnostics raised while resolving it (circular
// dependency, depth exceeded). Diagnostics are returned rather than
// collected internally so callers can attach them to the right publish
// cycle.
func (r *Resolver) ScopeAtPosition(uri string, line, column uint32) ([]crossfile.ResolvedSymbol, []diag.Issue) {
	target := position{line: line, column: column}

	root, issues := r.findEffectiveRoot(uri)

	visited := make(map[string]bool)
	scope, moreIssues := r.visibleAt(root, uri, target, r.maxForward, r.maxChain, visited)
	issues = append(issues, moreIssues...)

	out := make([]crossfile.ResolvedSymbol, 0, len(scope))
	for name, sym := range scope {
		out = append(out, crossfile.ResolvedSymbol{Name: name, URI: sym.uri, Span: sym.span})
	}
	return out, issues
}

// findEffectiveRoot walks uri's reverse edges upward, stopping when a node
// has no single parent or the backward depth bound is reached.
func (r *Resolver) findEffectiveRoot(uri string) (string, []diag.Issue) {
	var issues []diag.Issue

	cur := uri
	for depth := 0; depth < r.maxBackward; depth++ {
		resolution := r.graph.ResolveParent(cur, r.priorityScore)
		switch resolution.Kind {
		case graph.ParentSingle:
			cur = resolution.ParentURI
		case graph.ParentAmbiguous:
			issues = append(issues, diag.NewIssue(diag.Error, diag.E_AMBIGUOUS_PARENT,
				"more than one candidate parent for "+cur).Build())
			return cur, issues
		case graph.ParentNone:
			return cur, issues
		}
	}
	return cur, issues
}

// resolvedSymbol is the internal accumulator entry; it carries a
// location.Span so the public ResolvedSymbol can be built without
// re-deriving one from a bare (line, column) pair.
type resolvedSymbol struct {
	uri  string
	span location.Span
}

// visibleAt computes the symbols visible at boundary within fileURI,
// assuming fileURI is reached while traversing forward from root toward
// the original query's target file. chainDepth and forwardDepth are
// cumulative and per-edge budgets respectively; both are decremented on
// each descent into a sourced child.
func (r *Resolver) visibleAt(
	fileURI, queryURI string,
	boundary position,
	forwardDepth, chainDepth int,
	visited map[string]bool,
) (map[string]resolvedSymbol, []diag.Issue) {
	if visited[fileURI] {
		return nil, []diag.Issue{
			diag.NewIssue(diag.Error, diag.E_CIRCULAR_DEPENDENCY,
				"forward traversal revisited "+fileURI).Build(),
		}
	}
	visited[fileURI] = true
	defer delete(visited, fileURI)

	if forwardDepth < 0 || chainDepth < 0 {
		return nil, []diag.Issue{
			diag.NewIssue(diag.Warning, diag.E_MAX_CHAIN_DEPTH_EXCEEDED,
				"traversal stopped before reaching "+fileURI).Build(),
		}
	}

	artifacts, ok := r.artifacts(fileURI)
	if !ok {
		// Structural failure: unreadable or unindexed file. Recover
		// locally with an empty scope rather than failing the query.
		return nil, []diag.Issue{
			diag.NewIssue(r.missingFileSev, diag.E_MISSING_FILE,
				"could not resolve contents of "+fileURI).Build(),
		}
	}

	// The query position bounds only the file actually being queried. Every
	// other file is walked to its end: a sourced sibling executes to
	// completion before control returns, and an ancestor on the chain
	// leading to the queried file is not cut off at the call site that
	// leads there, so its definitions after that call site are visible too.
	effectiveBoundary := boundary
	if fileURI != queryURI {
		effectiveBoundary = position{line: ^uint32(0), column: ^uint32(0)}
	}

	enclosing := enclosingInterval(effectiveBoundary, artifacts.FunctionIntervals)

	out := make(map[string]resolvedSymbol)
	var issues []diag.Issue

	for _, ev := range artifacts.Timeline {
		evPos := position{line: ev.Line, column: ev.Column}
		if !evPos.atOrBefore(effectiveBoundary) {
			break
		}
		if !inEffectiveScope(ev.Line, enclosing, artifacts.FunctionIntervals) {
			continue
		}

		switch ev.Kind {
		case crossfile.EventDefine:
			out[ev.Name] = resolvedSymbol{
				uri:  fileURI,
				span: location.Point(location.MustNewSourceID(fileURI), int(ev.Line)+1, int(ev.Column)+1),
			}
		case crossfile.EventRemove:
			delete(out, ev.Name)
		case crossfile.EventSourceBoundary:
			if !ev.Inherits {
				continue
			}
			childScope, childIssues := r.visibleAt(ev.Detail, queryURI, boundary, forwardDepth-1, chainDepth-1, visited)
			issues = append(issues, childIssues...)
			for name, sym := range childScope {
				out[name] = sym
			}
		}
	}

	for _, lc := range artifacts.LibraryCalls {
		lcPos := position{line: lc.Line, column: lc.Column}
		if !lcPos.atOrBefore(effectiveBoundary) {
			continue
		}
		if !inEffectiveScope(lc.Line, enclosing, artifacts.FunctionIntervals) {
			continue
		}
		exports, ok := r.packageExports(lc.Package)
		if !ok {
			issues = append(issues, diag.NewIssue(r.missingPkgSev, diag.E_MISSING_PACKAGE,
				"library exports could not be resolved for package "+lc.Package).Build())
			continue
		}
		for name, desc := range exports {
			out[name] = resolvedSymbol{uri: "pkg:" + lc.Package, span: desc.Span}
		}
	}

	return out, issues
}

func (r *Resolver) packageExports(pkg string) (PackageExports, bool) {
	if r.packages == nil {
		return nil, false
	}
	return r.packages(pkg)
}

// enclosingInterval returns the innermost function interval containing
// boundary, or nil if boundary is at top level.
func enclosingInterval(boundary position, intervals []crossfile.FunctionInterval) *crossfile.FunctionInterval {
	var best *crossfile.FunctionInterval
	for i := range intervals {
		iv := &intervals[i]
		if int(boundary.line) > iv.StartLine && int(boundary.line) <= iv.EndLine {
			if best == nil || iv.StartLine > best.StartLine {
				best = iv
			}
		}
	}
	return best
}

// inEffectiveScope reports whether an event at line belongs to the scope
// being built: top level, or nested within the same enclosing interval the
// cursor is in.
func inEffectiveScope(line uint32, enclosing *crossfile.FunctionInterval, all []crossfile.FunctionInterval) bool {
	nested := false
	for _, iv := range all {
		if int(line) > iv.StartLine && int(line) <= iv.EndLine {
			nested = true
			if enclosing != nil && iv.StartLine == enclosing.StartLine && iv.EndLine == enclosing.EndLine {
				return true
			}
		}
	}
	return !nested
}
