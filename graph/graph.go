package graph

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jbearak/rlsp/crossfile"
	"github.com/jbearak/rlsp/internal/trace"
)

// Edge is a single forward dependency: From includes To at the given call
// site.
type Edge struct {
	From, To       string
	CallSiteLine   uint32
	CallSiteColumn uint32
	Local          bool
	Chdir          bool
	IsSysSource    bool
}

// InheritsSymbols reports whether To's exported interface should be merged
// into From's scope at the call site.
func (e Edge) InheritsSymbols() bool {
	return !e.Local
}

// PathResolveFunc resolves a path string found in fromURI to a target URI.
type PathResolveFunc func(fromURI, path string) (resolvedURI string, ok bool)

// ContentLookupFunc returns the current content of uri, if known, without
// performing disk I/O (the caller is expected to have it from an open
// document, the file cache, or the workspace index).
type ContentLookupFunc func(uri string) (content string, ok bool)

// Graph holds the workspace's forward/reverse adjacency between files.
//
// The zero value is not usable; construct with [New].
type Graph struct {
	mu      sync.RWMutex
	forward map[string]map[crossfile.ForwardSourceKey]Edge
	reverse map[string]map[string][]Edge // to -> from -> edges
	logger  *slog.Logger
}

// New constructs an empty dependency graph.
func New(opts ...GraphOption) *Graph {
	cfg := graphConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Graph{
		forward: make(map[string]map[crossfile.ForwardSourceKey]Edge),
		reverse: make(map[string]map[string][]Edge),
		logger:  cfg.logger,
	}
}

// UpdateFile replaces all of uri's outgoing edges with the ones derived
// from forwardSources, and synthesizes additional edges from
// backwardDirectives (a child's claim that some other file includes it).
//
// resolve turns a directive/call path string into a target URI; it returns
// ok=false for paths that cannot be resolved (e.g. no workspace root for a
// "/"-rooted path), in which case that source or directive contributes no
// edge. contentOf is used to locate the line of a Match-kind call site in
// the declared parent's content.
//
// A backward directive whose synthesized (parent, call site) already has a
// forward edge to uri contributes nothing new and is skipped outright: it
// names the same edge the parent's own source() call already established.
// This is a structural dedup, not the §7 RedundantDirective diagnostic,
// which concerns the forward `@lsp-source` directive form instead (see
// [crossfile.RedundantDirectiveIssues]).
func (g *Graph) UpdateFile(
	uri string,
	forwardSources []crossfile.ForwardSource,
	backwardDirectives []crossfile.BackwardDirective,
	resolve PathResolveFunc,
	contentOf ContentLookupFunc,
) {
	if uri == "" {
		return
	}
	op := trace.Begin(context.Background(), g.logger, "rlsp.graph.update", slog.String("uri", uri))

	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeForwardEdgesFromLocked(uri)

	edges := make(map[crossfile.ForwardSourceKey]Edge)
	for _, fs := range forwardSources {
		resolvedURI, ok := resolve(uri, fs.Path)
		if !ok {
			continue
		}
		key := fs.ToKey(resolvedURI)
		edges[key] = Edge{
			From: uri, To: resolvedURI,
			CallSiteLine: fs.Line, CallSiteColumn: fs.Column,
			Local: fs.Local, Chdir: fs.Chdir, IsSysSource: fs.IsSysSource,
		}
	}

	for _, bd := range backwardDirectives {
		parentURI, ok := resolve(uri, bd.Path)
		if !ok {
			continue
		}
		line, col, ok := resolveCallSite(bd.CallSite, contentOf, parentURI)
		if !ok {
			continue
		}
		key := crossfile.ForwardSourceKey{ResolvedURI: uri, CallSiteLine: line, CallSiteColumn: col}
		if _, exists := g.forward[parentURI][key]; exists {
			continue
		}
		g.insertEdgeLocked(Edge{From: parentURI, To: uri, CallSiteLine: line, CallSiteColumn: col}, key)
	}

	for key, e := range edges {
		g.insertEdgeLocked(e, key)
	}

	op.End(nil, slog.Int("forward_count", len(edges)))
}

// resolveCallSite turns a CallSiteSpec into a concrete (line, column) against
// the declared parent's content. Callers needing the configured
// AssumeCallSite policy applied to an Unspecified spec must do so before
// calling UpdateFile, via [ResolveDefaultCallSites]: by the time a spec
// reaches here, Unspecified has no config to consult and falls back to
// line 0 purely as a defensive default.
func resolveCallSite(spec crossfile.CallSiteSpec, contentOf ContentLookupFunc, parentURI string) (line, col uint32, ok bool) {
	switch spec.Kind {
	case crossfile.CallSiteLine:
		return spec.Line, 0, true
	case crossfile.CallSiteMatch:
		content, found := contentOf(parentURI)
		if !found {
			return 0, 0, false
		}
		for i, l := range strings.Split(content, "\n") {
			if strings.Contains(l, spec.Pattern) {
				return uint32(i), 0, true
			}
		}
		return 0, 0, false
	default:
		return 0, 0, true
	}
}

// ResolveDefaultCallSites converts every Unspecified-kind call site among
// directives into an explicit Line spec, per assume: CallSiteAssumeStart
// resolves to line 0 (none of the parent's top-level symbols are available
// yet), CallSiteAssumeEnd resolves to the parent's last line (all of them
// are). fromURI is the file the directives were parsed from, used together
// with resolve to look up each directive's declared parent content.
//
// Callers must run this before [Graph.UpdateFile]: UpdateFile's own
// resolution of an Unspecified spec has no config to consult and always
// falls back to line 0, regardless of the engine's configured default.
func ResolveDefaultCallSites(
	directives []crossfile.BackwardDirective,
	assume crossfile.CallSiteDefault,
	fromURI string,
	resolve PathResolveFunc,
	contentOf ContentLookupFunc,
) []crossfile.BackwardDirective {
	if len(directives) == 0 {
		return directives
	}
	out := make([]crossfile.BackwardDirective, len(directives))
	for i, bd := range directives {
		if bd.CallSite.Kind != crossfile.CallSiteUnspecified {
			out[i] = bd
			continue
		}
		bd.CallSite = crossfile.CallSiteSpec{Kind: crossfile.CallSiteLine, Line: assumedCallSiteLine(assume, bd.Path, fromURI, resolve, contentOf)}
		out[i] = bd
	}
	return out
}

// assumedCallSiteLine computes the line an Unspecified call site resolves to
// under assume. CallSiteAssumeEnd needs the parent's content to find its
// last line; if the parent can't be resolved or its content isn't known yet,
// it falls back to line 0 rather than blocking on a disk read.
func assumedCallSiteLine(assume crossfile.CallSiteDefault, path, fromURI string, resolve PathResolveFunc, contentOf ContentLookupFunc) uint32 {
	if assume != crossfile.CallSiteAssumeEnd {
		return 0
	}
	parentURI, ok := resolve(fromURI, path)
	if !ok {
		return 0
	}
	content, ok := contentOf(parentURI)
	if !ok {
		return 0
	}
	lines := strings.Split(content, "\n")
	return uint32(len(lines) - 1)
}

func (g *Graph) insertEdgeLocked(e Edge, key crossfile.ForwardSourceKey) {
	if g.forward[e.From] == nil {
		g.forward[e.From] = make(map[crossfile.ForwardSourceKey]Edge)
	}
	g.forward[e.From][key] = e

	if g.reverse[e.To] == nil {
		g.reverse[e.To] = make(map[string][]Edge)
	}
	g.reverse[e.To][e.From] = append(g.reverse[e.To][e.From], e)
}

// removeForwardEdgesFromLocked drops every edge originating at uri and its
// mirrored reverse entries. Callers must hold g.mu for writing.
func (g *Graph) removeForwardEdgesFromLocked(uri string) {
	edges, ok := g.forward[uri]
	if !ok {
		return
	}
	targets := make(map[string]struct{})
	for _, e := range edges {
		targets[e.To] = struct{}{}
	}
	for to := range targets {
		if revs, ok := g.reverse[to]; ok {
			delete(revs, uri)
			if len(revs) == 0 {
				delete(g.reverse, to)
			}
		}
	}
	delete(g.forward, uri)
}

// RemoveFile drops every edge in which uri appears, in either direction.
func (g *Graph) RemoveFile(uri string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeForwardEdgesFromLocked(uri)

	for from, edges := range g.forward {
		for key, e := range edges {
			if e.To == uri {
				delete(edges, key)
			}
		}
		if len(edges) == 0 {
			delete(g.forward, from)
		}
	}
	delete(g.reverse, uri)
}

// Dependencies returns uri's direct forward neighbors (files it includes).
func (g *Graph) Dependencies(uri string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range g.forward[uri] {
		seen[e.To] = struct{}{}
	}
	return sortedKeys(seen)
}

// Dependents returns uri's direct reverse neighbors (files that include it).
func (g *Graph) Dependents(uri string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.reverse[uri])
}

// TransitiveDependents performs a breadth-first walk of uri's reverse
// adjacency, bounded by maxDepth, returning URIs in discovery order
// (excluding uri itself).
func (g *Graph) TransitiveDependents(uri string, maxDepth int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	type queued struct {
		uri   string
		depth int
	}
	visited := map[string]struct{}{uri: {}}
	queue := []queued{{uri, 0}}
	var out []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, dependent := range sortedKeys(g.reverse[cur.uri]) {
			if _, ok := visited[dependent]; ok {
				continue
			}
			visited[dependent] = struct{}{}
			out = append(out, dependent)
			queue = append(queue, queued{dependent, cur.depth + 1})
		}
	}
	return out
}

func sortedKeys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
