// Package graph maintains the workspace's cross-file dependency graph: the
// forward and reverse adjacency between files connected by source() calls,
// sys.source() calls, and @lsp-source/@lsp-sourced-by directives.
//
// # Basic usage
//
//	g := graph.New(graph.WithLogger(logger))
//
//	backwardDirectives := graph.ResolveDefaultCallSites(backwardDirectives, cfg.AssumeCallSite, uri, resolve, contentOf)
//	g.UpdateFile(uri, forwardSources, backwardDirectives, resolve, contentOf)
//
//	deps := g.Dependencies(uri)   // direct forward neighbors
//	dependents := g.Dependents(uri) // direct reverse neighbors
//	parent := g.ResolveParent(uri, priorityScore)
//
// # Edges
//
// Every edge is directional: a forward edge from parent to child records
// the call site (line, column) in the parent where the child is included,
// and whether that inclusion carries the child's exported interface back
// into the parent's scope ([crossfile.ForwardSource.InheritsSymbols]).
// Backward directives (`@lsp-sourced-by`) synthesize the same kind of edge
// from the declared parent's side, even though the parent's own content
// never mentions the child.
//
// # Thread safety
//
// [Graph] is safe for concurrent use; all operations take the graph's
// internal mutex.
package graph
