// Package rlsp is the root of the R cross-file scope and dependency engine
// and its Language Server Protocol frontend.
//
// rlsp tracks the source()/sys.source() and @lsp-* directive relationships
// between R files in a workspace, and answers "what is visible here"
// queries by walking that graph: a file's own top-level assignments, plus
// whatever its ancestors and sourced dependencies contributed, composed in
// the order R itself would evaluate them.
//
// # Architecture Overview
//
// The module is organized into layers with strict dependency ordering:
//
//	Foundation tier (no dependencies on higher tiers):
//	  - location: source positions, spans, and canonical paths
//	  - diag: structured diagnostics with stable error codes
//
//	Engine tier:
//	  - graph: the file dependency graph (source()/sys.source() edges)
//	  - crossfile: directive parsing, AST-based call detection, scope
//	    building, caching, the background indexer, and the resolver that
//	    answers scope-at-position queries
//
//	Frontend tier:
//	  - lsp: the Language Server Protocol server built on the engine tier
//
// # Entry Points
//
// Running the server:
//
//	import "github.com/jbearak/rlsp/lsp"
//
//	server := lsp.NewServer(logger, lsp.Config{ModuleRoot: root})
//	if err := server.RunStdio(); err != nil {
//	    // transport error
//	}
//
// Resolving scope directly, without the LSP layer:
//
//	import (
//	    "github.com/jbearak/rlsp/crossfile"
//	    "github.com/jbearak/rlsp/crossfile/resolver"
//	    "github.com/jbearak/rlsp/graph"
//	)
//
//	g := graph.New()
//	r := resolver.New(g, artifactsLookup, packageLookup, priorityScore, crossfile.DefaultConfig())
//	symbols, issues := r.ScopeAtPosition(uri, line, column)
//
// # Subpackages
//
// See the individual package documentation for detailed usage:
//
//   - [github.com/jbearak/rlsp/diag]: structured diagnostics
//   - [github.com/jbearak/rlsp/location]: source location tracking
//   - [github.com/jbearak/rlsp/graph]: file dependency graph
//   - [github.com/jbearak/rlsp/crossfile]: cross-file scope engine
//   - [github.com/jbearak/rlsp/lsp]: Language Server Protocol server
package rlsp
