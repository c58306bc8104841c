// Package lsp implements a Language Server Protocol (LSP) server over the
// cross-file scope and dependency engine for R source files.
//
// The server tracks open buffers, keeps a dependency graph of source()/
// sys.source() relationships and @lsp-* directives between files, and
// answers navigation and diagnostics requests by walking that graph: go to
// the symbol's defining file and position, and report the set of names
// visible at a cursor by composing a file's ancestors and sourced
// dependencies in the order they execute.
//
// # Architecture
//
// The server consists of:
//   - Server: protocol lifecycle, JSON-RPC dispatch via glsp.
//   - Workspace: the shared state container — open documents, the
//     dependency graph, caches, the background indexer, the revalidation
//     scheduler, and the diagnostics gate.
//   - crossfile/resolver: answers scope_at_position over the graph.
//   - crossfile/indexer: fills in scope data for files nobody has opened
//     yet, so resolution can reach into them.
//
// # Usage
//
// The server is started via the rlsp command:
//
//	rlsp [options]
//
// The server communicates over stdio.
//
// For debugging:
//
//	rlsp --log-level debug --log-file /tmp/rlsp.log
//
// # Limitations
//
// The server implements LSP 3.16, which does not support position encoding
// negotiation (added in 3.17); UTF-16 encoding is assumed for all character
// positions.
//
// Only file:// URIs are supported. A document must be opened via
// textDocument/didOpen for live, low-latency analysis; files it depends on
// that are not open are served from the background-indexed workspace view,
// which may lag a running edit until the indexer catches up.
package lsp

import (
	"github.com/jbearak/rlsp/crossfile/sourcecall"
)

// Document is one open buffer: its current text, version, and the
// derived data the engine keeps current as the user types.
//
// Tree and LoadedPackages are nil/empty until the first successful parse;
// callers must tolerate a zero Document mid-edit rather than blocking on
// reparse.
type Document struct {
	URI      string
	Text     string
	Version  int32
	Revision uint64

	// Tree is the current parse tree, or nil if the last parse failed or
	// has not run yet.
	Tree sourcecall.Tree

	// LoadedPackages accumulates the names seen in this document's
	// library()/require()/loadNamespace() calls, feeding
	// crossfile/resolver.PackageLookup.
	LoadedPackages []string
}
