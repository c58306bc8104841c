package lsp

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/r"

	"github.com/jbearak/rlsp/crossfile/sourcecall"
)

// parseR parses content as R source and adapts the resulting tree-sitter
// tree to sourcecall.Tree. It reports ok=false only if the parser itself
// fails to produce a tree; a syntactically broken program still parses to
// a tree with error nodes, which callers are expected to tolerate.
func parseR(content string) (sourcecall.Tree, bool) {
	parser := sitter.NewParser()
	parser.SetLanguage(r.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(content))
	if err != nil || tree == nil {
		return nil, false
	}
	return sourcecall.WrapTree(tree), true
}
