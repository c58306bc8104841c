package sourcecall

import sitter "github.com/smacker/go-tree-sitter"

// sitterNode adapts a *sitter.Node to the Node interface this package
// depends on, so production callers can hand in a tree parsed by any
// tree-sitter grammar for R without this package importing it directly.
type sitterNode struct {
	n *sitter.Node
}

// WrapTree adapts a *sitter.Tree parsed by go-tree-sitter into this
// package's Tree interface.
func WrapTree(tree *sitter.Tree) Tree {
	return sitterTree{tree}
}

type sitterTree struct {
	t *sitter.Tree
}

func (t sitterTree) RootNode() Node {
	return wrapNode(t.t.RootNode())
}

func wrapNode(n *sitter.Node) Node {
	if n == nil {
		return nil
	}
	return sitterNode{n}
}

func (s sitterNode) Type() string { return s.n.Type() }

func (s sitterNode) Content(source []byte) string { return s.n.Content(source) }

func (s sitterNode) ChildByFieldName(name string) Node {
	return wrapNode(s.n.ChildByFieldName(name))
}

func (s sitterNode) Child(i int) Node { return wrapNode(s.n.Child(i)) }

func (s sitterNode) ChildCount() int { return int(s.n.ChildCount()) }

func (s sitterNode) StartPoint() Point {
	p := s.n.StartPoint()
	return Point{Row: p.Row, Column: p.Column}
}

func (s sitterNode) EndPoint() Point {
	p := s.n.EndPoint()
	return Point{Row: p.Row, Column: p.Column}
}

func (s sitterNode) HasError() bool { return s.n.HasError() }
