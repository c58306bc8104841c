package sourcecall

// Point is a 0-based (row, column) position, column counted in bytes, as
// tree-sitter reports it.
type Point struct {
	Row    uint32
	Column uint32
}

// Node is the slice of the tree-sitter node API this package depends on:
// call/identifier/string/argument nodes, each exposing a byte-range via
// Content, field access via ChildByFieldName, and start/end points. Depending
// on this interface rather than a concrete parser binding keeps the detector
// usable against any grammar that produces this shape, since the grammar
// itself is supplied externally.
type Node interface {
	Type() string
	Content(source []byte) string
	ChildByFieldName(name string) Node
	Child(i int) Node
	ChildCount() int
	StartPoint() Point
	EndPoint() Point
	HasError() bool
}

// Tree is a parsed syntax tree rooted at a single Node.
type Tree interface {
	RootNode() Node
}
