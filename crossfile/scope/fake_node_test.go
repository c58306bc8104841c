package scope

import "github.com/jbearak/rlsp/crossfile/sourcecall"

// fakeNode is a minimal hand-built sourcecall.Node used to exercise the
// scope walker without a real R grammar.
type fakeNode struct {
	typ      string
	text     string
	start    sourcecall.Point
	end      sourcecall.Point
	fields   map[string]*fakeNode
	children []*fakeNode
}

func (f *fakeNode) Type() string                  { return f.typ }
func (f *fakeNode) Content([]byte) string         { return f.text }
func (f *fakeNode) StartPoint() sourcecall.Point  { return f.start }
func (f *fakeNode) EndPoint() sourcecall.Point    { return f.end }
func (f *fakeNode) HasError() bool                { return false }
func (f *fakeNode) ChildCount() int               { return len(f.children) }
func (f *fakeNode) Child(i int) sourcecall.Node   { return f.children[i] }

func (f *fakeNode) ChildByFieldName(name string) sourcecall.Node {
	child, ok := f.fields[name]
	if !ok {
		return nil
	}
	return child
}

type fakeTree struct{ root *fakeNode }

func (t fakeTree) RootNode() sourcecall.Node { return t.root }

func ident(text string) *fakeNode { return &fakeNode{typ: "identifier", text: text} }

func assign(op string, lhs, rhs *fakeNode, start, end sourcecall.Point) *fakeNode {
	return &fakeNode{
		typ:   "binary_operator",
		start: start, end: end,
		fields:   map[string]*fakeNode{"operator": {typ: "operator", text: op}, "lhs": lhs, "rhs": rhs},
		children: []*fakeNode{lhs, rhs},
	}
}

func functionDef(body *fakeNode, start, end sourcecall.Point) *fakeNode {
	return &fakeNode{
		typ:      "function_definition",
		start:    start, end: end,
		children: []*fakeNode{body},
	}
}

func program(stmts ...*fakeNode) *fakeNode {
	return &fakeNode{typ: "program", children: stmts}
}
