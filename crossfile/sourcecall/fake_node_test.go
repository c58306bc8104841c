package sourcecall

// fakeNode is a minimal, hand-built implementation of Node used to exercise
// the detectors without a real R grammar. Unlike a tree-sitter node, its
// Content does not slice the source buffer; it just returns the text it was
// built with.
type fakeNode struct {
	typ      string
	text     string
	start    Point
	end      Point
	fields   map[string]*fakeNode
	children []*fakeNode
	hasErr   bool
}

func (f *fakeNode) Type() string { return f.typ }

func (f *fakeNode) Content([]byte) string { return f.text }

func (f *fakeNode) ChildByFieldName(name string) Node {
	child, ok := f.fields[name]
	if !ok {
		return nil
	}
	return child
}

func (f *fakeNode) Child(i int) Node { return f.children[i] }

func (f *fakeNode) ChildCount() int { return len(f.children) }

func (f *fakeNode) StartPoint() Point { return f.start }

func (f *fakeNode) EndPoint() Point { return f.end }

func (f *fakeNode) HasError() bool { return f.hasErr }

type fakeTree struct{ root *fakeNode }

func (t fakeTree) RootNode() Node { return t.root }

func ident(text string) *fakeNode {
	return &fakeNode{typ: "identifier", text: text}
}

func str(text string) *fakeNode {
	return &fakeNode{typ: "string", text: text}
}

func namedArg(name string, value *fakeNode) *fakeNode {
	return &fakeNode{
		typ:    "argument",
		fields: map[string]*fakeNode{"name": ident(name), "value": value},
	}
}

func posArg(value *fakeNode) *fakeNode {
	return &fakeNode{
		typ:    "argument",
		fields: map[string]*fakeNode{"value": value},
	}
}

func arguments(args ...*fakeNode) *fakeNode {
	children := make([]*fakeNode, len(args))
	copy(children, args)
	return &fakeNode{typ: "arguments", children: children}
}

// call builds a `function(args...)` call node at the given start/end point,
// wiring the function and arguments nodes as direct children too, so
// ChildCount-based traversal (used by the visit* walkers) reaches them.
func call(function *fakeNode, args *fakeNode, start, end Point) *fakeNode {
	return &fakeNode{
		typ:      "call",
		start:    start,
		end:      end,
		fields:   map[string]*fakeNode{"function": function, "arguments": args},
		children: []*fakeNode{function, args},
	}
}

func program(stmts ...*fakeNode) *fakeNode {
	return &fakeNode{typ: "program", children: stmts}
}
