// Package scope builds a file's scope timeline: the ordered sequence of
// definitions, removals, function boundaries, and source boundaries that the
// resolver walks to answer "what is visible at this cursor".
package scope

import (
	"sort"
	"strings"

	"github.com/jbearak/rlsp/crossfile"
	"github.com/jbearak/rlsp/crossfile/sourcecall"
)

// ResolveFunc resolves a forward source's raw path string to the URI the
// dependency graph already resolved it to. Builders share one resolution
// with the graph rather than re-resolving paths themselves.
type ResolveFunc func(path string) (resolvedURI string, ok bool)

// Build walks tree for assignments and function boundaries, then merges
// them with the already-detected forward sources, rm() calls, and library
// calls into one source-ordered ScopeArtifacts.
func Build(
	tree sourcecall.Tree,
	content []byte,
	forwardSources []crossfile.ForwardSource,
	rmCalls []crossfile.RmCall,
	libraryCalls []crossfile.LibraryCall,
	resolve ResolveFunc,
) crossfile.ScopeArtifacts {
	w := &walker{content: content}
	w.visit(tree.RootNode())

	events := append([]crossfile.ScopeEvent(nil), w.events...)

	for _, rm := range rmCalls {
		for _, name := range rm.Symbols {
			events = append(events, crossfile.ScopeEvent{
				Line: rm.Line, Column: rm.Column,
				Kind: crossfile.EventRemove, Name: name,
			})
		}
	}

	var sourceEvents []crossfile.ScopeEvent
	for _, fs := range forwardSources {
		var resolvedURI string
		var ok bool
		if resolve != nil {
			resolvedURI, ok = resolve(fs.Path)
		}
		if !ok {
			continue
		}
		ev := crossfile.ScopeEvent{
			Line: fs.Line, Column: fs.Column,
			Kind: crossfile.EventSourceBoundary, Detail: resolvedURI,
			Inherits: fs.InheritsSymbols(),
		}
		events = append(events, ev)
		sourceEvents = append(sourceEvents, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Line != events[j].Line {
			return events[i].Line < events[j].Line
		}
		return events[i].Column < events[j].Column
	})
	for i := range events {
		events[i].Ordinal = i
	}

	return crossfile.ScopeArtifacts{
		Timeline:          events,
		ExportedInterface: exportedInterface(events, w.intervals),
		FunctionIntervals: w.intervals,
		LibraryCalls:      libraryCalls,
		RmCalls:           rmCalls,
		SourceEvents:      sourceEvents,
	}
}

// exportedInterface keeps Define events that fall outside every function
// interval (top-level) and are not subsequently removed by a top-level
// Remove of the same name. A later top-level Define of the same name
// overwrites an earlier one, matching R's rebinding semantics.
func exportedInterface(events []crossfile.ScopeEvent, intervals []crossfile.FunctionInterval) map[string]crossfile.SymbolDescriptor {
	out := make(map[string]crossfile.SymbolDescriptor)
	for _, ev := range events {
		if isNested(ev.Line, intervals) {
			continue
		}
		switch ev.Kind {
		case crossfile.EventDefine:
			out[ev.Name] = crossfile.SymbolDescriptor{Name: ev.Name}
		case crossfile.EventRemove:
			delete(out, ev.Name)
		}
	}
	return out
}

// isNested reports whether line falls strictly inside a function body,
// excluding the interval's own start line where the enclosing
// `name <- function(...)` assignment itself lives at the outer scope.
func isNested(line uint32, intervals []crossfile.FunctionInterval) bool {
	for _, iv := range intervals {
		if int(line) > iv.StartLine && int(line) <= iv.EndLine {
			return true
		}
	}
	return false
}

// walker recognizes assignment and function_definition nodes. The call
// forms handled elsewhere (source/sys.source/library/rm) are intentionally
// not rediscovered here; the caller merges their already-detected events in.
type walker struct {
	content   []byte
	events    []crossfile.ScopeEvent
	intervals []crossfile.FunctionInterval
}

func (w *walker) visit(node sourcecall.Node) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "binary_operator":
		w.visitAssignment(node)
	case "function_definition":
		start := node.StartPoint()
		end := node.EndPoint()
		w.intervals = append(w.intervals, crossfile.FunctionInterval{
			StartLine: int(start.Row),
			EndLine:   int(end.Row),
		})
	}

	for i := 0; i < node.ChildCount(); i++ {
		w.visit(node.Child(i))
	}
}

// visitAssignment recognizes `name <- value`, `name = value`, and
// `value -> name`, emitting a Define event for a bare-identifier left-hand
// (or right-hand, for `->`) side.
func (w *walker) visitAssignment(node sourcecall.Node) {
	opNode := node.ChildByFieldName("operator")
	lhs := node.ChildByFieldName("lhs")
	rhs := node.ChildByFieldName("rhs")
	if opNode == nil || lhs == nil || rhs == nil {
		return
	}

	var target sourcecall.Node
	switch opNode.Content(w.content) {
	case "<-", "<<-", "=":
		target = lhs
	case "->", "->>":
		target = rhs
	default:
		return
	}
	if target.Type() != "identifier" {
		return
	}

	start := node.StartPoint()
	lineText := lineAt(w.content, int(start.Row))
	column := crossfile.UTF16ColumnForByte(lineText, int(start.Column))

	w.events = append(w.events, crossfile.ScopeEvent{
		Line: start.Row, Column: column,
		Kind: crossfile.EventDefine, Name: target.Content(w.content),
	})
}

func lineAt(content []byte, row int) string {
	lines := strings.Split(string(content), "\n")
	if row < 0 || row >= len(lines) {
		return ""
	}
	return lines[row]
}
