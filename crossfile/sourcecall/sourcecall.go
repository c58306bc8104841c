// Package sourcecall walks a parsed R syntax tree to find the calls that
// matter to cross-file awareness: source()/sys.source() (forward edges),
// rm()/remove() (scope-clearing), and library()/require()/loadNamespace()
// (package awareness).
//
// The grammar that produces the tree is supplied by the caller; this package
// only consumes the resulting node shape (call/identifier/string/argument,
// each with byte and point ranges) described by [Node], and never parses R
// text itself.
package sourcecall

import (
	"strings"

	"github.com/jbearak/rlsp/crossfile"
)

// DetectSources walks tree looking for source() and sys.source() calls.
func DetectSources(tree Tree, content []byte) []crossfile.ForwardSource {
	var out []crossfile.ForwardSource
	visitSources(tree.RootNode(), content, &out)
	return out
}

func visitSources(node Node, content []byte, out *[]crossfile.ForwardSource) {
	if node == nil {
		return
	}
	if node.Type() == "call" {
		if source, ok := tryParseSourceCall(node, content); ok {
			*out = append(*out, source)
		}
	}
	for i := 0; i < node.ChildCount(); i++ {
		visitSources(node.Child(i), content, out)
	}
}

func tryParseSourceCall(node Node, content []byte) (crossfile.ForwardSource, bool) {
	funcNode := node.ChildByFieldName("function")
	if funcNode == nil {
		return crossfile.ForwardSource{}, false
	}

	var isSysSource bool
	switch funcNode.Content(content) {
	case "source":
		isSysSource = false
	case "sys.source":
		isSysSource = true
	default:
		return crossfile.ForwardSource{}, false
	}

	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil {
		return crossfile.ForwardSource{}, false
	}
	path, ok := findFileArgument(argsNode, content)
	if !ok {
		return crossfile.ForwardSource{}, false
	}
	local := findBoolArgument(argsNode, content, "local")
	chdir := findBoolArgument(argsNode, content, "chdir")

	sysSourceGlobalEnv := true
	if isSysSource {
		sysSourceGlobalEnv = findEnvirIsGlobal(argsNode, content)
	}

	start := node.StartPoint()
	lineText := lineAt(content, int(start.Row))
	column := crossfile.UTF16ColumnForByte(lineText, int(start.Column))

	return crossfile.ForwardSource{
		Path:               path,
		Line:               start.Row,
		Column:             column,
		IsDirective:        false,
		Local:              local,
		Chdir:              chdir,
		IsSysSource:        isSysSource,
		SysSourceGlobalEnv: sysSourceGlobalEnv,
	}, true
}

// findEnvirIsGlobal reports whether the envir= argument of a sys.source()
// call is globalenv() or .GlobalEnv. Absent envir= defaults to baseenv(),
// which is not global, so the conservative answer is false.
func findEnvirIsGlobal(argsNode Node, content []byte) bool {
	for i := 0; i < argsNode.ChildCount(); i++ {
		child := argsNode.Child(i)
		if child.Type() != "argument" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil || nameNode.Content(content) != "envir" {
			continue
		}
		valueNode := child.ChildByFieldName("value")
		if valueNode == nil {
			continue
		}
		value := strings.TrimSpace(valueNode.Content(content))
		return value == "globalenv()" || value == ".GlobalEnv"
	}
	return false
}

func findFileArgument(argsNode Node, content []byte) (string, bool) {
	var positional []Node
	for i := 0; i < argsNode.ChildCount(); i++ {
		child := argsNode.Child(i)
		if child.Type() != "argument" {
			continue
		}
		if nameNode := child.ChildByFieldName("name"); nameNode != nil {
			if nameNode.Content(content) == "file" {
				if valueNode := child.ChildByFieldName("value"); valueNode != nil {
					return extractStringLiteral(valueNode, content)
				}
			}
			continue
		}
		positional = append(positional, child)
	}
	for _, child := range positional {
		if valueNode := child.ChildByFieldName("value"); valueNode != nil {
			return extractStringLiteral(valueNode, content)
		}
	}
	return "", false
}

func findBoolArgument(argsNode Node, content []byte, paramName string) bool {
	for i := 0; i < argsNode.ChildCount(); i++ {
		child := argsNode.Child(i)
		if child.Type() != "argument" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil || nameNode.Content(content) != paramName {
			continue
		}
		valueNode := child.ChildByFieldName("value")
		if valueNode == nil {
			continue
		}
		switch valueNode.Content(content) {
		case "TRUE", "T":
			return true
		default:
			return false
		}
	}
	return false
}

func extractStringLiteral(node Node, content []byte) (string, bool) {
	if node.Type() != "string" {
		return "", false
	}
	text := node.Content(content)
	if len(text) >= 2 && (strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) ||
		strings.HasPrefix(text, "'") && strings.HasSuffix(text, "'")) {
		return text[1 : len(text)-1], true
	}
	return "", false
}

func lineAt(content []byte, row int) string {
	lines := strings.Split(string(content), "\n")
	if row < 0 || row >= len(lines) {
		return ""
	}
	return lines[row]
}

// DetectRmCalls walks tree looking for rm()/remove() calls that should
// affect scope tracking. Calls with a non-default envir= are excluded, and
// calls that resolve to zero symbols are dropped.
func DetectRmCalls(tree Tree, content []byte) []crossfile.RmCall {
	var out []crossfile.RmCall
	visitRmCalls(tree.RootNode(), content, &out)
	return out
}

func visitRmCalls(node Node, content []byte, out *[]crossfile.RmCall) {
	if node == nil || node.Type() == "identifier" {
		return
	}
	if node.Type() == "call" {
		if rm, ok := tryParseRmCall(node, content); ok && len(rm.Symbols) > 0 {
			*out = append(*out, rm)
		}
	}
	for i := 0; i < node.ChildCount(); i++ {
		visitRmCalls(node.Child(i), content, out)
	}
}

func tryParseRmCall(node Node, content []byte) (crossfile.RmCall, bool) {
	funcNode := node.ChildByFieldName("function")
	if funcNode == nil {
		return crossfile.RmCall{}, false
	}
	funcText := funcNode.Content(content)
	if funcText != "rm" && funcText != "remove" {
		return crossfile.RmCall{}, false
	}

	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil {
		return crossfile.RmCall{}, false
	}
	if argsNode.HasError() {
		return crossfile.RmCall{}, false
	}
	if hasNonDefaultEnvirForRm(argsNode, content) {
		return crossfile.RmCall{}, false
	}

	symbols := extractBareSymbols(argsNode, content)
	symbols = append(symbols, extractListSymbols(argsNode, content)...)

	start := node.StartPoint()
	lineText := lineAt(content, int(start.Row))
	column := crossfile.UTF16ColumnForByte(lineText, int(start.Column))

	return crossfile.RmCall{
		Line:    start.Row,
		Column:  column,
		Symbols: symbols,
	}, true
}

// hasNonDefaultEnvirForRm reports whether an envir= argument is present and
// is neither globalenv() nor .GlobalEnv. Absence of envir= is the default
// and is not "non-default".
func hasNonDefaultEnvirForRm(argsNode Node, content []byte) bool {
	for i := 0; i < argsNode.ChildCount(); i++ {
		child := argsNode.Child(i)
		if child.Type() != "argument" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil || nameNode.Content(content) != "envir" {
			continue
		}
		valueNode := child.ChildByFieldName("value")
		if valueNode == nil {
			continue
		}
		value := strings.TrimSpace(valueNode.Content(content))
		return value != "globalenv()" && value != ".GlobalEnv"
	}
	return false
}

func extractBareSymbols(argsNode Node, content []byte) []string {
	var symbols []string
	for i := 0; i < argsNode.ChildCount(); i++ {
		child := argsNode.Child(i)
		if child.Type() != "argument" {
			continue
		}
		if child.ChildByFieldName("name") != nil {
			continue
		}
		valueNode := child.ChildByFieldName("value")
		if valueNode != nil && valueNode.Type() == "identifier" {
			symbols = append(symbols, valueNode.Content(content))
		}
	}
	return symbols
}

func extractListSymbols(argsNode Node, content []byte) []string {
	for i := 0; i < argsNode.ChildCount(); i++ {
		child := argsNode.Child(i)
		if child.Type() != "argument" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil || nameNode.Content(content) != "list" {
			continue
		}
		valueNode := child.ChildByFieldName("value")
		if valueNode == nil {
			return nil
		}
		return extractListValueSymbols(valueNode, content)
	}
	return nil
}

func extractListValueSymbols(valueNode Node, content []byte) []string {
	switch valueNode.Type() {
	case "string":
		if s, ok := extractStringLiteral(valueNode, content); ok {
			return []string{s}
		}
		return nil
	case "call":
		if isCCall(valueNode, content) {
			return extractCStringArgs(valueNode, content)
		}
		return nil
	default:
		return nil
	}
}

func isCCall(node Node, content []byte) bool {
	if node.Type() != "call" {
		return false
	}
	funcNode := node.ChildByFieldName("function")
	return funcNode != nil && funcNode.Content(content) == "c"
}

func extractCStringArgs(node Node, content []byte) []string {
	var symbols []string
	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil {
		return symbols
	}
	for i := 0; i < argsNode.ChildCount(); i++ {
		child := argsNode.Child(i)
		if child.Type() != "argument" {
			continue
		}
		valueNode := child.ChildByFieldName("value")
		if valueNode == nil || valueNode.Type() != "string" {
			continue
		}
		if s, ok := extractStringLiteral(valueNode, content); ok {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// DetectLibraryCalls walks tree looking for library(), require(), and
// loadNamespace() calls (the three package-import forms), recording whether
// each falls inside a function body.
func DetectLibraryCalls(tree Tree, content []byte) []crossfile.LibraryCall {
	var out []crossfile.LibraryCall
	visitLibraryCalls(tree.RootNode(), content, nil, &out)
	return out
}

func visitLibraryCalls(node Node, content []byte, enclosing Node, out *[]crossfile.LibraryCall) {
	if node == nil {
		return
	}
	current := enclosing
	if node.Type() == "function_definition" {
		current = node
	}
	if node.Type() == "call" {
		if call, ok := tryParseLibraryCall(node, content, current); ok {
			*out = append(*out, call)
		}
	}
	for i := 0; i < node.ChildCount(); i++ {
		visitLibraryCalls(node.Child(i), content, current, out)
	}
}

func tryParseLibraryCall(node Node, content []byte, enclosing Node) (crossfile.LibraryCall, bool) {
	funcNode := node.ChildByFieldName("function")
	if funcNode == nil {
		return crossfile.LibraryCall{}, false
	}
	switch funcNode.Content(content) {
	case "library", "require", "loadNamespace":
	default:
		return crossfile.LibraryCall{}, false
	}

	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil {
		return crossfile.LibraryCall{}, false
	}
	pkg, ok := findPackageArgument(argsNode, content)
	if !ok {
		return crossfile.LibraryCall{}, false
	}

	end := node.EndPoint()
	lineText := lineAt(content, int(end.Row))
	column := crossfile.UTF16ColumnForByte(lineText, int(end.Column))

	call := crossfile.LibraryCall{
		Package:       pkg,
		Line:          end.Row,
		Column:        column,
		FunctionStart: -1,
		FunctionEnd:   -1,
	}
	if enclosing != nil {
		start := enclosing.StartPoint()
		endPt := enclosing.EndPoint()
		call.FunctionStart = int(start.Row)
		call.FunctionEnd = int(endPt.Row)
	}
	return call, true
}

// findPackageArgument extracts the package name from a library()/require()
// call: either a quoted string or a bare identifier, since library()
// evaluates its first argument as an unquoted symbol by default.
func findPackageArgument(argsNode Node, content []byte) (string, bool) {
	var first Node
	for i := 0; i < argsNode.ChildCount(); i++ {
		child := argsNode.Child(i)
		if child.Type() != "argument" {
			continue
		}
		if child.ChildByFieldName("name") != nil {
			continue
		}
		first = child
		break
	}
	if first == nil {
		return "", false
	}
	valueNode := first.ChildByFieldName("value")
	if valueNode == nil {
		return "", false
	}
	switch valueNode.Type() {
	case "string":
		return extractStringLiteral(valueNode, content)
	case "identifier":
		return valueNode.Content(content), true
	default:
		return "", false
	}
}
