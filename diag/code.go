package diag

// CodeCategory represents the semantic domain of an error code.
//
// Categories represent the semantic domain of an error, not necessarily the
// API layer that emits it. Most codes are emitted exclusively by their
// category's layer, but some codes represent cross-cutting concerns.
type CodeCategory uint8

const (
	// CategorySentinel is for sentinel codes like E_LIMIT_REACHED and E_INTERNAL.
	CategorySentinel CodeCategory = iota

	// CategoryDirective is for directive-comment parsing issues.
	CategoryDirective

	// CategoryResolve is for path, dependency-graph, and parent-resolution errors.
	CategoryResolve

	// CategoryScope is for scope-resolution runtime errors.
	CategoryScope
)

// String returns a human-readable label for the category.
func (c CodeCategory) String() string {
	switch c {
	case CategorySentinel:
		return "sentinel"
	case CategoryDirective:
		return "directive"
	case CategoryResolve:
		return "resolve"
	case CategoryScope:
		return "scope"
	default:
		return "unknown"
	}
}

// Code is a stable programmatic identifier for an Issue.
//
// Error codes are stable identifiers that tools can match on, even when
// message text changes. The Code type uses unexported fields to enforce
// a closed set of valid codes—only codes defined in this package are valid.
//
// Code.String() values are globally unique across all categories. The
// CodeCategory is informational metadata for filtering and grouping.
type Code struct {
	value string
	cat   CodeCategory
}

// String returns the code's string representation (e.g., "E_MISSING_FILE").
func (c Code) String() string {
	return c.value
}

// Category returns the programmatic category for this code.
func (c Code) Category() CodeCategory {
	return c.cat
}

// IsZero reports whether the code is unset.
func (c Code) IsZero() bool {
	return c.value == ""
}

// code is the unexported constructor—callers cannot create arbitrary codes.
func code(value string, cat CodeCategory) Code {
	return Code{value: value, cat: cat}
}

// Sentinel codes.
var (
	// E_LIMIT_REACHED is a sentinel code for explicit limit notification.
	// It does not automatically trigger Result.LimitReached(); use
	// Collector.LimitReached() to check limit status. Callers may inject
	// this code manually when desired.
	E_LIMIT_REACHED = code("E_LIMIT_REACHED", CategorySentinel)

	// E_INTERNAL indicates an unexpected invariant failure (internal bug indicator).
	// Use for conditions that should never occur in correct code.
	E_INTERNAL = code("E_INTERNAL", CategorySentinel)
)

// Directive codes.
var (
	// E_REDUNDANT_DIRECTIVE indicates an @lsp-source directive without an
	// explicit line= targets a file an AST-detected source() call in the
	// same file already targets, making the directive redundant.
	E_REDUNDANT_DIRECTIVE = code("E_REDUNDANT_DIRECTIVE", CategoryDirective)
)

// Resolve codes.
var (
	// E_MISSING_FILE indicates a source()/sys.source() call or a
	// @lsp-source/@lsp-sourced-by directive names a path that does not
	// resolve to an existing file.
	E_MISSING_FILE = code("E_MISSING_FILE", CategoryResolve)

	// E_CIRCULAR_DEPENDENCY indicates the forward traversal revisited a
	// URI already on the current chain.
	E_CIRCULAR_DEPENDENCY = code("E_CIRCULAR_DEPENDENCY", CategoryResolve)

	// E_AMBIGUOUS_PARENT indicates resolve_parent found more than one
	// equally-ranked candidate parent for a file's inclusion chain.
	E_AMBIGUOUS_PARENT = code("E_AMBIGUOUS_PARENT", CategoryResolve)
)

// Scope codes.
var (
	// E_OUT_OF_SCOPE indicates a symbol reference has no visible
	// definition anywhere in its resolved scope chain.
	E_OUT_OF_SCOPE = code("E_OUT_OF_SCOPE", CategoryScope)

	// E_MAX_CHAIN_DEPTH_EXCEEDED indicates a backward or forward
	// traversal stopped at a configured depth bound before exhausting
	// the chain.
	E_MAX_CHAIN_DEPTH_EXCEEDED = code("E_MAX_CHAIN_DEPTH_EXCEEDED", CategoryScope)

	// E_MISSING_PACKAGE indicates a library()/require()/loadNamespace()
	// call references a package whose exports could not be resolved.
	E_MISSING_PACKAGE = code("E_MISSING_PACKAGE", CategoryScope)
)

// allCodes contains all defined codes for AllCodes() and uniqueness verification.
var allCodes = []Code{
	// Sentinel
	E_LIMIT_REACHED,
	E_INTERNAL,
	// Directive
	E_REDUNDANT_DIRECTIVE,
	// Resolve
	E_MISSING_FILE,
	E_CIRCULAR_DEPENDENCY,
	E_AMBIGUOUS_PARENT,
	// Scope
	E_OUT_OF_SCOPE,
	E_MAX_CHAIN_DEPTH_EXCEEDED,
	E_MISSING_PACKAGE,
}

// AllCodes returns all defined codes.
//
// This function is useful for tooling and testing. The returned slice is a
// copy; modifications do not affect the original.
func AllCodes() []Code {
	result := make([]Code, len(allCodes))
	copy(result, allCodes)
	return result
}

// CodesByCategory returns codes in the given category.
//
// The returned slice is a new allocation; modifications do not affect
// internal state.
func CodesByCategory(cat CodeCategory) []Code {
	var result []Code
	for _, c := range allCodes {
		if c.cat == cat {
			result = append(result, c)
		}
	}
	return result
}
