// Package crossfile holds the cross-file awareness data model: the metadata
// extracted from a single R source file, and the records that flow between
// the directive parser, the source-call detector, the dependency graph, and
// the scope resolver.
package crossfile

import "github.com/jbearak/rlsp/location"

// CallSiteKind tags how a backward directive's call site is specified.
type CallSiteKind uint8

const (
	// CallSiteUnspecified means the call site is unspecified; the caller
	// applies a configured assumption (see [Config.AssumeCallSite]).
	CallSiteUnspecified CallSiteKind = iota
	// CallSiteLine means the call site is an explicit 0-based line number.
	CallSiteLine
	// CallSiteMatch means the call site is found by substring search in the
	// parent's content.
	CallSiteMatch
)

// CallSiteSpec is a tagged union: Unspecified, Line(n), or Match(pattern).
type CallSiteSpec struct {
	Kind    CallSiteKind
	Line    uint32 // valid iff Kind == CallSiteLine; 0-based
	Pattern string // valid iff Kind == CallSiteMatch
}

// BackwardDirective is a child-declared claim that some other file includes it.
type BackwardDirective struct {
	Path          string
	CallSite      CallSiteSpec
	DirectiveLine uint32 // 0-based
}

// ForwardSource is one of: a detected source() call, a detected sys.source()
// call, or an @lsp-source directive.
type ForwardSource struct {
	Path               string
	Line               uint32 // 0-based
	Column             uint32 // 0-based, UTF-16 code units
	IsDirective        bool
	Local              bool
	Chdir              bool
	IsSysSource        bool
	SysSourceGlobalEnv bool
	// ExplicitLine is set when a directive pins its call site with
	// `line=` (IsDirective is also true). A directive without it has no
	// call site of its own; Line holds the directive comment's own line
	// instead, for diagnostics only.
	ExplicitLine bool
}

// InheritsSymbols reports whether this forward source's exported interface
// should be merged into the including scope.
//
// False for local=TRUE, and false for sys.source() with a non-global envir.
func (f ForwardSource) InheritsSymbols() bool {
	if f.Local {
		return false
	}
	if f.IsSysSource && !f.SysSourceGlobalEnv {
		return false
	}
	return true
}

// ForwardSourceKey is the canonical deduplication key for a forward edge,
// once the source's path has been resolved to a URI.
type ForwardSourceKey struct {
	ResolvedURI     string
	CallSiteLine    uint32
	CallSiteColumn  uint32
	Local           bool
	Chdir           bool
	IsSysSource     bool
}

// ToKey builds the canonical edge key for this forward source, given its
// resolved target URI.
func (f ForwardSource) ToKey(resolvedURI string) ForwardSourceKey {
	return ForwardSourceKey{
		ResolvedURI:    resolvedURI,
		CallSiteLine:   f.Line,
		CallSiteColumn: f.Column,
		Local:          f.Local,
		Chdir:          f.Chdir,
		IsSysSource:    f.IsSysSource,
	}
}

// LibraryCall records a library()/require()/loadNamespace() call.
type LibraryCall struct {
	Package       string
	Line          uint32 // 0-based
	Column        uint32 // 0-based, UTF-16 code units
	FunctionStart int    // -1 if at top level
	FunctionEnd   int    // -1 if at top level
}

// InFunction reports whether the call occurs inside a function body.
func (l LibraryCall) InFunction() bool {
	return l.FunctionStart >= 0
}

// RmCall records an rm()/remove() call that clears bindings from an
// environment.
type RmCall struct {
	Line    uint32 // 0-based
	Column  uint32 // 0-based, UTF-16 code units
	Symbols []string
}

// CrossFileMetadata is the complete cross-file metadata for one document,
// derived purely from its content (directives) and its AST (detected calls).
type CrossFileMetadata struct {
	SourcedBy         []BackwardDirective
	Sources           []ForwardSource
	WorkingDirectory  string // "" if unset
	IgnoredLines      map[uint32]struct{}
	IgnoredNextLines  map[uint32]struct{}
	LibraryCalls      []LibraryCall
	RmCalls           []RmCall
}

// NewCrossFileMetadata returns an empty, ready-to-populate metadata record.
func NewCrossFileMetadata() CrossFileMetadata {
	return CrossFileMetadata{
		IgnoredLines:     make(map[uint32]struct{}),
		IgnoredNextLines: make(map[uint32]struct{}),
	}
}

// IsLineIgnored reports whether diagnostics on the given 0-based line should
// be suppressed, either because the line itself carries @lsp-ignore or
// because the previous line carried @lsp-ignore-next.
func (m CrossFileMetadata) IsLineIgnored(line uint32) bool {
	if _, ok := m.IgnoredLines[line]; ok {
		return true
	}
	_, ok := m.IgnoredNextLines[line]
	return ok
}

// ScopeEventKind tags the kind of event in a file's scope timeline.
type ScopeEventKind uint8

const (
	EventDefine ScopeEventKind = iota
	EventRemove
	EventScopeEnter
	EventScopeExit
	EventSourceBoundary
)

// ScopeEvent is one (line, column, kind, name, detail) tuple in a file's
// scope timeline.
type ScopeEvent struct {
	Line    uint32
	Column  uint32
	Kind    ScopeEventKind
	Name    string // symbol name for Define/Remove; "" otherwise
	Detail  string // resolved URI for SourceBoundary; "" otherwise
	Inherits bool  // for SourceBoundary: whether the boundary inherits symbols
	Ordinal int    // index in the sorted timeline, assigned by scope.Build
}

// SymbolDescriptor describes one exported top-level binding.
type SymbolDescriptor struct {
	Name string
	Span location.Span
}

// FunctionInterval is a (start_line, end_line) range used for nested
// function-scope lookup.
type FunctionInterval struct {
	StartLine int
	EndLine   int
}

// ScopeArtifacts is the computed, cacheable scope output for one file.
type ScopeArtifacts struct {
	Timeline          []ScopeEvent
	ExportedInterface map[string]SymbolDescriptor
	FunctionIntervals []FunctionInterval
	LibraryCalls      []LibraryCall
	RmCalls           []RmCall
	SourceEvents      []ScopeEvent
}

// Clone returns a deep copy of the artifacts, safe to hand to a caller that
// might mutate it.
func (a ScopeArtifacts) Clone() ScopeArtifacts {
	out := ScopeArtifacts{
		Timeline:          append([]ScopeEvent(nil), a.Timeline...),
		FunctionIntervals: append([]FunctionInterval(nil), a.FunctionIntervals...),
		LibraryCalls:      append([]LibraryCall(nil), a.LibraryCalls...),
		RmCalls:           append([]RmCall(nil), a.RmCalls...),
		SourceEvents:      append([]ScopeEvent(nil), a.SourceEvents...),
	}
	if a.ExportedInterface != nil {
		out.ExportedInterface = make(map[string]SymbolDescriptor, len(a.ExportedInterface))
		for k, v := range a.ExportedInterface {
			out.ExportedInterface[k] = v
		}
	}
	return out
}

// ResolvedSymbol is one entry in the result of scope_at_position: a visible
// name together with where it was defined.
type ResolvedSymbol struct {
	Name string
	URI  string
	Span location.Span
}

// ScopeFingerprint identifies the inputs that a file's computed
// ScopeArtifacts depend on, so a cache can tell whether a cached entry is
// still valid without recomputing it.
type ScopeFingerprint struct {
	SelfHash                uint64
	EdgesHash               uint64
	UpstreamInterfacesHash  uint64
	WorkspaceIndexVersion   uint64
}

// FileSnapshot is lightweight filesystem metadata used to detect whether a
// closed file has changed on disk since it was last cached.
type FileSnapshot struct {
	ModTime     int64 // Unix nanoseconds
	Size        int64
	ContentHash uint64
	HasContentHash bool
}

// MatchesDisk reports whether s and current describe the same on-disk file
// state, judged by modification time and size (not content hash, which is
// only computed lazily on first read).
func (s FileSnapshot) MatchesDisk(current FileSnapshot) bool {
	return s.ModTime == current.ModTime && s.Size == current.Size
}

// IndexEntry is one workspace-index record: a closed file's cached
// metadata and computed artifacts, tagged with the index version at which
// it was written.
type IndexEntry struct {
	Snapshot        FileSnapshot
	Metadata        CrossFileMetadata
	Artifacts       ScopeArtifacts
	IndexedAtVersion uint64
}
