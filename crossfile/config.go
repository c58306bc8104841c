package crossfile

import "github.com/jbearak/rlsp/diag"

// CallSiteDefault is the assumption applied to a backward directive whose
// call site is unspecified.
type CallSiteDefault uint8

const (
	// CallSiteAssumeEnd assumes the call site is at the end of the parent
	// file, so all of the parent's own top-level symbols are available.
	CallSiteAssumeEnd CallSiteDefault = iota
	// CallSiteAssumeStart assumes the call site is at the start of the
	// parent file, so none of the parent's symbols are available yet.
	CallSiteAssumeStart
)

// Config holds the tunable behavior of the cross-file awareness engine.
//
// The zero value is not meaningful; use [DefaultConfig].
type Config struct {
	MaxBackwardDepth int
	MaxForwardDepth  int
	MaxChainDepth    int
	AssumeCallSite   CallSiteDefault
	IndexWorkspace   bool

	MaxRevalidationsPerTrigger int
	RevalidationDebounceMillis int64

	UndefinedVariablesEnabled bool

	MetadataCacheCapacity        int
	FileContentCacheCapacity     int
	ExistenceCacheCapacity       int
	WorkspaceIndexCapacity       int
	OnDemandIndexingMaxQueueSize int
	MaxTransitiveIndexDepth      int

	// MissingFileSeverity is the severity reported when a source()/directive
	// target cannot be resolved to a workspace file. Defaults to diag.Error:
	// an unresolvable source is a broken reference.
	MissingFileSeverity diag.Severity
	// MissingPackageSeverity is the severity reported when a library()/
	// require() target cannot be resolved against known package exports.
	// Defaults to diag.Warning: the engine degrades gracefully by treating
	// the package's exports as empty rather than failing the query.
	MissingPackageSeverity diag.Severity
}

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() Config {
	return Config{
		MaxBackwardDepth:             10,
		MaxForwardDepth:              10,
		MaxChainDepth:                20,
		AssumeCallSite:               CallSiteAssumeEnd,
		IndexWorkspace:               true,
		MaxRevalidationsPerTrigger:   10,
		RevalidationDebounceMillis:   200,
		UndefinedVariablesEnabled:    true,
		MetadataCacheCapacity:        1000,
		FileContentCacheCapacity:     500,
		ExistenceCacheCapacity:       2000,
		WorkspaceIndexCapacity:       5000,
		OnDemandIndexingMaxQueueSize: 50,
		MaxTransitiveIndexDepth:      3,
		MissingFileSeverity:          diag.Error,
		MissingPackageSeverity:       diag.Warning,
	}
}

// ScopeSettingsChanged reports whether any setting that affects scope
// resolution differs between c and other. Callers use this to decide
// whether open documents need to be reanalyzed after a config change.
func (c Config) ScopeSettingsChanged(other Config) bool {
	return c.AssumeCallSite != other.AssumeCallSite ||
		c.MaxChainDepth != other.MaxChainDepth ||
		c.MaxBackwardDepth != other.MaxBackwardDepth ||
		c.MaxForwardDepth != other.MaxForwardDepth
}
