package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jbearak/rlsp/crossfile"
)

// DefaultWorkspaceIndexCapacity is used when a non-positive capacity is
// given.
const DefaultWorkspaceIndexCapacity = 5000

// WorkspaceIndex holds the indexed metadata and artifacts for every closed
// file the background indexer has processed, with a monotonic version
// counter callers use to detect staleness across concurrent updates.
type WorkspaceIndex struct {
	inner   *lru.Cache[string, crossfile.IndexEntry]
	version atomic.Uint64
}

// NewWorkspaceIndex constructs an empty workspace index with the given
// capacity, falling back to [DefaultWorkspaceIndexCapacity] if non-positive.
func NewWorkspaceIndex(capacity int) *WorkspaceIndex {
	if capacity <= 0 {
		capacity = DefaultWorkspaceIndexCapacity
	}
	inner, _ := lru.New[string, crossfile.IndexEntry](capacity)
	return &WorkspaceIndex{inner: inner}
}

// Version returns the current index version.
func (idx *WorkspaceIndex) Version() uint64 {
	return idx.version.Load()
}

// IncrementVersion bumps and returns the new index version.
func (idx *WorkspaceIndex) IncrementVersion() uint64 {
	return idx.version.Add(1)
}

// GetIfFresh returns uri's indexed entry only if its snapshot matches
// current.
func (idx *WorkspaceIndex) GetIfFresh(uri string, current crossfile.FileSnapshot) (crossfile.IndexEntry, bool) {
	entry, ok := idx.inner.Peek(uri)
	if !ok || !entry.Snapshot.MatchesDisk(current) {
		return crossfile.IndexEntry{}, false
	}
	return entry, true
}

// GetMetadata returns uri's indexed metadata without a freshness check.
func (idx *WorkspaceIndex) GetMetadata(uri string) (crossfile.CrossFileMetadata, bool) {
	entry, ok := idx.inner.Peek(uri)
	return entry.Metadata, ok
}

// GetArtifacts returns uri's indexed artifacts without a freshness check.
func (idx *WorkspaceIndex) GetArtifacts(uri string) (crossfile.ScopeArtifacts, bool) {
	entry, ok := idx.inner.Peek(uri)
	return entry.Artifacts, ok
}

// UpdateFromDisk records an indexed entry for uri, unless uri is currently
// open. Open documents are authoritative; disk-derived updates for them
// are dropped so a stale index entry never shadows live editor content.
func (idx *WorkspaceIndex) UpdateFromDisk(uri string, isOpen bool, snapshot crossfile.FileSnapshot, metadata crossfile.CrossFileMetadata, artifacts crossfile.ScopeArtifacts) {
	if isOpen {
		return
	}
	version := idx.IncrementVersion()
	idx.inner.Add(uri, crossfile.IndexEntry{
		Snapshot: snapshot, Metadata: metadata, Artifacts: artifacts, IndexedAtVersion: version,
	})
}

// Insert stores entry for uri directly, bumping the index version. Intended
// for callers that have already applied the open-document check themselves.
func (idx *WorkspaceIndex) Insert(uri string, entry crossfile.IndexEntry) {
	idx.IncrementVersion()
	idx.inner.Add(uri, entry)
}

// Invalidate drops uri's indexed entry, bumping the index version.
func (idx *WorkspaceIndex) Invalidate(uri string) {
	idx.IncrementVersion()
	idx.inner.Remove(uri)
}

// InvalidateAll clears every indexed entry, bumping the index version.
func (idx *WorkspaceIndex) InvalidateAll() {
	idx.IncrementVersion()
	idx.inner.Purge()
}

// Contains reports whether uri currently has an indexed entry.
func (idx *WorkspaceIndex) Contains(uri string) bool {
	return idx.inner.Contains(uri)
}

// URIs returns every currently indexed URI, in no particular order.
func (idx *WorkspaceIndex) URIs() []string {
	return idx.inner.Keys()
}

// Resize changes the index's capacity, evicting least-recently-touched
// entries if shrinking.
func (idx *WorkspaceIndex) Resize(capacity int) {
	if capacity <= 0 {
		capacity = DefaultWorkspaceIndexCapacity
	}
	idx.inner.Resize(capacity)
}
