package cache

import (
	"sync"

	"github.com/jbearak/rlsp/graph"
)

// ParentCacheKey is the cache-validity key for a child's resolved parent:
// it must change whenever anything that could affect resolve_parent's
// outcome changes (the child's own backward directives, or the set of
// reverse edges pointing to it).
type ParentCacheKey struct {
	MetadataFingerprint uint64
	ReverseEdgesHash    uint64
}

type parentCacheEntry struct {
	key        ParentCacheKey
	resolution graph.ParentResolution
}

// ParentSelectionCache memoizes [graph.Graph.ResolveParent] outcomes, keyed
// by child URI and a fingerprint of the inputs that decide the outcome.
type ParentSelectionCache struct {
	mu    sync.RWMutex
	inner map[string]parentCacheEntry
}

// NewParentSelectionCache constructs an empty parent-selection cache.
func NewParentSelectionCache() *ParentSelectionCache {
	return &ParentSelectionCache{inner: make(map[string]parentCacheEntry)}
}

// Get returns the cached resolution for childURI if present and if key
// matches the fingerprint it was cached under.
func (c *ParentSelectionCache) Get(childURI string, key ParentCacheKey) (graph.ParentResolution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.inner[childURI]
	if !ok || entry.key != key {
		return graph.ParentResolution{}, false
	}
	return entry.resolution, true
}

// Insert stores resolution for childURI under key.
func (c *ParentSelectionCache) Insert(childURI string, key ParentCacheKey, resolution graph.ParentResolution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner[childURI] = parentCacheEntry{key: key, resolution: resolution}
}

// Invalidate drops the cached resolution for childURI.
func (c *ParentSelectionCache) Invalidate(childURI string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inner, childURI)
}

// InvalidateAll clears every cached resolution.
func (c *ParentSelectionCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner = make(map[string]parentCacheEntry)
}
