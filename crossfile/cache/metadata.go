// Package cache holds the cross-file engine's tiered caches: per-file
// metadata, computed scope artifacts, disk file content and existence, and
// the closed-file workspace index.
//
// The LRU-bounded tiers (metadata, file content, existence, workspace
// index) read via the underlying cache's Peek so a lookup never disturbs
// recency, and write via Add so insertion and eviction behave as ordinary
// LRU bookkeeping. golang-lru's Cache is itself safe for concurrent use, so
// these tiers need no locking of their own; the tiers that are plain maps
// (ArtifactsCache, invalidated explicitly rather than LRU-evicted, and
// ParentSelectionCache) each guard themselves with a mutex.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jbearak/rlsp/crossfile"
)

// DefaultMetadataCapacity is used when a non-positive capacity is given.
const DefaultMetadataCapacity = 1000

// MetadataCache holds each file's directive/detected-call metadata,
// independent of whether its scope artifacts have been computed yet.
type MetadataCache struct {
	inner *lru.Cache[string, crossfile.CrossFileMetadata]
}

// NewMetadataCache constructs a metadata cache with the given capacity,
// falling back to [DefaultMetadataCapacity] if cap is non-positive.
func NewMetadataCache(capacity int) *MetadataCache {
	if capacity <= 0 {
		capacity = DefaultMetadataCapacity
	}
	inner, _ := lru.New[string, crossfile.CrossFileMetadata](capacity)
	return &MetadataCache{inner: inner}
}

// Get returns the cached metadata for uri, without affecting recency.
func (c *MetadataCache) Get(uri string) (crossfile.CrossFileMetadata, bool) {
	return c.inner.Peek(uri)
}

// Insert stores metadata for uri, evicting the least recently touched
// entry if the cache is at capacity.
func (c *MetadataCache) Insert(uri string, meta crossfile.CrossFileMetadata) {
	c.inner.Add(uri, meta)
}

// Remove drops uri's cached metadata, if present.
func (c *MetadataCache) Remove(uri string) {
	c.inner.Remove(uri)
}

// InvalidateMany removes every URI in uris. Returns the number of entries
// actually removed.
func (c *MetadataCache) InvalidateMany(uris []string) int {
	count := 0
	for _, uri := range uris {
		if c.inner.Remove(uri) {
			count++
		}
	}
	return count
}

// Resize changes the cache's capacity, evicting least-recently-touched
// entries if shrinking.
func (c *MetadataCache) Resize(capacity int) {
	if capacity <= 0 {
		capacity = DefaultMetadataCapacity
	}
	c.inner.Resize(capacity)
}

// artifactsEntry pairs cached scope artifacts with the fingerprint they
// were computed from.
type artifactsEntry struct {
	fingerprint crossfile.ScopeFingerprint
	artifacts   crossfile.ScopeArtifacts
}

// ArtifactsCache holds each file's computed scope artifacts, keyed by a
// fingerprint of the inputs they were derived from.
type ArtifactsCache struct {
	mu    sync.RWMutex
	inner map[string]artifactsEntry
}

// NewArtifactsCache constructs an empty artifacts cache.
//
// Unlike the other tiers this is not LRU-bounded in the original: scope
// artifacts are invalidated explicitly by the revalidation scheduler as
// files and their dependents change, so an unbounded map with precise
// invalidation is the right fit here rather than approximate LRU eviction.
func NewArtifactsCache() *ArtifactsCache {
	return &ArtifactsCache{inner: make(map[string]artifactsEntry)}
}

// GetIfFresh returns the cached artifacts for uri only if fp matches the
// fingerprint they were cached under.
func (c *ArtifactsCache) GetIfFresh(uri string, fp crossfile.ScopeFingerprint) (crossfile.ScopeArtifacts, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.inner[uri]
	if !ok || entry.fingerprint != fp {
		return crossfile.ScopeArtifacts{}, false
	}
	return entry.artifacts, true
}

// Get returns the cached artifacts for uri without a fingerprint check.
func (c *ArtifactsCache) Get(uri string) (crossfile.ScopeArtifacts, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.inner[uri]
	return entry.artifacts, ok
}

// Insert stores or replaces uri's cached artifacts and fingerprint.
func (c *ArtifactsCache) Insert(uri string, fp crossfile.ScopeFingerprint, artifacts crossfile.ScopeArtifacts) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner[uri] = artifactsEntry{fingerprint: fp, artifacts: artifacts}
}

// Invalidate drops uri's cached artifacts.
func (c *ArtifactsCache) Invalidate(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inner, uri)
}

// InvalidateAll clears every cached entry.
func (c *ArtifactsCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner = make(map[string]artifactsEntry)
}
