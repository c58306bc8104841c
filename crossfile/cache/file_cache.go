package cache

import (
	"hash/fnv"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jbearak/rlsp/crossfile"
)

// DefaultFileContentCapacity is used when a non-positive capacity is given
// for the content tier.
const DefaultFileContentCapacity = 500

// DefaultExistenceCapacity is used when a non-positive capacity is given
// for the existence tier.
const DefaultExistenceCapacity = 2000

// SnapshotFromDisk stats path and returns its current [crossfile.FileSnapshot].
func SnapshotFromDisk(path string) (crossfile.FileSnapshot, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return crossfile.FileSnapshot{}, false
	}
	return crossfile.FileSnapshot{ModTime: info.ModTime().UnixNano(), Size: info.Size()}, true
}

// SnapshotWithContentHash stats path and hashes content, producing a
// snapshot that can also detect content changes that leave size and mtime
// unchanged (e.g. a touch-preserving editor).
func SnapshotWithContentHash(path string, content string) (crossfile.FileSnapshot, bool) {
	snap, ok := SnapshotFromDisk(path)
	if !ok {
		return crossfile.FileSnapshot{}, false
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))
	snap.ContentHash = h.Sum64()
	snap.HasContentHash = true
	return snap, true
}

type cachedFile struct {
	snapshot crossfile.FileSnapshot
	content  string
}

// FileCache is the closed-file disk cache: file content keyed by URI, plus
// a separate existence cache keyed by filesystem path. Open documents are
// never stored here; the content provider consults this tier only as a
// fallback below the open-document layer.
type FileCache struct {
	content   *lru.Cache[string, cachedFile]
	existence *lru.Cache[string, bool]
}

// NewFileCache constructs a file cache with the given tier capacities,
// falling back to the package defaults for any non-positive value.
func NewFileCache(contentCapacity, existenceCapacity int) *FileCache {
	if contentCapacity <= 0 {
		contentCapacity = DefaultFileContentCapacity
	}
	if existenceCapacity <= 0 {
		existenceCapacity = DefaultExistenceCapacity
	}
	content, _ := lru.New[string, cachedFile](contentCapacity)
	existence, _ := lru.New[string, bool](existenceCapacity)
	return &FileCache{content: content, existence: existence}
}

// PathExists returns the cached existence state for path, if known.
func (c *FileCache) PathExists(path string) (bool, bool) {
	return c.existence.Peek(path)
}

// CacheExistence records whether path exists, for later PathExists lookups.
func (c *FileCache) CacheExistence(path string, exists bool) {
	c.existence.Add(path, exists)
}

// GetIfFresh returns uri's cached content only if its stored snapshot
// matches current (by mtime and size).
func (c *FileCache) GetIfFresh(uri string, current crossfile.FileSnapshot) (string, bool) {
	cached, ok := c.content.Peek(uri)
	if !ok || !cached.snapshot.MatchesDisk(current) {
		return "", false
	}
	return cached.content, true
}

// Get returns uri's cached content without a freshness check.
func (c *FileCache) Get(uri string) (string, bool) {
	cached, ok := c.content.Peek(uri)
	return cached.content, ok
}

// Insert stores content for uri under the given snapshot.
func (c *FileCache) Insert(uri string, snapshot crossfile.FileSnapshot, content string) {
	c.content.Add(uri, cachedFile{snapshot: snapshot, content: content})
}

// Invalidate drops uri's cached content.
func (c *FileCache) Invalidate(uri string) {
	c.content.Remove(uri)
}

// InvalidateAll clears both the content and existence tiers.
func (c *FileCache) InvalidateAll() {
	c.content.Purge()
	c.existence.Purge()
}

// ReadAndCache reads path from disk, caches the result under uri with a
// content-hash snapshot, and returns the content.
func (c *FileCache) ReadAndCache(uri, path string) (string, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	content := string(raw)
	snapshot, ok := SnapshotWithContentHash(path, content)
	if !ok {
		return "", false
	}
	c.Insert(uri, snapshot, content)
	return content, true
}

// Resize changes both tiers' capacities, falling back to the package
// defaults for any non-positive value.
func (c *FileCache) Resize(contentCapacity, existenceCapacity int) {
	if contentCapacity <= 0 {
		contentCapacity = DefaultFileContentCapacity
	}
	if existenceCapacity <= 0 {
		existenceCapacity = DefaultExistenceCapacity
	}
	c.content.Resize(contentCapacity)
	c.existence.Resize(existenceCapacity)
}
