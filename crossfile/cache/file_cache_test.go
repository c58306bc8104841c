package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jbearak/rlsp/crossfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSnapshotMatchesIgnoresContentHash(t *testing.T) {
	snap1 := crossfile.FileSnapshot{ModTime: 100, Size: 10}
	snap2 := crossfile.FileSnapshot{ModTime: 100, Size: 10, ContentHash: 999, HasContentHash: true}
	assert.True(t, snap1.MatchesDisk(snap2))
}

func TestFileSnapshotMismatchSize(t *testing.T) {
	snap1 := crossfile.FileSnapshot{ModTime: 100, Size: 10}
	snap2 := crossfile.FileSnapshot{ModTime: 100, Size: 20}
	assert.False(t, snap1.MatchesDisk(snap2))
}

func TestFileCacheInsertAndGet(t *testing.T) {
	c := NewFileCache(0, 0)
	uri := "file:///test.R"
	snap := crossfile.FileSnapshot{ModTime: 1, Size: 7}

	c.Insert(uri, snap, "content")
	got, ok := c.Get(uri)
	require.True(t, ok)
	assert.Equal(t, "content", got)
}

func TestFileCacheGetIfFresh(t *testing.T) {
	c := NewFileCache(0, 0)
	uri := "file:///test.R"
	snap := crossfile.FileSnapshot{ModTime: 1, Size: 7}

	c.Insert(uri, snap, "content")
	got, ok := c.GetIfFresh(uri, snap)
	require.True(t, ok)
	assert.Equal(t, "content", got)

	_, ok = c.GetIfFresh(uri, crossfile.FileSnapshot{ModTime: 1, Size: 99})
	assert.False(t, ok)
}

func TestFileCacheInvalidate(t *testing.T) {
	c := NewFileCache(0, 0)
	uri := "file:///test.R"
	c.Insert(uri, crossfile.FileSnapshot{Size: 1}, "x")
	_, ok := c.Get(uri)
	require.True(t, ok)

	c.Invalidate(uri)
	_, ok = c.Get(uri)
	assert.False(t, ok)
}

func TestFileCacheReadAndCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.R")
	require.NoError(t, os.WriteFile(path, []byte("x <- 1\n"), 0o644))

	c := NewFileCache(0, 0)
	uri := "file://" + path
	content, ok := c.ReadAndCache(uri, path)
	require.True(t, ok)
	assert.Contains(t, content, "x <- 1")

	cached, ok := c.Get(uri)
	require.True(t, ok)
	assert.Equal(t, content, cached)
}

func TestFileCacheContentLRUEviction(t *testing.T) {
	c := NewFileCache(2, 100)
	snap := crossfile.FileSnapshot{Size: 1}
	c.Insert("a.R", snap, "a")
	c.Insert("b.R", snap, "b")

	_, aOK := c.Get("a.R")
	_, bOK := c.Get("b.R")
	assert.True(t, aOK)
	assert.True(t, bOK)

	c.Insert("c.R", snap, "c")
	_, aOK = c.Get("a.R")
	_, cOK := c.Get("c.R")
	assert.False(t, aOK, "LRU entry should be evicted")
	assert.True(t, cOK)
}

func TestFileCacheExistenceLRUEviction(t *testing.T) {
	c := NewFileCache(100, 2)
	c.CacheExistence("/a", true)
	c.CacheExistence("/b", false)

	aExists, aOK := c.PathExists("/a")
	assert.True(t, aOK)
	assert.True(t, aExists)

	c.CacheExistence("/c", true)
	_, aOK = c.PathExists("/a")
	assert.False(t, aOK, "LRU entry should be evicted")
	bExists, bOK := c.PathExists("/b")
	assert.True(t, bOK)
	assert.False(t, bExists)
}
