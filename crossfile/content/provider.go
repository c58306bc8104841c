// Package content implements the cross-file engine's unified content
// provider: a single place that resolves a URI to its current content,
// metadata, or artifacts according to one precedence rule, so the rest of
// the engine never has to reason about open-vs-closed files itself.
package content

import (
	"github.com/jbearak/rlsp/crossfile"
	"github.com/jbearak/rlsp/crossfile/cache"
)

// OpenDocumentLookup resolves uri to its in-memory content if it is
// currently open in the editor.
type OpenDocumentLookup func(uri string) (text string, ok bool)

// Provider resolves content, metadata, and artifacts with precedence:
//  1. Open document (in-memory, authoritative)
//  2. Workspace index (cached metadata/artifacts for closed files)
//  3. Disk file cache (cached content only; never performs synchronous
//     disk I/O itself)
//
// Callers that get a cache miss at every tier are expected to read the
// file, extract metadata, and compute artifacts themselves, then populate
// the index/cache for next time; Provider only ever returns what is
// already known.
type Provider struct {
	openDocuments  OpenDocumentLookup
	workspaceIndex *cache.WorkspaceIndex
	fileCache      *cache.FileCache
}

// New constructs a content provider over the given open-document lookup,
// workspace index, and file cache.
func New(openDocuments OpenDocumentLookup, workspaceIndex *cache.WorkspaceIndex, fileCache *cache.FileCache) *Provider {
	return &Provider{openDocuments: openDocuments, workspaceIndex: workspaceIndex, fileCache: fileCache}
}

// IsOpen reports whether uri is currently open.
func (p *Provider) IsOpen(uri string) bool {
	_, ok := p.openDocuments(uri)
	return ok
}

// Content returns uri's current content: the open document's text if open,
// otherwise the cached disk content, if any.
func (p *Provider) Content(uri string) (string, bool) {
	if text, ok := p.openDocuments(uri); ok {
		return text, true
	}
	return p.fileCache.Get(uri)
}

// PathExists reports whether path exists on disk, consulting the existence
// cache first and falling back to a direct stat on a miss. cached reports
// whether the result came from the cache, so callers that care about
// synchronous-I/O cost on a hot path (e.g. path resolution during a
// request) can distinguish a fast answer from a slow one.
func (p *Provider) PathExists(path string) (exists, cached bool) {
	if exists, ok := p.fileCache.PathExists(path); ok {
		return exists, true
	}
	exists = PathExists(path)
	p.fileCache.CacheExistence(path, exists)
	return exists, false
}

// Metadata returns uri's cross-file metadata from the workspace index.
//
// Open documents never have their metadata served here: metadata for an
// open document changes on every keystroke, so the caller that owns the
// open document's live analysis is the only correct source for it.
func (p *Provider) Metadata(uri string) (crossfile.CrossFileMetadata, bool) {
	if p.IsOpen(uri) {
		return crossfile.CrossFileMetadata{}, false
	}
	return p.workspaceIndex.GetMetadata(uri)
}

// Artifacts returns uri's computed scope artifacts from the workspace
// index, with the same open-document exclusion as Metadata.
func (p *Provider) Artifacts(uri string) (crossfile.ScopeArtifacts, bool) {
	if p.IsOpen(uri) {
		return crossfile.ScopeArtifacts{}, false
	}
	return p.workspaceIndex.GetArtifacts(uri)
}
