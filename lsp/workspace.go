package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jbearak/rlsp/crossfile"
	"github.com/jbearak/rlsp/crossfile/cache"
	"github.com/jbearak/rlsp/crossfile/content"
	"github.com/jbearak/rlsp/crossfile/directive"
	"github.com/jbearak/rlsp/crossfile/indexer"
	"github.com/jbearak/rlsp/crossfile/resolver"
	"github.com/jbearak/rlsp/crossfile/revalidation"
	"github.com/jbearak/rlsp/crossfile/scope"
	"github.com/jbearak/rlsp/crossfile/sourcecall"
	"github.com/jbearak/rlsp/diag"
	"github.com/jbearak/rlsp/graph"
	"github.com/jbearak/rlsp/location"
)

// PositionEncoding represents the position encoding used for LSP communication.
// LSP 3.17 introduced position encoding negotiation; prior versions assumed UTF-16.
type PositionEncoding string

const (
	// PositionEncodingUTF16 counts positions in UTF-16 code units. This is
	// the default: VS Code and most editors use UTF-16 internally, and LSP
	// versions before 3.17 mandate it.
	PositionEncodingUTF16 PositionEncoding = "utf-16"

	// PositionEncodingUTF8 counts positions in UTF-8 bytes.
	PositionEncodingUTF8 PositionEncoding = "utf-8"
)

// revalidationDelay is used when a Config has no usable
// RevalidationDebounceMillis.
const revalidationDelay = 150 * time.Millisecond

// Notifier is a function that sends LSP notifications. This type allows
// capturing only the notification capability from a glsp.Context rather
// than the entire context object, which keeps revalidation closures free
// of glsp's broader surface.
type Notifier func(method string, params any)

// Config holds the LSP-layer startup configuration. ModuleRoot is the
// absolute path the server was launched against and seeds the initial
// workspace root before any workspace-folder notification arrives.
// EngineConfig overrides the engine's tunable behavior; nil selects
// crossfile.DefaultConfig().
type Config struct {
	ModuleRoot   string
	EngineConfig *crossfile.Config
}

// Workspace is the shared state container behind the LSP server: open
// documents, the dependency graph, the cross-file caches, the background
// indexer, and the revalidation machinery that keeps published diagnostics
// current as files change. w.mu guards the document set and root list; the
// graph, caches, and indexer each keep their own fine-grained locking and
// are safe to call without w.mu held.
type Workspace struct {
	mu     sync.RWMutex
	logger *slog.Logger
	config crossfile.Config
	roots  []string

	open map[string]*Document

	posEncoding PositionEncoding

	graph          *graph.Graph
	fileCache      *cache.FileCache
	metadataCache  *cache.MetadataCache
	artifactsCache *cache.ArtifactsCache
	workspaceIndex *cache.WorkspaceIndex
	content        *content.Provider
	paths          *pathContexts

	resolver *resolver.Resolver
	indexer  *indexer.Indexer

	activity *revalidation.ActivityTracker
	gate     *revalidation.DiagnosticsGate
	schedule *revalidation.Scheduler
}

// NewWorkspace constructs a Workspace over the given engine configuration
// and starts its background indexer. Callers own calling Shutdown when the
// server exits.
func NewWorkspace(logger *slog.Logger, cfg crossfile.Config) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Workspace{
		logger:         logger,
		config:         cfg,
		open:           make(map[string]*Document),
		posEncoding:    PositionEncodingUTF16,
		graph:          graph.New(graph.WithLogger(logger)),
		fileCache:      cache.NewFileCache(cfg.FileContentCacheCapacity, cfg.ExistenceCacheCapacity),
		metadataCache:  cache.NewMetadataCache(cfg.MetadataCacheCapacity),
		artifactsCache: cache.NewArtifactsCache(),
		workspaceIndex: cache.NewWorkspaceIndex(cfg.WorkspaceIndexCapacity),
		paths:          newPathContexts(),
		activity:       revalidation.NewActivityTracker(),
		gate:           revalidation.NewDiagnosticsGate(),
		schedule:       revalidation.NewScheduler(),
	}

	w.content = content.New(w.openDocumentText, w.workspaceIndex, w.fileCache)
	w.resolver = resolver.New(w.graph, w.lookupArtifacts, stubPackageLookup, w.parentPriority, cfg)
	w.indexer = indexer.New(indexer.Deps{
		Graph:          w.graph,
		WorkspaceIndex: w.workspaceIndex,
		FileCache:      w.fileCache,
		Read:           w.readFromDisk,
		Parse:          parseR,
		IsIndexed:      w.isIndexed,
		Resolve:        w.paths.resolve,
		ContentOf:      w.contentOf,
		Logger:         logger,
	}, cfg.OnDemandIndexingMaxQueueSize, cfg.MaxTransitiveIndexDepth, cfg.AssumeCallSite)
	w.indexer.Start()

	return w
}

// stubPackageLookup always reports a package's exports as unknown: this
// engine resolves cross-file scope, not installed R package namespaces, so
// every library()/require() call degrades to the configured
// MissingPackageSeverity rather than attempting real introspection.
func stubPackageLookup(pkg string) (resolver.PackageExports, bool) {
	return nil, false
}

// Shutdown stops the background indexer and cancels all pending
// revalidations.
func (w *Workspace) Shutdown() {
	w.indexer.Stop()
	w.schedule.CancelAll()
}

// UpdateConfig replaces the engine configuration the resolver consults on
// every scope query. It reports whether the change affects scope
// resolution (see [crossfile.Config.ScopeSettingsChanged]); callers should
// follow a true result with ReanalyzeOpenDocuments so published
// diagnostics reflect the new settings. Cache capacities and indexer
// bounds are fixed at construction and are not affected by this call.
func (w *Workspace) UpdateConfig(cfg crossfile.Config) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := w.config.ScopeSettingsChanged(cfg)
	w.config = cfg
	w.resolver = resolver.New(w.graph, w.lookupArtifacts, stubPackageLookup, w.parentPriority, cfg)
	w.indexer.SetAssumeCallSite(cfg.AssumeCallSite)
	return changed
}

// SetPositionEncoding records the encoding negotiated with the client.
func (w *Workspace) SetPositionEncoding(enc PositionEncoding) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.posEncoding = enc
}

// PositionEncoding returns the encoding negotiated with the client.
func (w *Workspace) PositionEncoding() PositionEncoding {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.posEncoding
}

// AddRoot adds uri's filesystem path to the workspace root list. The first
// root added anchors "/"-prefixed paths in @lsp-working-directory
// directives and source() calls, since [pathresolve.Context] supports a
// single workspace root at a time; subsequent roots only widen
// findModuleRoot's search.
func (w *Workspace) AddRoot(uri string) {
	path, err := URIToPath(uri)
	if err != nil {
		return
	}
	canonical, err := location.NewCanonicalPath(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.roots {
		if r == canonical.String() {
			return
		}
	}
	first := len(w.roots) == 0
	w.roots = append(w.roots, canonical.String())
	if first {
		w.paths.setRoot(canonical)
	}
}

// RemoveRoot removes uri's filesystem path from the workspace root list.
func (w *Workspace) RemoveRoot(uri string) {
	path, err := URIToPath(uri)
	if err != nil {
		return
	}
	canonical, err := location.NewCanonicalPath(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for i, r := range w.roots {
		if r == canonical.String() {
			w.roots = append(w.roots[:i], w.roots[i+1:]...)
			return
		}
	}
}

// findModuleRoot picks the deepest configured root that contains path,
// falling back to path's own directory when no root matches.
func (w *Workspace) findModuleRoot(path string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	best := ""
	for _, r := range w.roots {
		if (path == r || strings.HasPrefix(path, r+"/")) && len(r) > len(best) {
			best = r
		}
	}
	if best != "" {
		return best
	}
	return filepath.Dir(path)
}

// DocumentOpened registers a newly opened buffer and runs it through the
// live analysis pipeline once, synchronously: the first diagnostics a
// client sees should reflect the text it just opened, not a debounce
// later.
func (w *Workspace) DocumentOpened(notify Notifier, uri string, version int32, text string) {
	doc := &Document{URI: uri, Text: normalizeLineEndings(text), Version: version, Revision: 1}

	w.mu.Lock()
	w.open[uri] = doc
	w.mu.Unlock()

	w.activity.RecordRecent(uri)
	w.analyzeAndPublish(notify, uri)
	w.revalidateDependents(notify, uri)
}

// DocumentChanged updates an open buffer's text and schedules debounced
// revalidation. A stale version (older than or equal to what is already
// recorded, which can happen under request reordering) is ignored.
func (w *Workspace) DocumentChanged(notify Notifier, uri string, version int32, text string) {
	w.mu.Lock()
	doc, ok := w.open[uri]
	if ok {
		if version != 0 && version <= doc.Version {
			w.mu.Unlock()
			return
		}
		doc.Text = normalizeLineEndings(text)
		doc.Version = version
		doc.Revision++
	}
	w.mu.Unlock()
	if !ok {
		return
	}

	w.activity.RecordRecent(uri)
	w.schedule.Schedule(uri, w.debounceDelay(), func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		w.analyzeAndPublish(notify, uri)
		w.revalidateDependents(notify, uri)
	})
}

// DocumentClosed removes uri from the open set and re-primes the workspace
// index from whatever is on disk, so a subsequent read (an ancestor's
// backward resolution, or the file being reopened) sees on-disk content
// rather than a stale in-memory snapshot.
func (w *Workspace) DocumentClosed(notify Notifier, uri string) {
	w.mu.Lock()
	delete(w.open, uri)
	w.mu.Unlock()

	w.schedule.Cancel(uri)
	w.activity.Remove(uri)
	w.gate.Clear(uri)
	w.artifactsCache.Invalidate(uri)

	if text, snapshot, ok := w.readFromDisk(uri); ok {
		w.indexFromText(uri, text, snapshot)
	} else {
		w.workspaceIndex.Invalidate(uri)
		w.graph.RemoveFile(uri)
	}

	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
}

// FileChanged handles one workspace/didChangeWatchedFiles change for a
// file that may or may not be open. On create/change it invalidates the
// cached disk state and re-indexes synchronously; on delete it drops the
// file from the graph entirely. Either way, every open dependent is forced
// to republish even at an unchanged version, since the file's exported
// interface may have shifted.
func (w *Workspace) FileChanged(notify Notifier, uri string, changeType protocol.UInteger) {
	const fileChangeTypeDeleted = 3

	w.fileCache.Invalidate(uri)
	w.metadataCache.Remove(uri)
	w.artifactsCache.Invalidate(uri)

	if changeType == fileChangeTypeDeleted {
		w.workspaceIndex.Invalidate(uri)
		w.graph.RemoveFile(uri)
	} else if text, snapshot, ok := w.readFromDisk(uri); ok {
		w.indexFromText(uri, text, snapshot)
	}

	for _, dep := range w.affectedOpenFiles(uri) {
		if dep != uri {
			w.gate.MarkForceRepublish(dep)
		}
		dep := dep
		w.schedule.Schedule(dep, w.debounceDelay(), func(ctx context.Context) {
			if ctx.Err() != nil {
				return
			}
			w.analyzeAndPublish(notify, dep)
		})
	}
}

// ReanalyzeOpenDocuments re-runs analysis for every currently open
// document, used after a workspace-folder change or a configuration
// change that affects scope resolution (see
// [crossfile.Config.ScopeSettingsChanged]).
func (w *Workspace) ReanalyzeOpenDocuments(notify Notifier) {
	w.mu.RLock()
	uris := make([]string, 0, len(w.open))
	for uri := range w.open {
		uris = append(uris, uri)
	}
	w.mu.RUnlock()

	for _, uri := range uris {
		w.gate.MarkForceRepublish(uri)
		w.analyzeAndPublish(notify, uri)
	}
}

// SetActiveDocument feeds the activity tracker that ranks background
// revalidation ordering and breaks parent-ambiguity ties.
func (w *Workspace) SetActiveDocument(uri string) {
	w.activity.Update(uri, nil)
}

// debounceDelay returns the configured revalidation debounce, falling back
// to revalidationDelay for a non-positive configured value.
func (w *Workspace) debounceDelay() time.Duration {
	if ms := w.config.RevalidationDebounceMillis; ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return revalidationDelay
}

// analyzeAndPublish runs the full indexing pipeline for uri's current
// in-memory text (directive parse, AST-based call detection, scope build,
// graph update) and publishes the resulting diagnostics if the gate
// permits it for the document's current version.
func (w *Workspace) analyzeAndPublish(notify Notifier, uri string) {
	w.mu.RLock()
	doc, ok := w.open[uri]
	w.mu.RUnlock()
	if !ok {
		return
	}
	text := doc.Text
	version := doc.Version

	metadata := directive.Parse(text)
	directiveSources := append([]crossfile.ForwardSource(nil), metadata.Sources...)

	var issues []diag.Issue
	var artifacts crossfile.ScopeArtifacts
	tree, parsed := parseR(text)
	if parsed {
		raw := []byte(text)
		detected := sourcecall.DetectSources(tree, raw)
		issues = append(issues, crossfile.RedundantDirectiveIssues(directiveSources, detected)...)

		metadata.Sources = append(metadata.Sources, detected...)
		metadata.RmCalls = sourcecall.DetectRmCalls(tree, raw)
		metadata.LibraryCalls = sourcecall.DetectLibraryCalls(tree, raw)

		resolveForScope := func(path string) (string, bool) { return w.paths.resolve(uri, path) }
		artifacts = scope.Build(tree, raw, metadata.Sources, metadata.RmCalls, metadata.LibraryCalls, resolveForScope)

		for _, src := range detected {
			if childURI, ok := w.paths.resolve(uri, src.Path); ok {
				w.paths.recordChild(uri, src, childURI)
			}
		}
		if metadata.WorkingDirectory != "" {
			w.paths.applyWorkingDirectory(uri, metadata.WorkingDirectory)
		}
	}

	w.mu.Lock()
	if d, ok := w.open[uri]; ok {
		d.Tree = tree
		d.LoadedPackages = libraryNames(metadata.LibraryCalls)
	}
	w.mu.Unlock()

	w.metadataCache.Insert(uri, metadata)
	w.artifactsCache.Insert(uri, crossfile.ScopeFingerprint{}, artifacts)
	backwardDirectives := graph.ResolveDefaultCallSites(metadata.SourcedBy, w.config.AssumeCallSite, uri, w.paths.resolve, w.contentOf)
	w.graph.UpdateFile(uri, metadata.Sources, backwardDirectives, w.paths.resolve, w.contentOf)

	_, scopeIssues := w.resolver.ScopeAtPosition(uri, ^uint32(0), ^uint32(0))
	issues = append(issues, scopeIssues...)

	if !w.gate.CanPublish(uri, version) {
		return
	}
	w.gate.RecordPublish(uri, version)
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: convertIssues(issues),
	})
}

// revalidateDependents schedules republication for uri's open dependents,
// since a change to uri's exported interface can change what resolves for
// everything that (transitively) sources it.
func (w *Workspace) revalidateDependents(notify Notifier, uri string) {
	for _, dep := range w.affectedOpenFiles(uri) {
		if dep == uri {
			continue
		}
		w.gate.MarkForceRepublish(dep)
		dep := dep
		w.schedule.Schedule(dep, w.debounceDelay(), func(ctx context.Context) {
			if ctx.Err() != nil {
				return
			}
			w.analyzeAndPublish(notify, dep)
		})
	}
}

func (w *Workspace) affectedOpenFiles(uri string) []string {
	maxCount := w.config.MaxRevalidationsPerTrigger
	if maxCount <= 0 {
		maxCount = 10
	}
	maxChain := w.config.MaxChainDepth
	if maxChain <= 0 {
		maxChain = 20
	}
	return revalidation.AffectedFiles(w.graph, uri, maxChain, w.isOpen, w.activity.PriorityScore, maxCount)
}

// parentPriority adapts [revalidation.ActivityTracker.PriorityScore] (lower
// is higher priority) to [graph.PriorityScoreFunc]'s convention (higher is
// preferred), so the same activity signal that orders background
// revalidation also breaks parent-resolution ties.
func (w *Workspace) parentPriority(candidateURI string) int {
	return -w.activity.PriorityScore(candidateURI)
}

// lookupArtifacts implements [resolver.ArtifactsLookup]: an open
// document's live artifacts take precedence, then the workspace index,
// which the background indexer and on-demand submission keep current for
// files nobody has opened.
func (w *Workspace) lookupArtifacts(uri string) (crossfile.ScopeArtifacts, bool) {
	if w.isOpen(uri) {
		return w.artifactsCache.Get(uri)
	}
	if a, ok := w.content.Artifacts(uri); ok {
		return a, true
	}
	w.indexer.Submit(uri, indexer.PriorityBackwardTarget, 0)
	return crossfile.ScopeArtifacts{}, false
}

func (w *Workspace) openDocumentText(uri string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.open[uri]
	if !ok {
		return "", false
	}
	return doc.Text, true
}

func (w *Workspace) isOpen(uri string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.open[uri]
	return ok
}

func (w *Workspace) isIndexed(uri string) bool {
	if w.isOpen(uri) {
		return true
	}
	return w.workspaceIndex.Contains(uri)
}

func (w *Workspace) contentOf(uri string) (string, bool) {
	return w.content.Content(uri)
}

// readFromDisk implements [indexer.ReadFunc]: it reads uri's path from
// disk, preferring the file cache when its stored snapshot is still
// fresh.
func (w *Workspace) readFromDisk(uri string) (string, crossfile.FileSnapshot, bool) {
	path, err := URIToPath(uri)
	if err != nil {
		return "", crossfile.FileSnapshot{}, false
	}
	snapshot, ok := cache.SnapshotFromDisk(path)
	if !ok {
		return "", crossfile.FileSnapshot{}, false
	}
	if text, ok := w.fileCache.GetIfFresh(uri, snapshot); ok {
		return text, snapshot, true
	}
	text, ok := w.fileCache.ReadAndCache(uri, path)
	if !ok {
		return "", crossfile.FileSnapshot{}, false
	}
	full, ok := cache.SnapshotWithContentHash(path, text)
	if !ok {
		full = snapshot
	}
	return text, full, true
}

// indexFromText runs the same metadata/scope/graph pipeline the background
// indexer uses, synchronously, for a file whose on-disk content just
// became known (a watched-file change, or a document that was just
// closed): downstream revalidation needs the graph and caches current
// before the next pass reads them, not merely queued.
func (w *Workspace) indexFromText(uri, text string, snapshot crossfile.FileSnapshot) {
	metadata := directive.Parse(text)
	directiveSources := append([]crossfile.ForwardSource(nil), metadata.Sources...)

	var artifacts crossfile.ScopeArtifacts
	if tree, ok := parseR(text); ok {
		raw := []byte(text)
		detected := sourcecall.DetectSources(tree, raw)
		_ = crossfile.RedundantDirectiveIssues(directiveSources, detected)

		metadata.Sources = append(metadata.Sources, detected...)
		metadata.RmCalls = sourcecall.DetectRmCalls(tree, raw)
		metadata.LibraryCalls = sourcecall.DetectLibraryCalls(tree, raw)

		resolveForScope := func(path string) (string, bool) { return w.paths.resolve(uri, path) }
		artifacts = scope.Build(tree, raw, metadata.Sources, metadata.RmCalls, metadata.LibraryCalls, resolveForScope)
	}

	w.fileCache.Insert(uri, snapshot, text)
	w.workspaceIndex.UpdateFromDisk(uri, false, snapshot, metadata, artifacts)
	backwardDirectives := graph.ResolveDefaultCallSites(metadata.SourcedBy, w.config.AssumeCallSite, uri, w.paths.resolve, w.contentOf)
	w.graph.UpdateFile(uri, metadata.Sources, backwardDirectives, w.paths.resolve, w.contentOf)
}

func libraryNames(calls []crossfile.LibraryCall) []string {
	if len(calls) == 0 {
		return nil
	}
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Package)
	}
	return out
}

// ScopeAt returns every symbol visible at (line, column) in uri, together
// with any diagnostics raised while resolving it. It backs both
// textDocument/definition (after the caller filters by the identifier
// under the cursor) and textDocument/completion.
func (w *Workspace) ScopeAt(uri string, line, column uint32) ([]crossfile.ResolvedSymbol, []diag.Issue) {
	return w.resolver.ScopeAtPosition(uri, line, column)
}

// URIToPath converts a file:// URI to a filesystem path.
func URIToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse URI %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported URI scheme %q", u.Scheme)
	}

	path := u.Path
	if path == "" && u.Opaque != "" {
		path = u.Opaque
	}

	// Windows drive-letter paths arrive as /C:/... ; strip the leading slash.
	if runtime.GOOS == "windows" && len(path) >= 3 && path[0] == '/' && isWindowsDriveLetter(path[1]) && path[2] == ':' {
		path = path[1:]
	}

	return path, nil
}

// PathToURI converts a filesystem path to a file:// URI.
func PathToURI(path string) string {
	path = filepath.ToSlash(path)
	if runtime.GOOS == "windows" && len(path) >= 2 && isWindowsDriveLetter(path[0]) && path[1] == ':' {
		path = "/" + path
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}

func isWindowsDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// normalizeLineEndings converts CRLF and lone CR line endings to LF, so
// byte/line offsets computed downstream are consistent regardless of the
// file's on-disk or client-transmitted line ending convention.
func normalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text
}
