// Package indexer implements the on-demand background indexer: a single
// worker that drains a bounded priority queue of files neither open in the
// editor nor yet indexed, so that cross-file resolution has something to
// find when it backward-ascends or forward-traverses into a file nobody has
// opened.
package indexer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jbearak/rlsp/crossfile"
	"github.com/jbearak/rlsp/crossfile/cache"
	"github.com/jbearak/rlsp/crossfile/directive"
	"github.com/jbearak/rlsp/crossfile/scope"
	"github.com/jbearak/rlsp/crossfile/sourcecall"
	"github.com/jbearak/rlsp/diag"
	"github.com/jbearak/rlsp/graph"
	"github.com/jbearak/rlsp/internal/trace"
)

// errIndexFailed is the sentinel logged when a task's Read step fails;
// indexFile itself returns only ok=false, so End's error attribute has
// nothing more specific to report.
var errIndexFailed = errors.New("indexer: failed to index file")

// Priority levels. 1 is reserved for the foreground (never enqueued here):
// a file the user is actively looking at is analyzed directly by the LSP
// request handler, not by this queue.
const (
	PriorityBackwardTarget = 2 // a backward directive's declared target
	PriorityTransitive     = 3 // a transitive dependency of an indexed file
)

// pollInterval is how often the worker checks the queue for new work.
const pollInterval = 100 * time.Millisecond

// IndexTask is one unit of queued work.
type IndexTask struct {
	URI         string
	Priority    int
	Depth       int
	SubmittedAt time.Time
}

// ReadFunc reads uri's current on-disk content and snapshot. It returns
// ok=false if the file cannot be read (missing, permission denied, not a
// local file).
type ReadFunc func(uri string) (content string, snapshot crossfile.FileSnapshot, ok bool)

// ParseFunc parses content into a syntax tree, or reports ok=false if the
// parser is unavailable or parsing failed outright.
type ParseFunc func(content string) (sourcecall.Tree, bool)

// IsIndexedFunc reports whether uri already has a usable entry: either it
// is currently open (and therefore analyzed live) or it already has a
// workspace index entry.
type IsIndexedFunc func(uri string) bool

// Deps collects the indexer's dependencies: the shared dependency graph and
// workspace-visible caches it populates, plus the I/O and parsing it never
// performs synchronously on a request-handling goroutine.
type Deps struct {
	Graph          *graph.Graph
	WorkspaceIndex *cache.WorkspaceIndex
	FileCache      *cache.FileCache
	Read           ReadFunc
	Parse          ParseFunc
	IsIndexed      IsIndexedFunc
	Resolve        graph.PathResolveFunc
	ContentOf      graph.ContentLookupFunc
	Logger         *slog.Logger
}

// Indexer is a bounded priority queue plus a single worker goroutine that
// drains it. The zero value is not usable; construct with [New].
type Indexer struct {
	deps               Deps
	maxQueueSize       int
	maxTransitiveDepth int

	mu             sync.Mutex
	queue          []IndexTask
	assumeCallSite crossfile.CallSiteDefault

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs an indexer over deps. maxQueueSize and maxTransitiveDepth
// come from [crossfile.Config]; non-positive values fall back to sane
// defaults so a zero-value Config doesn't wedge the queue shut. assumeCallSite
// is the engine's configured policy for resolving a backward directive whose
// call site is unspecified; see [SetAssumeCallSite] to update it later.
func New(deps Deps, maxQueueSize, maxTransitiveDepth int, assumeCallSite crossfile.CallSiteDefault) *Indexer {
	if maxQueueSize <= 0 {
		maxQueueSize = 50
	}
	if maxTransitiveDepth <= 0 {
		maxTransitiveDepth = 3
	}
	return &Indexer{deps: deps, maxQueueSize: maxQueueSize, maxTransitiveDepth: maxTransitiveDepth, assumeCallSite: assumeCallSite}
}

// SetAssumeCallSite updates the call-site-default policy background indexing
// applies to Unspecified backward directives. Safe to call concurrently with
// indexing in progress.
func (ix *Indexer) SetAssumeCallSite(assume crossfile.CallSiteDefault) {
	ix.mu.Lock()
	ix.assumeCallSite = assume
	ix.mu.Unlock()
}

// Start launches the worker goroutine. Calling Start on an already-started
// indexer is a no-op.
func (ix *Indexer) Start() {
	ix.mu.Lock()
	if ix.cancel != nil {
		ix.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	ix.cancel = cancel
	ix.done = make(chan struct{})
	ix.mu.Unlock()

	go ix.run(ctx)
}

// Stop cancels the worker and waits for it to exit.
func (ix *Indexer) Stop() {
	ix.mu.Lock()
	cancel := ix.cancel
	done := ix.done
	ix.cancel = nil
	ix.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Submit enqueues uri for indexing at the given priority and transitive
// depth. Duplicate URIs already queued are skipped, and the queue drops the
// task (logging a warning) once it is at capacity: background indexing is
// best-effort and must never block the caller.
func (ix *Indexer) Submit(uri string, priority, depth int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ctx := context.Background()

	for _, t := range ix.queue {
		if t.URI == uri {
			trace.Debug(ctx, ix.deps.Logger, "skipping indexing task, already queued", slog.String("uri", uri))
			return
		}
	}

	if len(ix.queue) >= ix.maxQueueSize {
		trace.Warn(ctx, ix.deps.Logger, "background indexing queue full, dropping task",
			slog.String("uri", uri), slog.Int("queue_size", len(ix.queue)), slog.Int("max_size", ix.maxQueueSize))
		return
	}

	task := IndexTask{URI: uri, Priority: priority, Depth: depth, SubmittedAt: time.Now()}

	insertAt := len(ix.queue)
	for i, t := range ix.queue {
		if t.Priority > priority {
			insertAt = i
			break
		}
	}
	ix.queue = append(ix.queue, IndexTask{})
	copy(ix.queue[insertAt+1:], ix.queue[insertAt:])
	ix.queue[insertAt] = task
}

// QueueLen reports the number of tasks currently queued.
func (ix *Indexer) QueueLen() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.queue)
}

func (ix *Indexer) popFront() (IndexTask, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(ix.queue) == 0 {
		return IndexTask{}, false
	}
	task := ix.queue[0]
	ix.queue = ix.queue[1:]
	return task, true
}

func (ix *Indexer) run(ctx context.Context) {
	defer close(ix.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task, ok := ix.popFront()
			if ok {
				ix.process(ctx, task)
			}
		}
	}
}

// process indexes a single task, skipping it if the file no longer needs
// indexing (it was opened, or another path already indexed it while this
// task waited in the queue).
func (ix *Indexer) process(ctx context.Context, task IndexTask) {
	if ix.deps.IsIndexed(task.URI) {
		return
	}

	op := trace.Begin(ctx, ix.deps.Logger, "rlsp.indexer.index_file", slog.String("uri", task.URI))
	metadata, artifacts, issues, ok := ix.indexFile(task.URI)
	if !ok {
		trace.Warn(ctx, ix.deps.Logger, "failed to index file", slog.String("uri", task.URI))
		op.End(errIndexFailed)
		return
	}

	op.End(nil, slog.Int("exported_symbols", len(artifacts.ExportedInterface)))
	for _, issue := range issues {
		trace.Debug(ctx, ix.deps.Logger, "diagnostic while indexing",
			slog.String("uri", task.URI), slog.String("code", issue.Code().String()), slog.String("message", issue.Message()))
	}

	ix.queueTransitiveDeps(task.URI, metadata, task.Depth)
}

// indexFile reads uri's content, extracts its cross-file metadata, builds
// its scope artifacts, and records both in the workspace index and the
// dependency graph. The returned issues flag directive-form sources that
// add nothing an AST-detected source() call didn't already establish.
func (ix *Indexer) indexFile(uri string) (crossfile.CrossFileMetadata, crossfile.ScopeArtifacts, []diag.Issue, bool) {
	content, snapshot, ok := ix.deps.Read(uri)
	if !ok {
		return crossfile.CrossFileMetadata{}, crossfile.ScopeArtifacts{}, nil, false
	}

	metadata := directive.Parse(content)
	directiveSources := append([]crossfile.ForwardSource(nil), metadata.Sources...)

	var artifacts crossfile.ScopeArtifacts
	var issues []diag.Issue
	if tree, ok := ix.deps.Parse(content); ok {
		raw := []byte(content)
		detected := sourcecall.DetectSources(tree, raw)
		issues = crossfile.RedundantDirectiveIssues(directiveSources, detected)

		metadata.Sources = append(metadata.Sources, detected...)
		metadata.RmCalls = sourcecall.DetectRmCalls(tree, raw)
		metadata.LibraryCalls = sourcecall.DetectLibraryCalls(tree, raw)

		resolveForScope := scope.ResolveFunc(func(path string) (string, bool) { return ix.deps.Resolve(uri, path) })
		artifacts = scope.Build(tree, raw, metadata.Sources, metadata.RmCalls, metadata.LibraryCalls, resolveForScope)
	}

	ix.mu.Lock()
	assume := ix.assumeCallSite
	ix.mu.Unlock()
	backwardDirectives := graph.ResolveDefaultCallSites(metadata.SourcedBy, assume, uri, ix.deps.Resolve, ix.deps.ContentOf)

	ix.deps.FileCache.Insert(uri, snapshot, content)
	ix.deps.WorkspaceIndex.UpdateFromDisk(uri, false, snapshot, metadata, artifacts)
	ix.deps.Graph.UpdateFile(uri, metadata.Sources, backwardDirectives, ix.deps.Resolve, ix.deps.ContentOf)

	return metadata, artifacts, issues, true
}

// queueTransitiveDeps enqueues each of uri's forward sources as a priority-3
// task, as long as depth stays within maxTransitiveDepth and the target
// isn't already indexed.
func (ix *Indexer) queueTransitiveDeps(uri string, metadata crossfile.CrossFileMetadata, depth int) {
	if depth >= ix.maxTransitiveDepth {
		return
	}

	for _, source := range metadata.Sources {
		resolved, ok := ix.deps.Resolve(uri, source.Path)
		if !ok {
			continue
		}
		if ix.deps.IsIndexed(resolved) {
			continue
		}
		ix.Submit(resolved, PriorityTransitive, depth+1)
	}
}
