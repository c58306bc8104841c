package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbearak/rlsp/crossfile"
	"github.com/jbearak/rlsp/crossfile/cache"
	"github.com/jbearak/rlsp/crossfile/sourcecall"
	"github.com/jbearak/rlsp/graph"
)

func noParse(string) (sourcecall.Tree, bool) { return nil, false }

func resolveUnderProject(_, path string) (string, bool) { return "file:///project/" + path, true }

func noContentOf(string) (string, bool) { return "", false }

func newTestIndexer(t *testing.T, reads map[string]string, indexed map[string]bool, maxQueueSize, maxDepth int) (*Indexer, *graph.Graph, *cache.WorkspaceIndex, *cache.FileCache) {
	t.Helper()
	g := graph.New()
	wsIndex := cache.NewWorkspaceIndex(10)
	fileCache := cache.NewFileCache(10, 10)

	read := func(uri string) (string, crossfile.FileSnapshot, bool) {
		content, ok := reads[uri]
		if !ok {
			return "", crossfile.FileSnapshot{}, false
		}
		return content, crossfile.FileSnapshot{Size: int64(len(content))}, true
	}
	isIndexed := func(uri string) bool { return indexed[uri] }

	deps := Deps{
		Graph:          g,
		WorkspaceIndex: wsIndex,
		FileCache:      fileCache,
		Read:           read,
		Parse:          noParse,
		IsIndexed:      isIndexed,
		Resolve:        resolveUnderProject,
		ContentOf:      noContentOf,
	}
	return New(deps, maxQueueSize, maxDepth, crossfile.CallSiteAssumeEnd), g, wsIndex, fileCache
}

func TestIndexer_SubmitOrdersByPriority(t *testing.T) {
	ix, _, _, _ := newTestIndexer(t, nil, nil, 10, 3)

	ix.Submit("file:///project/p3.R", PriorityTransitive, 1)
	ix.Submit("file:///project/p2.R", PriorityBackwardTarget, 0)
	ix.Submit("file:///project/p3b.R", PriorityTransitive, 2)

	require.Equal(t, 3, ix.QueueLen())

	first, ok := ix.popFront()
	require.True(t, ok)
	assert.Equal(t, "file:///project/p2.R", first.URI)
	assert.Equal(t, PriorityBackwardTarget, first.Priority)

	second, ok := ix.popFront()
	require.True(t, ok)
	assert.Equal(t, "file:///project/p3.R", second.URI)

	third, ok := ix.popFront()
	require.True(t, ok)
	assert.Equal(t, "file:///project/p3b.R", third.URI)
}

func TestIndexer_SubmitSkipsDuplicate(t *testing.T) {
	ix, _, _, _ := newTestIndexer(t, nil, nil, 10, 3)

	ix.Submit("file:///project/a.R", PriorityBackwardTarget, 0)
	ix.Submit("file:///project/a.R", PriorityTransitive, 1)

	assert.Equal(t, 1, ix.QueueLen())
}

func TestIndexer_SubmitDropsWhenQueueFull(t *testing.T) {
	ix, _, _, _ := newTestIndexer(t, nil, nil, 2, 3)

	ix.Submit("file:///project/a.R", PriorityBackwardTarget, 0)
	ix.Submit("file:///project/b.R", PriorityBackwardTarget, 0)
	ix.Submit("file:///project/c.R", PriorityBackwardTarget, 0)

	assert.Equal(t, 2, ix.QueueLen())
}

func TestIndexer_ProcessSkipsAlreadyIndexed(t *testing.T) {
	indexed := map[string]bool{"file:///project/a.R": true}
	ix, _, wsIndex, _ := newTestIndexer(t, map[string]string{"file:///project/a.R": "x <- 1\n"}, indexed, 10, 3)

	ix.process(context.Background(), IndexTask{URI: "file:///project/a.R", Priority: PriorityBackwardTarget})

	assert.False(t, wsIndex.Contains("file:///project/a.R"))
}

func TestIndexer_ProcessIndexesFileAndUpdatesCaches(t *testing.T) {
	content := "# @lsp-source: helper.R\nx <- 1\n"
	ix, g, wsIndex, fileCache := newTestIndexer(t, map[string]string{"file:///project/a.R": content}, nil, 10, 3)

	ix.process(context.Background(), IndexTask{URI: "file:///project/a.R", Priority: PriorityBackwardTarget})

	assert.True(t, wsIndex.Contains("file:///project/a.R"))
	_, ok := fileCache.Get("file:///project/a.R")
	assert.True(t, ok)
	assert.Equal(t, []string{"file:///project/helper.R"}, g.Dependencies("file:///project/a.R"))
}

func TestIndexer_ProcessResolvesBackwardDirectiveDefaultPerAssumeCallSite(t *testing.T) {
	// Exercises the indexer's own call path end-to-end (SetAssumeCallSite ->
	// indexFile -> graph.ResolveDefaultCallSites -> Graph.UpdateFile); the
	// resulting call-site line itself is covered more precisely by
	// graph.TestUpdateFileBackwardDirectiveDefaultAssumptionChangesAscentResult.
	reads := map[string]string{
		"file:///project/child.R": "# @lsp-sourced-by: main.R\nx <- 1\n",
		"file:///project/main.R":  "one\ntwo\nthree",
	}
	contentOf := func(uri string) (string, bool) {
		c, ok := reads[uri]
		return c, ok
	}

	for _, assume := range []crossfile.CallSiteDefault{crossfile.CallSiteAssumeEnd, crossfile.CallSiteAssumeStart} {
		ix, g, _, _ := newTestIndexer(t, reads, nil, 10, 3)
		ix.deps.ContentOf = contentOf
		ix.SetAssumeCallSite(assume)

		ix.process(context.Background(), IndexTask{URI: "file:///project/child.R", Priority: PriorityBackwardTarget})

		assert.Equal(t, []string{"file:///project/child.R"}, g.Dependencies("file:///project/main.R"))
	}
}

func TestIndexer_ProcessWithoutParserReportsNoRedundancyIssues(t *testing.T) {
	content := "# @lsp-source: helper.R\nsource(\"helper.R\")\nx <- 1\n"
	ix, _, _, _ := newTestIndexer(t, map[string]string{"file:///project/a.R": content}, nil, 10, 3)

	_, _, issues, ok := ix.indexFile("file:///project/a.R")

	require.True(t, ok)
	assert.Empty(t, issues, "without a parse tree there is nothing detected to compare the directive against")
}

func TestIndexer_ProcessQueuesTransitiveDependency(t *testing.T) {
	content := "# @lsp-source: helper.R\nx <- 1\n"
	ix, _, _, _ := newTestIndexer(t, map[string]string{"file:///project/a.R": content}, nil, 10, 3)

	ix.process(context.Background(), IndexTask{URI: "file:///project/a.R", Priority: PriorityBackwardTarget, Depth: 0})

	require.Equal(t, 1, ix.QueueLen())
	task, ok := ix.popFront()
	require.True(t, ok)
	assert.Equal(t, "file:///project/helper.R", task.URI)
	assert.Equal(t, PriorityTransitive, task.Priority)
	assert.Equal(t, 1, task.Depth)
}

func TestIndexer_QueueTransitiveDepsRespectsMaxDepth(t *testing.T) {
	ix, _, _, _ := newTestIndexer(t, nil, nil, 10, 2)

	meta := crossfile.CrossFileMetadata{Sources: []crossfile.ForwardSource{{Path: "helper.R"}}}
	ix.queueTransitiveDeps("file:///project/a.R", meta, 2)

	assert.Equal(t, 0, ix.QueueLen())
}

func TestIndexer_QueueTransitiveDepsSkipsAlreadyIndexed(t *testing.T) {
	indexed := map[string]bool{"file:///project/helper.R": true}
	ix, _, _, _ := newTestIndexer(t, nil, indexed, 10, 3)

	meta := crossfile.CrossFileMetadata{Sources: []crossfile.ForwardSource{{Path: "helper.R"}}}
	ix.queueTransitiveDeps("file:///project/a.R", meta, 0)

	assert.Equal(t, 0, ix.QueueLen())
}
