package revalidation

import (
	"sort"

	"github.com/jbearak/rlsp/graph"
)

// IsOpenFunc reports whether uri is currently open in the editor.
type IsOpenFunc func(uri string) bool

// AffectedFiles computes the set of open documents that a change to u
// requires revalidating (§4.9 step 2): u itself, plus u's transitive
// dependents up to maxChainDepth, intersected with open documents, ordered
// by activity priority (lower score first) and truncated to maxCount.
//
// u is placed ahead of its dependents before the stable sort, so it stays
// first only among files with an equal priority score; a dependent with a
// lower score is ordered ahead of u, and truncation can drop u itself.
func AffectedFiles(
	g *graph.Graph,
	u string,
	maxChainDepth int,
	isOpen IsOpenFunc,
	priorityScore graph.PriorityScoreFunc,
	maxCount int,
) []string {
	candidates := []string{u}
	candidates = append(candidates, g.TransitiveDependents(u, maxChainDepth)...)

	open := make([]string, 0, len(candidates))
	for _, uri := range candidates {
		if isOpen(uri) {
			open = append(open, uri)
		}
	}

	sort.SliceStable(open, func(i, j int) bool {
		return priorityScore(open[i]) < priorityScore(open[j])
	})

	if maxCount >= 0 && len(open) > maxCount {
		open = open[:maxCount]
	}
	return open
}
