package graph

import "sort"

// ParentResolutionKind classifies the outcome of resolving a file's single
// effective parent for scope resolution.
type ParentResolutionKind uint8

const (
	// ParentNone means uri has no reverse edges at all.
	ParentNone ParentResolutionKind = iota
	// ParentSingle means a single effective parent was chosen.
	ParentSingle
	// ParentAmbiguous means more than one candidate parent ties under the
	// priority policy and none could be preferred.
	ParentAmbiguous
)

// ParentResolution is the result of [Graph.ResolveParent].
type ParentResolution struct {
	Kind       ParentResolutionKind
	ParentURI  string   // valid iff Kind == ParentSingle
	Candidates []string // all reverse-edge sources, sorted; valid iff Kind == ParentAmbiguous
}

// PriorityScoreFunc ranks a candidate parent URI; higher scores are
// preferred. Equal scores are ordered by lexicographically smaller URI, but a
// tie at the top score makes [Graph.ResolveParent] report ParentAmbiguous
// rather than pick one.
type PriorityScoreFunc func(candidateURI string) int

// ResolveParent selects a single effective parent for uri's scope
// resolution.
//
// Policy: if uri has exactly one reverse edge, that parent is returned
// directly. Otherwise, candidates are sorted by (priorityScore descending,
// URI ascending) and the top scorer is returned only if it strictly beats
// the runner-up; a tie at the top is reported as Ambiguous.
func (g *Graph) ResolveParent(uri string, priorityScore PriorityScoreFunc) ParentResolution {
	g.mu.RLock()
	defer g.mu.RUnlock()

	candidates := sortedKeys(g.reverse[uri])
	switch len(candidates) {
	case 0:
		return ParentResolution{Kind: ParentNone}
	case 1:
		return ParentResolution{Kind: ParentSingle, ParentURI: candidates[0]}
	}

	ranked := append([]string(nil), candidates...)
	sortByPriority(ranked, priorityScore)

	topScore := priorityScore(ranked[0])
	if priorityScore(ranked[1]) == topScore {
		return ParentResolution{Kind: ParentAmbiguous, Candidates: candidates}
	}
	return ParentResolution{Kind: ParentSingle, ParentURI: ranked[0]}
}

func sortByPriority(uris []string, priorityScore PriorityScoreFunc) {
	sort.Slice(uris, func(i, j int) bool {
		si, sj := priorityScore(uris[i]), priorityScore(uris[j])
		if si != sj {
			return si > sj
		}
		return uris[i] < uris[j]
	})
}
