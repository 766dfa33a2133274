package search

import (
	"context"

	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// GraphStore is the subset of Store the augmentor needs, narrowed so
// GraphAugmentor can be tested against a fake.
type GraphStore interface {
	GraphNeighbors(ctx context.Context, seedDocumentIds []string, maxEdges int) ([]store.GraphEdge, error)
}

// GraphAugmentor turns a seed set of document IDs into a per-document
// boost score, summing confidence*weight across edges touching any seed
// document. It is time-budgeted rather than exhaustive: a seed
// set from a large deep-mode retrieval can have thousands of neighbors,
// and the boost is a refinement, not the primary signal, so it is fine to
// stop early and score whatever edges were fetched in time.
type GraphAugmentor struct {
	store GraphStore
}

// NewGraphAugmentor builds a GraphAugmentor over store.
func NewGraphAugmentor(s GraphStore) *GraphAugmentor {
	return &GraphAugmentor{store: s}
}

// Score sums confidence*weight per neighbor document across edges
// touching any of seeds, capped at t.graphMaxEdges edges and bounded by
// t.graphTimeBudget wall-clock. A deadline exceeded mid-fetch degrades to
// "no boost" for that call rather than failing the whole suggestion
// request (graph boosting is additive, never load-bearing).
func (g *GraphAugmentor) Score(ctx context.Context, seeds []string, t tuning) map[string]float64 {
	if len(seeds) == 0 {
		return nil
	}

	budgeted, cancel := context.WithTimeout(ctx, t.graphTimeBudget)
	defer cancel()

	edges, err := g.store.GraphNeighbors(budgeted, seeds, t.graphMaxEdges)
	if err != nil {
		return nil
	}

	seedSet := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		seedSet[s] = struct{}{}
	}

	scores := make(map[string]float64)
	for _, e := range edges {
		contribution := e.Confidence * e.Weight
		if _, isSeed := seedSet[e.SourceNode]; !isSeed {
			scores[e.SourceNode] += contribution
		}
		if _, isSeed := seedSet[e.TargetNode]; !isSeed {
			scores[e.TargetNode] += contribution
		}
	}
	return scores
}
