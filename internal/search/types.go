// Package search implements hybrid retrieval: an FTS5/BM25 lexical pass
// fused with an embedding-similarity vector pass, boosted by a
// co-occurrence graph and reranked by query/field overlap and freshness.
package search

import (
	"time"

	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// Suggestion is a single ranked result returned from Suggest.
type Suggestion struct {
	ID         string
	DocumentID string
	SourceType store.SourceType
	Title      string
	Path       string
	Snippet    string
	Score      float64
	Reasons    []string
	UpdatedAt  time.Time
}

// addReason appends reason if not already present.
func (s *Suggestion) addReason(reason string) {
	for _, r := range s.Reasons {
		if r == reason {
			return
		}
	}
	s.Reasons = append(s.Reasons, reason)
}

// Request configures a single Suggest call.
type Request struct {
	Query                        string
	SourceFilters                []store.SourceType
	Limit                        int
	TypingMode                   bool
	IncludeColdPartitionFallback bool
}

// Response is the result of a Suggest call.
type Response struct {
	Suggestions         []Suggestion
	Partial             bool
	TotalCandidateCount int
	LatencyMs           float64
}

// Reasons a suggestion can carry, accumulated as retrieval stages touch it.
const (
	ReasonLexical          = "lexical"
	ReasonRecency          = "recency"
	ReasonVector           = "vector"
	ReasonGraph            = "graph"
	ReasonDirectory        = "directory"
	ReasonDirectoryCluster = "directory-cluster"
)
