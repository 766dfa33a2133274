package search

import (
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// directoryCueSegments are path components that usually mark a
// documentation-style directory worth surfacing as its own cluster.
var directoryCueSegments = map[string]struct{}{
	"docs":      {},
	"templates": {},
	"examples":  {},
	"samples":   {},
	"resources": {},
}

const (
	directoryMinClusterSize  = 2
	directoryCueBonus        = 0.25
	directoryClusterSizeCap  = 0.30
	directoryIntentWeight    = 0.45
	directoryClusterSizeUnit = 0.08 // per extra member above the minimum, log-scaled
)

// directoryCluster accumulates file suggestions sharing a clustering key.
type directoryCluster struct {
	key       string
	hasCue    bool
	members   []Suggestion
	updatedAt Suggestion
}

// clusterDirectories groups file-sourced suggestions by parent directory
// (or the nearest ancestor cue segment, if present) and emits one
// "dir:{path}" pseudo-suggestion per cluster that meets the minimum size,
// scored by query-intent overlap with the directory name, a cue bonus,
// and cluster size.
func clusterDirectories(suggestions []Suggestion, originalQuery string) []Suggestion {
	clusters := map[string]*directoryCluster{}
	order := []string{}

	for _, s := range suggestions {
		if s.SourceType != store.SourceFile || s.Path == "" {
			continue
		}
		key, hasCue := clusterKeyForPath(s.Path)
		if key == "" {
			continue
		}
		c, ok := clusters[key]
		if !ok {
			c = &directoryCluster{key: key, hasCue: hasCue}
			clusters[key] = c
			order = append(order, key)
		}
		c.members = append(c.members, s)
		if s.UpdatedAt.After(c.updatedAt.UpdatedAt) {
			c.updatedAt = s
		}
	}

	queryTokens := uniqueTokenSet(originalQuery)
	var pseudo []Suggestion
	for _, key := range order {
		c := clusters[key]
		if len(c.members) < directoryMinClusterSize {
			continue
		}

		intentOverlap := tokenOverlapRatio(queryTokens, directoryIntentText(key))
		score := intentOverlap * directoryIntentWeight
		if c.hasCue {
			score += directoryCueBonus
		}
		sizeBonus := math.Log2(float64(len(c.members)-directoryMinClusterSize+2)) * directoryClusterSizeUnit
		if sizeBonus > directoryClusterSizeCap {
			sizeBonus = directoryClusterSizeCap
		}
		score += sizeBonus

		sug := Suggestion{
			ID:         "dir:" + key,
			DocumentID: "dir:" + key,
			SourceType: store.SourceFile,
			Title:      key,
			Path:       key,
			Snippet:    fmt.Sprintf("%d matching files in %s", len(c.members), key),
			Score:      score,
			UpdatedAt:  c.updatedAt.UpdatedAt,
		}
		sug.addReason(ReasonDirectory)
		sug.addReason(ReasonDirectoryCluster)
		pseudo = append(pseudo, sug)
	}
	return pseudo
}

// clusterKeyForPath returns the directory a suggestion should cluster
// under: the path up through the first cue segment encountered, if any,
// else the immediate parent directory.
func clusterKeyForPath(filePath string) (key string, hasCue bool) {
	clean := path.Clean(filePath)
	segments := strings.Split(clean, "/")
	if len(segments) <= 1 {
		return "", false
	}

	acc := ""
	for _, seg := range segments[:len(segments)-1] {
		if seg == "" {
			continue
		}
		if acc == "" {
			acc = seg
		} else {
			acc = acc + "/" + seg
		}
		if _, cue := directoryCueSegments[strings.ToLower(seg)]; cue {
			return acc, true
		}
	}
	return path.Dir(clean), false
}

// directoryIntentText turns a cluster key's path segments into
// space-separated words for token-overlap scoring against the query.
func directoryIntentText(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, "/", " "), "_", " ")
}
