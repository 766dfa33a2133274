package connector

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/johnbean393/hivecrew-retrieval/internal/policy"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// Backfill enumerates allowlist roots and returns at most limit
// IngestionEvents plus the resume token for the next invocation. Full
// mode pages descending by (modifiedAt, path) older than the resume
// cursor; incremental mode emits only entries newer than it.
// Enumeration visits roots in order, skips hidden entries, and prunes
// directories the policy excludes with filepath.SkipDir, without
// descending into them.
func Backfill(ctx context.Context, pol *policy.IndexingPolicy, roots []string, mode BackfillMode, resumeToken string, limit int) ([]IngestionEvent, string, error) {
	cursorTime, cursorPath, hasCursor, err := decodeResumeToken(resumeToken)
	if err != nil {
		return nil, "", err
	}

	var candidates []candidate
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil // enumeration errors swallowed per-entry
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if isHidden(path, root) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && pol.Evaluate(path, 0, time.Time{}).Reason == "excluded_path" {
					return filepath.SkipDir
				}
				return nil
			}

			info, statErr := d.Info()
			if statErr != nil {
				return nil
			}

			decision := pol.Evaluate(path, info.Size(), info.ModTime())
			if decision.Kind == policy.DecisionSkip {
				return nil
			}

			if hasCursor {
				if mode == BackfillFull && !isOlder(info.ModTime(), path, cursorTime, cursorPath) {
					return nil
				}
				if mode == BackfillIncremental && !isNewer(info.ModTime(), path, cursorTime, cursorPath) {
					return nil
				}
			}

			candidates = retainCandidate(candidates, candidate{path: path, size: info.Size(), modifiedAt: info.ModTime()}, mode, limit)
			return nil
		})
	}

	sortCandidates(candidates, mode)

	events := make([]IngestionEvent, 0, len(candidates))
	for _, c := range candidates {
		events = append(events, IngestionEvent{
			SourceType:         store.SourceFile,
			SourceID:           c.path,
			SourcePathOrHandle: c.path,
			OccurredAt:         c.modifiedAt,
			Operation:          OpUpsert,
		})
	}

	var nextToken string
	if len(candidates) > 0 {
		last := candidates[len(candidates)-1]
		nextToken = encodeResumeToken(last.modifiedAt, last.path)
	}
	return events, nextToken, nil
}

func isHidden(path, root string) bool {
	if path == root {
		return false
	}
	return strings.HasPrefix(filepath.Base(path), ".")
}

// isOlder reports whether (modTime, path) sorts strictly before
// (cursorTime, cursorPath) in the full-mode descending order.
func isOlder(modTime time.Time, path string, cursorTime time.Time, cursorPath string) bool {
	if modTime.Before(cursorTime) {
		return true
	}
	if modTime.Equal(cursorTime) {
		return path < cursorPath
	}
	return false
}

func isNewer(modTime time.Time, path string, cursorTime time.Time, cursorPath string) bool {
	if modTime.After(cursorTime) {
		return true
	}
	if modTime.Equal(cursorTime) {
		return path > cursorPath
	}
	return false
}

// retainCandidate keeps at most limit candidates, replacing the single
// weakest retained slot (per mode's ordering) when a stronger candidate
// is found: a single-pass weakest-candidate replacement.
func retainCandidate(candidates []candidate, c candidate, mode BackfillMode, limit int) []candidate {
	if limit <= 0 || len(candidates) < limit {
		return append(candidates, c)
	}
	weakestIdx := 0
	for i := 1; i < len(candidates); i++ {
		if isWeaker(candidates[i], candidates[weakestIdx], mode) {
			weakestIdx = i
		}
	}
	if isWeaker(candidates[weakestIdx], c, mode) {
		candidates[weakestIdx] = c
	}
	return candidates
}

// isWeaker reports whether a ranks below b under mode's ordering (full:
// newest-and-lexicographically-greatest wins; incremental: same — both
// retain the strongest limit candidates by modifiedAt desc, path desc).
func isWeaker(a, b candidate, _ BackfillMode) bool {
	if a.modifiedAt.Equal(b.modifiedAt) {
		return a.path < b.path
	}
	return a.modifiedAt.Before(b.modifiedAt)
}

func sortCandidates(candidates []candidate, mode BackfillMode) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if mode == BackfillFull {
			if !a.modifiedAt.Equal(b.modifiedAt) {
				return a.modifiedAt.After(b.modifiedAt)
			}
			return a.path > b.path
		}
		if !a.modifiedAt.Equal(b.modifiedAt) {
			return a.modifiedAt.Before(b.modifiedAt)
		}
		return a.path < b.path
	})
}
