package search

import (
	"strings"
	"unicode"

	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// compactionStopWords mirrors the small English stopword set the lexical
// store filters out of FTS match expressions, so a compacted query and
// its eventual FTS5 MATCH clause agree on what counts as "content".
var compactionStopWords = store.BuildStopWordMap([]string{
	"a", "an", "the", "and", "or", "but", "of", "to", "in", "on", "for",
	"with", "is", "are", "was", "were", "be", "been", "being", "this",
	"that", "these", "those", "it", "its", "as", "at", "by", "from",
})

const (
	compactionLengthThreshold = 180
	compactionMaxKeywords     = 14
	compactionKeywordMinLen   = 3
	compactionMinKeywordsLen  = 24
	compactionPrefixLen       = 260
)

// CompactedQuery carries both the string used to drive retrieval and the
// original text, which the reranker phase scores overlap against
// unabridged.
type CompactedQuery struct {
	Compacted string
	Original  string
}

// CompactQuery normalizes whitespace and punctuation, then — for queries
// at or beyond the length threshold — reduces the query to a short
// keyword summary so the lexical/vector retrieval passes aren't driven by
// an entire pasted document.
func CompactQuery(query string) CompactedQuery {
	cleaned := cleanQueryText(query)
	if len(cleaned) < compactionLengthThreshold {
		return CompactedQuery{Compacted: cleaned, Original: query}
	}

	keywords := extractKeywords(cleaned, compactionMaxKeywords)
	keywordString := strings.Join(keywords, " ")
	if len(keywordString) >= compactionMinKeywordsLen {
		return CompactedQuery{Compacted: keywordString, Original: query}
	}

	prefix := cleaned
	if len(prefix) > compactionPrefixLen {
		prefix = prefix[:compactionPrefixLen]
	}
	return CompactedQuery{Compacted: prefix, Original: query}
}

// cleanQueryText collapses whitespace runs to a single space and strips
// punctuation other than '_' and '-'.
func cleanQueryText(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	lastWasSpace := false
	for _, r := range query {
		switch {
		case unicode.IsSpace(r):
			if !lastWasSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastWasSpace = true
			}
		case r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastWasSpace = false
		default:
			// punctuation: drop, but treat as a word boundary
			if !lastWasSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastWasSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// extractKeywords returns up to max unique non-stopword tokens of at
// least compactionKeywordMinLen characters, in first-seen order.
func extractKeywords(cleaned string, max int) []string {
	tokens := store.TokenizeCode(cleaned)
	tokens = store.FilterStopWords(tokens, compactionStopWords)

	seen := make(map[string]struct{}, max)
	var keywords []string
	for _, t := range tokens {
		if len(t) < compactionKeywordMinLen {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		keywords = append(keywords, t)
		if len(keywords) >= max {
			break
		}
	}
	return keywords
}
