package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/johnbean393/hivecrew-retrieval/internal/search"
)

// suggestCache is the Service's query-result cache.
// It serves two purposes: a short TTL cache keyed by the full request
// shape to skip redundant retrieval on rapid re-queries (e.g. the same
// keystroke firing suggest twice), and an exact-query-string lookup
// (lastByQuery) that createContextPack consumes to resolve a selected
// suggestion ID without re-running retrieval.
type suggestCache struct {
	mu          sync.Mutex
	entries     map[string]cacheEntry
	lastByQuery map[string][]search.Suggestion
	byID        map[string]search.Suggestion
}

type cacheEntry struct {
	response  search.Response
	expiresAt time.Time
}

func newSuggestCache() *suggestCache {
	return &suggestCache{
		entries:     make(map[string]cacheEntry),
		lastByQuery: make(map[string][]search.Suggestion),
		byID:        make(map[string]search.Suggestion),
	}
}

// get returns a still-live cached response for key, if any.
func (c *suggestCache) get(key string) (search.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return search.Response{}, false
	}
	return e.response, true
}

// put stores resp under key (TTL search.SuggestionCacheTTL) and records
// it as the most recent suggestion list for the exact query string.
func (c *suggestCache) put(key, query string, resp search.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{response: resp, expiresAt: time.Now().Add(search.SuggestionCacheTTL)}

	cp := make([]search.Suggestion, len(resp.Suggestions))
	copy(cp, resp.Suggestions)
	c.lastByQuery[query] = cp
	for _, sg := range resp.Suggestions {
		c.byID[sg.ID] = sg
	}
}

// LastSuggestions implements contextpack.SuggestionLookup.
func (c *suggestCache) LastSuggestions(query string) ([]search.Suggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.lastByQuery[query]
	return s, ok
}

// byIDLookup returns the suggestion most recently seen under id, across
// any query, for the preview() RPC.
func (c *suggestCache) byIDLookup(id string) (search.Suggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byID[id]
	return s, ok
}

// cacheKey builds the "{queryLower}|{typingMode}|{limit}|{filtersSig}" key.
func cacheKey(req search.Request) string {
	filters := make([]string, len(req.SourceFilters))
	for i, f := range req.SourceFilters {
		filters[i] = string(f)
	}
	sort.Strings(filters)
	return fmt.Sprintf("%s|%t|%d|%s",
		strings.ToLower(req.Query), req.TypingMode, req.Limit, strings.Join(filters, ","))
}
