package store

import (
	"regexp"
	"strings"
	"unicode"
)

// minTokenTermLength is the shortest token TokenizeCode keeps; single
// characters are too common in source identifiers to carry FTS signal.
const minTokenTermLength = 2

// identifierRegex matches the initial alphanumeric+underscore runs
// TokenizeCode then splits further on camelCase/snake_case boundaries.
var identifierRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// TokenizeCode is the shared tokenizer behind the lexical index's FTS5
// match-expression builder (lexical.go), the reranker's keyword overlap
// scoring, and the context-pack compactor's keyword extraction: split
// identifier-shaped text into lowercase sub-tokens so "getUserByID" and
// "get_user_by_id" both hit "get"/"user"/"by"/"id".
func TokenizeCode(text string) []string {
	var tokens []string

	for _, word := range identifierRegex.FindAllString(text, -1) {
		for _, t := range SplitCodeToken(word) {
			lower := strings.ToLower(t)
			if len(lower) >= minTokenTermLength {
				tokens = append(tokens, lower)
			}
		}
	}

	return tokens
}

// SplitCodeToken splits one identifier-shaped word on snake_case
// boundaries, then camelCase boundaries within each part.
func SplitCodeToken(token string) []string {
	if !strings.Contains(token, "_") {
		return SplitCamelCase(token)
	}

	var result []string
	for _, part := range strings.Split(token, "_") {
		if part != "" {
			result = append(result, SplitCamelCase(part)...)
		}
	}
	return result
}

// SplitCamelCase splits camelCase and PascalCase identifiers, keeping
// runs of consecutive uppercase letters together so acronyms survive
// intact (this is what lets lexical.go's isAnchorToken treat a bare
// interior CamelCase word as high-signal).
//
//	"getUserById"      -> ["get", "User", "By", "Id"]
//	"HTTPHandler"       -> ["HTTP", "Handler"]
//	"parseHTTPRequest"  -> ["parse", "HTTP", "Request"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// A boundary exists on either side of an acronym run: break
			// before it if the previous rune was lowercase, or after its
			// first letter if what follows drops back to lowercase.
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// FilterStopWords drops any token present in stopWords (case-insensitive).
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[strings.ToLower(token)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap lowercases stopWords into a set for FilterStopWords.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
