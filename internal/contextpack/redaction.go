package contextpack

import (
	"regexp"
	"strings"

	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// secretPatterns is compiled once at package init and reused across every
// redaction call. Patterns run in order; a substring already replaced by
// an earlier pattern is left alone by later ones.
var secretPatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`), "[REDACTED]"},
	{regexp.MustCompile(`(?i)\bsk-[a-z0-9]{20,}\b`), "[REDACTED]"},
	{regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), "[REDACTED]"},
	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`), "[REDACTED]"},
	{regexp.MustCompile(`(?i)\bbearer\s+\S+`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|refresh[_-]?token|secret|password|passwd|pwd|token)\s*[:=]\s*\S+`), "${1}=[REDACTED]"},
}

// sensitiveKeywords feed InferRisk's keyword scan; they are content the
// corpus might contain but that a downstream assistant shouldn't see
// without a risk label attached.
var sensitiveKeywords = []string{
	"social security", "ssn", "passport number", "credit card",
	"bank account", "routing number", "date of birth", "confidential",
}

// Redact replaces credential-shaped substrings (API keys, bearer tokens,
// private key blocks, JWTs, and `key=value`-style secret assignments)
// with "[REDACTED]", leaving the surrounding text untouched.
func Redact(text string) string {
	out := text
	for _, p := range secretPatterns {
		out = p.re.ReplaceAllString(out, p.replacement)
	}
	return out
}

// InferRisk derives a RiskLabel from body keyword heuristics: any
// credential-shaped substring (per secretPatterns) is high risk outright;
// two or more sensitive keyword hits is high, one is medium, none is low.
func InferRisk(body string) store.RiskLabel {
	for _, p := range secretPatterns {
		if p.re.MatchString(body) {
			return store.RiskHigh
		}
	}

	lower := strings.ToLower(body)
	hits := 0
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	switch {
	case hits >= 2:
		return store.RiskHigh
	case hits == 1:
		return store.RiskMedium
	default:
		return store.RiskLow
	}
}
