// Package policy implements the per-candidate indexing decision: index,
// defer, or skip, plus hot/warm/cold partition assignment.
package policy

import (
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/johnbean393/hivecrew-retrieval/internal/config"
)

// Partition is the recency tier assigned to an indexable document.
type Partition string

const (
	PartitionHot  Partition = "hot"
	PartitionWarm Partition = "warm"
	PartitionCold Partition = "cold"
)

// DecisionKind is the closed set of outcomes Evaluate can return.
type DecisionKind string

const (
	DecisionIndex    DecisionKind = "index"
	DecisionDeferred DecisionKind = "deferred"
	DecisionSkip     DecisionKind = "skip"
)

// Decision is the result of evaluating one candidate path.
type Decision struct {
	Kind      DecisionKind
	Partition Partition // only meaningful when Kind == DecisionIndex
	Reason    string    // only meaningful when Kind != DecisionIndex
}

func indexDecision(p Partition) Decision   { return Decision{Kind: DecisionIndex, Partition: p} }
func deferredDecision(reason string) Decision { return Decision{Kind: DecisionDeferred, Reason: reason} }
func skipDecision(reason string) Decision     { return Decision{Kind: DecisionSkip, Reason: reason} }

// IndexingPolicy evaluates candidate files against the configured
// allowlist, exclude rules, size caps, and recency cutoff.
type IndexingPolicy struct {
	cfg            config.PolicyConfig
	allowlistRoots []string
	allowedExt     map[string]struct{}
	nonSearchable  map[string]struct{}
}

// New builds an IndexingPolicy from a loaded preset, optionally
// overriding the allowlist roots with the daemon's configured ones.
func New(cfg config.PolicyConfig, allowlistRoots []string) *IndexingPolicy {
	roots := allowlistRoots
	if len(roots) == 0 {
		roots = cfg.AllowlistRoots
	}
	cleanRoots := make([]string, 0, len(roots))
	for _, r := range roots {
		cleanRoots = append(cleanRoots, filepath.Clean(r))
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, e := range cfg.AllowedExtensions {
		allowed[strings.ToLower(e)] = struct{}{}
	}
	nonSearchable := make(map[string]struct{}, len(cfg.NonSearchableExtensions))
	for _, e := range cfg.NonSearchableExtensions {
		nonSearchable[strings.ToLower(e)] = struct{}{}
	}

	return &IndexingPolicy{
		cfg:            cfg,
		allowlistRoots: cleanRoots,
		allowedExt:     allowed,
		nonSearchable:  nonSearchable,
	}
}

// Config returns the tunable surface backing this policy, used by
// ExtractionService for the per-file budgets that live
// alongside the allowlist/exclude rules rather than duplicating them.
func (p *IndexingPolicy) Config() config.PolicyConfig {
	return p.cfg
}

// IsNonSearchableExtension reports whether ext (including the leading
// dot) is configured as non-searchable.
func (p *IndexingPolicy) IsNonSearchableExtension(ext string) bool {
	_, ok := p.nonSearchable[strings.ToLower(ext)]
	return ok
}

// NonSearchableExtensions returns the configured non-searchable set, used
// by refreshFileSearchability at startup.
func (p *IndexingPolicy) NonSearchableExtensions() []string {
	return p.cfg.NonSearchableExtensions
}

// InScope reports whether path could ever be indexed, checking only the
// allowlist, exclude rules, and extension — everything Evaluate can
// decide without a stat() call. Connectors use this to filter watcher
// notifications before a path counts toward their pending-set capacity,
// so directories or files outside scope can never trigger a spurious
// overflow rescan. It deliberately does not check size, mime sniffing,
// generated/minified markers, or recency: those need Evaluate's fuller
// stat-backed pass and only matter once a path has already cleared this
// cheaper gate.
func (p *IndexingPolicy) InScope(path string) bool {
	canonical := canonicalizePath(path)
	if !p.underAllowlistRoot(canonical) {
		return false
	}
	if p.shouldSkipPath(canonical) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(canonical))
	if ext == "" {
		return false
	}
	_, ok := p.allowedExt[ext]
	return ok
}

// Evaluate implements the ordered indexing decision chain: allowlist and
// exclude rules, extension/mime gating, size caps, generated/minified
// filtering, then hot/warm partition assignment by recency.
func (p *IndexingPolicy) Evaluate(path string, size int64, modifiedAt time.Time) Decision {
	canonical := canonicalizePath(path)

	if !p.underAllowlistRoot(canonical) {
		return skipDecision("outside_allowlist")
	}

	if p.shouldSkipPath(canonical) {
		return skipDecision("excluded_path")
	}

	ext := strings.ToLower(filepath.Ext(canonical))
	if ext == "" {
		return skipDecision("unsupported_file_type")
	}
	if _, ok := p.allowedExt[ext]; !ok {
		return skipDecision("unsupported_file_type")
	}

	if p.cfg.SkipUnknownMime && mime.TypeByExtension(ext) == "" {
		return skipDecision("unknown_content_type")
	}

	if size > p.cfg.HardFileSizeCapBytes {
		return skipDecision("hard_size_cap")
	}
	if size > p.cfg.FirstPassFileSizeCapBytes {
		return deferredDecision("deferred_large_file")
	}

	if isGeneratedOrMinified(canonical) {
		return skipDecision("generated_or_minified")
	}

	cutoff := time.Duration(p.cfg.Stage1RecentCutoffDays) * 24 * time.Hour
	if time.Since(modifiedAt) <= cutoff {
		return indexDecision(PartitionHot)
	}
	return indexDecision(PartitionWarm)
}

// PartitionForAge derives a document's partition from the age of its
// updatedAt timestamp. This is
// recomputed by the Service on every upsert, independent of Evaluate's
// hot/warm-only result (cold is never returned directly by policy
// evaluation — only the Service assigns it, from the persisted age).
func PartitionForAge(updatedAt time.Time) Partition {
	age := time.Since(updatedAt)
	switch {
	case age < 30*24*time.Hour:
		return PartitionHot
	case age < 180*24*time.Hour:
		return PartitionWarm
	default:
		return PartitionCold
	}
}

func canonicalizePath(path string) string {
	cleaned := filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(cleaned); err == nil {
		return resolved
	}
	return cleaned
}

func (p *IndexingPolicy) underAllowlistRoot(path string) bool {
	for _, root := range p.allowlistRoots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// shouldSkipPath reports whether any path component matches an exclude
// token exactly, a `prefix*suffix` glob, or a simple suffix pattern.
func (p *IndexingPolicy) shouldSkipPath(path string) bool {
	components := strings.Split(filepath.ToSlash(path), "/")
	for _, token := range p.cfg.ExcludeTokens {
		if strings.Contains(token, "/") {
			if strings.Contains(filepath.ToSlash(path), token) {
				return true
			}
			continue
		}
		for _, comp := range components {
			if comp == "" {
				continue
			}
			if matchesToken(comp, token) {
				return true
			}
		}
	}
	return false
}

func matchesToken(component, token string) bool {
	if component == token {
		return true
	}
	if strings.HasPrefix(token, "*") && strings.HasSuffix(token, "*") && len(token) > 1 {
		inner := token[1 : len(token)-1]
		return inner != "" && strings.Contains(component, inner)
	}
	if idx := strings.IndexByte(token, '*'); idx >= 0 {
		prefix, suffix := token[:idx], token[idx+1:]
		return strings.HasPrefix(component, prefix) && strings.HasSuffix(component, suffix)
	}
	return strings.HasSuffix(component, token)
}

func isGeneratedOrMinified(path string) bool {
	lower := strings.ToLower(path)
	for _, marker := range []string{".min.", "generated", "bundle.js"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
