// Package contextpack assembles selected suggestions into a redacted,
// mode-tagged bundle persisted for a downstream consumer.
package contextpack

import (
	"context"
	"time"

	"github.com/johnbean393/hivecrew-retrieval/internal/search"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// InjectionMode is the closed set of ways a pack item can be handed to a
// downstream consumer.
type InjectionMode string

const (
	ModeFileRef           InjectionMode = "fileRef"
	ModeStructuredSummary InjectionMode = "structuredSummary"
)

// ContextPackItem is one selected suggestion, redacted and mode-tagged.
type ContextPackItem struct {
	SourceType store.SourceType  `json:"sourceType"`
	Mode       InjectionMode     `json:"mode"`
	Title      string            `json:"title"`
	Text       string            `json:"text"`
	FilePath   string            `json:"filePath,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ContextPack is the assembled response artifact.
type ContextPack struct {
	ID                 string            `json:"id"`
	Query              string            `json:"query"`
	Items              []ContextPackItem `json:"items"`
	AttachmentPaths    []string          `json:"attachmentPaths"`
	InlinePromptBlocks []string          `json:"inlinePromptBlocks"`
	CreatedAt          time.Time         `json:"createdAt"`
}

// Request is createContextPack's input.
type Request struct {
	Query                 string
	SelectedSuggestionIDs []string
	ModeOverrides         map[string]InjectionMode
}

// SuggestionLookup resolves the most recent suggestions cached for an
// exact query string. Narrowed to this one method so Assembler doesn't
// need to depend on the service's full cache type.
type SuggestionLookup interface {
	LastSuggestions(query string) ([]search.Suggestion, bool)
}

// AuditRecorder appends an audit trail entry.
// Narrowed to *store.Store's AppendAudit method so Assembler doesn't need
// to depend on the rest of the store's surface.
type AuditRecorder interface {
	AppendAudit(ctx context.Context, id, kind, payload string, createdAt float64) error
}
