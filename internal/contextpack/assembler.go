package contextpack

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
	"github.com/johnbean393/hivecrew-retrieval/internal/logging"
	"github.com/johnbean393/hivecrew-retrieval/internal/search"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// Assembler is the ContextPackAssembler: turns a selected subset of a
// cached suggestion list into a redacted, mode-tagged ContextPack and
// persists it under stateDir/contextpacks.
type Assembler struct {
	stateDir string
	lookup   SuggestionLookup
	audit    AuditRecorder
	logger   *slog.Logger
}

// NewAssembler builds an Assembler. A nil logger falls back to
// slog.Default(); a nil audit recorder disables audit persistence (used
// by tests that don't wire a store).
func NewAssembler(stateDir string, lookup SuggestionLookup, audit AuditRecorder, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{stateDir: stateDir, lookup: lookup, audit: audit, logger: logger}
}

// CreateContextPack implements the createContextPack RPC.
// It consumes the suggestions most recently cached for req.Query, resolves
// each selected ID against that cache, picks an injection mode per source
// type (overridable per ID), redacts the snippet, partitions items into
// attachment paths vs. inline prompt blocks, and persists the result.
func (a *Assembler) CreateContextPack(ctx context.Context, req Request) (ContextPack, error) {
	cached, ok := a.lookup.LastSuggestions(req.Query)
	if !ok {
		return ContextPack{}, daemonerr.Invalid("no cached suggestions for query")
	}

	byID := make(map[string]search.Suggestion, len(cached))
	for _, s := range cached {
		byID[s.ID] = s
	}

	pack := ContextPack{
		ID:        "pack_" + uuid.NewString(),
		Query:     req.Query,
		CreatedAt: time.Now().UTC(),
	}

	for _, id := range req.SelectedSuggestionIDs {
		sug, ok := byID[id]
		if !ok {
			return ContextPack{}, daemonerr.NoSuchSuggestion(id)
		}

		mode := defaultModeFor(sug.SourceType)
		if override, ok := req.ModeOverrides[id]; ok {
			mode = override
		}

		text := Redact(sug.Snippet)
		item := ContextPackItem{
			SourceType: sug.SourceType,
			Mode:       mode,
			Title:      sug.Title,
			Text:       text,
		}

		switch mode {
		case ModeFileRef:
			item.FilePath = sug.Path
			pack.AttachmentPaths = append(pack.AttachmentPaths, sug.Path)
		default:
			pack.InlinePromptBlocks = append(pack.InlinePromptBlocks, text)
		}

		pack.Items = append(pack.Items, item)
	}

	if err := a.persist(pack); err != nil {
		return ContextPack{}, err
	}

	a.recordAudit(ctx, pack)

	a.logger.Info("context pack created",
		"packId", pack.ID, "query", pack.Query, "itemCount", len(pack.Items))
	return pack, nil
}

// recordAudit appends a context_pack_created audit event. Failure to write
// the audit trail never fails pack creation, since the pack itself is
// already persisted and usable; the write is logged at warn level instead.
func (a *Assembler) recordAudit(ctx context.Context, pack ContextPack) {
	if a.audit == nil {
		return
	}

	paths := pack.AttachmentPaths
	if paths == nil {
		paths = []string{}
	}
	payload, err := json.Marshal(struct {
		Query           string   `json:"query"`
		ItemCount       int      `json:"itemCount"`
		AttachmentPaths []string `json:"attachmentPaths"`
	}{Query: pack.Query, ItemCount: len(pack.Items), AttachmentPaths: paths})
	if err != nil {
		a.logger.Warn("failed to marshal audit payload", "packId", pack.ID, "error", err)
		return
	}

	if err := a.audit.AppendAudit(ctx, pack.ID, "context_pack_created", string(payload), float64(pack.CreatedAt.Unix())); err != nil {
		a.logger.Warn("failed to append audit event", "packId", pack.ID, "error", err)
	}
}

// persist writes pack as pretty JSON to stateDir/contextpacks/{id}.json.
func (a *Assembler) persist(pack ContextPack) error {
	if err := logging.EnsureContextPacksDir(a.stateDir); err != nil {
		return daemonerr.Invalid("failed to create contextpacks directory: " + err.Error())
	}

	b, err := json.MarshalIndent(pack, "", "  ")
	if err != nil {
		return daemonerr.Invalid("failed to marshal context pack: " + err.Error())
	}

	path := logging.ContextPackPath(a.stateDir, pack.ID)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return daemonerr.Invalid("failed to persist context pack: " + err.Error())
	}
	return nil
}

func defaultModeFor(sourceType store.SourceType) InjectionMode {
	if sourceType == store.SourceFile {
		return ModeFileRef
	}
	return ModeStructuredSummary
}
