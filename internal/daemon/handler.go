package daemon

import (
	"context"
	"fmt"

	"github.com/johnbean393/hivecrew-retrieval/internal/contextpack"
	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
	"github.com/johnbean393/hivecrew-retrieval/internal/search"
	"github.com/johnbean393/hivecrew-retrieval/internal/service"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// ServiceHandler adapts a *service.Service to RequestHandler, converting
// the wire-shaped Params structs into the concrete types service methods
// expect and back, so Server itself stays free of any internal/service
// or internal/search import.
type ServiceHandler struct {
	svc *service.Service
}

// NewServiceHandler wraps svc as a RequestHandler.
func NewServiceHandler(svc *service.Service) *ServiceHandler {
	return &ServiceHandler{svc: svc}
}

func (h *ServiceHandler) Authorize(token string) error                { return h.svc.Authorize(token) }
func (h *ServiceHandler) Start(ctx context.Context) error              { return h.svc.Start(ctx) }
func (h *ServiceHandler) Stop()                                        { h.svc.Stop() }
func (h *ServiceHandler) PauseForSystemSleep()                         { h.svc.PauseForSystemSleep() }
func (h *ServiceHandler) ResumeAfterSystemWake(ctx context.Context)     { h.svc.ResumeAfterSystemWake(ctx) }
func (h *ServiceHandler) ConfigureScopes(roots []string)                { h.svc.ConfigureScopes(roots) }

func (h *ServiceHandler) Suggest(ctx context.Context, p SuggestParams) (any, error) {
	return h.svc.Suggest(ctx, search.Request{
		Query:                        p.Query,
		SourceFilters:                p.SourceFilters,
		Limit:                        p.Limit,
		TypingMode:                   p.TypingMode,
		IncludeColdPartitionFallback: p.IncludeColdPartitionFallback,
	})
}

func (h *ServiceHandler) CreateContextPack(ctx context.Context, p CreateContextPackParams) (any, error) {
	overrides := make(map[string]contextpack.InjectionMode, len(p.ModeOverrides))
	for id, mode := range p.ModeOverrides {
		overrides[id] = contextpack.InjectionMode(mode)
	}
	return h.svc.CreateContextPack(ctx, contextpack.Request{
		Query:                 p.Query,
		SelectedSuggestionIDs: p.SelectedSuggestionIDs,
		ModeOverrides:         overrides,
	})
}

func (h *ServiceHandler) Preview(itemID string) (any, bool) {
	return h.svc.Preview(itemID)
}

func (h *ServiceHandler) Health() any { return h.svc.Health() }

func (h *ServiceHandler) StateSnapshot(ctx context.Context) (any, error) {
	return h.svc.StateSnapshot(ctx)
}

func (h *ServiceHandler) TriggerBackfill(ctx context.Context, limit int) (any, error) {
	return h.svc.TriggerBackfill(ctx, limit)
}

func (h *ServiceHandler) ListBackfillJobs(ctx context.Context) (any, error) {
	return h.svc.ListBackfillJobs(ctx)
}

func (h *ServiceHandler) PauseBackfill(ctx context.Context, jobID string) error {
	job, err := h.findBackfillJob(ctx, jobID)
	if err != nil {
		return err
	}
	return h.svc.PauseBackfill(ctx, jobID, job)
}

func (h *ServiceHandler) ResumeBackfill(ctx context.Context, jobID string) error {
	job, err := h.findBackfillJob(ctx, jobID)
	if err != nil {
		return err
	}
	return h.svc.ResumeBackfill(ctx, jobID, job)
}

func (h *ServiceHandler) RunBenchmarkSample(ctx context.Context, queries []string) (any, error) {
	return h.svc.RunBenchmarkSample(ctx, queries)
}

func (h *ServiceHandler) findBackfillJob(ctx context.Context, jobID string) (store.BackfillJob, error) {
	jobs, err := h.svc.ListBackfillJobs(ctx)
	if err != nil {
		return store.BackfillJob{}, err
	}
	for _, job := range jobs {
		if job.ID == jobID {
			return job, nil
		}
	}
	return store.BackfillJob{}, daemonerr.Invalid(fmt.Sprintf("no such backfill job: %s", jobID))
}
