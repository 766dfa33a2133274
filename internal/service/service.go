package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/johnbean393/hivecrew-retrieval/internal/connector"
	"github.com/johnbean393/hivecrew-retrieval/internal/contextpack"
	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
	"github.com/johnbean393/hivecrew-retrieval/internal/embed"
	"github.com/johnbean393/hivecrew-retrieval/internal/extract"
	"github.com/johnbean393/hivecrew-retrieval/internal/policy"
	"github.com/johnbean393/hivecrew-retrieval/internal/search"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
	"github.com/johnbean393/hivecrew-retrieval/internal/telemetry"
)

// Deps bundles the collaborators a Service needs. All fields are
// required except Power and Logger, which default to a static monitor
// and slog.Default().
type Deps struct {
	Store                *store.Store
	Policy               *policy.IndexingPolicy
	Extractor            *extract.ExtractionService
	EmbedPool            *embed.Pool
	AllowlistRoots       []string
	AuthToken            string
	StateDir             string
	Power                PowerMonitor
	Logger               *slog.Logger
}

// Service is the Service/Scheduler actor: owns the bounded
// queue, the worker pool, connectors, and the in-memory runtime state the
// control surface reads through health()/stateSnapshot() and mutates
// through start()/stop()/etc. All mutable fields below the constructor
// are only ever touched while holding mu, except the queue, metrics,
// and cache, which are independently thread-safe.
type Service struct {
	store     *store.Store
	policy    *policy.IndexingPolicy
	extractor *extract.ExtractionService
	embedPool *embed.Pool
	engine    *search.Engine
	assembler *contextpack.Assembler
	power     PowerMonitor
	logger    *slog.Logger

	authToken      string
	allowlistRoots []string
	stateDir       string

	maxChunksPerDocument int

	queue      *eventQueue
	metrics    *metrics
	cache      *suggestCache
	latency    *telemetry.LatencyTracker
	workers    *workerPool
	inFlight   int64

	connectorsMu sync.Mutex
	connectors   []*sourceConnector

	mu                       sync.Mutex
	running                  bool
	sleepPaused              bool
	startupBackfillCompleted bool
	currentOperation         string
	runtimeCancel            context.CancelFunc
	runtimeWG                sync.WaitGroup
}

// New builds a Service wired against deps, including the search engine
// (graph-augmented, reranked) and the context pack assembler, so callers
// don't need to construct those separately.
func New(deps Deps) *Service {
	if deps.Power == nil {
		deps.Power = NewStaticPowerMonitor()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	queryEmbedder := deps.EmbedPool.For("__suggest_query__")
	graph := search.NewGraphAugmentor(deps.Store)
	reranker := search.NewFeatureReranker()
	engine := search.NewEngine(deps.Store, queryEmbedder, graph, reranker)

	m := newMetrics()
	cache := newSuggestCache()
	assembler := contextpack.NewAssembler(deps.StateDir, cache, deps.Store, deps.Logger)

	maxChunks := deps.Policy.Config().MaxChunksPerDocument

	return &Service{
		store:                deps.Store,
		policy:               deps.Policy,
		extractor:            deps.Extractor,
		embedPool:            deps.EmbedPool,
		engine:               engine,
		assembler:            assembler,
		power:                deps.Power,
		logger:               deps.Logger,
		authToken:            deps.AuthToken,
		allowlistRoots:       deps.AllowlistRoots,
		stateDir:             deps.StateDir,
		maxChunksPerDocument: maxChunks,
		queue:                newEventQueue(maxQueueDepth),
		metrics:              m,
		cache:                cache,
		latency:              telemetry.NewLatencyTracker(512),
		workers:              newWorkerPool(),
	}
}

// Authorize implements the control surface's bearer-token check.
func (s *Service) Authorize(token string) error {
	if s.authToken == "" {
		return nil
	}
	if token != s.authToken {
		return daemonerr.AuthFailed("invalid bearer token")
	}
	return nil
}

// RegisterFileConnector adds a live FileConnector for (sourceType,
// scopeLabel, root) that Start() will start and Stop() will stop.
// Registering the same connector twice is a no-op.
func (s *Service) RegisterFileConnector(sourceType store.SourceType, scopeLabel string, c *connector.FileConnector) {
	s.connectorsMu.Lock()
	defer s.connectorsMu.Unlock()
	for _, existing := range s.connectors {
		if existing.connector == c {
			return
		}
	}
	s.connectors = append(s.connectors, &sourceConnector{sourceType: sourceType, scopeLabel: scopeLabel, connector: c})
}

// Start implements start(): registers connectors
// (already done via RegisterFileConnector), refreshes non-searchable
// rows, starts the runtime pipelines, and schedules the initial backfill
// with retry.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.setOperationLocked("starting")
	s.mu.Unlock()

	if _, err := s.store.RefreshFileSearchability(ctx, s.policy.NonSearchableExtensions()); err != nil {
		s.metrics.recordError(err.Error())
		return err
	}

	s.reclaimQueueSnapshot(ctx)

	runtimeCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.runtimeCancel = cancel
	s.mu.Unlock()

	s.startConnectorsLocked(runtimeCtx)
	s.startPipelines(runtimeCtx)

	s.runtimeWG.Add(1)
	go func() {
		defer s.runtimeWG.Done()
		s.runStartupBackfill(runtimeCtx)
	}()

	s.mu.Lock()
	s.setOperationLocked("")
	s.mu.Unlock()
	return nil
}

func (s *Service) startConnectorsLocked(ctx context.Context) {
	s.connectorsMu.Lock()
	defer s.connectorsMu.Unlock()
	for _, sc := range s.connectors {
		if err := sc.connector.Start(ctx); err != nil {
			s.metrics.recordError(err.Error())
			continue
		}
		s.runtimeWG.Add(1)
		go func(sc *sourceConnector) {
			defer s.runtimeWG.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case e, ok := <-sc.connector.Events():
					if !ok {
						return
					}
					s.queue.Push(e)
				}
			}
		}(sc)
	}
}

// startPipelines starts the worker-pool supervisor and the compaction
// scheduler.
func (s *Service) startPipelines(ctx context.Context) {
	s.runtimeWG.Add(1)
	go func() {
		defer s.runtimeWG.Done()
		s.runSupervisor(ctx)
	}()

	s.runtimeWG.Add(1)
	go func() {
		defer s.runtimeWG.Done()
		s.runCompactionScheduler(ctx)
	}()
}

// runSupervisor reconciles the worker pool to the target count every
// reconcileInterval.
func (s *Service) runSupervisor(ctx context.Context) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.workers.StopAll()
			return
		case <-ticker.C:
			if s.isSleepPaused() {
				continue
			}
			base := s.power.BaseWorkerCount()
			target := base * ingestionWorkerMultiplier
			priority := PriorityUtility
			if s.power.OnACPower() {
				priority = PriorityUserInitiated
			}
			s.workers.reconcile(ctx, target, priority, s.runWorker)
		}
	}
}

// runWorker is one ingestion worker's loop.
func (s *Service) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		e, ok := s.queue.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(dequeuePollInterval):
			}
			continue
		}
		atomic.AddInt64(&s.inFlight, 1)
		s.ingestSingleEvent(ctx, e)
		atomic.AddInt64(&s.inFlight, -1)
	}
}

// runCompactionScheduler runs Store.Compact every compactInterval.
func (s *Service) runCompactionScheduler(ctx context.Context) {
	ticker := time.NewTicker(compactInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.Compact(ctx); err != nil {
				s.metrics.recordError(err.Error())
			}
		}
	}
}

// Stop implements stop().
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.runtimeCancel
	s.runtimeCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.runtimeWG.Wait()

	s.connectorsMu.Lock()
	for _, sc := range s.connectors {
		_ = sc.connector.Stop()
	}
	s.connectorsMu.Unlock()
}

// PauseForSystemSleep implements pauseForSystemSleep(): cancels the
// runtime pipelines without closing the database.
func (s *Service) PauseForSystemSleep() {
	s.mu.Lock()
	if s.sleepPaused || !s.running {
		s.mu.Unlock()
		return
	}
	s.sleepPaused = true
	cancel := s.runtimeCancel
	s.runtimeCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.runtimeWG.Wait()
}

// ResumeAfterSystemWake implements resumeAfterSystemWake(): recreates the
// pipelines and, if the startup backfill had not completed, reschedules
// it.
func (s *Service) ResumeAfterSystemWake(ctx context.Context) {
	s.mu.Lock()
	if !s.sleepPaused {
		s.mu.Unlock()
		return
	}
	s.sleepPaused = false
	needsBackfill := !s.startupBackfillCompleted
	s.mu.Unlock()

	runtimeCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.runtimeCancel = cancel
	s.mu.Unlock()

	s.startConnectorsLocked(runtimeCtx)
	s.startPipelines(runtimeCtx)

	if needsBackfill {
		s.runtimeWG.Add(1)
		go func() {
			defer s.runtimeWG.Done()
			s.runStartupBackfill(runtimeCtx)
		}()
	}
}

func (s *Service) isSleepPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sleepPaused
}

func (s *Service) setOperationLocked(op string) {
	s.currentOperation = op
}

func (s *Service) currentOperationSnapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentOperation
}

// reclaimQueueSnapshot reads the latest persisted queue snapshot, if any.
// Its events are not replayed into the queue.
func (s *Service) reclaimQueueSnapshot(ctx context.Context) {
	_, ok, err := s.store.LatestQueueSnapshot(ctx)
	if err != nil {
		s.metrics.recordError(err.Error())
		return
	}
	if !ok {
		return
	}
	// The persisted snapshot is a diagnostic record of queue depth; events
	// themselves are re-derived from a fresh backfill/watch pass rather
	// than replayed verbatim, since a file's mtime is the source of truth.
}

func (s *Service) recordFailure(ctx context.Context, e connector.IngestionEvent, kind string, err error) {
	s.metrics.recordError(err.Error())
	s.metrics.recordAttemptOutcome("failed")
	_ = s.store.RecordIngestionAttempt(ctx, store.IngestionAttempt{
		SourceType: e.SourceType, SourceID: e.SourceID, Outcome: "failed", AttemptedAt: time.Now().UTC(),
	})
	_ = s.store.AppendAudit(ctx, "audit_"+uuid.NewString(), "ingestion_failure", kind+": "+err.Error(), float64(time.Now().Unix()))
}

func (s *Service) recordAttempt(ctx context.Context, e connector.IngestionEvent, outcome string) {
	s.metrics.recordAttemptOutcome(outcome)
	_ = s.store.RecordIngestionAttempt(ctx, store.IngestionAttempt{
		SourceType: e.SourceType, SourceID: e.SourceID, Outcome: outcome, AttemptedAt: time.Now().UTC(),
	})
	if outcome == "success" {
		_ = s.store.AppendAudit(ctx, "audit_"+uuid.NewString(), "ingestion_success", e.SourceID, float64(time.Now().Unix()))
	}
}

func (s *Service) recordExtractionOutcome(ctx context.Context, e connector.IngestionEvent, result *extract.Result) {
	s.metrics.recordExtractionOutcome(string(result.Outcome))
}
