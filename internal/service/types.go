// Package service implements the Service/Scheduler actor: the bounded
// ingestion queue and elastic worker pool, the per-event ingestion
// pipeline, startup and on-demand backfill, the suggestion cache, and
// the lifecycle entry points the control surface calls into.
package service

import (
	"time"

	"github.com/johnbean393/hivecrew-retrieval/internal/connector"
	"github.com/johnbean393/hivecrew-retrieval/internal/search"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// Tunables not carried in config.PolicyConfig.
const (
	reconcileInterval   = 250 * time.Millisecond
	dequeuePollInterval = 50 * time.Millisecond
	compactInterval     = 8 * time.Hour
	maxQueueDepth       = 2000

	// ingestionWorkerMultiplier scales baseWorkerCount into the target
	// worker count the supervisor reconciles toward.
	ingestionWorkerMultiplier = 2
)

// WorkerPriority mirrors the OS scheduling hint a real worker pool would
// request; plumbed through so callers/tests can observe a priority change
// without this package depending on a platform-specific scheduler API.
type WorkerPriority string

const (
	PriorityUserInitiated WorkerPriority = "userInitiated"
	PriorityUtility        WorkerPriority = "utility"
)

// HealthSnapshot answers the health() RPC.
type HealthSnapshot struct {
	DaemonVersion      string         `json:"daemonVersion"`
	Running            bool           `json:"running"`
	QueueDepth         int            `json:"queueDepth"`
	InFlightCount      int            `json:"inFlightCount"`
	LastError          string         `json:"lastError,omitempty"`
	LatencyP50Ms       float64        `json:"latencyP50Ms"`
	LatencyP95Ms       float64        `json:"latencyP95Ms"`
	CurrentOperation   string         `json:"currentOperation,omitempty"`
	ExtractionCounts   map[string]int `json:"extractionCounts"`
}

// ProgressState answers one entry of indexingProgress().
type ProgressState struct {
	SourceType     store.SourceType `json:"sourceType"`
	ScopeLabel     string           `json:"scopeLabel"`
	Status         string           `json:"status"`
	ItemsProcessed int              `json:"itemsProcessed"`
	ItemsSkipped   int              `json:"itemsSkipped"`
	EstimatedTotal int              `json:"estimatedTotal"`
}

// SourceRuntimeStat is one entry of stateSnapshot()'s sourceRuntime list.
type SourceRuntimeStat struct {
	SourceType   store.SourceType `json:"sourceType"`
	DocumentCount int             `json:"documentCount"`
}

// IndexStats answers indexStats().
type IndexStats struct {
	TotalDocumentCount int                 `json:"totalDocumentCount"`
	Sources            []SourceRuntimeStat `json:"sources"`
}

// QueueActivity answers queueActivity().
type QueueActivity struct {
	QueueDepth int                      `json:"queueDepth"`
	Sources    map[store.SourceType]int `json:"sources"`
}

// StateSnapshot answers stateSnapshot(): a superset bundling
// health, progress, index stats, and queue activity for a single RPC
// round trip.
type StateSnapshot struct {
	Health           HealthSnapshot      `json:"health"`
	Progress         []ProgressState     `json:"progress"`
	IndexStats       IndexStats          `json:"indexStats"`
	QueueActivity    QueueActivity       `json:"queueActivity"`
	SourceRuntime    []SourceRuntimeStat `json:"sourceRuntime"`
	CurrentOperation string              `json:"currentOperation,omitempty"`
}

// SuggestRequest mirrors the suggest() RPC input.
type SuggestRequest = search.Request

// SuggestResponse mirrors the suggest() RPC output.
type SuggestResponse = search.Response

// sourceConnector bundles a live FileConnector with the source type and
// scope label it feeds, so the Service can register/start/stop several
// roots uniformly. FileConnector is the only connector type; mail, message
// and calendar events reach the pipeline only as IngestionEvents handed to
// it directly, as the tests do.
type sourceConnector struct {
	sourceType store.SourceType
	scopeLabel string
	connector  *connector.FileConnector
}
