// Package connector implements FileConnector: the policy-aware bridge
// between a raw watcher.ChangeWatcher and the bounded ingestion queue,
// plus paginated full/incremental backfill scans.
package connector

import (
	"time"

	"github.com/johnbean393/hivecrew-retrieval/internal/policy"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// EventOperation is the implicit operation carried by an IngestionEvent.
type EventOperation string

const (
	OpUpsert EventOperation = "upsert"
	OpDelete EventOperation = "delete"
)

// IngestionEvent is a queued unit of ingestion work.
type IngestionEvent struct {
	ID                 string
	SourceType         store.SourceType
	ScopeLabel         string
	SourceID           string
	Title              string
	Body               string
	SourcePathOrHandle string
	OccurredAt         time.Time
	Operation          EventOperation
	Partition          policy.Partition
}

// BackfillMode selects the pagination strategy for Backfill.
type BackfillMode string

const (
	BackfillFull        BackfillMode = "full"
	BackfillIncremental BackfillMode = "incremental"
)

// candidate is an internal scan hit prior to policy evaluation.
type candidate struct {
	path       string
	size       int64
	modifiedAt time.Time
}
