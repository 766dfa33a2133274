package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

type checkpointPayload struct {
	ScopeLabel           string   `json:"scopeLabel"`
	Cursor               string   `json:"cursor"`
	LastIndexedPath      string   `json:"lastIndexedPath"`
	LastIndexedTimestamp *float64 `json:"lastIndexedTimestamp,omitempty"`
	ResumeToken          string   `json:"resumeToken"`
	ItemsProcessed       int      `json:"itemsProcessed"`
	ItemsSkipped         int      `json:"itemsSkipped"`
	EstimatedTotal       int      `json:"estimatedTotal"`
	Status               string   `json:"status"`
}

// SaveCheckpoint upserts a backfill checkpoint keyed by cp.Key.
func (s *Store) SaveCheckpoint(ctx context.Context, cp BackfillCheckpoint) error {
	payload := checkpointPayload{
		ScopeLabel:      cp.ScopeLabel,
		Cursor:          cp.Cursor,
		LastIndexedPath: cp.LastIndexedPath,
		ResumeToken:     cp.ResumeToken,
		ItemsProcessed:  cp.ItemsProcessed,
		ItemsSkipped:    cp.ItemsSkipped,
		EstimatedTotal:  cp.EstimatedTotal,
		Status:          cp.Status,
	}
	if cp.LastIndexedTimestamp != nil {
		v := unixSeconds(*cp.LastIndexedTimestamp)
		payload.LastIndexedTimestamp = &v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return daemonerr.Invalid("failed to marshal checkpoint payload")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO backfill_checkpoints (checkpoint_key, payload_json, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(checkpoint_key) DO UPDATE SET payload_json = excluded.payload_json, updated_at = excluded.updated_at
		`, cp.Key, string(body), unixSeconds(cp.UpdatedAt))
		if err != nil {
			return daemonerr.Sqlite("failed to save checkpoint", err)
		}
		return nil
	})
}

// LoadCheckpoint returns the checkpoint for key, and false if none exists.
func (s *Store) LoadCheckpoint(ctx context.Context, key string, sourceType SourceType) (BackfillCheckpoint, bool, error) {
	var body string
	var updatedAt float64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json, updated_at FROM backfill_checkpoints WHERE checkpoint_key = ?`, key).
		Scan(&body, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BackfillCheckpoint{}, false, nil
	}
	if err != nil {
		return BackfillCheckpoint{}, false, daemonerr.Sqlite("failed to load checkpoint", err)
	}

	var payload checkpointPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return BackfillCheckpoint{}, false, daemonerr.Invalid("malformed checkpoint payload")
	}

	cp := BackfillCheckpoint{
		Key:             key,
		SourceType:      sourceType,
		ScopeLabel:      payload.ScopeLabel,
		Cursor:          payload.Cursor,
		LastIndexedPath: payload.LastIndexedPath,
		ResumeToken:     payload.ResumeToken,
		ItemsProcessed:  payload.ItemsProcessed,
		ItemsSkipped:    payload.ItemsSkipped,
		EstimatedTotal:  payload.EstimatedTotal,
		Status:          payload.Status,
		UpdatedAt:       timeFromUnix(updatedAt),
	}
	if payload.LastIndexedTimestamp != nil {
		t := timeFromUnix(*payload.LastIndexedTimestamp)
		cp.LastIndexedTimestamp = &t
	}
	return cp, true, nil
}

type backfillJobPayload struct {
	SourceType string `json:"sourceType"`
	ScopeLabel string `json:"scopeLabel"`
	Mode       string `json:"mode"`
	StartedAt  float64 `json:"startedAt"`
}

// UpsertBackfillJob upserts a backfill job record.
func (s *Store) UpsertBackfillJob(ctx context.Context, job BackfillJob) error {
	body, err := json.Marshal(backfillJobPayload{
		SourceType: string(job.SourceType),
		ScopeLabel: job.ScopeLabel,
		Mode:       job.Mode,
		StartedAt:  unixSeconds(job.StartedAt),
	})
	if err != nil {
		return daemonerr.Invalid("failed to marshal backfill job payload")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO backfill_jobs (id, payload_json, status, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET payload_json = excluded.payload_json, status = excluded.status, updated_at = excluded.updated_at
		`, job.ID, string(body), job.Status, unixSeconds(job.UpdatedAt))
		if err != nil {
			return daemonerr.Sqlite("failed to upsert backfill job", err)
		}
		return nil
	})
}

// ListBackfillJobs returns all known backfill jobs, most recently updated
// first.
func (s *Store) ListBackfillJobs(ctx context.Context) ([]BackfillJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload_json, status, updated_at FROM backfill_jobs ORDER BY updated_at DESC`)
	if err != nil {
		return nil, daemonerr.Sqlite("failed to list backfill jobs", err)
	}
	defer rows.Close()

	var jobs []BackfillJob
	for rows.Next() {
		var id, body, status string
		var updatedAt float64
		if err := rows.Scan(&id, &body, &status, &updatedAt); err != nil {
			return nil, daemonerr.Sqlite("failed to scan backfill job", err)
		}
		var payload backfillJobPayload
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			continue
		}
		jobs = append(jobs, BackfillJob{
			ID:         id,
			SourceType: SourceType(payload.SourceType),
			ScopeLabel: payload.ScopeLabel,
			Mode:       payload.Mode,
			Status:     status,
			StartedAt:  timeFromUnix(payload.StartedAt),
			UpdatedAt:  timeFromUnix(updatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, daemonerr.Sqlite("failed reading backfill jobs", err)
	}
	return jobs, nil
}

// queueSnapshotRetentionLimit bounds how many queue_snapshots rows are
// kept; SaveQueueSnapshot purges older rows beyond it.
const queueSnapshotRetentionLimit = 1

// SaveQueueSnapshot persists payload as the latest queue snapshot,
// purging all but the most recent queueSnapshotRetentionLimit rows.
func (s *Store) SaveQueueSnapshot(ctx context.Context, id string, payload string, createdAt float64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO queue_snapshots (id, payload_json, created_at) VALUES (?, ?, ?)`,
			id, payload, createdAt); err != nil {
			return daemonerr.Sqlite("failed to save queue snapshot", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM queue_snapshots WHERE id NOT IN (
				SELECT id FROM queue_snapshots ORDER BY created_at DESC LIMIT ?
			)`, queueSnapshotRetentionLimit); err != nil {
			return daemonerr.Sqlite("failed to purge old queue snapshots", err)
		}
		return nil
	})
}

// LatestQueueSnapshot returns the most recently saved queue snapshot
// payload, or false if none exists.
func (s *Store) LatestQueueSnapshot(ctx context.Context) (string, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM queue_snapshots ORDER BY created_at DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, daemonerr.Sqlite("failed to load queue snapshot", err)
	}
	return payload, true, nil
}

// AppendAudit records an audit event.
func (s *Store) AppendAudit(ctx context.Context, id, kind, payload string, createdAt float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, kind, payload_json, created_at) VALUES (?, ?, ?, ?)`,
		id, kind, payload, createdAt)
	if err != nil {
		return daemonerr.Sqlite("failed to append audit event", err)
	}
	return nil
}

// RecordIngestionAttempt upserts the last outcome for (sourceType, sourceID).
func (s *Store) RecordIngestionAttempt(ctx context.Context, a IngestionAttempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_attempts (source_type, source_id, outcome, attempted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_type, source_id) DO UPDATE SET outcome = excluded.outcome, attempted_at = excluded.attempted_at
	`, string(a.SourceType), a.SourceID, a.Outcome, unixSeconds(a.AttemptedAt))
	if err != nil {
		return daemonerr.Sqlite("failed to record ingestion attempt", err)
	}
	return nil
}

// SetServiceState upserts a service_state key/value pair.
func (s *Store) SetServiceState(ctx context.Context, key, value string, updatedAt float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_state (state_key, state_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(state_key) DO UPDATE SET state_value = excluded.state_value, updated_at = excluded.updated_at
	`, key, value, updatedAt)
	if err != nil {
		return daemonerr.Sqlite("failed to set service state", err)
	}
	return nil
}

// GetServiceState reads a service_state value, returning false if unset.
func (s *Store) GetServiceState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_value FROM service_state WHERE state_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, daemonerr.Sqlite("failed to get service state", err)
	}
	return value, true, nil
}
