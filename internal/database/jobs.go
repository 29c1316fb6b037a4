package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/verdantlabs/contentforge/internal/batch"
)

// SaveJob persists a finished batch job and its per-request results in one
// transaction. It implements batch.Store.
func (db *DB) SaveJob(snap batch.Snapshot) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin save job: %w", err)
	}
	defer tx.Rollback()

	var completedAt *string
	if snap.CompletedAt != nil {
		s := snap.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &s
	}

	_, err = tx.Exec(`
		INSERT INTO batch_jobs (id, status, max_concurrency, request_count, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, completed_at = excluded.completed_at`,
		snap.ID, string(snap.Status), snap.MaxConcurrency, snap.RequestCount,
		snap.CreatedAt.UTC().Format(time.RFC3339), completedAt)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}

	for idx, res := range snap.Results {
		attempts, err := json.Marshal(res.Attempts)
		if err != nil {
			return fmt.Errorf("marshaling attempts: %w", err)
		}

		var score *float64
		if res.Quality != nil {
			s := res.Quality.Overall
			score = &s
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO batch_results
			(job_id, request_index, accepted, provider_used, overall_score, failure_kind, last_error, content, attempts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, idx, res.Accepted, nullable(res.ProviderUsed), score,
			nullable(string(res.FailureKind)), nullable(res.LastError), nullable(res.Content), string(attempts))
		if err != nil {
			return fmt.Errorf("inserting result %d: %w", idx, err)
		}
	}

	return tx.Commit()
}

// GetJob returns a persisted job, or nil if it doesn't exist.
func (db *DB) GetJob(id string) (*BatchJobRecord, error) {
	row := db.conn.QueryRow(`
		SELECT id, status, max_concurrency, request_count, created_at, completed_at
		FROM batch_jobs WHERE id = ?`, id)

	var rec BatchJobRecord
	err := row.Scan(&rec.ID, &rec.Status, &rec.MaxConcurrency, &rec.RequestCount, &rec.CreatedAt, &rec.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return &rec, nil
}

// GetJobResults returns the persisted results of a job ordered by request index.
func (db *DB) GetJobResults(jobID string) ([]BatchResultRecord, error) {
	rows, err := db.conn.Query(`
		SELECT job_id, request_index, accepted, provider_used, overall_score, failure_kind, last_error, content, attempts
		FROM batch_results WHERE job_id = ? ORDER BY request_index`, jobID)
	if err != nil {
		return nil, fmt.Errorf("getting job results: %w", err)
	}
	defer rows.Close()

	var results []BatchResultRecord
	for rows.Next() {
		var rec BatchResultRecord
		if err := rows.Scan(&rec.JobID, &rec.RequestIndex, &rec.Accepted, &rec.ProviderUsed,
			&rec.OverallScore, &rec.FailureKind, &rec.LastError, &rec.Content, &rec.AttemptsJSON); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// ListJobs returns the most recent jobs, newest first.
func (db *DB) ListJobs(limit int) ([]BatchJobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, status, max_concurrency, request_count, created_at, completed_at
		FROM batch_jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []BatchJobRecord
	for rows.Next() {
		var rec BatchJobRecord
		if err := rows.Scan(&rec.ID, &rec.Status, &rec.MaxConcurrency, &rec.RequestCount,
			&rec.CreatedAt, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, rec)
	}
	return jobs, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
