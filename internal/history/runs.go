package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ashita-ai/ideaforge/internal/model"
)

// RunRecord is a run as remembered locally.
type RunRecord struct {
	model.Run
	Error     string    `json:"error,omitempty"`
	IdeaCount int       `json:"idea_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordRun inserts run, or refreshes its status if it is already known.
func (d *DB) RecordRun(ctx context.Context, run model.Run) error {
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return fmt.Errorf("history: encode sources: %w", err)
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	now := time.Now().UnixMilli()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, status, query, sources, llm_provider, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		run.RunID, string(run.Status), run.Query, string(sources), run.LLMProvider,
		created.UnixMilli(), now,
	)
	if err != nil {
		return fmt.Errorf("history: record run %s: %w", run.RunID, err)
	}
	return nil
}

// SetRunStatus updates the terminal status of a run and its error message.
// Unknown runs return ErrNotFound.
func (d *DB) SetRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE run_id = ?`,
		string(status), errMsg, time.Now().UnixMilli(), runID,
	)
	if err != nil {
		return fmt.Errorf("history: set run status %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: set run status %s: %w", runID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `r.run_id, r.status, r.query, r.sources, r.llm_provider, r.error, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM ideas i WHERE i.run_id = r.run_id)`

// GetRun returns a single run or ErrNotFound.
func (d *DB) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("history: get run %s: %w", runID, err)
	}
	return rec, nil
}

// RecentRuns returns up to limit runs, newest first. Non-positive limit means 20.
func (d *DB) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r ORDER BY r.created_at DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		rec              RunRecord
		status, sources  string
		created, updated int64
	)
	if err := s.Scan(&rec.RunID, &status, &rec.Query, &sources, &rec.LLMProvider, &rec.Error,
		&created, &updated, &rec.IdeaCount); err != nil {
		return RunRecord{}, err
	}
	rec.Status = model.RunStatus(status)
	if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
		return RunRecord{}, fmt.Errorf("decode sources: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	rec.UpdatedAt = time.UnixMilli(updated).UTC()
	return rec, nil
}
