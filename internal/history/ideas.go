package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashita-ai/ideaforge/internal/model"
)

// RecordIdeas replaces the stored ideas of runID with ideas, keeping their
// delivered order. The run must already be recorded.
func (d *DB) RecordIdeas(ctx context.Context, runID string, ideas []model.Idea) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("history: check run %s: %w", runID, err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ideas WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("history: clear ideas %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ideas (run_id, position, idea_id, title, composite_score, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("history: prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UnixMilli()
	for i, idea := range ideas {
		payload, err := json.Marshal(idea)
		if err != nil {
			return fmt.Errorf("history: encode idea %d: %w", i, err)
		}
		var score any
		if idea.CompositeScore != nil {
			score = *idea.CompositeScore
		}
		if _, err := stmt.ExecContext(ctx, runID, i, idea.ID, idea.Title, score, string(payload), now); err != nil {
			return fmt.Errorf("history: insert idea %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit ideas %s: %w", runID, err)
	}
	return nil
}

// IdeasForRun returns the ideas recorded for runID in delivered order.
func (d *DB) IdeasForRun(ctx context.Context, runID string) ([]model.Idea, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT payload FROM ideas WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: ideas for %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Idea{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("history: scan idea: %w", err)
		}
		var idea model.Idea
		if err := json.Unmarshal([]byte(payload), &idea); err != nil {
			return nil, fmt.Errorf("history: decode idea: %w", err)
		}
		out = append(out, idea)
	}
	return out, rows.Err()
}
