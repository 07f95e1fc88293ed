package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/models"
)

// GetSummary returns the owner's rolling notes summary.
func (db *DB) GetSummary(ctx context.Context, owner string) (*models.UserSummary, error) {
	var s models.UserSummary
	err := db.conn.QueryRowContext(ctx,
		`SELECT owner, content, updated_at FROM user_summaries WHERE owner = ?`, owner).
		Scan(&s.Owner, &s.Content, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get summary: %w", err)
	}
	return &s, nil
}

// UpsertSummary inserts or replaces the owner's summary.
func (db *DB) UpsertSummary(ctx context.Context, owner, content string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_summaries (owner, content, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			content    = excluded.content,
			updated_at = excluded.updated_at
	`, owner, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: upsert summary: %w", err)
	}
	return nil
}
