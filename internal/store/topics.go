package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/models"
)

// EnsureTopic returns the topic with the given name, creating it when it
// does not exist yet. Topics are created inline during note creation and
// edit, so this is the only insert path.
func (db *DB) EnsureTopic(ctx context.Context, owner, name, color string) (*models.Topic, error) {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO topics (owner, name, color) VALUES (?, ?, ?)
		ON CONFLICT(owner, name) DO UPDATE SET
			color = CASE WHEN excluded.color != '' THEN excluded.color ELSE topics.color END
	`, owner, name, color)
	if err != nil {
		return nil, fmt.Errorf("store: ensure topic: %w", err)
	}
	return db.topicByName(ctx, owner, name)
}

// GetTopic returns one topic scoped by owner.
func (db *DB) GetTopic(ctx context.Context, owner string, id int64) (*models.Topic, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, owner, name, color FROM topics WHERE owner = ? AND id = ?`, owner, id)
	return scanTopic(row)
}

func (db *DB) topicByName(ctx context.Context, owner, name string) (*models.Topic, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, owner, name, color FROM topics WHERE owner = ? AND name = ?`, owner, name)
	return scanTopic(row)
}

// ListTopics returns all topics for an owner ordered by name.
func (db *DB) ListTopics(ctx context.Context, owner string) ([]models.Topic, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, owner, name, color FROM topics WHERE owner = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("store: list topics: %w", err)
	}
	defer rows.Close()

	var out []models.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// DeleteTopic removes a topic. Callers must check the referencing note
// count first; this is a plain delete.
func (db *DB) DeleteTopic(ctx context.Context, owner string, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM topics WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("store: delete topic: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func scanTopic(row rowScanner) (*models.Topic, error) {
	var t models.Topic
	err := row.Scan(&t.ID, &t.Owner, &t.Name, &t.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan topic: %w", err)
	}
	return &t, nil
}
