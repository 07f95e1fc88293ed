package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/models"
)

// InsertChat stores a new chat row. The id is client-generated; inserting
// an id that already exists for the owner is a conflict.
func (db *DB) InsertChat(ctx context.Context, c *models.Chat) error {
	raw, err := json.Marshal(nonNilSlice(c.Messages))
	if err != nil {
		return fmt.Errorf("store: marshal messages: %w", err)
	}
	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO chats (id, owner, title, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.Owner, nullString(c.Title), string(raw), now, now)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("store: insert chat %q: %w", c.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("store: insert chat: %w", err)
	}
	return nil
}

// UpdateChatMessages replaces a chat's message list. Last write wins;
// concurrent turns on one chat id are not coordinated.
func (db *DB) UpdateChatMessages(ctx context.Context, owner, id string, messages []models.Message) error {
	raw, err := json.Marshal(nonNilSlice(messages))
	if err != nil {
		return fmt.Errorf("store: marshal messages: %w", err)
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE chats SET messages = ?, updated_at = ? WHERE owner = ? AND id = ?`,
		string(raw), time.Now().UTC(), owner, id)
	if err != nil {
		return fmt.Errorf("store: update chat: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// RenameChat sets a chat's title.
func (db *DB) RenameChat(ctx context.Context, owner, id, title string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE chats SET title = ?, updated_at = ? WHERE owner = ? AND id = ?`,
		title, time.Now().UTC(), owner, id)
	if err != nil {
		return fmt.Errorf("store: rename chat: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// GetChat returns one chat scoped by owner.
func (db *DB) GetChat(ctx context.Context, owner, id string) (*models.Chat, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, owner, title, messages, created_at, updated_at
		FROM chats WHERE owner = ? AND id = ?
	`, owner, id)
	return scanChat(row)
}

// ListChats returns all chats for an owner, most recently updated first.
// Message lists are included; callers that only need headers can ignore
// them.
func (db *DB) ListChats(ctx context.Context, owner string) ([]models.Chat, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner, title, messages, created_at, updated_at
		FROM chats WHERE owner = ?
		ORDER BY updated_at DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("store: list chats: %w", err)
	}
	defer rows.Close()

	var out []models.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// DeleteChat removes a chat.
func (db *DB) DeleteChat(ctx context.Context, owner, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM chats WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("store: delete chat: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func scanChat(row rowScanner) (*models.Chat, error) {
	var (
		c     models.Chat
		title sql.NullString
		raw   string
	)
	err := row.Scan(&c.ID, &c.Owner, &title, &raw, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan chat: %w", err)
	}
	if title.Valid {
		t := title.String
		c.Title = &t
	}
	if err := json.Unmarshal([]byte(raw), &c.Messages); err != nil {
		return nil, fmt.Errorf("store: decode messages: %w", err)
	}
	return &c, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
