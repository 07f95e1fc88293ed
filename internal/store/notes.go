package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/models"
)

// NoteFilter narrows ListNotes results.
type NoteFilter struct {
	TopicID  *int64
	Timeless bool // only notes without a timestamp
	Limit    int
	Offset   int
}

// CreateNote inserts a note and returns it with its assigned id.
func (db *DB) CreateNote(ctx context.Context, n *models.Note) (*models.Note, error) {
	meta, err := json.Marshal(orEmptyMap(n.Metadata))
	if err != nil {
		return nil, fmt.Errorf("store: marshal metadata: %w", err)
	}
	files, _ := json.Marshal(nonNilSlice(n.Attachments))

	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (owner, content, start_ts, end_ts, granularity, metadata, attachments, topic_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.Owner, n.Content, nullTime(n.StartTimestamp), nullTime(n.EndTimestamp),
		nullGranularity(n.Granularity), string(meta), string(files), nullInt(n.TopicID), now, now)
	if err != nil {
		return nil, fmt.Errorf("store: insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: note id: %w", err)
	}
	return db.GetNote(ctx, n.Owner, id)
}

// GetNote returns one note scoped by owner.
func (db *DB) GetNote(ctx context.Context, owner string, id int64) (*models.Note, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, owner, content, start_ts, end_ts, granularity, metadata, attachments, topic_id, created_at, updated_at
		FROM notes WHERE owner = ? AND id = ?
	`, owner, id)
	return scanNote(row)
}

// ListNotes returns notes for an owner, newest start first, then id
// descending, with timeless notes ordered by id only.
func (db *DB) ListNotes(ctx context.Context, owner string, f NoteFilter) ([]models.Note, int, error) {
	where := `owner = ?`
	args := []any{owner}
	if f.TopicID != nil {
		where += ` AND topic_id = ?`
		args = append(args, *f.TopicID)
	}
	if f.Timeless {
		where += ` AND start_ts IS NULL`
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count notes: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit, f.Offset)
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner, content, start_ts, end_ts, granularity, metadata, attachments, topic_id, created_at, updated_at
		FROM notes WHERE `+where+`
		ORDER BY start_ts DESC, id DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()
	out, err := collectNotes(rows)
	return out, total, err
}

// NotesByTopic returns every note referencing the topic, newest start
// first, then id descending.
func (db *DB) NotesByTopic(ctx context.Context, owner string, topicID int64) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner, content, start_ts, end_ts, granularity, metadata, attachments, topic_id, created_at, updated_at
		FROM notes WHERE owner = ? AND topic_id = ?
		ORDER BY start_ts DESC, id DESC
	`, owner, topicID)
	if err != nil {
		return nil, fmt.Errorf("store: notes by topic: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

// GeneralNotes returns up to limit timeless notes, newest first, for use
// as always-available prompt context.
func (db *DB) GeneralNotes(ctx context.Context, owner string, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner, content, start_ts, end_ts, granularity, metadata, attachments, topic_id, created_at, updated_at
		FROM notes WHERE owner = ? AND start_ts IS NULL
		ORDER BY id DESC
		LIMIT ?
	`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("store: general notes: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

// RecentNotes returns the most recently updated notes for summary
// regeneration.
func (db *DB) RecentNotes(ctx context.Context, owner string, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner, content, start_ts, end_ts, granularity, metadata, attachments, topic_id, created_at, updated_at
		FROM notes WHERE owner = ?
		ORDER BY updated_at DESC, id DESC
		LIMIT ?
	`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent notes: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

// SearchNotes performs a LIKE-based search over note content.
func (db *DB) SearchNotes(ctx context.Context, owner, query string, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner, content, start_ts, end_ts, granularity, metadata, attachments, topic_id, created_at, updated_at
		FROM notes WHERE owner = ? AND content LIKE ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, owner, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search notes: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

// CountNotes returns the total number of notes for an owner.
func (db *DB) CountNotes(ctx context.Context, owner string) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE owner = ?`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count notes: %w", err)
	}
	return n, nil
}

// CountNotesByTopic returns how many notes reference a topic.
func (db *DB) CountNotesByTopic(ctx context.Context, owner string, topicID int64) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE owner = ? AND topic_id = ?`, owner, topicID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count notes by topic: %w", err)
	}
	return n, nil
}

// UpdateNote replaces the mutable fields of a note in place.
func (db *DB) UpdateNote(ctx context.Context, n *models.Note) (*models.Note, error) {
	meta, err := json.Marshal(orEmptyMap(n.Metadata))
	if err != nil {
		return nil, fmt.Errorf("store: marshal metadata: %w", err)
	}
	files, _ := json.Marshal(nonNilSlice(n.Attachments))

	res, err := db.conn.ExecContext(ctx, `
		UPDATE notes
		SET content = ?, start_ts = ?, end_ts = ?, granularity = ?, metadata = ?, attachments = ?, topic_id = ?, updated_at = ?
		WHERE owner = ? AND id = ?
	`, n.Content, nullTime(n.StartTimestamp), nullTime(n.EndTimestamp),
		nullGranularity(n.Granularity), string(meta), string(files), nullInt(n.TopicID),
		time.Now().UTC(), n.Owner, n.ID)
	if err != nil {
		return nil, fmt.Errorf("store: update note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, apperr.ErrNotFound
	}
	return db.GetNote(ctx, n.Owner, n.ID)
}

// SetAttachments replaces a note's attachment list.
func (db *DB) SetAttachments(ctx context.Context, owner string, id int64, files []string) error {
	raw, _ := json.Marshal(nonNilSlice(files))
	res, err := db.conn.ExecContext(ctx,
		`UPDATE notes SET attachments = ?, updated_at = ? WHERE owner = ? AND id = ?`,
		string(raw), time.Now().UTC(), owner, id)
	if err != nil {
		return fmt.Errorf("store: set attachments: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteNote removes a note. File cleanup is the caller's responsibility.
func (db *DB) DeleteNote(ctx context.Context, owner string, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	var (
		n           models.Note
		startTS     sql.NullTime
		endTS       sql.NullTime
		granularity sql.NullString
		metaRaw     string
		filesRaw    string
		topicID     sql.NullInt64
	)
	err := row.Scan(&n.ID, &n.Owner, &n.Content, &startTS, &endTS, &granularity,
		&metaRaw, &filesRaw, &topicID, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan note: %w", err)
	}
	if startTS.Valid {
		t := startTS.Time
		n.StartTimestamp = &t
	}
	if endTS.Valid {
		t := endTS.Time
		n.EndTimestamp = &t
	}
	if granularity.Valid {
		g := models.Granularity(granularity.String)
		n.Granularity = &g
	}
	if topicID.Valid {
		id := topicID.Int64
		n.TopicID = &id
	}
	if err := json.Unmarshal([]byte(metaRaw), &n.Metadata); err != nil {
		return nil, fmt.Errorf("store: decode metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(filesRaw), &n.Attachments); err != nil {
		return nil, fmt.Errorf("store: decode attachments: %w", err)
	}
	n.Attachments = nonNilSlice(n.Attachments)
	return &n, nil
}

func collectNotes(rows *sql.Rows) ([]models.Note, error) {
	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullGranularity(g *models.Granularity) any {
	if g == nil {
		return nil
	}
	return string(*g)
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
