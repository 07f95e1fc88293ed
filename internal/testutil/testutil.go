// Package testutil provides shared test helpers for setting up databases
// and object stores.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/holteng/minne/internal/models"
	"github.com/holteng/minne/internal/objectstore"
	"github.com/holteng/minne/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "minne-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestObjects creates a temporary fs-backed object store.
func TestObjects(t *testing.T) *objectstore.FS {
	t.Helper()
	fs, err := objectstore.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

// TimedNote builds a timed note for seeding.
func TimedNote(owner, content string, start time.Time, g models.Granularity) *models.Note {
	return &models.Note{
		Owner:          owner,
		Content:        content,
		StartTimestamp: &start,
		Granularity:    &g,
	}
}

// TimelessNote builds a timeless note for seeding.
func TimelessNote(owner, content string) *models.Note {
	return &models.Note{Owner: owner, Content: content}
}

// SeedTopicNotes creates a topic and n timed notes referencing it,
// returning the topic.
func SeedTopicNotes(t *testing.T, db *store.DB, owner, topicName string, n int) *models.Topic {
	t.Helper()
	ctx := context.Background()
	topic, err := db.EnsureTopic(ctx, owner, topicName, "#aabbcc")
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		note := TimedNote(owner, topicName+" note", base.AddDate(0, 0, i), models.GranularityDay)
		note.TopicID = &topic.ID
		if _, err := db.CreateNote(ctx, note); err != nil {
			t.Fatal(err)
		}
	}
	return topic
}
