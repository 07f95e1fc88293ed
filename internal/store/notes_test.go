package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "minne-store-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func timedNote(owner, content string, start time.Time) *models.Note {
	g := models.GranularityDay
	return &models.Note{Owner: owner, Content: content, StartTimestamp: &start, Granularity: &g}
}

func TestCreateAndGetNote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	start := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	g := models.GranularityDay
	created, err := db.CreateNote(ctx, &models.Note{
		Owner:          "alice",
		Content:        "trip to the coast",
		StartTimestamp: &start,
		EndTimestamp:   &end,
		Granularity:    &g,
		Metadata:       map[string]any{"mood": "good", "km": float64(120)},
	})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := db.GetNote(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Content != "trip to the coast" {
		t.Errorf("content = %q", got.Content)
	}
	if got.StartTimestamp == nil || !got.StartTimestamp.Equal(start) {
		t.Errorf("startTimestamp = %v, want %v", got.StartTimestamp, start)
	}
	if got.EndTimestamp == nil || !got.EndTimestamp.Equal(end) {
		t.Errorf("endTimestamp = %v, want %v", got.EndTimestamp, end)
	}
	if got.Granularity == nil || *got.Granularity != models.GranularityDay {
		t.Errorf("granularity = %v", got.Granularity)
	}
	if got.Metadata["mood"] != "good" {
		t.Errorf("metadata = %v", got.Metadata)
	}
	if got.Attachments == nil {
		t.Error("attachments should be an empty slice, not nil")
	}
}

func TestTimelessNoteRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	created, err := db.CreateNote(ctx, &models.Note{Owner: "alice", Content: "always allergic to penicillin"})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	got, err := db.GetNote(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.StartTimestamp != nil || got.EndTimestamp != nil || got.Granularity != nil {
		t.Errorf("timeless note came back timed: %+v", got)
	}
}

func TestGetNote_OwnerScoped(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	created, err := db.CreateNote(ctx, &models.Note{Owner: "alice", Content: "private"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetNote(ctx, "bob", created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-owner read = %v, want ErrNotFound", err)
	}
}

func TestListNotes_OrderAndPagination(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := db.CreateNote(ctx, timedNote("alice", "n", base.AddDate(0, 0, i))); err != nil {
			t.Fatal(err)
		}
	}

	notes, total, err := db.ListNotes(ctx, "alice", NoteFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	// Newest start first.
	if !notes[0].StartTimestamp.After(*notes[1].StartTimestamp) {
		t.Errorf("not ordered newest first: %v then %v", notes[0].StartTimestamp, notes[1].StartTimestamp)
	}

	page2, _, err := db.ListNotes(ctx, "alice", NoteFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 2 || page2[0].ID == notes[0].ID {
		t.Errorf("offset page overlaps first page")
	}
}

func TestListNotes_TimelessFilter(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.CreateNote(ctx, timedNote("alice", "timed", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateNote(ctx, &models.Note{Owner: "alice", Content: "timeless"}); err != nil {
		t.Fatal(err)
	}

	notes, total, err := db.ListNotes(ctx, "alice", NoteFilter{Timeless: true})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(notes) != 1 || notes[0].Content != "timeless" {
		t.Errorf("timeless filter: total=%d notes=%+v", total, notes)
	}
}

func TestNotesByTopicAndCounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	topic, err := db.EnsureTopic(ctx, "alice", "health", "#ff0000")
	if err != nil {
		t.Fatalf("EnsureTopic: %v", err)
	}
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		n := timedNote("alice", "dose", base.AddDate(0, 0, i))
		n.TopicID = &topic.ID
		if _, err := db.CreateNote(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	// One unrelated note.
	if _, err := db.CreateNote(ctx, &models.Note{Owner: "alice", Content: "other"}); err != nil {
		t.Fatal(err)
	}

	notes, err := db.NotesByTopic(ctx, "alice", topic.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 3 {
		t.Fatalf("NotesByTopic len = %d, want 3", len(notes))
	}
	if !notes[0].StartTimestamp.After(*notes[2].StartTimestamp) {
		t.Error("topic notes not newest first")
	}

	count, err := db.CountNotesByTopic(ctx, "alice", topic.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("CountNotesByTopic = %d, want 3", count)
	}
	total, err := db.CountNotes(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Errorf("CountNotes = %d, want 4", total)
	}
}

func TestGeneralNotes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.CreateNote(ctx, timedNote("alice", "timed", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	for _, c := range []string{"first", "second"} {
		if _, err := db.CreateNote(ctx, &models.Note{Owner: "alice", Content: c}); err != nil {
			t.Fatal(err)
		}
	}

	notes, err := db.GeneralNotes(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	// Newest (highest id) first.
	if notes[0].Content != "second" {
		t.Errorf("order: got %q first", notes[0].Content)
	}

	limited, err := db.GeneralNotes(ctx, "alice", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: len = %d", len(limited))
	}
}

func TestSearchNotes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, c := range []string{"took ibuprofen at noon", "walked the dog", "ibuprofen again in the evening"} {
		if _, err := db.CreateNote(ctx, &models.Note{Owner: "alice", Content: c}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.CreateNote(ctx, &models.Note{Owner: "bob", Content: "ibuprofen too"}); err != nil {
		t.Fatal(err)
	}

	notes, err := db.SearchNotes(ctx, "alice", "ibuprofen", 10)
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Errorf("len = %d, want 2 (owner scoped)", len(notes))
	}
}

func TestUpdateNote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	created, err := db.CreateNote(ctx, timedNote("alice", "v1", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatal(err)
	}

	// Flip to timeless and change content.
	updated, err := db.UpdateNote(ctx, &models.Note{ID: created.ID, Owner: "alice", Content: "v2"})
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.Content != "v2" || updated.StartTimestamp != nil {
		t.Errorf("update not applied: %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("updatedAt went backwards")
	}

	if _, err := db.UpdateNote(ctx, &models.Note{ID: 9999, Owner: "alice", Content: "x"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}
}

func TestSetAttachments(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	created, err := db.CreateNote(ctx, &models.Note{Owner: "alice", Content: "with files"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetAttachments(ctx, "alice", created.ID, []string{"a.pdf", "b.png"}); err != nil {
		t.Fatalf("SetAttachments: %v", err)
	}
	got, err := db.GetNote(ctx, "alice", created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Attachments) != 2 || got.Attachments[0] != "a.pdf" {
		t.Errorf("attachments = %v", got.Attachments)
	}

	if err := db.SetAttachments(ctx, "bob", created.ID, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-owner SetAttachments = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	created, err := db.CreateNote(ctx, &models.Note{Owner: "alice", Content: "temp"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteNote(ctx, "alice", created.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := db.GetNote(ctx, "alice", created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := db.DeleteNote(ctx, "alice", created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestEnsureTopic_UpsertsColor(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first, err := db.EnsureTopic(ctx, "alice", "work", "#111111")
	if err != nil {
		t.Fatalf("EnsureTopic: %v", err)
	}
	// Same name again with a new color updates in place.
	second, err := db.EnsureTopic(ctx, "alice", "work", "#222222")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("ids differ: %d vs %d", first.ID, second.ID)
	}
	if second.Color != "#222222" {
		t.Errorf("color = %q, want updated", second.Color)
	}

	// Empty color keeps the stored one.
	third, err := db.EnsureTopic(ctx, "alice", "work", "")
	if err != nil {
		t.Fatal(err)
	}
	if third.Color != "#222222" {
		t.Errorf("empty color overwrote stored color: %q", third.Color)
	}

	// Same name for another owner is a distinct topic.
	other, err := db.EnsureTopic(ctx, "bob", "work", "#333333")
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == first.ID {
		t.Error("topics not owner scoped")
	}
}

func TestDeleteTopic(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	topic, err := db.EnsureTopic(ctx, "alice", "gone", "#000000")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteTopic(ctx, "alice", topic.ID); err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}
	if _, err := db.GetTopic(ctx, "alice", topic.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := db.DeleteTopic(ctx, "alice", topic.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestListTopics(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		if _, err := db.EnsureTopic(ctx, "alice", name, "#fff"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.EnsureTopic(ctx, "bob", "hidden", "#fff"); err != nil {
		t.Fatal(err)
	}

	topics, err := db.ListTopics(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 2 {
		t.Fatalf("len = %d, want 2", len(topics))
	}
	if topics[0].Name != "alpha" {
		t.Errorf("not ordered by name: %q first", topics[0].Name)
	}
}
