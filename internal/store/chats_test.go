package store

import (
	"context"
	"errors"
	"testing"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/models"
)

func TestInsertAndGetChat(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	title := "Medication questions"
	chat := &models.Chat{
		ID:    "chat-1",
		Owner: "alice",
		Title: &title,
		Messages: []models.Message{
			{Role: models.RoleUser, Parts: []models.Part{models.TextPart("hi")}},
			{Role: models.RoleAssistant, Parts: []models.Part{models.TextPart("hello")}},
		},
	}
	if err := db.InsertChat(ctx, chat); err != nil {
		t.Fatalf("InsertChat: %v", err)
	}

	got, err := db.GetChat(ctx, "alice", "chat-1")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if got.Title == nil || *got.Title != title {
		t.Errorf("title = %v", got.Title)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[1].Role != models.RoleAssistant || got.Messages[1].Parts[0].Text != "hello" {
		t.Errorf("message round trip failed: %+v", got.Messages[1])
	}

	// Duplicate id for the same owner is a conflict.
	if err := db.InsertChat(ctx, chat); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate insert = %v, want conflict", err)
	}

	// Same id for another owner is fine.
	other := &models.Chat{ID: "chat-1", Owner: "bob"}
	if err := db.InsertChat(ctx, other); err != nil {
		t.Errorf("same id, other owner: %v", err)
	}
}

func TestUpdateChatMessages_LastWriteWins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.InsertChat(ctx, &models.Chat{ID: "c", Owner: "alice",
		Messages: []models.Message{{Role: models.RoleUser, Parts: []models.Part{models.TextPart("v1")}}},
	}); err != nil {
		t.Fatal(err)
	}

	first := []models.Message{{Role: models.RoleUser, Parts: []models.Part{models.TextPart("first")}}}
	second := []models.Message{{Role: models.RoleUser, Parts: []models.Part{models.TextPart("second")}}}
	if err := db.UpdateChatMessages(ctx, "alice", "c", first); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateChatMessages(ctx, "alice", "c", second); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetChat(ctx, "alice", "c")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Parts[0].Text != "second" {
		t.Errorf("last write did not win: %+v", got.Messages)
	}

	if err := db.UpdateChatMessages(ctx, "alice", "missing", first); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}
}

func TestRenameChat(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.InsertChat(ctx, &models.Chat{ID: "c", Owner: "alice"}); err != nil {
		t.Fatal(err)
	}
	if err := db.RenameChat(ctx, "alice", "c", "New title"); err != nil {
		t.Fatalf("RenameChat: %v", err)
	}
	got, err := db.GetChat(ctx, "alice", "c")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title == nil || *got.Title != "New title" {
		t.Errorf("title = %v", got.Title)
	}

	if err := db.RenameChat(ctx, "bob", "c", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-owner rename = %v, want ErrNotFound", err)
	}
}

func TestListChats_RecentFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := db.InsertChat(ctx, &models.Chat{ID: id, Owner: "alice"}); err != nil {
			t.Fatal(err)
		}
	}
	// Touch "a" so it becomes the most recent.
	if err := db.UpdateChatMessages(ctx, "alice", "a",
		[]models.Message{{Role: models.RoleUser, Parts: []models.Part{models.TextPart("hi")}}}); err != nil {
		t.Fatal(err)
	}

	chats, err := db.ListChats(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 {
		t.Fatalf("len = %d, want 2", len(chats))
	}
	if chats[0].ID != "a" {
		t.Errorf("most recently updated not first: %q", chats[0].ID)
	}
}

func TestDeleteChat(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.InsertChat(ctx, &models.Chat{ID: "c", Owner: "alice"}); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteChat(ctx, "alice", "c"); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	if _, err := db.GetChat(ctx, "alice", "c"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := db.DeleteChat(ctx, "alice", "c"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestSummaryUpsert(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.GetSummary(ctx, "alice"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("fresh owner = %v, want ErrNotFound", err)
	}

	if err := db.UpsertSummary(ctx, "alice", "first version"); err != nil {
		t.Fatalf("UpsertSummary: %v", err)
	}
	if err := db.UpsertSummary(ctx, "alice", "second version"); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetSummary(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "second version" {
		t.Errorf("content = %q", got.Content)
	}

	// Summaries are owner scoped.
	if _, err := db.GetSummary(ctx, "bob"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("other owner = %v, want ErrNotFound", err)
	}
}
