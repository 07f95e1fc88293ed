package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/holteng/minne/internal/models"
	"github.com/holteng/minne/internal/testutil"
)

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestSearchNotesTool(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	for _, c := range []string{"took ibuprofen", "walked the dog"} {
		if _, err := db.CreateNote(ctx, &models.Note{Owner: "local", Content: c}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.CreateNote(ctx, &models.Note{Owner: "other", Content: "ibuprofen too"}); err != nil {
		t.Fatal(err)
	}

	s := New(db, "local")
	res, err := s.searchNotes(ctx, toolRequest("search_notes", map[string]any{"query": "ibuprofen"}))
	if err != nil {
		t.Fatalf("searchNotes: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	out := resultText(t, res)
	if !strings.Contains(out, "took ibuprofen") {
		t.Errorf("missing match: %s", out)
	}
	if strings.Contains(out, "ibuprofen too") {
		t.Errorf("other owner's note leaked: %s", out)
	}
}

func TestSearchNotesTool_MissingQuery(t *testing.T) {
	s := New(testutil.TestDB(t), "local")
	res, err := s.searchNotes(context.Background(), toolRequest("search_notes", map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("missing query should produce a tool error")
	}
}

func TestReadNoteTool(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	created, err := db.CreateNote(ctx, &models.Note{Owner: "local", Content: "read me"})
	if err != nil {
		t.Fatal(err)
	}

	s := New(db, "local")
	res, err := s.readNote(ctx, toolRequest("read_note", map[string]any{"id": fmt.Sprintf("%d", created.ID)}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "read me") {
		t.Errorf("note content missing: %s", resultText(t, res))
	}

	// Non-numeric and missing ids are tool errors, not transport errors.
	res, err = s.readNote(ctx, toolRequest("read_note", map[string]any{"id": "abc"}))
	if err != nil || !res.IsError {
		t.Errorf("non-numeric id: err=%v isError=%v", err, res.IsError)
	}
	res, err = s.readNote(ctx, toolRequest("read_note", map[string]any{"id": "9999"}))
	if err != nil || !res.IsError {
		t.Errorf("missing note: err=%v isError=%v", err, res.IsError)
	}
}

func TestListNotesTool_TopicFilter(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	topic := testutil.SeedTopicNotes(t, db, "local", "work", 2)
	if _, err := db.CreateNote(ctx, &models.Note{Owner: "local", Content: "unrelated"}); err != nil {
		t.Fatal(err)
	}

	s := New(db, "local")

	res, err := s.listNotes(ctx, toolRequest("list_notes", map[string]any{}))
	if err != nil || res.IsError {
		t.Fatalf("list all: err=%v", err)
	}
	if n := strings.Count(resultText(t, res), `"content"`); n != 3 {
		t.Errorf("all notes = %d, want 3", n)
	}

	res, err = s.listNotes(ctx, toolRequest("list_notes", map[string]any{"topicId": fmt.Sprintf("%d", topic.ID)}))
	if err != nil || res.IsError {
		t.Fatalf("list by topic: err=%v", err)
	}
	out := resultText(t, res)
	if strings.Contains(out, "unrelated") {
		t.Errorf("topic filter leaked other notes: %s", out)
	}
	if n := strings.Count(out, `"content"`); n != 2 {
		t.Errorf("topic notes = %d, want 2", n)
	}
}

func TestListTopicsTool(t *testing.T) {
	db := testutil.TestDB(t)
	testutil.SeedTopicNotes(t, db, "local", "health", 0)
	testutil.SeedTopicNotes(t, db, "local", "work", 0)

	s := New(db, "local")
	res, err := s.listTopics(context.Background(), mcp.CallToolRequest{})
	if err != nil || res.IsError {
		t.Fatalf("listTopics: err=%v", err)
	}
	out := resultText(t, res)
	if !strings.Contains(out, "health") || !strings.Contains(out, "work") {
		t.Errorf("topics missing: %s", out)
	}
}
