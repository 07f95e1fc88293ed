package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holteng/minne/internal/llm"
)

const searchToolName = "search_notes"

// tools returns the bounded tool set offered to the model.
func (s *Service) tools() []llm.Tool {
	return []llm.Tool{{
		Name:        searchToolName,
		Description: "Search the user's notes for a text fragment and return matching notes.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Text to search for",
				},
			},
			"required": []string{"query"},
		},
	}}
}

// runTool executes one provider-issued tool call. Tool failures become
// result text rather than turn errors; the model decides what to do with
// them.
func (s *Service) runTool(ctx context.Context, owner string, call llm.ToolCall) string {
	if call.Name != searchToolName {
		return fmt.Sprintf("unknown tool %q", call.Name)
	}
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Args), &args); err != nil || args.Query == "" {
		return "invalid arguments: a query string is required"
	}

	notes, err := s.store.SearchNotes(ctx, owner, args.Query, 10)
	if err != nil {
		return fmt.Sprintf("search failed: %v", err)
	}
	if len(notes) == 0 {
		return "no matching notes"
	}

	var b strings.Builder
	for _, n := range notes {
		b.WriteString(formatContextLine(&n))
		b.WriteByte('\n')
	}
	return b.String()
}
