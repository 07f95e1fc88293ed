// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes one owner's notes as read-only tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/holteng/minne/internal/models"
	"github.com/holteng/minne/internal/store"
)

// Server wraps the MCP server with Minne tools. It is bound to a single
// owner identity at construction time; MCP clients have no authentication
// of their own.
type Server struct {
	mcp   *server.MCPServer
	store store.Store
	owner string
}

// New creates a new MCP server with all tools registered.
func New(st store.Store, owner string) *Server {
	s := &Server{store: st, owner: owner}

	s.mcp = server.NewMCPServer(
		"Minne",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search through the user's notes for a text fragment."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a single note by its numeric id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, optionally restricted to one topic."),
		mcp.WithString("topicId", mcp.Description("Optional topic id to filter by")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_topics",
		mcp.WithDescription("List the user's topics."),
	), s.listTopics)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.store.SearchNotes(ctx, s.owner, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return notesResult(notes)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("note id must be numeric, got %q", raw)), nil
	}
	note, err := s.store.GetNote(ctx, s.owner, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %d", id)), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.NoteFilter{Limit: 100}
	if raw, err := req.RequireString("topicId"); err == nil && raw != "" {
		topicID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("topic id must be numeric, got %q", raw)), nil
		}
		filter.TopicID = &topicID
	}
	notes, _, err := s.store.ListNotes(ctx, s.owner, filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return notesResult(notes)
}

func (s *Server) listTopics(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topics, err := s.store.ListTopics(ctx, s.owner)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(topics, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func notesResult(notes []models.Note) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(notes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
