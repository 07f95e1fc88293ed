// Package llm abstracts the hosted model provider behind a small
// streaming interface.
package llm

import "context"

// Message roles accepted by providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of the role-tagged history sent to a provider.
type Message struct {
	Role    string
	Content string

	// Assistant messages that requested tools carry the calls; tool
	// messages answer one call by id.
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a provider-issued request to run a tool.
type ToolCall struct {
	ID   string
	Name string
	Args string // raw JSON arguments
}

// Tool describes one callable tool offered to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

// Request is a single generation request.
type Request struct {
	Model    string
	System   string
	Messages []Message
	Tools    []Tool
}

// Event kinds emitted by a Stream.
const (
	EventText      = "text"
	EventReasoning = "reasoning"
	EventToolCall  = "tool-call"
)

// Event is one incremental piece of a model response.
type Event struct {
	Kind string
	Text string
	Call ToolCall
}

// Stream yields events until io.EOF. Close releases the upstream
// connection; it is safe to call after an error.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Provider is the hosted-model interface.
type Provider interface {
	// Stream starts an incremental generation. Cancelling ctx stops
	// upstream token consumption.
	Stream(ctx context.Context, req Request) (Stream, error)
	// Complete runs a non-streaming generation and returns the text.
	Complete(ctx context.Context, req Request) (string, error)
}
