package models

import (
	"fmt"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Part kinds. Parts form a tagged union discriminated by Part.Type.
const (
	PartText      = "text"
	PartFile      = "file"
	PartToolCall  = "tool-call"
	PartReasoning = "reasoning"
	PartStatus    = "status"
)

// Part is one typed piece of a chat message. Exactly the fields for its
// Type are populated; everything else stays zero.
type Part struct {
	Type string `json:"type"`

	// PartText and PartReasoning.
	Text string `json:"text,omitempty"`

	// PartFile.
	Filename  string `json:"filename,omitempty"`
	MediaType string `json:"mediaType,omitempty"`

	// PartToolCall.
	ToolName   string `json:"toolName,omitempty"`
	ToolArgs   string `json:"toolArgs,omitempty"`
	ToolResult string `json:"toolResult,omitempty"`

	// PartStatus.
	Status string `json:"status,omitempty"`
}

// Validate checks the discriminator and the shape of the selected case.
func (p *Part) Validate() error {
	switch p.Type {
	case PartText, PartReasoning:
		if p.Text == "" {
			return fmt.Errorf("part: %s requires text", p.Type)
		}
	case PartFile:
		if p.Filename == "" {
			return fmt.Errorf("part: file requires filename")
		}
	case PartToolCall:
		if p.ToolName == "" {
			return fmt.Errorf("part: tool-call requires toolName")
		}
	case PartStatus:
		if p.Status == "" {
			return fmt.Errorf("part: status requires status")
		}
	default:
		return fmt.Errorf("part: unknown type %q", p.Type)
	}
	return nil
}

// TextPart returns a text part.
func TextPart(s string) Part { return Part{Type: PartText, Text: s} }

// StatusPart returns a status part.
func StatusPart(s string) Part { return Part{Type: PartStatus, Status: s} }

// Message is one role-tagged entry in a chat's message list.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// PlainText concatenates the message's text parts.
func (m *Message) PlainText() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// Chat is a stored conversation. The ID is client-generated.
type Chat struct {
	ID        string    `json:"id"`
	Owner     string    `json:"-"`
	Title     *string   `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
