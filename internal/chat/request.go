// Package chat implements the chat turn flow: request validation,
// retrieval-context assembly, model invocation with stream merge, and
// post-stream persistence.
package chat

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/holteng/minne/internal/llm"
	"github.com/holteng/minne/internal/models"
)

// ContextRef points at the notes to pull into the system prompt. It is a
// tagged union: exactly one field may be populated. The NoteIDs shape is
// reserved and currently unimplemented; submitting it yields 501 rather
// than silently producing no context.
type ContextRef struct {
	TopicID string   `json:"topicId,omitempty"`
	NoteIDs []string `json:"noteIds,omitempty"`
}

// TurnRequest is the accepted shape of POST /chat.
type TurnRequest struct {
	ChatID   string           `json:"chatId"`
	Model    string           `json:"model"`
	Messages []models.Message `json:"messages"`
	Context  *ContextRef      `json:"context,omitempty"`
}

// ParseTurnRequest decodes and validates an external payload. Malformed
// payloads are rejected as a whole, never partially accepted.
func ParseTurnRequest(raw []byte) (*TurnRequest, error) {
	var req TurnRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("chat: invalid JSON body: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks the request against the accepted shape.
func (r *TurnRequest) Validate() error {
	modelIDs := make([]any, 0, len(llm.ModelIDs()))
	for _, id := range llm.ModelIDs() {
		modelIDs = append(modelIDs, id)
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.ChatID, validation.Required),
		validation.Field(&r.Model, validation.Required, validation.In(modelIDs...)),
		validation.Field(&r.Messages, validation.Required, validation.By(validateMessages)),
		validation.Field(&r.Context, validation.By(validateContextRef)),
	)
}

func validateMessages(value any) error {
	messages, _ := value.([]models.Message)
	if len(messages) == 0 {
		return fmt.Errorf("must contain at least one message")
	}
	for i, m := range messages {
		switch m.Role {
		case models.RoleUser, models.RoleAssistant, models.RoleSystem:
		default:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
		if len(m.Parts) == 0 {
			return fmt.Errorf("message %d: must contain at least one part", i)
		}
		for j := range m.Parts {
			if err := m.Parts[j].Validate(); err != nil {
				return fmt.Errorf("message %d: part %d: %v", i, j, err)
			}
		}
	}
	return nil
}

func validateContextRef(value any) error {
	ref, _ := value.(*ContextRef)
	if ref == nil {
		return nil
	}
	hasTopic := ref.TopicID != ""
	hasNotes := len(ref.NoteIDs) > 0
	if hasTopic == hasNotes {
		return fmt.Errorf("exactly one of topicId or noteIds must be set")
	}
	return nil
}
