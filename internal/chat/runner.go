package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/llm"
	"github.com/holteng/minne/internal/models"
	"github.com/holteng/minne/internal/store"
)

const (
	// maxToolIterations bounds the tool loop per turn; exceeding the cap
	// ends the turn instead of looping.
	maxToolIterations = 5

	// maxPassthroughErrLen: provider errors shorter than this are shown
	// to the user verbatim, longer ones are replaced by genericErrText.
	maxPassthroughErrLen = 250

	genericErrText = "The model provider returned an error. Please try again."

	// titleModelID is the cheap model used for best-effort title synthesis.
	titleModelID = "gpt-4o-mini"

	statusThinking = "thinking"
)

// Outgoing stream event types.
const (
	EventStatus   = "status"
	EventText     = "text"
	EventReason   = "reasoning"
	EventToolCall = "tool-call"
	EventError    = "error"
	EventDone     = "done"
)

// StreamEvent is one event of the outgoing turn stream.
type StreamEvent struct {
	Type       string `json:"type"`
	Status     string `json:"status,omitempty"`
	Text       string `json:"text,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	ToolArgs   string `json:"toolArgs,omitempty"`
	ToolResult string `json:"toolResult,omitempty"`
	Message    string `json:"message,omitempty"`
	ChatID     string `json:"chatId,omitempty"`
}

// EmitFunc delivers one event to the client. Returning an error aborts
// the turn (the client went away).
type EmitFunc func(StreamEvent) error

// Service runs chat turns end to end.
type Service struct {
	store    store.Store
	provider llm.Provider

	// promptHook, when set, observes the assembled system prompt. Used
	// by tests.
	promptHook func(prompt string)
}

// NewService creates a chat service.
func NewService(st store.Store, provider llm.Provider) *Service {
	return &Service{store: st, provider: provider}
}

// SetPromptHook installs an observer for assembled prompts.
func (s *Service) SetPromptHook(hook func(string)) {
	s.promptHook = hook
}

// RunTurn executes one validated chat turn: context retrieval, prompt
// assembly, model invocation with stream merge, and persistence once the
// stream fully resolves. A turn that errors (or is cancelled) persists
// nothing.
func (s *Service) RunTurn(ctx context.Context, owner string, req *TurnRequest, emit EmitFunc) error {
	if req.Context != nil && len(req.Context.NoteIDs) > 0 {
		return fmt.Errorf("chat: note-id context: %w", apperr.ErrNotImplemented)
	}
	model, ok := llm.LookupModel(req.Model)
	if !ok {
		return fmt.Errorf("chat: unknown model %q", req.Model)
	}

	// The summary and general-notes reads have no ordering dependency,
	// so issue them concurrently.
	var (
		summary string
		general []GeneralNote
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		us, err := s.store.GetSummary(gCtx, owner)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		summary = us.Content
		return nil
	})
	g.Go(func() error {
		notes, err := s.store.GeneralNotes(gCtx, owner, maxGeneralNotes)
		if err != nil {
			return err
		}
		for _, n := range notes {
			general = append(general, GeneralNote{ID: n.ID, Content: n.Content})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	contextBlock, _, err := BuildTopicContext(ctx, s.store, owner, req.Context)
	if err != nil {
		return err
	}

	prompt := AssemblePrompt(summary, general, contextBlock)
	if s.promptHook != nil {
		s.promptHook(prompt)
	}

	// Synthetic status goes out before the provider connection is even
	// opened, so the client shows progress during provider latency.
	if err := emit(StreamEvent{Type: EventStatus, Status: statusThinking}); err != nil {
		return err
	}

	assistantParts, err := s.streamTurn(ctx, owner, model, prompt, req.Messages, emit)
	if err != nil {
		// The turn failed: nothing is persisted, partial or otherwise.
		if ctx.Err() == nil {
			_ = emit(StreamEvent{Type: EventError, Message: sanitizeProviderError(err)})
		}
		return err
	}

	if err := s.persistTurn(ctx, owner, req, assistantParts); err != nil {
		return err
	}
	return emit(StreamEvent{Type: EventDone, ChatID: req.ChatID})
}

// streamTurn drives the provider stream and the tool loop, relaying
// events part-for-part in arrival order. It returns the assistant parts
// accumulated over all rounds.
func (s *Service) streamTurn(ctx context.Context, owner string, model llm.Model, prompt string, messages []models.Message, emit EmitFunc) ([]models.Part, error) {
	history := toProviderMessages(messages, model)
	var parts []models.Part

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		stream, err := s.provider.Stream(ctx, llm.Request{
			Model:    model.ID,
			System:   prompt,
			Messages: history,
			Tools:    s.tools(),
		})
		if err != nil {
			return nil, err
		}

		var (
			text  strings.Builder
			calls []llm.ToolCall
		)
		for {
			ev, recvErr := stream.Recv()
			if recvErr == io.EOF {
				break
			}
			if recvErr != nil {
				_ = stream.Close()
				return nil, recvErr
			}
			switch ev.Kind {
			case llm.EventText:
				if err := emit(StreamEvent{Type: EventText, Text: ev.Text}); err != nil {
					_ = stream.Close()
					return nil, err
				}
				text.WriteString(ev.Text)
			case llm.EventReasoning:
				if err := emit(StreamEvent{Type: EventReason, Text: ev.Text}); err != nil {
					_ = stream.Close()
					return nil, err
				}
				parts = append(parts, models.Part{Type: models.PartReasoning, Text: ev.Text})
			case llm.EventToolCall:
				calls = append(calls, ev.Call)
			}
		}
		_ = stream.Close()

		if text.Len() > 0 {
			parts = append(parts, models.TextPart(text.String()))
		}
		if len(calls) == 0 {
			return parts, nil
		}

		// Feed the tool round back into the history.
		history = append(history, llm.Message{Role: llm.RoleAssistant, ToolCalls: calls})
		for _, call := range calls {
			result := s.runTool(ctx, owner, call)
			if err := emit(StreamEvent{
				Type:       EventToolCall,
				ToolName:   call.Name,
				ToolArgs:   call.Args,
				ToolResult: result,
			}); err != nil {
				return nil, err
			}
			parts = append(parts, models.Part{
				Type:       models.PartToolCall,
				ToolName:   call.Name,
				ToolArgs:   call.Args,
				ToolResult: result,
			})
			history = append(history, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	// Tool cap reached; end the turn with whatever was produced.
	slog.Warn("tool iteration cap reached", slog.Int("cap", maxToolIterations))
	return parts, nil
}

// persistTurn stores the finished turn. The conversation's first exchange
// inserts a new chat row with a best-effort title; later turns replace
// the message list. Last write wins on concurrent turns.
func (s *Service) persistTurn(ctx context.Context, owner string, req *TurnRequest, assistantParts []models.Part) error {
	messages := append(append([]models.Message{}, req.Messages...), models.Message{
		Role:  models.RoleAssistant,
		Parts: assistantParts,
	})

	if countUserMessages(req.Messages) == 1 {
		chat := &models.Chat{ID: req.ChatID, Owner: owner, Messages: messages}
		if title, err := s.generateTitle(ctx, req.Messages, assistantParts); err != nil {
			// Title synthesis is best effort; the row is still created.
			slog.Warn("title generation failed", slog.String("chat_id", req.ChatID), slog.String("error", err.Error()))
		} else if title != "" {
			chat.Title = &title
		}
		if err := s.store.InsertChat(ctx, chat); err != nil {
			// A retried first turn hits the existing row; overwrite it.
			// Anything other than the duplicate-id conflict is a real
			// store failure and surfaces as such.
			if errors.Is(err, apperr.ErrConflict) {
				return s.store.UpdateChatMessages(ctx, owner, req.ChatID, messages)
			}
			return err
		}
		return nil
	}

	if err := s.store.UpdateChatMessages(ctx, owner, req.ChatID, messages); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return s.store.InsertChat(ctx, &models.Chat{ID: req.ChatID, Owner: owner, Messages: messages})
		}
		return err
	}
	return nil
}

// generateTitle asks the cheap model for a five-word-or-fewer title for
// the first exchange.
func (s *Service) generateTitle(ctx context.Context, messages []models.Message, assistantParts []models.Part) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var userText, assistantText string
	for _, m := range messages {
		if m.Role == models.RoleUser {
			userText = m.PlainText()
		}
	}
	for _, p := range assistantParts {
		if p.Type == models.PartText {
			assistantText += p.Text
		}
	}

	title, err := s.provider.Complete(tctx, llm.Request{
		Model:  titleModelID,
		System: "Write a title of five words or fewer for the conversation. Respond with the title only, no quotes.",
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("User: %s\nAssistant: %s", userText, assistantText),
		}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`)), nil
}

// toProviderMessages converts UI messages to provider history. Reasoning
// parts are stripped for models that reject the reasoning part type, and
// status parts never leave the UI layer.
func toProviderMessages(messages []models.Message, model llm.Model) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		var b strings.Builder
		for _, p := range m.Parts {
			switch p.Type {
			case models.PartText:
				b.WriteString(p.Text)
			case models.PartReasoning:
				if model.SupportsReasoning {
					b.WriteString(p.Text)
				}
			case models.PartFile:
				fmt.Fprintf(&b, "[attached file: %s]", p.Filename)
			case models.PartToolCall, models.PartStatus:
				// Replayed to providers via history only as plain text
				// turns; skip.
			}
		}
		if b.Len() == 0 {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: b.String()})
	}
	return out
}

func countUserMessages(messages []models.Message) int {
	n := 0
	for _, m := range messages {
		if m.Role == models.RoleUser {
			n++
		}
	}
	return n
}

// sanitizeProviderError keeps short provider messages and replaces long
// or opaque ones, so stack traces and internal identifiers never reach
// the client.
func sanitizeProviderError(err error) string {
	msg := err.Error()
	if len(msg) < maxPassthroughErrLen {
		return msg
	}
	return genericErrText
}
