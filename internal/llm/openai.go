package llm

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements Provider on the OpenAI chat completions API.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates a provider. baseURL may be empty for the public API;
// set it to target a compatible gateway.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

// Stream starts an incremental chat completion.
func (o *OpenAI) Stream(ctx context.Context, req Request) (Stream, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, o.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("llm: start stream: %w", err)
	}
	return &openaiStream{stream: stream}, nil
}

// Complete runs a non-streaming chat completion.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("llm: complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) buildRequest(req Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, c := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   c.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      c.Name,
					Arguments: c.Args,
				},
			})
		}
		messages = append(messages, msg)
	}

	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

// openaiStream adapts the SDK stream to the Stream interface. Tool-call
// fragments arrive spread over many deltas; they are accumulated by index
// and emitted as whole calls once the provider finishes the message.
type openaiStream struct {
	stream  *openai.ChatCompletionStream
	pending []ToolCall
	flush   []ToolCall
	done    bool
}

func (s *openaiStream) Recv() (Event, error) {
	for {
		if len(s.flush) > 0 {
			call := s.flush[0]
			s.flush = s.flush[1:]
			return Event{Kind: EventToolCall, Call: call}, nil
		}
		if s.done {
			return Event{}, io.EOF
		}

		resp, err := s.stream.Recv()
		if err == io.EOF {
			s.done = true
			s.flush = s.pending
			s.pending = nil
			continue
		}
		if err != nil {
			return Event{}, err
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta
		for _, tc := range delta.ToolCalls {
			s.accumulate(tc)
		}
		if delta.Content != "" {
			return Event{Kind: EventText, Text: delta.Content}, nil
		}
	}
}

func (s *openaiStream) accumulate(tc openai.ToolCall) {
	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}
	for len(s.pending) <= idx {
		s.pending = append(s.pending, ToolCall{})
	}
	if tc.ID != "" {
		s.pending[idx].ID = tc.ID
	}
	if tc.Function.Name != "" {
		s.pending[idx].Name = tc.Function.Name
	}
	s.pending[idx].Args += tc.Function.Arguments
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}

var _ Provider = (*OpenAI)(nil)
