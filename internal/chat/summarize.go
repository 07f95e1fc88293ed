package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/llm"
)

const (
	// minNotesForFirstSummary gates first-time summary generation.
	minNotesForFirstSummary = 5

	// summarySourceNotes is how many recent notes feed a regeneration.
	summarySourceNotes = 50
)

// RegenerateSummary rebuilds the owner's rolling notes summary from the
// most recent notes. First-time generation requires at least
// minNotesForFirstSummary notes; below that the precondition fails with
// apperr.ErrConflict.
func (s *Service) RegenerateSummary(ctx context.Context, owner string) error {
	_, err := s.store.GetSummary(ctx, owner)
	firstTime := errors.Is(err, apperr.ErrNotFound)
	if err != nil && !firstTime {
		return err
	}

	count, err := s.store.CountNotes(ctx, owner)
	if err != nil {
		return err
	}
	if firstTime && count < minNotesForFirstSummary {
		return fmt.Errorf("chat: %d notes, need at least %d for a first summary: %w",
			count, minNotesForFirstSummary, apperr.ErrConflict)
	}

	notes, err := s.store.RecentNotes(ctx, owner, summarySourceNotes)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, n := range notes {
		b.WriteString(formatContextLine(&n))
		b.WriteByte('\n')
	}

	summary, err := s.provider.Complete(ctx, llm.Request{
		Model: titleModelID,
		System: "Summarize the user's notes into a short standing profile: recurring themes, " +
			"habits, preferences, and ongoing concerns. Write a single paragraph in the third person.",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
	})
	if err != nil {
		return fmt.Errorf("chat: summary generation: %w", err)
	}

	return s.store.UpsertSummary(ctx, owner, strings.TrimSpace(summary))
}
