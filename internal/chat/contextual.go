package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/holteng/minne/internal/apperr"
	"github.com/holteng/minne/internal/models"
	"github.com/holteng/minne/internal/store"
)

// ErrInvalidContextRef marks a context reference that does not parse to a
// valid topic id. This is a caller error and surfaces as such, never as a
// silent empty context.
var ErrInvalidContextRef = errors.New("chat: invalid context reference")

// deletedTopicName is the header fallback when the topic row vanished
// between the note query and the topic lookup.
const deletedTopicName = "(deleted topic)"

// BuildTopicContext loads the notes of the referenced topic and formats
// them into a text block for the system prompt. It returns ok=false when
// no reference is given or the topic has no notes; an empty block is
// never produced.
func BuildTopicContext(ctx context.Context, st store.Store, owner string, ref *ContextRef) (string, bool, error) {
	if ref == nil || ref.TopicID == "" {
		return "", false, nil
	}
	topicID, err := strconv.ParseInt(ref.TopicID, 10, 64)
	if err != nil {
		return "", false, fmt.Errorf("%w: topic id %q is not numeric", ErrInvalidContextRef, ref.TopicID)
	}

	notes, err := st.NotesByTopic(ctx, owner, topicID)
	if err != nil {
		return "", false, err
	}
	if len(notes) == 0 {
		return "", false, nil
	}

	name := deletedTopicName
	topic, err := st.GetTopic(ctx, owner, topicID)
	switch {
	case err == nil:
		name = topic.Name
	case errors.Is(err, apperr.ErrNotFound):
		// Raced with deletion; keep the placeholder.
	default:
		return "", false, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Notes for topic %q:\n", name)
	for _, n := range notes {
		b.WriteString(formatContextLine(&n))
		b.WriteByte('\n')
	}
	return b.String(), true, nil
}

// formatContextLine renders one note as
//
//	- ["NoteId: <id>"] [<start>→<end-or-nothing>] <content>
//
// with dates as calendar-day ISO strings. Timeless notes omit the date
// bracket.
func formatContextLine(n *models.Note) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- [\"NoteId: %d\"]", n.ID)
	if n.StartTimestamp != nil {
		end := ""
		if n.EndTimestamp != nil {
			end = n.EndTimestamp.Format("2006-01-02")
		}
		fmt.Fprintf(&b, " [%s→%s]", n.StartTimestamp.Format("2006-01-02"), end)
	}
	b.WriteByte(' ')
	b.WriteString(n.Content)
	return b.String()
}
