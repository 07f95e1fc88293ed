package chat

import (
	"fmt"
	"strings"
)

// Placeholder sentences used when an input section is absent. Keeping
// them fixed keeps the assembled prompt byte-identical for identical
// inputs, which the provider's prompt cache depends on.
const (
	placeholderSummary = "No user summary is available yet."
	placeholderGeneral = "The user has no general notes."
	placeholderContext = "No conversation context was provided."
)

// maxGeneralNotes caps the timeless notes included in every prompt.
const maxGeneralNotes = 20

// GeneralNote is the slice of a timeless note that enters the prompt.
type GeneralNote struct {
	ID      int64
	Content string
}

const promptPreamble = `You are a personal notes assistant. Answer using the user's notes below. When you cite a note, reference it by its NoteId.`

// AssemblePrompt composes the system prompt from the standing summary,
// the general (timeless) notes, and the pre-formatted per-conversation
// context block. Each input independently degrades to its placeholder;
// the function is pure and deterministic.
func AssemblePrompt(summary string, general []GeneralNote, contextBlock string) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\n<user-summary>\n")
	if summary == "" {
		b.WriteString(placeholderSummary)
	} else {
		b.WriteString(summary)
	}
	b.WriteString("\n</user-summary>\n\n<general-notes>\n")
	if len(general) == 0 {
		b.WriteString(placeholderGeneral)
	} else {
		if len(general) > maxGeneralNotes {
			general = general[:maxGeneralNotes]
		}
		for i, n := range general {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "- [\"NoteId: %d\"] %s", n.ID, n.Content)
		}
	}
	b.WriteString("\n</general-notes>\n\n<conversation-context>\n")
	if contextBlock == "" {
		b.WriteString(placeholderContext)
	} else {
		b.WriteString(strings.TrimRight(contextBlock, "\n"))
	}
	b.WriteString("\n</conversation-context>")
	return b.String()
}
