package memory

import (
	"fmt"
	"strings"
)

// formatHistoryForPrompt renders a conversation as a prompt-ready
// transcript: an optional chronological summary block, then the active
// turns in full. Archived turns are never included.
func formatHistoryForPrompt(conv *Conversation, opts Options) string {
	var b strings.Builder

	if len(conv.Summaries) > 0 {
		b.WriteString("CONVERSATION SUMMARIES:\n")
		for _, s := range conv.Summaries {
			b.WriteString("- ")
			b.WriteString(s.Content)
			b.WriteString("\n")
		}
		b.WriteString("\nRECENT CONVERSATION:\n")
	}

	for i, t := range conv.ActiveTurns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s: %s\nAssistant: %s", speakerLabel(t, opts), t.Query, t.Response)
	}

	return b.String()
}

// speakerLabel names the human side of a turn. Anchor turns are labelled
// "{anchorName} ({userName})" so the privileged user stays identifiable
// after attribution defaults are applied.
func speakerLabel(t Turn, opts Options) string {
	name := t.UserName
	if name == "" {
		name = opts.DefaultUserName
	}
	if name == "" {
		name = "User"
	}

	if opts.AnchorID != "" && t.UserID == opts.AnchorID {
		anchor := opts.AnchorName
		if anchor == "" {
			anchor = "Anchor"
		}
		return fmt.Sprintf("%s (%s)", anchor, name)
	}
	return name
}
