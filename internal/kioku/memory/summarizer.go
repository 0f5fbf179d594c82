package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bdobrica/kioku/common/retry"
)

// ErrNoTurns is returned by SummarizeTurns for an empty batch.
var ErrNoTurns = errors.New("memory: no turns to summarize")

// summarySystemPrompt is the fixed instruction sent with every
// summarisation request.
const summarySystemPrompt = "You are a conversation summarizer. Write an objective, third-person summary " +
	"of the following conversation in at most 250 words. Cover what was asked, answered, and decided. " +
	"Do not add commentary or information that is not in the transcript."

// Summarizer converts an ordered batch of turns into one Summary.
type Summarizer interface {
	// SummarizeTurns summarises a non-empty batch. It fails only when the
	// batch is empty; backend failures degrade to a deterministic fallback
	// summary instead of an error.
	SummarizeTurns(ctx context.Context, turns []Turn) (Summary, error)
}

// LLMSummarizer summarises turns via a CompletionClient, degrading to a
// heuristic summary when the backend is unavailable or misbehaving. A nil
// client skips the backend entirely and always produces fallbacks.
type LLMSummarizer struct {
	client CompletionClient
	logger *slog.Logger
	policy retry.Policy
}

// NewLLMSummarizer creates a summariser. client may be nil (fallback-only
// operation); a nil logger uses slog.Default().
func NewLLMSummarizer(client CompletionClient, logger *slog.Logger) *LLMSummarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMSummarizer{
		client: client,
		logger: logger,
		policy: retry.Default,
	}
}

// SummarizeTurns summarises the batch. The input is defensively sorted by
// timestamp; callers normally already pass chronological order. Span
// fields are computed from the batch itself, so startTurnIndex is always 0
// and endTurnIndex is len(turns)-1; re-basing against a conversation's
// own numbering is the caller's job.
func (s *LLMSummarizer) SummarizeTurns(ctx context.Context, turns []Turn) (Summary, error) {
	if len(turns) == 0 {
		return Summary{}, ErrNoTurns
	}

	sorted := make([]Turn, len(turns))
	copy(sorted, turns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	ids := make([]any, len(sorted))
	for i, t := range sorted {
		ids[i] = t.ID
	}

	summary := Summary{
		Timestamp:      time.Now(),
		StartTurnIndex: 0,
		EndTurnIndex:   len(sorted) - 1,
		StartTimestamp: sorted[0].Timestamp,
		EndTimestamp:   sorted[len(sorted)-1].Timestamp,
		TurnCount:      len(sorted),
		Metadata:       map[string]any{MetaOriginalTurnIDs: ids},
	}

	content, err := s.complete(ctx, sorted)
	if err != nil {
		s.logger.Warn("memory: completion backend failed, using fallback summary",
			"turns", len(sorted), "err", err)
		summary.Content = fallbackContent(sorted)
		summary.Metadata[MetaIsFallback] = true
		return summary, nil
	}

	summary.Content = content
	return summary, nil
}

// complete renders the transcript and submits it to the completion
// backend, retrying transient failures once before giving up.
func (s *LLMSummarizer) complete(ctx context.Context, turns []Turn) (string, error) {
	if s.client == nil {
		return "", errors.New("no completion client configured")
	}

	transcript := renderTranscript(turns)

	var content string
	err := retry.Do(ctx, s.policy, func() error {
		resp, err := s.client.Complete(ctx, summarySystemPrompt, transcript)
		if err != nil {
			return err
		}
		resp = strings.TrimSpace(resp)
		if resp == "" {
			return errors.New("completion backend returned empty content")
		}
		content = resp
		return nil
	})
	return content, err
}

// renderTranscript formats turns the way they appear in prompts:
// "{speaker}: {query}\nAssistant: {response}", blank-line separated.
func renderTranscript(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		speaker := t.UserName
		if speaker == "" {
			speaker = "User"
		}
		fmt.Fprintf(&b, "%s: %s\nAssistant: %s", speaker, t.Query, t.Response)
	}
	return b.String()
}

// fallbackContent composes a deterministic summary from the queries alone:
// turn count, truncated first and last queries, and up to five topic
// candidates taken from the leading words of each query.
func fallbackContent(turns []Turn) string {
	topics := topicCandidates(turns, 5)

	first := truncateQuery(turns[0].Query, 60)
	last := truncateQuery(turns[len(turns)-1].Query, 60)

	var b strings.Builder
	if len(turns) == 1 {
		fmt.Fprintf(&b, "Conversation of 1 turn: %q.", first)
	} else {
		fmt.Fprintf(&b, "Conversation of %d turns, starting with %q and ending with %q.",
			len(turns), first, last)
	}
	if len(topics) > 0 {
		b.WriteString(" Topics touched on: ")
		b.WriteString(strings.Join(topics, ", "))
		b.WriteString(".")
	}
	return b.String()
}

// topicCandidates takes the first three words of each query, drops
// trivially short tokens, and returns up to max unique topics in first-seen
// order.
func topicCandidates(turns []Turn, max int) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, t := range turns {
		words := strings.Fields(t.Query)
		if len(words) > 3 {
			words = words[:3]
		}
		for _, w := range words {
			w = strings.ToLower(strings.Trim(w, ".,!?;:\"'"))
			if len(w) <= 3 || seen[w] {
				continue
			}
			seen[w] = true
			topics = append(topics, w)
			if len(topics) == max {
				return topics
			}
		}
	}
	return topics
}

func truncateQuery(q string, max int) string {
	if len(q) <= max {
		return q
	}
	return q[:max] + "..."
}

// Compile-time interface satisfaction check.
var _ Summarizer = (*LLMSummarizer)(nil)
