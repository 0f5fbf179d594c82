// Package memory implements tiered conversational memory for kioku.
// Each conversation keeps three retention tiers: recent turns in full
// fidelity (active), compacted summaries of older turns, and the raw
// archived turns that have been summarised away. Compaction runs after
// every append and never blocks the caller on the summarisation backend.
package memory

import "time"

// InterfaceType identifies which frontend a conversation belongs to.
type InterfaceType string

const (
	// InterfaceCLI marks conversations held over the local CLI.
	InterfaceCLI InterfaceType = "cli"
	// InterfaceMatrix marks conversations held in a Matrix room.
	InterfaceMatrix InterfaceType = "matrix"
)

// Valid reports whether t is one of the known interface types.
func (t InterfaceType) Valid() bool {
	return t == InterfaceCLI || t == InterfaceMatrix
}

// Metadata keys written by the summariser.
const (
	// MetaOriginalTurnIDs maps to the ids of the turns a summary was built
	// from, preserving provenance after the turns leave the active tier.
	MetaOriginalTurnIDs = "originalTurnIds"
	// MetaIsFallback marks a summary produced by the deterministic
	// heuristic instead of the completion backend.
	MetaIsFallback = "isFallback"
)

// Turn is a single query/response exchange. Turns are immutable once
// stored and belong to exactly one tier (active or archived) at a time.
type Turn struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Query     string         `json:"query"`
	Response  string         `json:"response"`
	UserID    string         `json:"userId,omitempty"`
	UserName  string         `json:"userName,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Summary is the compacted form of a contiguous, chronologically ordered
// span of turns. Start/end indices are relative to the batch that was
// summarised, not to the conversation's full numbering.
type Summary struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	Content        string         `json:"content"`
	StartTurnIndex int            `json:"startTurnIndex"`
	EndTurnIndex   int            `json:"endTurnIndex"`
	StartTimestamp time.Time      `json:"startTimestamp"`
	EndTimestamp   time.Time      `json:"endTimestamp"`
	TurnCount      int            `json:"turnCount"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// IsFallback reports whether the summary was produced by the deterministic
// heuristic rather than the completion backend.
func (s Summary) IsFallback() bool {
	v, ok := s.Metadata[MetaIsFallback].(bool)
	return ok && v
}

// OriginalTurnIDs returns the provenance ids recorded by the summariser,
// or nil when none were recorded.
func (s Summary) OriginalTurnIDs() []string {
	raw, ok := s.Metadata[MetaOriginalTurnIDs]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		// Metadata that round-tripped through JSON decodes as []any.
		ids := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids
	}
	return nil
}

// Conversation is the unit of storage: one per room/interface pair.
// ActiveTurns and ArchivedTurns are insertion-ordered (oldest first);
// Summaries are ordered by creation. ArchivedTurns are retained for audit
// but excluded from prompt formatting.
type Conversation struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	ActiveTurns   []Turn         `json:"activeTurns"`
	Summaries     []Summary      `json:"summaries"`
	ArchivedTurns []Turn         `json:"archivedTurns"`
	RoomID        string         `json:"roomId"`
	Interface     InterfaceType  `json:"interfaceType"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// TieredHistory is a read-only snapshot of all three retention tiers.
type TieredHistory struct {
	ActiveTurns   []Turn
	Summaries     []Summary
	ArchivedTurns []Turn
}

// estimateTokens returns a rough token count for a turn slice. Uses ~4
// characters per token plus a small per-turn overhead for role framing.
// The count is advisory only, no real tokenizer is involved.
func estimateTokens(turns []Turn) int {
	const charsPerToken = 4
	const perTurnOverhead = 8 // two role labels and delimiters

	total := 0
	for _, t := range turns {
		total += (len(t.Query)+len(t.Response))/charsPerToken + perTurnOverhead
	}
	return total
}
