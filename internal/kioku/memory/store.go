package memory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an operation references a conversation id
// or room that does not exist.
var ErrNotFound = errors.New("memory: conversation not found")

// ErrRoomExists is returned by CreateConversation when the room already
// has a conversation. Rooms map to conversations one-to-one.
var ErrRoomExists = errors.New("memory: room already has a conversation")

// CreateParams are the inputs to CreateConversation.
type CreateParams struct {
	RoomID    string         `json:"roomId"`
	Interface InterfaceType  `json:"interfaceType"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RecentQuery filters and bounds RecentConversations. The zero value
// returns every conversation, most recently updated first.
type RecentQuery struct {
	// Limit truncates the result when positive.
	Limit int
	// Interface filters by frontend when non-empty.
	Interface InterfaceType
}

// PruneResult reports what a PruneTiers call removed.
type PruneResult struct {
	SummariesRemoved int
	TurnsRemoved     int
}

// Store is the persistence contract for conversations. Implementations are
// pure data plumbing: id generation, schema validation at every mutation,
// tier bookkeeping, and the room→conversation index. Retention policy
// (when to summarise, what to prune) lives in Memory, never here.
//
// Every mutation refreshes the conversation's UpdatedAt. Reads return
// snapshots the caller may freely mutate.
type Store interface {
	// CreateConversation makes a new conversation with all tiers empty and
	// indexes it by room. Fails with a ValidationError on bad params and
	// with ErrRoomExists when the room is already claimed.
	CreateConversation(ctx context.Context, params CreateParams) (*Conversation, error)

	// Conversation returns the conversation with the given id, or
	// ErrNotFound.
	Conversation(ctx context.Context, id string) (*Conversation, error)

	// ConversationByRoom resolves the room index, or ErrNotFound.
	ConversationByRoom(ctx context.Context, roomID string) (*Conversation, error)

	// AddTurn assigns the turn an id (and a timestamp when unset),
	// validates it, and appends it to the active tier. Returns the updated
	// conversation.
	AddTurn(ctx context.Context, conversationID string, turn Turn) (*Conversation, error)

	// AddSummary assigns the summary an id, validates it, and appends it to
	// the summary tier.
	AddSummary(ctx context.Context, conversationID string, summary Summary) (*Conversation, error)

	// ArchiveTurns moves the identified turns from the active tier to the
	// tail of the archive, preserving their chronological order. Every id
	// must name a turn currently in the active tier.
	ArchiveTurns(ctx context.Context, conversationID string, turnIDs []string) (*Conversation, error)

	// RecentConversations lists conversations sorted by UpdatedAt
	// descending, filtered and truncated per the query.
	RecentConversations(ctx context.Context, q RecentQuery) ([]*Conversation, error)

	// DeleteConversation removes the conversation and its room index entry.
	// Returns false when the id does not exist.
	DeleteConversation(ctx context.Context, id string) (bool, error)

	// UpdateMetadata shallow-merges patch into the conversation's metadata.
	UpdateMetadata(ctx context.Context, id string, patch map[string]any) (*Conversation, error)

	// PruneTiers drops the oldest summaries beyond maxSummaries and the
	// oldest archived turns beyond maxArchived. A negative cap leaves that
	// tier untouched.
	PruneTiers(ctx context.Context, id string, maxSummaries, maxArchived int) (PruneResult, error)

	// Close releases any resources held by the backend.
	Close() error
}
