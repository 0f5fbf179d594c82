package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-process reference Store. It is safe for concurrent
// use and returns deep-copied snapshots so callers can never mutate stored
// state. Construct one per deployment (or per test); there is no hidden
// shared instance.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	rooms         map[string]string // roomID -> conversation id

	now func() time.Time // injectable clock for tests
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
		rooms:         make(map[string]string),
		now:           time.Now,
	}
}

func (s *MemoryStore) CreateConversation(_ context.Context, params CreateParams) (*Conversation, error) {
	if err := ValidateCreateParams(params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.rooms[params.RoomID]; taken {
		return nil, fmt.Errorf("%w: %s", ErrRoomExists, params.RoomID)
	}

	now := s.now()
	conv := &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		RoomID:    params.RoomID,
		Interface: params.Interface,
		Metadata:  maps.Clone(params.Metadata),
	}
	s.conversations[conv.ID] = conv
	s.rooms[conv.RoomID] = conv.ID

	return cloneConversation(conv), nil
}

func (s *MemoryStore) Conversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) ConversationByRoom(_ context.Context, roomID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}
	return cloneConversation(s.conversations[id]), nil
}

func (s *MemoryStore) AddTurn(_ context.Context, conversationID string, turn Turn) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}

	now := s.now()
	turn.ID = uuid.NewString()
	if turn.Timestamp.IsZero() {
		turn.Timestamp = now
	}
	if err := ValidateTurn(turn); err != nil {
		return nil, err
	}

	conv.ActiveTurns = append(conv.ActiveTurns, cloneTurn(turn))
	conv.UpdatedAt = now

	return cloneConversation(conv), nil
}

func (s *MemoryStore) AddSummary(_ context.Context, conversationID string, summary Summary) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}

	now := s.now()
	summary.ID = uuid.NewString()
	if summary.Timestamp.IsZero() {
		summary.Timestamp = now
	}
	if err := ValidateSummary(summary); err != nil {
		return nil, err
	}

	conv.Summaries = append(conv.Summaries, cloneSummary(summary))
	conv.UpdatedAt = now

	return cloneConversation(conv), nil
}

func (s *MemoryStore) ArchiveTurns(_ context.Context, conversationID string, turnIDs []string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}

	wanted := make(map[string]bool, len(turnIDs))
	for _, id := range turnIDs {
		wanted[id] = true
	}

	// Split the active tier in one pass so the moved turns keep their
	// chronological order at the archive tail.
	var remaining, moved []Turn
	for _, t := range conv.ActiveTurns {
		if wanted[t.ID] {
			moved = append(moved, t)
			delete(wanted, t.ID)
		} else {
			remaining = append(remaining, t)
		}
	}
	if len(wanted) > 0 {
		for id := range wanted {
			return nil, fmt.Errorf("memory: turn %s is not in the active tier of conversation %s", id, conversationID)
		}
	}

	conv.ActiveTurns = remaining
	conv.ArchivedTurns = append(conv.ArchivedTurns, moved...)
	conv.UpdatedAt = s.now()

	return cloneConversation(conv), nil
}

func (s *MemoryStore) RecentConversations(_ context.Context, q RecentQuery) ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if q.Interface != "" && conv.Interface != q.Interface {
			continue
		}
		result = append(result, cloneConversation(conv))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (s *MemoryStore) DeleteConversation(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return false, nil
	}
	delete(s.conversations, id)
	delete(s.rooms, conv.RoomID)
	return true, nil
}

func (s *MemoryStore) UpdateMetadata(_ context.Context, id string, patch map[string]any) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if len(patch) > 0 {
		if conv.Metadata == nil {
			conv.Metadata = make(map[string]any, len(patch))
		}
		maps.Copy(conv.Metadata, patch)
	}
	conv.UpdatedAt = s.now()

	return cloneConversation(conv), nil
}

func (s *MemoryStore) PruneTiers(_ context.Context, id string, maxSummaries, maxArchived int) (PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return PruneResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var result PruneResult
	if maxSummaries >= 0 && len(conv.Summaries) > maxSummaries {
		result.SummariesRemoved = len(conv.Summaries) - maxSummaries
		conv.Summaries = append([]Summary(nil), conv.Summaries[result.SummariesRemoved:]...)
	}
	if maxArchived >= 0 && len(conv.ArchivedTurns) > maxArchived {
		result.TurnsRemoved = len(conv.ArchivedTurns) - maxArchived
		conv.ArchivedTurns = append([]Turn(nil), conv.ArchivedTurns[result.TurnsRemoved:]...)
	}
	if result.SummariesRemoved > 0 || result.TurnsRemoved > 0 {
		conv.UpdatedAt = s.now()
	}

	return result, nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error { return nil }

// --- snapshot helpers ---

func cloneTurn(t Turn) Turn {
	t.Metadata = maps.Clone(t.Metadata)
	return t
}

func cloneSummary(s Summary) Summary {
	s.Metadata = maps.Clone(s.Metadata)
	return s
}

func cloneConversation(c *Conversation) *Conversation {
	cp := *c
	cp.Metadata = maps.Clone(c.Metadata)
	cp.ActiveTurns = make([]Turn, len(c.ActiveTurns))
	for i, t := range c.ActiveTurns {
		cp.ActiveTurns[i] = cloneTurn(t)
	}
	cp.ArchivedTurns = make([]Turn, len(c.ArchivedTurns))
	for i, t := range c.ArchivedTurns {
		cp.ArchivedTurns[i] = cloneTurn(t)
	}
	cp.Summaries = make([]Summary, len(c.Summaries))
	for i, s := range c.Summaries {
		cp.Summaries[i] = cloneSummary(s)
	}
	return &cp
}

// Compile-time interface satisfaction check.
var _ Store = (*MemoryStore)(nil)
