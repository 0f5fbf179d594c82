package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bdobrica/kioku/internal/kioku/observability"
)

// ErrNoConversation is returned by operations that need an active
// conversation when none has been started or switched to.
var ErrNoConversation = errors.New("memory: no active conversation")

// Config assembles a Memory. Store and Summarizer are injected explicitly;
// there are no process-wide singletons.
type Config struct {
	// Store is the persistence backend. Required.
	Store Store
	// Summarizer compacts turn batches. Required.
	Summarizer Summarizer
	// Interface is the frontend this instance serves. Defaults to cli.
	Interface InterfaceType
	// Options tunes retention; zero numeric fields use defaults. Anchor
	// identity must already be resolved here; see the config package.
	Options Options
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics is optional; nil records nothing.
	Metrics *observability.Metrics
}

// Memory orchestrates one active conversation: it appends turns, runs
// tier maintenance after each append, and formats history for prompts.
// It holds no authoritative conversation state; every read goes through
// the store.
//
// A Memory is intended for a single logical owner. Its own bookkeeping is
// mutex-guarded, and maintenance runs on a background goroutine serialised
// per instance, but concurrent AddTurn calls against the same conversation
// from independent Memory instances still race on the store's
// read-modify-write; a multi-writer deployment needs a backend that
// serialises per conversation.
type Memory struct {
	store      Store
	summarizer Summarizer
	iface      InterfaceType
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu        sync.Mutex
	currentID string

	maintMu sync.Mutex // serialises maintenance runs
	wg      sync.WaitGroup
}

// New validates cfg and creates a Memory with no active conversation.
func New(cfg Config) (*Memory, error) {
	if cfg.Store == nil {
		return nil, errors.New("memory: store is required")
	}
	if cfg.Summarizer == nil {
		return nil, errors.New("memory: summarizer is required")
	}
	if cfg.Interface == "" {
		cfg.Interface = InterfaceCLI
	}
	if !cfg.Interface.Valid() {
		return nil, fmt.Errorf("memory: unknown interface type %q", cfg.Interface)
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Memory{
		store:      cfg.Store,
		summarizer: cfg.Summarizer,
		iface:      cfg.Interface,
		opts:       cfg.Options.normalized(),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// StartConversation creates a new conversation for the room and makes it
// current.
func (m *Memory) StartConversation(ctx context.Context, roomID string) (string, error) {
	conv, err := m.store.CreateConversation(ctx, CreateParams{RoomID: roomID, Interface: m.iface})
	if err != nil {
		return "", err
	}
	m.setCurrent(conv.ID)
	return conv.ID, nil
}

// EnsureConversationForRoom returns the room's existing conversation id,
// creating one only on a miss. Either way the conversation becomes
// current.
func (m *Memory) EnsureConversationForRoom(ctx context.Context, roomID string) (string, error) {
	conv, err := m.store.ConversationByRoom(ctx, roomID)
	if err == nil {
		m.setCurrent(conv.ID)
		return conv.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	return m.StartConversation(ctx, roomID)
}

// SwitchConversation makes an existing conversation current. Fails with
// ErrNotFound when the id does not exist.
func (m *Memory) SwitchConversation(ctx context.Context, id string) error {
	if _, err := m.store.Conversation(ctx, id); err != nil {
		return err
	}
	m.setCurrent(id)
	return nil
}

// EndConversation clears the current pointer. Stored data is untouched.
func (m *Memory) EndConversation() {
	m.setCurrent("")
}

// CurrentConversationID returns the current conversation id, or "".
func (m *Memory) CurrentConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// TurnOptions carries optional attribution and metadata for AddTurn.
type TurnOptions struct {
	UserID   string
	UserName string
	Metadata map[string]any
}

// AddTurn appends a query/response exchange to the current conversation.
// The turn is durably stored before tier maintenance is scheduled, so a
// slow or failing summarisation backend can never lose or delay the turn
// itself. Maintenance runs on a background goroutine; call Wait to drain
// it before shutdown.
func (m *Memory) AddTurn(ctx context.Context, query, response string, opts TurnOptions) (Turn, error) {
	conversationID := m.CurrentConversationID()
	if conversationID == "" {
		return Turn{}, ErrNoConversation
	}

	if opts.UserID == "" {
		opts.UserID = m.opts.DefaultUserID
	}
	if opts.UserName == "" {
		opts.UserName = m.opts.DefaultUserName
	}

	conv, err := m.store.AddTurn(ctx, conversationID, Turn{
		Query:    query,
		Response: response,
		UserID:   opts.UserID,
		UserName: opts.UserName,
		Metadata: opts.Metadata,
	})
	if err != nil {
		return Turn{}, err
	}
	stored := conv.ActiveTurns[len(conv.ActiveTurns)-1]
	m.metrics.RecordTurn()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.maintainTiers(context.WithoutCancel(ctx), conversationID)
	}()

	return stored, nil
}

// Wait blocks until all scheduled maintenance runs have finished.
func (m *Memory) Wait() {
	m.wg.Wait()
}

// IsAnchor reports whether userID is the configured privileged user.
func (m *Memory) IsAnchor(userID string) bool {
	return m.opts.AnchorID != "" && userID == m.opts.AnchorID
}

// History returns the most recent active turns, newest-last. maxTurns <= 0
// returns them all.
func (m *Memory) History(ctx context.Context, maxTurns int) ([]Turn, error) {
	conv, err := m.currentConversation(ctx)
	if err != nil {
		return nil, err
	}
	turns := conv.ActiveTurns
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	return turns, nil
}

// TieredHistory returns a snapshot of all three tiers. maxActive <= 0
// returns the full active tier; otherwise the most recent maxActive turns.
func (m *Memory) TieredHistory(ctx context.Context, maxActive int) (*TieredHistory, error) {
	conv, err := m.currentConversation(ctx)
	if err != nil {
		return nil, err
	}
	active := conv.ActiveTurns
	if maxActive > 0 && len(active) > maxActive {
		active = active[len(active)-maxActive:]
	}
	return &TieredHistory{
		ActiveTurns:   active,
		Summaries:     conv.Summaries,
		ArchivedTurns: conv.ArchivedTurns,
	}, nil
}

// FormatHistoryForPrompt renders the current conversation for direct
// inclusion in an LLM prompt. It returns "" when there is no active
// conversation or when the read fails; failures are logged, never
// surfaced, so prompt assembly can always proceed.
func (m *Memory) FormatHistoryForPrompt(ctx context.Context) string {
	conversationID := m.CurrentConversationID()
	if conversationID == "" {
		return ""
	}
	conv, err := m.store.Conversation(ctx, conversationID)
	if err != nil {
		m.logger.Error("memory: failed to read conversation for prompt formatting",
			"conversation_id", conversationID, "err", err)
		return ""
	}

	if est := estimateTokens(conv.ActiveTurns); m.opts.MaxTokens > 0 && est > m.opts.MaxTokens {
		m.logger.Warn("memory: formatted history exceeds advisory token budget",
			"conversation_id", conversationID, "estimated_tokens", est, "max_tokens", m.opts.MaxTokens)
	}

	return formatHistoryForPrompt(conv, m.opts)
}

// ForceSummarize compacts the oldest half of the active tier (at least
// two turns) regardless of the maintenance threshold. Intended for manual
// administration and tests.
func (m *Memory) ForceSummarize(ctx context.Context) error {
	conversationID := m.CurrentConversationID()
	if conversationID == "" {
		return ErrNoConversation
	}

	m.maintMu.Lock()
	defer m.maintMu.Unlock()

	conv, err := m.store.Conversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(conv.ActiveTurns) < 2 {
		return fmt.Errorf("memory: need at least 2 active turns to summarize, have %d", len(conv.ActiveTurns))
	}
	n := len(conv.ActiveTurns) / 2
	if n < 2 {
		n = 2
	}
	return m.summarizeAndArchive(ctx, conversationID, conv.ActiveTurns[:n])
}

// RecentConversations lists conversations most recently updated first.
func (m *Memory) RecentConversations(ctx context.Context, q RecentQuery) ([]*Conversation, error) {
	return m.store.RecentConversations(ctx, q)
}

// UpdateMetadata shallow-merges patch into the conversation's metadata.
func (m *Memory) UpdateMetadata(ctx context.Context, id string, patch map[string]any) (*Conversation, error) {
	return m.store.UpdateMetadata(ctx, id, patch)
}

// DeleteConversation removes a conversation and its room index entry. The
// current pointer is cleared when it referenced the deleted conversation.
func (m *Memory) DeleteConversation(ctx context.Context, id string) (bool, error) {
	deleted, err := m.store.DeleteConversation(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted && m.CurrentConversationID() == id {
		m.setCurrent("")
	}
	return deleted, nil
}

// --- tier maintenance ---

// maintainTiers runs the post-append check: compact the active tier when
// it exceeds its cap, then prune the soft-capped tiers. Failures are
// logged and counted but never propagate; the triggering turn is already
// durable.
func (m *Memory) maintainTiers(ctx context.Context, conversationID string) {
	m.maintMu.Lock()
	defer m.maintMu.Unlock()

	if err := m.compactActiveTier(ctx, conversationID); err != nil {
		m.metrics.RecordMaintenanceFailure()
		m.logger.Error("memory: tier compaction failed",
			"conversation_id", conversationID, "err", err)
	}
	if err := m.pruneSoftCaps(ctx, conversationID); err != nil {
		m.metrics.RecordMaintenanceFailure()
		m.logger.Error("memory: tier pruning failed",
			"conversation_id", conversationID, "err", err)
	}
}

// compactActiveTier summarises the oldest turns when the active tier has
// outgrown MaxActiveTurns. The batch size aims to bring the tier down to
// 80% of the cap but never exceeds SummaryTurnCount; batches below two
// turns are skipped because a summary of one exchange carries no value.
func (m *Memory) compactActiveTier(ctx context.Context, conversationID string) error {
	conv, err := m.store.Conversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(conv.ActiveTurns) <= m.opts.MaxActiveTurns {
		return nil
	}

	target := m.opts.MaxActiveTurns * 8 / 10
	excess := len(conv.ActiveTurns) - target
	if excess > m.opts.SummaryTurnCount {
		excess = m.opts.SummaryTurnCount
	}
	if excess < 2 {
		return nil
	}

	return m.summarizeAndArchive(ctx, conversationID, conv.ActiveTurns[:excess])
}

// summarizeAndArchive compacts batch into one summary and moves the
// source turns to the archive by id. Callers must hold maintMu.
func (m *Memory) summarizeAndArchive(ctx context.Context, conversationID string, batch []Turn) error {
	summary, err := m.summarizer.SummarizeTurns(ctx, batch)
	if err != nil {
		return fmt.Errorf("summarize %d turns: %w", len(batch), err)
	}
	if _, err := m.store.AddSummary(ctx, conversationID, summary); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}

	ids := make([]string, len(batch))
	for i, t := range batch {
		ids[i] = t.ID
	}
	if _, err := m.store.ArchiveTurns(ctx, conversationID, ids); err != nil {
		return fmt.Errorf("archive summarized turns: %w", err)
	}

	m.metrics.RecordSummary(summary.IsFallback())
	m.logger.Info("memory: compacted active turns",
		"conversation_id", conversationID,
		"turns", len(batch),
		"fallback", summary.IsFallback())
	return nil
}

// pruneSoftCaps FIFO-evicts summaries and archived turns beyond their
// caps. Growth past the caps is bounded here rather than merely logged;
// the durable backend keeps the full audit trail.
func (m *Memory) pruneSoftCaps(ctx context.Context, conversationID string) error {
	conv, err := m.store.Conversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(conv.Summaries) <= m.opts.MaxSummaries && len(conv.ArchivedTurns) <= m.opts.MaxArchivedTurns {
		return nil
	}

	result, err := m.store.PruneTiers(ctx, conversationID, m.opts.MaxSummaries, m.opts.MaxArchivedTurns)
	if err != nil {
		return err
	}
	m.metrics.RecordEvictions("summary", result.SummariesRemoved)
	m.metrics.RecordEvictions("archive", result.TurnsRemoved)
	m.logger.Info("memory: pruned soft-capped tiers",
		"conversation_id", conversationID,
		"summaries_removed", result.SummariesRemoved,
		"archived_turns_removed", result.TurnsRemoved)
	return nil
}

func (m *Memory) currentConversation(ctx context.Context) (*Conversation, error) {
	conversationID := m.CurrentConversationID()
	if conversationID == "" {
		return nil, ErrNoConversation
	}
	return m.store.Conversation(ctx, conversationID)
}

func (m *Memory) setCurrent(id string) {
	m.mu.Lock()
	m.currentID = id
	m.mu.Unlock()
}
