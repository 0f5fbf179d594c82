package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestMemory wires a Memory over the in-memory store with a scripted
// completion client and an already started conversation.
func newTestMemory(t *testing.T, opts Options, client CompletionClient) (*Memory, Store) {
	t.Helper()
	store := NewMemoryStore()
	sum := fastSummarizer(client)
	sum.logger = quietLogger()
	mem, err := New(Config{
		Store:      store,
		Summarizer: sum,
		Options:    opts,
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := mem.StartConversation(context.Background(), "room-test"); err != nil {
		t.Fatalf("StartConversation() error: %v", err)
	}
	return mem, store
}

func okClient() CompletionClient {
	calls := 0
	return completionFunc(func(context.Context, string, string) (string, error) {
		calls++
		return fmt.Sprintf("summary %d", calls), nil
	})
}

// addTurns appends n turns named q1..qn and drains maintenance after each
// append so tier state is settled before the next one.
func addTurns(t *testing.T, mem *Memory, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		q := fmt.Sprintf("q%d", i)
		if _, err := mem.AddTurn(ctx, q, "re: "+q, TurnOptions{UserName: "Alice"}); err != nil {
			t.Fatalf("AddTurn(%s) error: %v", q, err)
		}
		mem.Wait()
	}
}

func TestMemory_RequiresConversation(t *testing.T) {
	store := NewMemoryStore()
	mem, err := New(Config{Store: store, Summarizer: NewLLMSummarizer(nil, quietLogger()), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := mem.AddTurn(context.Background(), "hi", "hello", TurnOptions{}); !errors.Is(err, ErrNoConversation) {
		t.Errorf("AddTurn: expected ErrNoConversation, got %v", err)
	}
	if _, err := mem.History(context.Background(), 0); !errors.Is(err, ErrNoConversation) {
		t.Errorf("History: expected ErrNoConversation, got %v", err)
	}
	if got := mem.FormatHistoryForPrompt(context.Background()); got != "" {
		t.Errorf("FormatHistoryForPrompt: expected empty string, got %q", got)
	}
	if err := mem.ForceSummarize(context.Background()); !errors.Is(err, ErrNoConversation) {
		t.Errorf("ForceSummarize: expected ErrNoConversation, got %v", err)
	}
}

func TestMemory_AddTurnAttribution(t *testing.T) {
	mem, _ := newTestMemory(t, Options{
		DefaultUserID:   "local",
		DefaultUserName: "Operator",
	}, okClient())
	ctx := context.Background()

	defaulted, err := mem.AddTurn(ctx, "no identity", "ok", TurnOptions{})
	if err != nil {
		t.Fatalf("AddTurn() error: %v", err)
	}
	if defaulted.UserID != "local" || defaulted.UserName != "Operator" {
		t.Errorf("defaults not applied: id=%q name=%q", defaulted.UserID, defaulted.UserName)
	}

	explicit, err := mem.AddTurn(ctx, "with identity", "ok", TurnOptions{UserID: "@mira:example.org", UserName: "Mira"})
	if err != nil {
		t.Fatalf("AddTurn() error: %v", err)
	}
	if explicit.UserID != "@mira:example.org" || explicit.UserName != "Mira" {
		t.Errorf("explicit identity overwritten: id=%q name=%q", explicit.UserID, explicit.UserName)
	}
	if explicit.ID == defaulted.ID || explicit.ID == "" {
		t.Errorf("turn ids must be unique, got %q and %q", defaulted.ID, explicit.ID)
	}
	mem.Wait()
}

func TestMemory_AddTurnRejectsEmptyQuery(t *testing.T) {
	mem, _ := newTestMemory(t, Options{}, okClient())

	var vErr *ValidationError
	if _, err := mem.AddTurn(context.Background(), "", "reply", TurnOptions{}); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	mem.Wait()
}

func TestMemory_TierMaintenance(t *testing.T) {
	mem, _ := newTestMemory(t, Options{
		MaxActiveTurns:   5,
		SummaryTurnCount: 3,
	}, okClient())
	ctx := context.Background()

	addTurns(t, mem, 5)
	tiers, err := mem.TieredHistory(ctx, 0)
	if err != nil {
		t.Fatalf("TieredHistory() error: %v", err)
	}
	if len(tiers.ActiveTurns) != 5 || len(tiers.Summaries) != 0 {
		t.Fatalf("no compaction expected at the cap, got %d active / %d summaries",
			len(tiers.ActiveTurns), len(tiers.Summaries))
	}

	// The sixth turn pushes the tier over the cap. The batch brings the
	// active tier down toward 80% of the cap: two turns are compacted.
	addTurns(t, mem, 1)
	tiers, err = mem.TieredHistory(ctx, 0)
	if err != nil {
		t.Fatalf("TieredHistory() error: %v", err)
	}
	if len(tiers.ActiveTurns) != 4 {
		t.Errorf("expected 4 active turns after compaction, got %d", len(tiers.ActiveTurns))
	}
	if len(tiers.Summaries) != 1 {
		t.Fatalf("expected exactly 1 summary, got %d", len(tiers.Summaries))
	}
	sum := tiers.Summaries[0]
	if sum.TurnCount != 2 {
		t.Errorf("summary turnCount = %d, want 2", sum.TurnCount)
	}
	if sum.IsFallback() {
		t.Error("summary must come from the completion client, not the fallback")
	}
	if len(tiers.ArchivedTurns) != 2 ||
		tiers.ArchivedTurns[0].Query != "q1" || tiers.ArchivedTurns[1].Query != "q2" {
		t.Errorf("expected q1 and q2 archived in order, got %+v", tiers.ArchivedTurns)
	}
	if tiers.ActiveTurns[0].Query != "q3" {
		t.Errorf("oldest remaining active turn = %q, want q3", tiers.ActiveTurns[0].Query)
	}
	if ids := sum.OriginalTurnIDs(); len(ids) != 2 || ids[0] != tiers.ArchivedTurns[0].ID {
		t.Errorf("summary must reference the archived turn ids, got %v", ids)
	}
}

func TestMemory_MaintenanceUsesFallbackOnLLMFailure(t *testing.T) {
	failing := completionFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("backend down")
	})
	mem, _ := newTestMemory(t, Options{
		MaxActiveTurns:   5,
		SummaryTurnCount: 3,
	}, failing)

	addTurns(t, mem, 6)
	tiers, err := mem.TieredHistory(context.Background(), 0)
	if err != nil {
		t.Fatalf("TieredHistory() error: %v", err)
	}
	if len(tiers.Summaries) != 1 {
		t.Fatalf("compaction must proceed with the fallback, got %d summaries", len(tiers.Summaries))
	}
	if !tiers.Summaries[0].IsFallback() {
		t.Error("summary must be flagged as fallback")
	}
	if len(tiers.ActiveTurns) != 4 || len(tiers.ArchivedTurns) != 2 {
		t.Errorf("tier sizes unaffected by summarizer mode, got %d active / %d archived",
			len(tiers.ActiveTurns), len(tiers.ArchivedTurns))
	}
}

func TestMemory_SoftCapPruning(t *testing.T) {
	mem, _ := newTestMemory(t, Options{
		MaxActiveTurns:   2,
		SummaryTurnCount: 2,
		MaxSummaries:     1,
		MaxArchivedTurns: 2,
	}, okClient())

	addTurns(t, mem, 5)
	tiers, err := mem.TieredHistory(context.Background(), 0)
	if err != nil {
		t.Fatalf("TieredHistory() error: %v", err)
	}
	if len(tiers.Summaries) != 1 {
		t.Errorf("summary tier over its cap: %d", len(tiers.Summaries))
	}
	if len(tiers.ArchivedTurns) != 2 {
		t.Fatalf("archive tier over its cap: %d", len(tiers.ArchivedTurns))
	}
	// FIFO: the oldest archived turns were evicted first.
	if tiers.ArchivedTurns[0].Query != "q3" || tiers.ArchivedTurns[1].Query != "q4" {
		t.Errorf("expected q3 and q4 to survive pruning, got %q and %q",
			tiers.ArchivedTurns[0].Query, tiers.ArchivedTurns[1].Query)
	}
	if tiers.Summaries[0].Content != "summary 2" {
		t.Errorf("expected the newest summary to survive, got %q", tiers.Summaries[0].Content)
	}
}

func TestMemory_History(t *testing.T) {
	mem, _ := newTestMemory(t, Options{}, okClient())
	addTurns(t, mem, 4)

	all, err := mem.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(all))
	}

	tail, err := mem.History(context.Background(), 2)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(tail) != 2 || tail[0].Query != "q3" || tail[1].Query != "q4" {
		t.Errorf("expected the 2 newest turns, got %+v", tail)
	}
}

func TestMemory_FormatHistoryForPrompt(t *testing.T) {
	mem, _ := newTestMemory(t, Options{
		AnchorID:   "@anchor:example.org",
		AnchorName: "Anchor",
	}, okClient())
	ctx := context.Background()

	if _, err := mem.AddTurn(ctx, "Hello", "Hi", TurnOptions{UserID: "@anchor:example.org", UserName: "Alice"}); err != nil {
		t.Fatalf("AddTurn() error: %v", err)
	}
	if _, err := mem.AddTurn(ctx, "Bye", "See ya", TurnOptions{UserName: "Bob"}); err != nil {
		t.Fatalf("AddTurn() error: %v", err)
	}
	mem.Wait()

	got := mem.FormatHistoryForPrompt(ctx)
	want := "Anchor (Alice): Hello\nAssistant: Hi\n\nBob: Bye\nAssistant: See ya"
	if got != want {
		t.Errorf("FormatHistoryForPrompt() =\n%q\nwant\n%q", got, want)
	}
}

func TestMemory_FormatHistoryIncludesSummaries(t *testing.T) {
	mem, _ := newTestMemory(t, Options{
		MaxActiveTurns:   2,
		SummaryTurnCount: 2,
	}, okClient())
	addTurns(t, mem, 3)

	got := mem.FormatHistoryForPrompt(context.Background())
	if !strings.HasPrefix(got, "CONVERSATION SUMMARIES:\n- summary 1\n") {
		t.Errorf("missing summary block:\n%s", got)
	}
	if !strings.Contains(got, "\nRECENT CONVERSATION:\n") {
		t.Errorf("missing recent conversation header:\n%s", got)
	}
	if !strings.Contains(got, "Alice: q3\nAssistant: re: q3") {
		t.Errorf("missing active turn:\n%s", got)
	}
	if strings.Contains(got, "q1\nAssistant") {
		t.Errorf("archived turn leaked into the prompt:\n%s", got)
	}
}

func TestMemory_EnsureConversationForRoom(t *testing.T) {
	mem, _ := newTestMemory(t, Options{}, okClient())
	ctx := context.Background()

	first, err := mem.EnsureConversationForRoom(ctx, "room-ensure")
	if err != nil {
		t.Fatalf("EnsureConversationForRoom() error: %v", err)
	}
	second, err := mem.EnsureConversationForRoom(ctx, "room-ensure")
	if err != nil {
		t.Fatalf("EnsureConversationForRoom() error: %v", err)
	}
	if first != second {
		t.Errorf("same room must resolve to the same conversation: %s != %s", first, second)
	}
	if mem.CurrentConversationID() != first {
		t.Error("ensured conversation must become current")
	}

	other, err := mem.EnsureConversationForRoom(ctx, "room-other")
	if err != nil {
		t.Fatalf("EnsureConversationForRoom() error: %v", err)
	}
	if other == first {
		t.Error("different rooms must get different conversations")
	}
}

func TestMemory_SwitchConversation(t *testing.T) {
	mem, _ := newTestMemory(t, Options{}, okClient())
	ctx := context.Background()
	original := mem.CurrentConversationID()

	if err := mem.SwitchConversation(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if mem.CurrentConversationID() != original {
		t.Error("failed switch must not move the current pointer")
	}

	other, err := mem.StartConversation(ctx, "room-second")
	if err != nil {
		t.Fatalf("StartConversation() error: %v", err)
	}
	if err := mem.SwitchConversation(ctx, original); err != nil {
		t.Fatalf("SwitchConversation() error: %v", err)
	}
	if mem.CurrentConversationID() != original || original == other {
		t.Error("switch back to the original conversation failed")
	}
}

func TestMemory_DeleteConversationClearsCurrent(t *testing.T) {
	mem, _ := newTestMemory(t, Options{}, okClient())
	ctx := context.Background()
	id := mem.CurrentConversationID()

	deleted, err := mem.DeleteConversation(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("DeleteConversation() = (%v, %v), want (true, nil)", deleted, err)
	}
	if mem.CurrentConversationID() != "" {
		t.Error("deleting the current conversation must clear the pointer")
	}

	deleted, err = mem.DeleteConversation(ctx, id)
	if err != nil || deleted {
		t.Errorf("second delete = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestMemory_ForceSummarize(t *testing.T) {
	mem, _ := newTestMemory(t, Options{}, okClient())
	ctx := context.Background()

	if err := mem.ForceSummarize(ctx); err == nil {
		t.Error("expected an error with fewer than 2 active turns")
	}

	addTurns(t, mem, 4)
	if err := mem.ForceSummarize(ctx); err != nil {
		t.Fatalf("ForceSummarize() error: %v", err)
	}

	tiers, err := mem.TieredHistory(ctx, 0)
	if err != nil {
		t.Fatalf("TieredHistory() error: %v", err)
	}
	if len(tiers.Summaries) != 1 || tiers.Summaries[0].TurnCount != 2 {
		t.Fatalf("expected one summary of the oldest half, got %+v", tiers.Summaries)
	}
	if len(tiers.ActiveTurns) != 2 || tiers.ActiveTurns[0].Query != "q3" {
		t.Errorf("expected q3 and q4 to stay active, got %+v", tiers.ActiveTurns)
	}
}

func TestMemory_IsAnchor(t *testing.T) {
	mem, _ := newTestMemory(t, Options{AnchorID: "@anchor:example.org"}, okClient())
	if !mem.IsAnchor("@anchor:example.org") {
		t.Error("configured anchor id not recognised")
	}
	if mem.IsAnchor("@someone:example.org") {
		t.Error("non-anchor id recognised as anchor")
	}

	noAnchor, _ := newTestMemory(t, Options{}, okClient())
	if noAnchor.IsAnchor("") {
		t.Error("empty anchor configuration must never match")
	}
}
