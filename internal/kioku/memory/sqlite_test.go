package memory

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) error: %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return newTestSQLiteStore(t, filepath.Join(t.TempDir(), "kioku.db"))
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kioku.db")

	s, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	conv, err := s.CreateConversation(ctx, CreateParams{
		RoomID:    "room-persist",
		Interface: InterfaceCLI,
		Metadata:  map[string]any{"label": "weekend chat"},
	})
	if err != nil {
		t.Fatalf("CreateConversation() error: %v", err)
	}
	var turnID string
	for _, q := range []string{"alpha", "beta", "gamma"} {
		updated, err := s.AddTurn(ctx, conv.ID, Turn{Query: q, Response: "ack", UserName: "Mira"})
		if err != nil {
			t.Fatalf("AddTurn(%q) error: %v", q, err)
		}
		turnID = updated.ActiveTurns[0].ID
	}
	if _, err := s.ArchiveTurns(ctx, conv.ID, []string{turnID}); err != nil {
		t.Fatalf("ArchiveTurns() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// Reopening runs the migrations again against an already migrated
	// file and must come back with the same state.
	reopened := newTestSQLiteStore(t, path)
	got, err := reopened.ConversationByRoom(ctx, "room-persist")
	if err != nil {
		t.Fatalf("ConversationByRoom() after reopen: %v", err)
	}
	if got.ID != conv.ID {
		t.Errorf("conversation id changed across reopen: %s != %s", got.ID, conv.ID)
	}
	if len(got.ActiveTurns) != 2 || len(got.ArchivedTurns) != 1 {
		t.Fatalf("expected 2 active / 1 archived after reopen, got %d / %d",
			len(got.ActiveTurns), len(got.ArchivedTurns))
	}
	if got.ActiveTurns[0].Query != "beta" || got.ActiveTurns[1].Query != "gamma" {
		t.Error("active turn order lost across reopen")
	}
	if got.ArchivedTurns[0].Query != "alpha" || got.ArchivedTurns[0].UserName != "Mira" {
		t.Errorf("archived turn fields lost across reopen: %+v", got.ArchivedTurns[0])
	}
	if got.Metadata["label"] != "weekend chat" {
		t.Errorf("metadata lost across reopen: %v", got.Metadata)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("implausible timestamps after reopen: created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}
}
