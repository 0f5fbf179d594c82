package memory

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is the durable Store backend. Timestamps are stored as
// RFC 3339 strings and metadata as JSON text, matching the shapes the
// schema validator already enforces.
//
// SQLite is single-writer by design; the store keeps one shared
// connection so database/sql serialises concurrent callers instead of
// letting them fight over write locks.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and applies any
// pending migrations. A nil logger uses slog.Default().
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite store: set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate applies pending migrations from the embedded directory, tracked
// through a schema_migrations table.
func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  TEXT NOT NULL,
			description TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("sqlite store: create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("sqlite store: read schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("sqlite store: read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("sqlite store: read migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("sqlite store: begin migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite store: apply migration %d: %w", version, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			version, time.Now().UTC().Format(time.RFC3339), strings.TrimSuffix(parts[1], ".sql"),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite store: record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlite store: commit migration %d: %w", version, err)
		}
		s.logger.Info("sqlite store: applied migration", "version", version, "name", name)
	}
	return nil
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, params CreateParams) (*Conversation, error) {
	if err := ValidateCreateParams(params); err != nil {
		return nil, err
	}

	var existing string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM conversations WHERE room_id = ?", params.RoomID).Scan(&existing)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrRoomExists, params.RoomID)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("sqlite store: check room index: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	metadata, err := marshalMetadata(params.Metadata)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, room_id, interface_type, created_at, updated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, params.RoomID, string(params.Interface), formatTime(now), formatTime(now), metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: insert conversation: %w", err)
	}

	return s.Conversation(ctx, id)
}

func (s *SQLiteStore) Conversation(ctx context.Context, id string) (*Conversation, error) {
	conv, err := s.scanConversationRow(ctx, "SELECT id, room_id, interface_type, created_at, updated_at, metadata FROM conversations WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if err := s.loadTiers(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *SQLiteStore) ConversationByRoom(ctx context.Context, roomID string) (*Conversation, error) {
	conv, err := s.scanConversationRow(ctx, "SELECT id, room_id, interface_type, created_at, updated_at, metadata FROM conversations WHERE room_id = ?", roomID)
	if err != nil {
		return nil, err
	}
	if err := s.loadTiers(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *SQLiteStore) AddTurn(ctx context.Context, conversationID string, turn Turn) (*Conversation, error) {
	now := time.Now().UTC()
	turn.ID = uuid.NewString()
	if turn.Timestamp.IsZero() {
		turn.Timestamp = now
	}
	if err := ValidateTurn(turn); err != nil {
		return nil, err
	}
	metadata, err := marshalMetadata(turn.Metadata)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: begin add turn: %w", err)
	}
	defer tx.Rollback()

	if err := conversationExists(ctx, tx, conversationID); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (id, conversation_id, tier, position, timestamp, query, response, user_id, user_name, metadata)
		VALUES (?, ?, 'active',
			(SELECT COALESCE(MAX(position), 0) + 1 FROM turns WHERE conversation_id = ?),
			?, ?, ?, ?, ?, ?)`,
		turn.ID, conversationID, conversationID,
		formatTime(turn.Timestamp), turn.Query, turn.Response,
		nullable(turn.UserID), nullable(turn.UserName), metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: insert turn: %w", err)
	}
	if err := touchConversation(ctx, tx, conversationID, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite store: commit add turn: %w", err)
	}

	return s.Conversation(ctx, conversationID)
}

func (s *SQLiteStore) AddSummary(ctx context.Context, conversationID string, summary Summary) (*Conversation, error) {
	now := time.Now().UTC()
	summary.ID = uuid.NewString()
	if summary.Timestamp.IsZero() {
		summary.Timestamp = now
	}
	if err := ValidateSummary(summary); err != nil {
		return nil, err
	}
	metadata, err := marshalMetadata(summary.Metadata)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: begin add summary: %w", err)
	}
	defer tx.Rollback()

	if err := conversationExists(ctx, tx, conversationID); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO summaries (id, conversation_id, position, timestamp, content,
			start_turn_index, end_turn_index, start_timestamp, end_timestamp, turn_count, metadata)
		VALUES (?, ?,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM summaries WHERE conversation_id = ?),
			?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, conversationID, conversationID,
		formatTime(summary.Timestamp), summary.Content,
		summary.StartTurnIndex, summary.EndTurnIndex,
		formatTime(summary.StartTimestamp), formatTime(summary.EndTimestamp),
		summary.TurnCount, metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: insert summary: %w", err)
	}
	if err := touchConversation(ctx, tx, conversationID, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite store: commit add summary: %w", err)
	}

	return s.Conversation(ctx, conversationID)
}

func (s *SQLiteStore) ArchiveTurns(ctx context.Context, conversationID string, turnIDs []string) (*Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: begin archive: %w", err)
	}
	defer tx.Rollback()

	if err := conversationExists(ctx, tx, conversationID); err != nil {
		return nil, err
	}

	active := make(map[string]bool)
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM turns WHERE conversation_id = ? AND tier = 'active'", conversationID)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list active turns: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite store: scan turn id: %w", err)
		}
		active[id] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite store: iterate turn ids: %w", err)
	}
	rows.Close()

	for _, id := range turnIDs {
		if !active[id] {
			return nil, fmt.Errorf("memory: turn %s is not in the active tier of conversation %s", id, conversationID)
		}
	}

	if len(turnIDs) > 0 {
		placeholders := strings.Repeat("?,", len(turnIDs))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, 0, len(turnIDs)+1)
		args = append(args, conversationID)
		for _, id := range turnIDs {
			args = append(args, id)
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE turns SET tier = 'archived' WHERE conversation_id = ? AND id IN ("+placeholders+")",
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: archive turns: %w", err)
		}
	}

	if err := touchConversation(ctx, tx, conversationID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite store: commit archive: %w", err)
	}

	return s.Conversation(ctx, conversationID)
}

func (s *SQLiteStore) RecentConversations(ctx context.Context, q RecentQuery) ([]*Conversation, error) {
	query := "SELECT id FROM conversations"
	var args []any
	if q.Interface != "" {
		query += " WHERE interface_type = ?"
		args = append(args, string(q.Interface))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list conversations: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite store: scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite store: iterate conversation ids: %w", err)
	}
	rows.Close()

	result := make([]*Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.Conversation(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, conv)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("sqlite store: delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite store: rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) UpdateMetadata(ctx context.Context, id string, patch map[string]any) (*Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: begin metadata update: %w", err)
	}
	defer tx.Rollback()

	var raw sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT metadata FROM conversations WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: read metadata: %w", err)
	}

	merged := make(map[string]any)
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &merged); err != nil {
			return nil, fmt.Errorf("sqlite store: decode metadata: %w", err)
		}
	}
	for k, v := range patch {
		merged[k] = v
	}

	metadata, err := marshalMetadata(merged)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE conversations SET metadata = ?, updated_at = ? WHERE id = ?",
		metadata, formatTime(time.Now().UTC()), id,
	); err != nil {
		return nil, fmt.Errorf("sqlite store: write metadata: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite store: commit metadata update: %w", err)
	}

	return s.Conversation(ctx, id)
}

func (s *SQLiteStore) PruneTiers(ctx context.Context, id string, maxSummaries, maxArchived int) (PruneResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PruneResult{}, fmt.Errorf("sqlite store: begin prune: %w", err)
	}
	defer tx.Rollback()

	if err := conversationExists(ctx, tx, id); err != nil {
		return PruneResult{}, err
	}

	var result PruneResult
	if maxSummaries >= 0 {
		n, err := pruneOldest(ctx, tx, "summaries", id, maxSummaries)
		if err != nil {
			return PruneResult{}, err
		}
		result.SummariesRemoved = n
	}
	if maxArchived >= 0 {
		n, err := pruneOldestTurns(ctx, tx, id, maxArchived)
		if err != nil {
			return PruneResult{}, err
		}
		result.TurnsRemoved = n
	}

	if result.SummariesRemoved > 0 || result.TurnsRemoved > 0 {
		if err := touchConversation(ctx, tx, id, time.Now().UTC()); err != nil {
			return PruneResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return PruneResult{}, fmt.Errorf("sqlite store: commit prune: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers ---

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func conversationExists(ctx context.Context, q execQuerier, id string) error {
	var found string
	err := q.QueryRowContext(ctx, "SELECT id FROM conversations WHERE id = ?", id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("sqlite store: check conversation: %w", err)
	}
	return nil
}

func touchConversation(ctx context.Context, q execQuerier, id string, now time.Time) error {
	if _, err := q.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?", formatTime(now), id); err != nil {
		return fmt.Errorf("sqlite store: touch conversation: %w", err)
	}
	return nil
}

// pruneOldest deletes the lowest-position summaries beyond max.
func pruneOldest(ctx context.Context, q execQuerier, table, conversationID string, max int) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+" WHERE conversation_id = ?", conversationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite store: count %s: %w", table, err)
	}
	if count <= max {
		return 0, nil
	}
	excess := count - max
	res, err := q.ExecContext(ctx, `
		DELETE FROM `+table+` WHERE conversation_id = ? AND position IN (
			SELECT position FROM `+table+` WHERE conversation_id = ?
			ORDER BY position ASC LIMIT ?
		)`,
		conversationID, conversationID, excess,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite store: prune %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite store: rows affected: %w", err)
	}
	return int(n), nil
}

// pruneOldestTurns deletes the lowest-position archived turns beyond max.
func pruneOldestTurns(ctx context.Context, q execQuerier, conversationID string, max int) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM turns WHERE conversation_id = ? AND tier = 'archived'", conversationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite store: count archived turns: %w", err)
	}
	if count <= max {
		return 0, nil
	}
	excess := count - max
	res, err := q.ExecContext(ctx, `
		DELETE FROM turns WHERE conversation_id = ? AND tier = 'archived' AND position IN (
			SELECT position FROM turns WHERE conversation_id = ? AND tier = 'archived'
			ORDER BY position ASC LIMIT ?
		)`,
		conversationID, conversationID, excess,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite store: prune archived turns: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite store: rows affected: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) scanConversationRow(ctx context.Context, query, arg string) (*Conversation, error) {
	var (
		conv      Conversation
		iface     string
		createdAt string
		updatedAt string
		metadata  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&conv.ID, &conv.RoomID, &iface, &createdAt, &updatedAt, &metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: scan conversation: %w", err)
	}

	conv.Interface = InterfaceType(iface)
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("sqlite store: parse created_at: %w", err)
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("sqlite store: parse updated_at: %w", err)
	}
	if conv.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *SQLiteStore) loadTiers(ctx context.Context, conv *Conversation) error {
	for _, tier := range []struct {
		name string
		dst  *[]Turn
	}{
		{"active", &conv.ActiveTurns},
		{"archived", &conv.ArchivedTurns},
	} {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, timestamp, query, response, user_id, user_name, metadata
			FROM turns WHERE conversation_id = ? AND tier = ?
			ORDER BY position ASC`,
			conv.ID, tier.name,
		)
		if err != nil {
			return fmt.Errorf("sqlite store: load %s turns: %w", tier.name, err)
		}
		turns, err := scanTurns(rows)
		rows.Close()
		if err != nil {
			return err
		}
		*tier.dst = turns
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, content, start_turn_index, end_turn_index,
			start_timestamp, end_timestamp, turn_count, metadata
		FROM summaries WHERE conversation_id = ?
		ORDER BY position ASC`,
		conv.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite store: load summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sum       Summary
			ts        string
			startTs   string
			endTs     string
			metadata  sql.NullString
			parseErrs error
		)
		if err := rows.Scan(&sum.ID, &ts, &sum.Content,
			&sum.StartTurnIndex, &sum.EndTurnIndex,
			&startTs, &endTs, &sum.TurnCount, &metadata); err != nil {
			return fmt.Errorf("sqlite store: scan summary: %w", err)
		}
		if sum.Timestamp, parseErrs = parseTime(ts); parseErrs != nil {
			return fmt.Errorf("sqlite store: parse summary timestamp: %w", parseErrs)
		}
		if sum.StartTimestamp, parseErrs = parseTime(startTs); parseErrs != nil {
			return fmt.Errorf("sqlite store: parse summary start: %w", parseErrs)
		}
		if sum.EndTimestamp, parseErrs = parseTime(endTs); parseErrs != nil {
			return fmt.Errorf("sqlite store: parse summary end: %w", parseErrs)
		}
		if sum.Metadata, parseErrs = unmarshalMetadata(metadata); parseErrs != nil {
			return parseErrs
		}
		conv.Summaries = append(conv.Summaries, sum)
	}
	return rows.Err()
}

func scanTurns(rows *sql.Rows) ([]Turn, error) {
	var turns []Turn
	for rows.Next() {
		var (
			t        Turn
			ts       string
			userID   sql.NullString
			userName sql.NullString
			metadata sql.NullString
		)
		if err := rows.Scan(&t.ID, &ts, &t.Query, &t.Response, &userID, &userName, &metadata); err != nil {
			return nil, fmt.Errorf("sqlite store: scan turn: %w", err)
		}
		var err error
		if t.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("sqlite store: parse turn timestamp: %w", err)
		}
		t.UserID = userID.String
		t.UserName = userName.String
		if t.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: marshal metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	m := make(map[string]any)
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		return nil, fmt.Errorf("sqlite store: unmarshal metadata: %w", err)
	}
	return m, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)
