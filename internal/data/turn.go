package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// turnRepo implements the conversation store on SQLite
type turnRepo struct {
	db *sql.DB
}

// NewTurnRepo opens (or creates) the SQLite conversation store
func NewTurnRepo(dbPath string) (repo.TurnRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single connection: concurrent writers would hit SQLITE_BUSY
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			response TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_conversations_chat_time ON conversations(chat_id, timestamp)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &turnRepo{db: db}, nil
}

// Append inserts one turn
func (r *turnRepo) Append(ctx context.Context, turn *domain.Turn) error {
	if !turn.Valid() {
		return fmt.Errorf("invalid turn for chat %q: message and response are required", turn.ChatID)
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, chat_id, user_id, username, message, response, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, turn.ID, turn.ChatID, turn.UserID, turn.Username, turn.Message, turn.Response, turn.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// Recent returns the newest turns of a chat, oldest first
func (r *turnRepo) Recent(ctx context.Context, chatID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, username, message, response, timestamp
		FROM conversations
		WHERE chat_id = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		var ts int64
		if err := rows.Scan(&t.ID, &t.ChatID, &t.UserID, &t.Username, &t.Message, &t.Response, &ts); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Timestamp = time.Unix(0, ts)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	// Reverse to oldest first
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// CountByChat counts turns of one chat
func (r *turnRepo) CountByChat(ctx context.Context, chatID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE chat_id = ?`, chatID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chat turns: %w", err)
	}
	return n, nil
}

// CountAll counts all turns
func (r *turnRepo) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return n, nil
}

// DeleteChat deletes all turns of a chat
func (r *turnRepo) DeleteChat(ctx context.Context, chatID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE chat_id = ?`, chatID)
	if err != nil {
		return 0, fmt.Errorf("delete chat turns: %w", err)
	}
	return result.RowsAffected()
}

// CleanupBefore deletes turns older than before
func (r *turnRepo) CleanupBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE timestamp < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("cleanup turns: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (r *turnRepo) Close() error {
	return r.db.Close()
}
