package repo

import (
	"context"
	"time"

	"github.com/deadraisers/riri/internal/biz/domain"
)

// TurnRepo is the conversation store interface
// Append-only log of answered turns (SQLite or DynamoDB)
type TurnRepo interface {
	// Append stores one turn; a single turn is written atomically
	Append(ctx context.Context, turn *domain.Turn) error

	// Recent returns up to limit most recent turns of a chat, oldest first
	Recent(ctx context.Context, chatID string, limit int) ([]domain.Turn, error)

	// CountByChat counts turns of one chat
	CountByChat(ctx context.Context, chatID string) (int64, error)

	// CountAll counts turns across all chats
	CountAll(ctx context.Context) (int64, error)

	// DeleteChat removes every turn of a chat and returns how many were removed
	DeleteChat(ctx context.Context, chatID string) (int64, error)

	// CleanupBefore removes turns older than the given time
	CleanupBefore(ctx context.Context, before time.Time) (int64, error)
}
