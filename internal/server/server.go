package server

import (
	"context"

	"github.com/deadraisers/riri/internal/biz/domain"
)

// MessageHandler consumes decoded inbound messages; *service.ConversationService satisfies it
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *domain.Message) error
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
