package repo

import (
	"context"

	"github.com/deadraisers/riri/internal/biz/domain"
)

// MessageRepo is the outbound side of a chat transport
type MessageRepo interface {
	// SendText sends a text message to a chat
	SendText(ctx context.Context, chatID, text string, format domain.TextFormat) error

	// SendTyping shows a typing/working indicator.
	// msgID is the inbound message being answered; transports that react
	// to messages rather than chats use it.
	SendTyping(ctx context.Context, chatID, msgID string) error
}
