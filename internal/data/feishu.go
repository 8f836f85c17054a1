package data

import (
	"context"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
)

// typingReaction marks the message being answered while the model works
const typingReaction = "OnIt"

// feishuSender is the subset of the Feishu client used for replies
type feishuSender interface {
	SendText(ctx context.Context, chatID, text string) (string, error)
	SendMarkdown(ctx context.Context, chatID, text string) (string, error)
	AddReaction(ctx context.Context, messageID, emojiType string) error
}

// feishuRepo implements the Feishu message repository
type feishuRepo struct {
	client feishuSender
}

// NewFeishuRepo creates a new Feishu repository
func NewFeishuRepo(client feishuSender) repo.MessageRepo {
	return &feishuRepo{client: client}
}

// SendText sends plain text, or a markdown post when hinted
func (r *feishuRepo) SendText(ctx context.Context, chatID, text string, format domain.TextFormat) error {
	var err error
	if format == domain.FormatMarkdown {
		_, err = r.client.SendMarkdown(ctx, chatID, text)
	} else {
		_, err = r.client.SendText(ctx, chatID, text)
	}
	return err
}

// SendTyping reacts to the inbound message; Feishu has no chat-level typing indicator
func (r *feishuRepo) SendTyping(ctx context.Context, chatID, msgID string) error {
	if msgID == "" {
		return nil
	}
	return r.client.AddReaction(ctx, msgID, typingReaction)
}
