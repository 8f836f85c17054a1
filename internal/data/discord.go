package data

import (
	"context"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
)

// discordSender is the subset of the Discord client used for replies
type discordSender interface {
	SendText(ctx context.Context, channelID, text string) error
	SendTyping(ctx context.Context, channelID string) error
}

// discordRepo implements the Discord message repository
type discordRepo struct {
	client discordSender
}

// NewDiscordRepo creates a new Discord repository
func NewDiscordRepo(client discordSender) repo.MessageRepo {
	return &discordRepo{client: client}
}

// SendText sends text; Discord renders markdown natively so the hint is not needed
func (r *discordRepo) SendText(ctx context.Context, chatID, text string, _ domain.TextFormat) error {
	return r.client.SendText(ctx, chatID, text)
}

// SendTyping shows the channel typing indicator
func (r *discordRepo) SendTyping(ctx context.Context, chatID, _ string) error {
	return r.client.SendTyping(ctx, chatID)
}
