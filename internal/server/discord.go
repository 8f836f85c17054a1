package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/infra/discord"
)

// discordClient is the subset of *discord.Client the server drives
type discordClient interface {
	OnMessage(handler discord.MessageHandler)
	Start(ctx context.Context) error
}

// DiscordServer feeds Discord gateway messages into the conversation service
type DiscordServer struct {
	client  discordClient
	handler MessageHandler
	queue   *chatQueue
	logger  *zap.Logger

	ctx context.Context
}

// NewDiscordServer creates a new Discord server
func NewDiscordServer(client discordClient, handler MessageHandler, logger *zap.Logger) *DiscordServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscordServer{
		client:  client,
		handler: handler,
		queue:   newChatQueue(),
		logger:  logger.Named("server.discord"),
		ctx:     context.Background(),
	}
}

// Start registers the handler and blocks on the gateway session.
// Messages already queued are finished before it returns.
func (s *DiscordServer) Start(ctx context.Context) error {
	s.ctx = ctx
	s.client.OnMessage(s.handleMessage)
	err := s.client.Start(ctx)
	s.queue.wait()
	return err
}

func (s *DiscordServer) handleMessage(msg *discord.Message) {
	s.logger.Debug("received",
		zap.String("channel_id", msg.ChannelID),
		zap.Bool("direct", msg.IsDirect()),
		zap.String("content", truncate(msg.Content, 50)))

	s.queue.enqueue(msg.ChannelID, func() {
		if err := s.handler.HandleMessage(s.ctx, toDomainDiscord(msg)); err != nil {
			s.logger.Error("handle message failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		}
	})
}

func toDomainDiscord(msg *discord.Message) *domain.Message {
	chatType := domain.ChatTypeGroup
	if msg.IsDirect() {
		chatType = domain.ChatTypeP2P
	}
	return &domain.Message{
		ID:           msg.MsgID,
		ChatID:       msg.ChannelID,
		ChatType:     chatType,
		Content:      msg.Content,
		SenderID:     msg.AuthorID,
		SenderName:   msg.AuthorName,
		CreateTime:   msg.Timestamp,
		ReplyToSelf:  msg.ReplyToBot,
		MentionsSelf: msg.MentionsBot,
	}
}
