package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/infra/feishu"
)

// feishuClient is the subset of *feishu.Client the server drives
type feishuClient interface {
	OnMessage(handler feishu.MessageHandler)
	Start(ctx context.Context) error
	GetChatMembers(ctx context.Context, chatID string) ([]*feishu.ChatMember, error)
}

// FeishuServer feeds Feishu events into the conversation service
type FeishuServer struct {
	client  feishuClient
	handler MessageHandler
	seen    *seenCache
	queue   *chatQueue
	logger  *zap.Logger

	ctx context.Context
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(client feishuClient, handler MessageHandler, logger *zap.Logger) *FeishuServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeishuServer{
		client:  client,
		handler: handler,
		seen:    newSeenCache(dedupWindow),
		queue:   newChatQueue(),
		logger:  logger.Named("server.feishu"),
		ctx:     context.Background(),
	}
}

// Start registers the handler and blocks on the WebSocket connection.
// Messages already queued are finished before it returns.
func (s *FeishuServer) Start(ctx context.Context) error {
	s.ctx = ctx
	s.client.OnMessage(s.handleMessage)
	err := s.client.Start(ctx)
	s.queue.wait()
	return err
}

func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	log := s.logger.With(zap.String("chat_id", msg.ChatID), zap.String("msg_id", msg.MsgID))
	log.Debug("received",
		zap.String("msg_type", msg.MsgType),
		zap.String("chat_type", msg.ChatType),
		zap.String("content", truncate(msg.Content, 50)))

	if !s.seen.markNew(msg.MsgID, time.Now()) {
		log.Debug("duplicate message ignored")
		return
	}

	s.queue.enqueue(msg.ChatID, func() {
		if err := s.handler.HandleMessage(s.ctx, s.toDomain(s.ctx, msg)); err != nil {
			log.Error("handle message failed", zap.Error(err))
		}
	})
}

func (s *FeishuServer) toDomain(ctx context.Context, msg *feishu.Message) *domain.Message {
	chatType := domain.ChatTypeP2P
	if msg.ChatType == "group" {
		chatType = domain.ChatTypeGroup
	}

	out := &domain.Message{
		ID:           msg.MsgID,
		ChatID:       msg.ChatID,
		ChatType:     chatType,
		Content:      msg.Content,
		ReplyToSelf:  msg.ReplyToBot,
		MentionsSelf: msg.MentionsBot,
	}
	if msg.CreateTime > 0 {
		out.CreateTime = time.UnixMilli(msg.CreateTime)
	}

	if msg.Sender != nil {
		out.SenderID = msg.Sender.SenderID
		if chatType.IsGroup() {
			out.SenderName = s.senderName(ctx, msg.ChatID, out.SenderID)
		}
	}
	return out
}

// senderName looks the sender up in the member list; an empty name falls back to the ID
func (s *FeishuServer) senderName(ctx context.Context, chatID, senderID string) string {
	members, err := s.client.GetChatMembers(ctx, chatID)
	if err != nil {
		s.logger.Debug("member lookup failed", zap.String("chat_id", chatID), zap.Error(err))
		return ""
	}
	list := make([]domain.Member, 0, len(members))
	for _, m := range members {
		list = append(list, domain.Member{UserID: m.MemberID, Name: m.Name})
	}
	return domain.FindMemberName(list, senderID)
}
