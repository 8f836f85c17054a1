package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deadraisers/riri/internal/biz"
	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
	"github.com/deadraisers/riri/internal/biz/usecase"
)

// ReplyTexts contains the fixed replies sent outside of model answers
type ReplyTexts struct {
	WakeAck     string
	Fallback    string
	RateLimited string
}

// ConversationService runs one inbound message through the gate, the limiter and the model
type ConversationService struct {
	activity    *usecase.ActivityStore
	gate        *usecase.GateUsecase
	limiter     *usecase.RateLimiter
	completion  *usecase.CompletionUsecase
	command     *usecase.CommandUsecase
	turnRepo    repo.TurnRepo
	messageRepo repo.MessageRepo
	texts       ReplyTexts
	logger      *zap.Logger

	now func() time.Time
}

// NewConversationService creates a conversation service bound to one transport
func NewConversationService(
	uc *biz.Usecases,
	turnRepo repo.TurnRepo,
	messageRepo repo.MessageRepo,
	texts ReplyTexts,
	logger *zap.Logger,
) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{
		activity:    uc.Activity,
		gate:        uc.Gate,
		limiter:     uc.Limiter,
		completion:  uc.Completion,
		command:     uc.Command,
		turnRepo:    turnRepo,
		messageRepo: messageRepo,
		texts:       texts,
		logger:      logger.Named("conversation"),
		now:         time.Now,
	}
}

// HandleMessage processes one inbound message. Send failures are logged and
// swallowed; the returned error is reserved for command failures.
func (s *ConversationService) HandleMessage(ctx context.Context, msg *domain.Message) error {
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return nil
	}

	if cmd, ok := domain.ParseCommand(text); ok {
		return s.HandleCommand(ctx, msg.ChatID, cmd)
	}
	if strings.HasPrefix(text, "/") {
		s.logger.Debug("unknown command ignored", zap.String("chat_id", msg.ChatID), zap.String("text", text))
		return nil
	}

	act := s.activity.Acquire(msg.ChatID)
	defer act.Release()

	decision := s.gate.Decide(act, domain.GateInput{
		Text:         text,
		ChatType:     msg.ChatType,
		ReplyToSelf:  msg.ReplyToSelf,
		MentionsSelf: msg.MentionsSelf,
	})

	log := s.logger.With(
		zap.String("chat_id", msg.ChatID),
		zap.String("msg_id", msg.ID),
		zap.Stringer("decision", decision),
	)
	log.Debug("gate decided")

	switch decision {
	case domain.DecisionSleep, domain.DecisionSilent, domain.DecisionIgnore:
		return nil
	case domain.DecisionWake:
		s.send(ctx, log, msg.ChatID, s.texts.WakeAck, domain.FormatPlain)
		return nil
	}

	if !s.limiter.CheckAndRecord(msg.ChatID, s.now()) {
		log.Info("rate limit reached")
		s.send(ctx, log, msg.ChatID, s.texts.RateLimited, domain.FormatPlain)
		return nil
	}

	if err := s.messageRepo.SendTyping(ctx, msg.ChatID, msg.ID); err != nil {
		log.Debug("typing indicator failed", zap.Error(err))
	}

	reply, err := s.completion.Generate(ctx, usecase.GenerateRequest{
		ChatID:   msg.ChatID,
		ChatType: msg.ChatType,
		Text:     text,
	})
	if err != nil {
		log.Error("completion failed", zap.Error(err))
		s.send(ctx, log, msg.ChatID, s.texts.Fallback, domain.FormatPlain)
		return nil
	}

	log.Info("reply generated",
		zap.Stringer("complexity", reply.Complexity),
		zap.Int("max_tokens", reply.MaxTokens),
		zap.Bool("retried", reply.Retried),
		zap.Int("chars", len(reply.Text)),
	)

	// Turns are stamped with the platform send time when the transport reports one
	stamp := msg.CreateTime
	if stamp.IsZero() {
		stamp = s.now()
	}
	turn := &domain.Turn{
		ChatID:    msg.ChatID,
		UserID:    msg.SenderID,
		Username:  msg.DisplayName(),
		Message:   text,
		Response:  reply.Text,
		Timestamp: stamp,
	}
	if err := s.turnRepo.Append(ctx, turn); err != nil {
		log.Error("failed to store turn", zap.Error(err))
	}

	s.send(ctx, log, msg.ChatID, reply.Text, domain.FormatPlain)
	return nil
}

// HandleCommand executes an operator command and sends its reply
func (s *ConversationService) HandleCommand(ctx context.Context, chatID string, cmd domain.Command) error {
	log := s.logger.With(zap.String("chat_id", chatID), zap.String("command", string(cmd)))

	out, err := s.command.Execute(ctx, cmd, chatID)
	if err != nil {
		log.Error("command failed", zap.Error(err))
		s.send(ctx, log, chatID, s.texts.Fallback, domain.FormatPlain)
		return fmt.Errorf("command %s: %w", cmd, err)
	}

	format := domain.FormatPlain
	if cmd == domain.CommandInfo || cmd == domain.CommandStats {
		format = domain.FormatMarkdown
	}
	s.send(ctx, log, chatID, out, format)
	log.Info("command served")
	return nil
}

func (s *ConversationService) send(ctx context.Context, log *zap.Logger, chatID, text string, format domain.TextFormat) {
	if text == "" {
		return
	}
	if err := s.messageRepo.SendText(ctx, chatID, text, format); err != nil {
		log.Error("failed to send message", zap.Error(err))
	}
}
