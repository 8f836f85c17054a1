package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
)

// CompletionConfig contains orchestration settings
type CompletionConfig struct {
	SystemPrompt string
	HistoryTurns int     // Stored turns read as context
	MessageCap   int     // Max prompt elements including the system prompt
	Temperature  float32 // Sampling temperature
	Timeout      time.Duration
	Budget       domain.BudgetPolicy
}

// DefaultCompletionConfig is used when no config is supplied
var DefaultCompletionConfig = CompletionConfig{
	HistoryTurns: 10,
	MessageCap:   16,
	Temperature:  0.7,
	Timeout:      30 * time.Second,
	Budget:       domain.DefaultBudgetPolicy(),
}

// CompletionUsecase assembles prompts and calls the language model
type CompletionUsecase struct {
	turnRepo       repo.TurnRepo
	completionRepo repo.CompletionRepo
	classifier     *domain.Classifier
	config         CompletionConfig
	logger         *zap.Logger
}

// NewCompletionUsecase creates a new completion usecase
func NewCompletionUsecase(
	turnRepo repo.TurnRepo,
	completionRepo repo.CompletionRepo,
	classifier *domain.Classifier,
	config CompletionConfig,
	logger *zap.Logger,
) *CompletionUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionUsecase{
		turnRepo:       turnRepo,
		completionRepo: completionRepo,
		classifier:     classifier,
		config:         config,
		logger:         logger.Named("completion"),
	}
}

// GenerateRequest is one message approved by the gate and the limiter
type GenerateRequest struct {
	ChatID   string
	ChatType domain.ChatType
	Text     string
}

// Reply is a successful model answer
type Reply struct {
	Text       string
	Complexity domain.Complexity
	MaxTokens  int  // Budget of the call whose output was kept
	Retried    bool // Whether the truncation retry ran
}

// Generate produces a reply. Failures come back as *domain.CompletionError;
// the caller decides what to tell the user.
func (uc *CompletionUsecase) Generate(ctx context.Context, req GenerateRequest) (*Reply, error) {
	complexity := uc.classifier.Classify(req.Text)
	budget := uc.config.Budget.Budget(req.ChatType, complexity)

	history, err := uc.turnRepo.Recent(ctx, req.ChatID, uc.config.HistoryTurns)
	if err != nil {
		uc.logger.Warn("history unavailable, answering without context",
			zap.String("chat_id", req.ChatID), zap.Error(err))
		history = nil
	}

	prompt := BuildPrompt(uc.config.SystemPrompt, history, req.Text, uc.config.MessageCap)

	text, err := uc.call(ctx, prompt, budget, 1)
	if err != nil {
		return nil, err
	}

	reply := &Reply{Text: text, Complexity: complexity, MaxTokens: budget}
	if !domain.LooksTruncated(text) {
		return reply, nil
	}

	retryBudget := uc.config.Budget.RetryBudget(budget)
	uc.logger.Debug("reply looks truncated, retrying",
		zap.String("chat_id", req.ChatID),
		zap.Int("budget", budget),
		zap.Int("retry_budget", retryBudget))

	text, err = uc.call(ctx, prompt, retryBudget, 2)
	if err != nil {
		return nil, err
	}
	reply.Text = text
	reply.MaxTokens = retryBudget
	reply.Retried = true
	return reply, nil
}

func (uc *CompletionUsecase) call(ctx context.Context, prompt []domain.ChatMessage, maxTokens, attempt int) (string, error) {
	if uc.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.config.Timeout)
		defer cancel()
	}

	out, err := uc.completionRepo.Complete(ctx, repo.CompletionRequest{
		SystemPrompt: prompt[0].Content,
		Turns:        prompt[1:],
		MaxTokens:    maxTokens,
		Temperature:  uc.config.Temperature,
	})
	if err != nil {
		kind := domain.CompletionProvider
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
			kind = domain.CompletionTimeout
		case errors.Is(err, domain.ErrEmptyCompletion):
			kind = domain.CompletionMalformed
		}
		return "", &domain.CompletionError{Kind: kind, Attempt: attempt, Err: err}
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", &domain.CompletionError{Kind: domain.CompletionMalformed, Attempt: attempt, Err: domain.ErrEmptyCompletion}
	}
	return out, nil
}

// BuildPrompt orders the system prompt, history pairs and the new message.
// When the result exceeds messageCap, the system prompt and the newest
// messageCap-1 elements are kept.
func BuildPrompt(systemPrompt string, history []domain.Turn, text string, messageCap int) []domain.ChatMessage {
	msgs := make([]domain.ChatMessage, 0, len(history)*2+2)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})
	msgs = append(msgs, domain.Pairs(history)...)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: text})

	if messageCap > 1 && len(msgs) > messageCap {
		kept := make([]domain.ChatMessage, 0, messageCap)
		kept = append(kept, msgs[0])
		kept = append(kept, msgs[len(msgs)-(messageCap-1):]...)
		msgs = kept
	}
	return msgs
}
