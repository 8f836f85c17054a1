package service

import (
	"context"
	"sync"
	"time"

	"github.com/deadraisers/riri/internal/biz"
	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
	"github.com/deadraisers/riri/internal/biz/usecase"
)

// Mock implementations

type mockTurnRepo struct {
	mu           sync.Mutex
	turns        []domain.Turn
	appendErr    error
	cleanupCalls []time.Time
}

func (m *mockTurnRepo) Append(ctx context.Context, turn *domain.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.turns = append(m.turns, *turn)
	return nil
}

func (m *mockTurnRepo) Recent(ctx context.Context, chatID string, limit int) ([]domain.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Turn
	for _, t := range m.turns {
		if t.ChatID == chatID {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *mockTurnRepo) CountByChat(ctx context.Context, chatID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.turns {
		if t.ChatID == chatID {
			n++
		}
	}
	return n, nil
}

func (m *mockTurnRepo) CountAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.turns)), nil
}

func (m *mockTurnRepo) DeleteChat(ctx context.Context, chatID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.turns[:0]
	var n int64
	for _, t := range m.turns {
		if t.ChatID == chatID {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.turns = kept
	return n, nil
}

func (m *mockTurnRepo) CleanupBefore(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupCalls = append(m.cleanupCalls, before)
	kept := m.turns[:0]
	var n int64
	for _, t := range m.turns {
		if t.Timestamp.Before(before) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.turns = kept
	return n, nil
}

func (m *mockTurnRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

type sentMessage struct {
	ChatID string
	Text   string
	Format domain.TextFormat
}

type mockMessageRepo struct {
	mu     sync.Mutex
	sent   []sentMessage
	typing []string
}

func (m *mockMessageRepo) SendText(ctx context.Context, chatID, text string, format domain.TextFormat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text, Format: format})
	return nil
}

func (m *mockMessageRepo) SendTyping(ctx context.Context, chatID, msgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing = append(m.typing, msgID)
	return nil
}

func (m *mockMessageRepo) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.Text)
	}
	return out
}

type mockCompletionRepo struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (m *mockCompletionRepo) Complete(ctx context.Context, req repo.CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockCompletionRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var testTexts = ReplyTexts{
	WakeAck:     "Hello. What's up?",
	Fallback:    "Sorry, try again later.",
	RateLimited: "Slow down.",
}

type fixture struct {
	svc        *ConversationService
	uc         *biz.Usecases
	turns      *mockTurnRepo
	messages   *mockMessageRepo
	completion *mockCompletionRepo
}

func newFixture(rateLimit int) *fixture {
	turns := &mockTurnRepo{}
	messages := &mockMessageRepo{}
	completion := &mockCompletionRepo{reply: "A hymn is a song of praise."}

	activity := usecase.NewActivityStore()
	gate := usecase.NewGateUsecase(
		domain.NewPhraseMatcher(domain.DefaultSleepPhrases),
		domain.NewPhraseMatcher(domain.DefaultWakePhrases),
		"@ChoirBot",
	)
	uc := &biz.Usecases{
		Activity: activity,
		Gate:     gate,
		Limiter:  usecase.NewRateLimiter(rateLimit, time.Hour),
		Completion: usecase.NewCompletionUsecase(
			turns,
			completion,
			domain.NewClassifier(domain.DefaultComplexKeywords, domain.DefaultSimpleKeywords),
			usecase.DefaultCompletionConfig,
			nil,
		),
		Command: usecase.NewCommandUsecase(turns, activity, gate, usecase.CommandTexts{
			Welcome: "Welcome!",
			Info:    "I help with choir questions.",
			Cleared: "Cleared.",
		}),
	}

	return &fixture{
		svc:        NewConversationService(uc, turns, messages, testTexts, nil),
		uc:         uc,
		turns:      turns,
		messages:   messages,
		completion: completion,
	}
}

func p2p(text string) *domain.Message {
	return &domain.Message{
		ID:       "m-" + text,
		ChatID:   "dm-1",
		ChatType: domain.ChatTypeP2P,
		Content:  text,
		SenderID: "u1",
	}
}

func group(text string) *domain.Message {
	return &domain.Message{
		ID:         "g-" + text,
		ChatID:     "grp-1",
		ChatType:   domain.ChatTypeGroup,
		Content:    text,
		SenderID:   "u2",
		SenderName: "Alto Ann",
	}
}
