package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
)

type mockTurnRepo struct {
	mu        sync.Mutex
	turns     []domain.Turn
	recentErr error
}

func (m *mockTurnRepo) Append(ctx context.Context, turn *domain.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, *turn)
	return nil
}

func (m *mockTurnRepo) Recent(ctx context.Context, chatID string, limit int) ([]domain.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recentErr != nil {
		return nil, m.recentErr
	}
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
	return 0, nil
}

type mockCompletionRepo struct {
	replies  []string
	errs     []error
	requests []repo.CompletionRequest
}

func (m *mockCompletionRepo) Complete(ctx context.Context, req repo.CompletionRequest) (string, error) {
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return "", domain.ErrEmptyCompletion
}

func seedTurns(r *mockTurnRepo, chatID string, n int) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		r.turns = append(r.turns, domain.Turn{
			ID:        chatID + "-" + string(rune('a'+i)),
			ChatID:    chatID,
			UserID:    "u1",
			Message:   "question",
			Response:  "answer",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
}
