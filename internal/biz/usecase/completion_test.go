package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadraisers/riri/internal/biz/domain"
)

func newTestCompletion(turns *mockTurnRepo, llm *mockCompletionRepo) *CompletionUsecase {
	cfg := DefaultCompletionConfig
	cfg.SystemPrompt = "You are Riri."
	return NewCompletionUsecase(
		turns,
		llm,
		domain.NewClassifier(domain.DefaultComplexKeywords, domain.DefaultSimpleKeywords),
		cfg,
		nil,
	)
}

func TestGenerate_SingleCall(t *testing.T) {
	llm := &mockCompletionRepo{replies: []string{"  Sing from the diaphragm.  "}}
	uc := newTestCompletion(&mockTurnRepo{}, llm)

	reply, err := uc.Generate(context.Background(), GenerateRequest{ChatID: "c", ChatType: domain.ChatTypeP2P, Text: "Recommend a song for tenors"})
	require.NoError(t, err)

	assert.Equal(t, "Sing from the diaphragm.", reply.Text)
	assert.False(t, reply.Retried)
	assert.Equal(t, domain.ComplexityMedium, reply.Complexity)
	require.Len(t, llm.requests, 1)
	assert.Equal(t, 500, llm.requests[0].MaxTokens)
	assert.Equal(t, "You are Riri.", llm.requests[0].SystemPrompt)
	assert.InDelta(t, 0.7, llm.requests[0].Temperature, 0.0001)
}

func TestGenerate_TruncationRetriesOnce(t *testing.T) {
	llm := &mockCompletionRepo{replies: []string{"First you breathe...", "Then you hum..."}}
	uc := newTestCompletion(&mockTurnRepo{}, llm)

	reply, err := uc.Generate(context.Background(), GenerateRequest{ChatID: "g", ChatType: domain.ChatTypeGroup, Text: "How to build a vocal warm-up routine"})
	require.NoError(t, err)

	require.Len(t, llm.requests, 2)
	assert.Equal(t, 600, llm.requests[0].MaxTokens)
	assert.Equal(t, 1200, llm.requests[1].MaxTokens)
	assert.Equal(t, "Then you hum...", reply.Text)
	assert.True(t, reply.Retried)
	assert.Equal(t, 1200, reply.MaxTokens)
}

func TestGenerate_RetryBudgetCapped(t *testing.T) {
	llm := &mockCompletionRepo{replies: []string{"cut...", "done."}}
	uc := newTestCompletion(&mockTurnRepo{}, llm)

	_, err := uc.Generate(context.Background(), GenerateRequest{ChatID: "p", ChatType: domain.ChatTypeP2P, Text: "explain harmony"})
	require.NoError(t, err)
	require.Len(t, llm.requests, 2)
	assert.Equal(t, 1000, llm.requests[0].MaxTokens)
	assert.Equal(t, 1500, llm.requests[1].MaxTokens)
}

func TestGenerate_ProviderFailure(t *testing.T) {
	llm := &mockCompletionRepo{errs: []error{errors.New("502 bad gateway")}}
	uc := newTestCompletion(&mockTurnRepo{}, llm)

	reply, err := uc.Generate(context.Background(), GenerateRequest{ChatID: "c", ChatType: domain.ChatTypeP2P, Text: "hi"})
	assert.Nil(t, reply)

	var ce *domain.CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CompletionProvider, ce.Kind)
	assert.Equal(t, 1, ce.Attempt)
}

func TestGenerate_RetryFailureIsError(t *testing.T) {
	llm := &mockCompletionRepo{
		replies: []string{"partial..."},
		errs:    []error{nil, context.DeadlineExceeded},
	}
	uc := newTestCompletion(&mockTurnRepo{}, llm)

	_, err := uc.Generate(context.Background(), GenerateRequest{ChatID: "c", ChatType: domain.ChatTypeP2P, Text: "hi"})

	var ce *domain.CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CompletionTimeout, ce.Kind)
	assert.Equal(t, 2, ce.Attempt)
}

func TestGenerate_EmptyReplyIsMalformed(t *testing.T) {
	llm := &mockCompletionRepo{replies: []string{"   "}}
	uc := newTestCompletion(&mockTurnRepo{}, llm)

	_, err := uc.Generate(context.Background(), GenerateRequest{ChatID: "c", ChatType: domain.ChatTypeP2P, Text: "hi"})

	var ce *domain.CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CompletionMalformed, ce.Kind)
}

func TestGenerate_HistoryFailureStillAnswers(t *testing.T) {
	llm := &mockCompletionRepo{replies: []string{"Hello!"}}
	uc := newTestCompletion(&mockTurnRepo{recentErr: errors.New("disk gone")}, llm)

	reply, err := uc.Generate(context.Background(), GenerateRequest{ChatID: "c", ChatType: domain.ChatTypeP2P, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply.Text)
	assert.Len(t, llm.requests[0].Turns, 1)
}

func TestGenerate_UsesRecentHistory(t *testing.T) {
	turns := &mockTurnRepo{}
	seedTurns(turns, "c", 3)
	seedTurns(turns, "other", 2)
	llm := &mockCompletionRepo{replies: []string{"Sure."}}
	uc := newTestCompletion(turns, llm)

	_, err := uc.Generate(context.Background(), GenerateRequest{ChatID: "c", ChatType: domain.ChatTypeP2P, Text: "again"})
	require.NoError(t, err)

	got := llm.requests[0].Turns
	require.Len(t, got, 7)
	assert.Equal(t, domain.RoleUser, got[0].Role)
	assert.Equal(t, domain.RoleAssistant, got[1].Role)
	assert.Equal(t, "again", got[6].Content)
}

func TestBuildPrompt_Cap(t *testing.T) {
	var history []domain.Turn
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		history = append(history, domain.Turn{
			Message:   "q" + strings.Repeat("x", i),
			Response:  "a" + strings.Repeat("x", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	msgs := BuildPrompt("sys", history, "now", 16)
	require.Len(t, msgs, 16)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, "now", msgs[15].Content)
	// 22 elements before the cap: system plus the newest 15 survive.
	assert.Equal(t, "q"+strings.Repeat("x", 3), msgs[1].Content)
}

func TestBuildPrompt_UnderCap(t *testing.T) {
	msgs := BuildPrompt("sys", nil, "hi", 16)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
}
