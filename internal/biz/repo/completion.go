package repo

import (
	"context"

	"github.com/deadraisers/riri/internal/biz/domain"
)

// CompletionRequest is one call to the language model
type CompletionRequest struct {
	SystemPrompt string
	Turns        []domain.ChatMessage // Ordered user/assistant messages, newest last
	MaxTokens    int
	Temperature  float32
}

// CompletionRepo is the language model interface
type CompletionRepo interface {
	// Complete returns the raw reply text or an error
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
