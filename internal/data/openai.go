package data

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
)

// openAIRepo implements the completion repository for any OpenAI-compatible API (Groq by default)
type openAIRepo struct {
	client *openai.Client
	model  string
}

// NewOpenAIRepo creates a completion repository; an empty baseURL keeps the SDK default
func NewOpenAIRepo(apiKey, baseURL, model string) repo.CompletionRepo {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &openAIRepo{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Complete sends the prompt and returns the first choice's content
func (r *openAIRepo) Complete(ctx context.Context, req repo.CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.SystemPrompt,
	})
	for _, t := range req.Turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openAIRole(t.Role),
			Content: t.Content,
		})
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("chat completion: %w", domain.ErrEmptyCompletion)
	}

	return resp.Choices[0].Message.Content, nil
}

func openAIRole(role domain.Role) string {
	switch role {
	case domain.RoleSystem:
		return openai.ChatMessageRoleSystem
	case domain.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
