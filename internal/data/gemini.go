package data

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
)

// geminiModels is the subset of *genai.Models used here
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// geminiRepo implements the completion repository on Google Gemini
type geminiRepo struct {
	models geminiModels
	model  string
}

// NewGeminiRepo creates a Gemini-backed completion repository
func NewGeminiRepo(ctx context.Context, apiKey, model string) (repo.CompletionRepo, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &geminiRepo{models: client.Models, model: model}, nil
}

// Complete maps the prompt onto Gemini contents; assistant turns use the model role
func (r *geminiRepo) Complete(ctx context.Context, req repo.CompletionRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, t := range req.Turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}

	temperature := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := r.models.GenerateContent(ctx, r.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("generate content: %w", domain.ErrEmptyCompletion)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generate content: %w", domain.ErrEmptyCompletion)
	}
	return text, nil
}
