package data

import (
	"context"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/deadraisers/riri/internal/biz/repo"
	"github.com/deadraisers/riri/internal/conf"
)

// Repositories contains the transport-independent repositories
type Repositories struct {
	Turn       repo.TurnRepo
	Completion repo.CompletionRepo
}

// NewTurnStore opens the configured conversation store
func NewTurnStore(ctx context.Context, cfg conf.StoreConfig) (repo.TurnRepo, error) {
	switch cfg.Backend {
	case conf.StoreDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewDynamoTurnRepo(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable)
	default:
		return NewTurnRepo(cfg.DBPath)
	}
}

// NewCompletion creates the configured completion backend
func NewCompletion(ctx context.Context, cfg conf.LLMConfig) (repo.CompletionRepo, error) {
	switch cfg.Provider {
	case conf.ProviderGemini:
		return NewGeminiRepo(ctx, cfg.APIKey, cfg.Model)
	default:
		return NewOpenAIRepo(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	}
}

// NewRepositories creates all transport-independent repositories
func NewRepositories(ctx context.Context, cfg *conf.Config) (*Repositories, error) {
	turn, err := NewTurnStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}

	completion, err := NewCompletion(ctx, cfg.LLM)
	if err != nil {
		_ = closeRepo(turn)
		return nil, fmt.Errorf("create completion backend: %w", err)
	}

	return &Repositories{
		Turn:       turn,
		Completion: completion,
	}, nil
}

// Close releases store resources
func (r *Repositories) Close() error {
	return closeRepo(r.Turn)
}

func closeRepo(v any) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
