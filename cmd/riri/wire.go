package main

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"github.com/deadraisers/riri/internal/biz"
	"github.com/deadraisers/riri/internal/biz/repo"
	"github.com/deadraisers/riri/internal/biz/usecase"
	"github.com/deadraisers/riri/internal/conf"
	"github.com/deadraisers/riri/internal/data"
	"github.com/deadraisers/riri/internal/infra/paramstore"
	"github.com/deadraisers/riri/internal/service"
)

// loadConfig reads the environment and, with PARAM_PREFIX set, fills missing secrets from SSM
func loadConfig(ctx context.Context) (*conf.Config, error) {
	cfg := conf.LoadFromEnv()
	if err := cfg.LoadPersona(); err != nil {
		logger.Warn("persona config not loaded, using defaults", zap.Error(err))
	}
	if cfg.ParamPrefix == "" {
		return cfg, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	params, err := paramstore.New(ssm.NewFromConfig(awsCfg), cfg.ParamPrefix)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(ctx, params); err != nil {
		logger.Warn("some secrets were not resolved", zap.Error(err))
	}
	return cfg, nil
}

func newGate(cfg *conf.Config) *usecase.GateUsecase {
	return usecase.NewGateUsecase(cfg.Persona.SleepMatcher(), cfg.Persona.WakeMatcher(), cfg.Chat.BotHandle)
}

// newUsecases wires the usecase layer shared by all transports
func newUsecases(cfg *conf.Config, repos *data.Repositories) *biz.Usecases {
	activity := usecase.NewActivityStore()
	gate := newGate(cfg)
	return &biz.Usecases{
		Activity: activity,
		Gate:     gate,
		Limiter:  usecase.NewRateLimiter(cfg.Chat.RateLimitPerHour, time.Hour),
		Completion: usecase.NewCompletionUsecase(
			repos.Turn,
			repos.Completion,
			cfg.Persona.Classifier(),
			cfg.ToCompletionConfig(),
			logger,
		),
		Command: usecase.NewCommandUsecase(repos.Turn, activity, gate, cfg.ToCommandTexts()),
	}
}

// newStoreCommands serves store-only tooling without a model backend
func newStoreCommands(cfg *conf.Config, turns repo.TurnRepo) *usecase.CommandUsecase {
	return usecase.NewCommandUsecase(turns, usecase.NewActivityStore(), newGate(cfg), cfg.ToCommandTexts())
}

func replyTexts(cfg *conf.Config) service.ReplyTexts {
	t := cfg.Persona.Texts
	return service.ReplyTexts{
		WakeAck:     t.WakeAck,
		Fallback:    t.Fallback,
		RateLimited: t.RateLimited,
	}
}

// openStore validates store settings and opens the conversation store
func openStore(ctx context.Context, cfg *conf.Config) (repo.TurnRepo, func(), error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	turns, err := data.NewTurnStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open conversation store: %w", err)
	}
	closeFn := func() {
		if err := (&data.Repositories{Turn: turns}).Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}
	return turns, closeFn, nil
}
