package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deadraisers/riri/internal/api"
	"github.com/deadraisers/riri/internal/biz"
	"github.com/deadraisers/riri/internal/conf"
	"github.com/deadraisers/riri/internal/data"
	"github.com/deadraisers/riri/internal/infra/discord"
	"github.com/deadraisers/riri/internal/infra/feishu"
	"github.com/deadraisers/riri/internal/server"
	"github.com/deadraisers/riri/internal/service"
)

// shutdownGrace bounds how long serve waits for transports after a signal
const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	var noAPI bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat transports, admin API and maintenance scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, noAPI)
		},
	}

	cmd.Flags().BoolVar(&noAPI, "no-api", false, "do not start the admin HTTP API")
	return cmd
}

func runServe(ctx context.Context, noAPI bool) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	repos, err := data.NewRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.Close(); err != nil {
			logger.Warn("close repositories", zap.Error(err))
		}
	}()

	uc := newUsecases(cfg, repos)
	defer uc.Activity.Close()

	logger.Info("starting riri",
		zap.String("version", Version),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("store", cfg.Store.Backend),
		zap.Int("rate_limit_per_hour", uc.Limiter.Limit()),
	)

	g, gctx := errgroup.WithContext(ctx)

	if err := startTransports(gctx, g, cfg, uc, repos); err != nil {
		return err
	}

	if !noAPI && cfg.API.Addr != "" {
		apiServer := api.NewServer(uc.Command, uc.Activity, cfg.API.Addr, logger)
		g.Go(func() error { return apiServer.Run(gctx) })
	}

	scheduler, err := service.NewMaintenanceScheduler(
		uc.Limiter,
		repos.Turn,
		cfg.MaintenanceSchedule,
		time.Duration(cfg.Store.RetentionDays)*24*time.Hour,
		logger,
	)
	if err != nil {
		return err
	}
	g.Go(func() error { return scheduler.Run(gctx) })

	return waitGroup(ctx, g)
}

func startTransports(ctx context.Context, g *errgroup.Group, cfg *conf.Config, uc *biz.Usecases, repos *data.Repositories) error {
	if cfg.Feishu.Enabled() {
		client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)
		svc := service.NewConversationService(uc, repos.Turn, data.NewFeishuRepo(client), replyTexts(cfg), logger)
		srv := server.NewFeishuServer(client, svc, logger)
		g.Go(func() error { return srv.Start(ctx) })
		logger.Info("feishu transport enabled")
	}

	if cfg.Discord.Enabled() {
		client, err := discord.NewClient(cfg.Discord.BotToken, logger)
		if err != nil {
			return err
		}
		svc := service.NewConversationService(uc, repos.Turn, data.NewDiscordRepo(client), replyTexts(cfg), logger)
		srv := server.NewDiscordServer(client, svc, logger)
		g.Go(func() error { return srv.Start(ctx) })
		logger.Info("discord transport enabled")
	}
	return nil
}

// waitGroup returns the first component error, or nil once a shutdown signal
// has been handled; stragglers get shutdownGrace to exit.
func waitGroup(ctx context.Context, g *errgroup.Group) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("component stopped with error", zap.Error(err))
		}
	case <-time.After(shutdownGrace):
		logger.Warn("shutdown grace period elapsed")
	}
	return nil
}
