package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/deadraisers/riri/internal/biz/repo"
	"github.com/deadraisers/riri/internal/biz/usecase"
)

// DefaultMaintenanceSchedule runs housekeeping every ten minutes
const DefaultMaintenanceSchedule = "@every 10m"

// scheduleParser accepts 5-field expressions and descriptors such as @every or @hourly
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// MaintenanceScheduler sweeps idle rate-limit windows and expires old turns
type MaintenanceScheduler struct {
	limiter   *usecase.RateLimiter
	turnRepo  repo.TurnRepo
	retention time.Duration
	schedule  string
	logger    *zap.Logger

	now func() time.Time
}

// NewMaintenanceScheduler creates a scheduler; retention <= 0 keeps turns forever
func NewMaintenanceScheduler(
	limiter *usecase.RateLimiter,
	turnRepo repo.TurnRepo,
	schedule string,
	retention time.Duration,
	logger *zap.Logger,
) (*MaintenanceScheduler, error) {
	if schedule == "" {
		schedule = DefaultMaintenanceSchedule
	}
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceScheduler{
		limiter:   limiter,
		turnRepo:  turnRepo,
		retention: retention,
		schedule:  schedule,
		logger:    logger.Named("scheduler"),
		now:       time.Now,
	}, nil
}

// Run blocks until ctx is done, running maintenance on the schedule
func (s *MaintenanceScheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(scheduleParser))
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("add maintenance job: %w", err)
	}

	c.Start()
	s.logger.Info("started", zap.String("schedule", s.schedule), zap.Duration("retention", s.retention))

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("stopped")
	return nil
}

// RunOnce performs one maintenance pass
func (s *MaintenanceScheduler) RunOnce(ctx context.Context) {
	now := s.now()

	if s.limiter != nil {
		if n := s.limiter.Sweep(now); n > 0 {
			s.logger.Debug("swept idle rate-limit windows", zap.Int("chats", n))
		}
	}

	if s.turnRepo == nil || s.retention <= 0 {
		return
	}
	removed, err := s.turnRepo.CleanupBefore(ctx, now.Add(-s.retention))
	if err != nil {
		s.logger.Error("turn cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("expired old turns", zap.Int64("removed", removed))
	}
}
