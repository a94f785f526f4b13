package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/pipeline"
)

// Scheduler is the optional in-process cadence for the due-item sweep.
// Deployments that drive the sweep from an external cron hit the cron
// endpoint instead and leave this disabled; the sweep itself is idempotent
// either way.
type Scheduler struct {
	config  *config.SchedulerConfig
	logger  *zap.Logger
	sweeper *pipeline.Sweeper
	ticker  *time.Ticker
	stopCh  chan struct{}
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, sweeper *pipeline.Sweeper) *Scheduler {
	return &Scheduler{
		config:  cfg,
		logger:  logger,
		sweeper: sweeper,
		stopCh:  make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	interval, err := time.ParseDuration(s.config.SweepInterval)
	if err != nil {
		s.logger.Error("Invalid sweep interval", zap.String("interval", s.config.SweepInterval), zap.Error(err))
		return err
	}

	s.logger.Info("Starting scheduler", zap.String("sweep_interval", s.config.SweepInterval))

	s.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				if err := s.runSweep(ctx); err != nil {
					s.logger.Error("Scheduled sweep failed", zap.Error(err))
				}
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Scheduler shutdown completed")
}

func (s *Scheduler) runSweep(ctx context.Context) error {
	start := time.Now()
	published, err := s.sweeper.Sweep(ctx, time.Now().UTC())
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("Sweep failed",
			zap.Error(err),
			zap.Duration("duration", duration))
		return err
	}

	if published > 0 {
		s.logger.Info("Sweep completed",
			zap.Int("published", published),
			zap.Duration("duration", duration))
	}
	return nil
}
