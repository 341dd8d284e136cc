package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
)

// tickTimeout bounds one SNS run so a hung platform call cannot pile up ticks.
const tickTimeout = 50 * time.Second

type SNSRunner interface {
	RunDue(ctx context.Context) (*service.SNSRunResult, error)
}

type BottleExpirer interface {
	ExpireOverdue() (int64, error)
}

type Config struct {
	// SNSSpec and BottleExpirySpec are five-field cron expressions.
	SNSSpec          string
	BottleExpirySpec string
	Location         *time.Location
}

// Scheduler runs the background jobs: publishing due SNS posts and
// expiring overdue bottle keeps.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	sns     SNSRunner
	bottles BottleExpirer
}

func New(cfg Config, sns SNSRunner, bottles BottleExpirer) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		cfg:     cfg,
		sns:     sns,
		bottles: bottles,
	}
}

// Start registers both jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SNSSpec, s.runSNS); err != nil {
		logger.Error("Failed to add cron job for sns posts", err, map[string]interface{}{
			"spec": s.cfg.SNSSpec,
		})
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.BottleExpirySpec, s.expireBottles); err != nil {
		logger.Error("Failed to add cron job for bottle expiry", err, map[string]interface{}{
			"spec": s.cfg.BottleExpirySpec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Scheduler started", map[string]interface{}{
		"sns_spec":    s.cfg.SNSSpec,
		"bottle_spec": s.cfg.BottleExpirySpec,
		"location":    s.cfg.Location.String(),
	})
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	logger.Info("Stopping scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Scheduler stopped")
}

func (s *Scheduler) runSNS() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	result, err := s.sns.RunDue(ctx)
	if err != nil {
		logger.Error("Scheduled sns run failed", err)
		return
	}
	if result.Materialized == 0 && result.Posted == 0 && result.Failed == 0 {
		return
	}
	logger.Info("Scheduled sns run finished", map[string]interface{}{
		"materialized": result.Materialized,
		"posted":       result.Posted,
		"failed":       result.Failed,
	})
}

func (s *Scheduler) expireBottles() {
	expired, err := s.bottles.ExpireOverdue()
	if err != nil {
		logger.Error("Scheduled bottle expiry failed", err)
		return
	}
	logger.Info("Scheduled bottle expiry finished", map[string]interface{}{
		"expired": expired,
	})
}
