package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"DailyDigest/internal/config"
	"DailyDigest/internal/ports"
)

// Scheduler wires the daily trigger driver with the full pipeline job.
type Scheduler struct {
	driver   ports.Scheduler
	runner   *Runner
	pipeline *Pipeline
	cfg      config.SchedulerConfig
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop the recurring daily run.
func NewScheduler(driver ports.Scheduler, runner *Runner, pipeline *Pipeline, cfg config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, runner: runner, pipeline: pipeline, cfg: cfg, logger: logger}
}

// Start registers the daily job with the driver. A trigger that finds a job running is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil || s.pipeline == nil {
		return nil
	}

	return s.driver.Start(ctx, s.Trigger)
}

// Trigger launches the daily pipeline for the calendar day of at.
func (s *Scheduler) Trigger(at time.Time) {
	at = at.In(s.cfg.Location())
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())

	task, err := s.runner.Start(s.pipeline.DailyJob(DailyRequest{
		Day:     day,
		Sources: s.cfg.Sources,
		UseAI:   s.cfg.UseAI,
		Publish: s.cfg.Publish,
	}))
	switch {
	case errors.Is(err, ErrRunnerClosed):
		return
	case err != nil:
		s.logger.Warn("scheduled run skipped", "error", err)
	default:
		s.logger.Info("scheduled run started", "run_id", task.ID, "date", day.Format(time.DateOnly))
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
