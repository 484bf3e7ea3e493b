package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Job is a unit of daily work.
type Job func(ctx context.Context) error

// Scheduler triggers collection and the daily batch at fixed wall-clock times.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *zap.SugaredLogger
	timeout   time.Duration
	collectAt string
	mergeAt   string
	collect   Job
	batch     Job
}

// New creates a new Scheduler. collectAt and mergeAt are HH:MM in loc.
func New(loc *time.Location, collectAt, mergeAt string, collect, batch Job, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		logger:    logger,
		timeout:   30 * time.Minute,
		collectAt: collectAt,
		mergeAt:   mergeAt,
		collect:   collect,
		batch:     batch,
	}
}

// Start schedules both daily jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.collect != nil {
		if _, err := s.scheduler.Every(1).Day().At(s.collectAt).Do(s.run, "collect", s.collect); err != nil {
			return err
		}
	}
	if s.batch != nil {
		if _, err := s.scheduler.Every(1).Day().At(s.mergeAt).Do(s.run, "batch", s.batch); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	s.logger.Infow("scheduler started", "collect_at", s.collectAt, "merge_at", s.mergeAt)
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	s.logger.Infow("scheduler: running job", "job", name)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := job(ctx); err != nil {
		s.logger.Errorw("scheduler: job failed", "job", name, "error", err)
		return
	}
	s.logger.Infow("scheduler: completed job", "job", name)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Jobs reports how many jobs are scheduled.
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}
