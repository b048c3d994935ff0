package jobs

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep every five seconds.
const DefaultSchedule = "@every 5s"

// Scheduler runs Registry.Sweep on a cron schedule.
type Scheduler struct {
	registry *Registry
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewScheduler creates a stopped scheduler for registry.
func NewScheduler(registry *Registry, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		registry: registry,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger,
	}
}

// Start begins sweeping on schedule, or DefaultSchedule when empty.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.registry.Sweep() }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("job scheduler started", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("job scheduler stopped")
}
