package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

// Job is one schedulable unit of maintenance work.
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a UTC-pinned scheduler.
func NewScheduler() (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{scheduler: scheduler}, nil
}

// Register schedules a job on the given five-field cron expression. The
// expression is validated up front so a bad one fails at startup, not at
// first fire.
func (s *Scheduler) Register(name, cronExpr string, job Job) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", cronExpr, name, err)
	}

	_, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			start := time.Now()
			if err := job.Run(ctx); err != nil {
				log.Printf("[SCHEDULER] Job %s failed: %v", name, err)
				return
			}
			log.Printf("[SCHEDULER] Job %s completed in %v", name, time.Since(start))
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}

	log.Printf("[SCHEDULER] Registered job %s on schedule %q", name, cronExpr)
	return nil
}

// Start begins firing registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
