// Package scheduler runs the periodic storage sweeps on a cron
// schedule.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/liliang-cn/docbatch/pkg/log"
)

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func New() *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: log.WithModule("scheduler"),
	}
}

// AddJob registers fn under a standard cron expression or descriptor
// (e.g. "@daily"). The job is wrapped with a panic guard: a failing
// sweep must not kill the scheduler goroutine.
func (s *Scheduler) AddJob(spec, name string, fn func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("scheduled job panicked", "job", name, "panic", p)
			}
		}()
		s.logger.Debug("running scheduled job", "job", name)
		fn()
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	return nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
