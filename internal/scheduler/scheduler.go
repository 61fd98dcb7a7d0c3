package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler periodically re-runs the label pass and baseline aggregation.
// Each tick is a full, self-terminating batch run; nothing stays resident
// between ticks except the cron timer itself.
type Scheduler struct {
	cron *cron.Cron
	task func()
}

// New creates a Scheduler that executes task on the given cron spec
// (six-field, with seconds).
func New(spec string, task func()) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		task: task,
	}
	if _, err := s.cron.AddFunc(spec, task); err != nil {
		return nil, fmt.Errorf("register run task: %w", err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.task()
}
