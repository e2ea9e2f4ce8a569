// Package scheduler adapts robfig/cron to the Scheduler port.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"intelpipeline/internal/ports"
)

// CronScheduler runs registered jobs on cron specs, including the "@every"
// form. Jobs receive the tick time; overlap protection is the job's concern.
type CronScheduler struct {
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a stopped scheduler.
func NewCronScheduler() *CronScheduler {
	return &CronScheduler{cron: cron.New()}
}

// Register adds a job under the given spec.
func (s *CronScheduler) Register(spec string, job func(time.Time)) error {
	if _, err := s.cron.AddFunc(spec, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("register schedule %q: %w", spec, err)
	}
	return nil
}

// Start begins dispatching in a background goroutine.
func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop halts dispatch and waits for running jobs until ctx expires.
func (s *CronScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
