package usecase

import (
	"context"
	"fmt"
	"time"

	"intelpipeline/internal/config"
	"intelpipeline/internal/ports"
)

// scheduledActor marks log entries written by timer-driven runs.
const scheduledActor = "scheduler"

// RegisterSchedules binds the four operations to their configured cron specs.
// Scheduled runs discard the outcome; the event log is the only record, since
// no user is watching a timer fire.
func (o *Orchestrator) RegisterSchedules(s ports.Scheduler, cfg config.ScheduleConfig) error {
	jobs := []struct {
		op   string
		spec string
		run  func(context.Context, string) Outcome
	}{
		{OpRefreshIntelligence, cfg.Intelligence, o.RefreshIntelligence},
		{OpRefreshCompanies, cfg.Companies, o.RefreshCompanies},
		{OpGenerateInsight, cfg.Insights, o.GenerateInsightPost},
		{OpGenerateProfiles, cfg.Profiles, o.GenerateCompanyProfiles},
	}

	for _, j := range jobs {
		if j.spec == "" {
			o.logger.Info("operation not scheduled", "op", j.op)
			continue
		}
		run := j.run
		op := j.op
		if err := s.Register(j.spec, func(time.Time) {
			outcome := run(context.Background(), scheduledActor)
			if !outcome.Success {
				o.logger.Warn("scheduled run did not produce output", "op", op, "reason", outcome.ErrorReason)
			}
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", j.op, err)
		}
		o.logger.Info("operation scheduled", "op", j.op, "spec", j.spec)
	}
	return nil
}
