// Package scheduler triggers background fleet analysis on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/worker"
	"github.com/robfig/cron/v3"
)

// SourceSchedule tags analysis requests published by the scheduler.
const SourceSchedule = "schedule"

// Scheduler publishes analysis requests on a cron schedule. The analysis
// itself runs in whichever worker consumes the request.
type Scheduler struct {
	cron    *cron.Cron
	bus     domain.EventBus
	spec    string
	sectors []int
	entry   cron.EntryID
}

// New creates a scheduler for a standard 5-field cron spec.
func New(bus domain.EventBus, spec string, sectors []int) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s := &Scheduler{
		cron:    cron.New(),
		bus:     bus,
		spec:    spec,
		sectors: sectors,
	}

	entry, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := s.Trigger(ctx); err != nil {
			slog.Error("scheduled analysis request failed",
				"schedule", spec,
				"error", err,
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register schedule: %w", err)
	}
	s.entry = entry

	return s, nil
}

// Trigger publishes one analysis request now and returns its job ID.
func (s *Scheduler) Trigger(ctx context.Context) (string, error) {
	jobID, err := worker.RequestAnalysis(ctx, s.bus, s.sectors, SourceSchedule)
	if err != nil {
		return "", err
	}

	slog.Info("scheduled analysis requested",
		"job_id", jobID,
		"schedule", s.spec,
	)
	return jobID, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started",
		"schedule", s.spec,
		"next_run", s.Next(),
	)
}

// Stop halts the schedule and waits for a running trigger to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// Next returns the next scheduled run, or the zero time if not started.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// NextAfter returns the run that follows t under the schedule.
func (s *Scheduler) NextAfter(t time.Time) time.Time {
	return s.cron.Entry(s.entry).Schedule.Next(t)
}
