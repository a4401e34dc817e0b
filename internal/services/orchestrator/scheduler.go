package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
)

// Schedule is a daily wall-clock time in a location.
type Schedule struct {
	Hour   int
	Minute int
	Loc    *time.Location
}

// ParseSchedule reads "HH:MM" in the named IANA zone (empty zone means UTC).
func ParseSchedule(runAt, zone string) (Schedule, error) {
	t, err := time.Parse("15:04", runAt)
	if err != nil {
		return Schedule{}, fmt.Errorf("run time %q: %w", runAt, err)
	}
	loc := time.UTC
	if zone != "" {
		if loc, err = time.LoadLocation(zone); err != nil {
			return Schedule{}, fmt.Errorf("time zone %q: %w", zone, err)
		}
	}
	return Schedule{Hour: t.Hour(), Minute: t.Minute(), Loc: loc}, nil
}

// Next is the first scheduled instant strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	loc := s.Loc
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.Hour, s.Minute, 0, 0, loc)
	}
	return next
}

// RunScheduler triggers a run at every scheduled instant until ctx is done.
// A trigger that finds a run in progress is dropped by the reentrancy guard.
func RunScheduler(ctx context.Context, o *Orchestrator, s Schedule, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	for {
		next := s.Next(time.Now())
		logger.Printf("orchestrator: next scheduled run at %s", next.Format(time.RFC3339))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if err := o.Trigger(ctx); err != nil && !errors.Is(err, model.ErrRunInProgress) {
			logger.Printf("orchestrator: scheduled run not started: %v", err)
		}
	}
}
